package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridworks/tabeng/core"
)

func TestComputeEmptyInput(t *testing.T) {
	e := NewEngine(nil)

	for _, input := range []Input{
		{},
		{Data: []core.Row{}},
	} {
		res := e.Compute(input)
		assert.Empty(t, res.FilteredData)
		assert.Empty(t, res.SortedData)
		assert.Empty(t, res.GroupedData)
		assert.NotNil(t, res.FilteredData)
		assert.NotNil(t, res.GroupedData)
	}
}

func TestComputeTextFilter(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"a": 1, "b": "x"},
			{"a": 2, "b": "y"},
			{"a": 3, "b": "x"},
		},
		Columns:      []string{"a", "b"},
		TableFilters: map[string]core.FilterDescriptor{"b": {Value: "x"}},
		EnableFilter: true,
	})

	require.Len(t, res.FilteredData, 2)
	assert.Equal(t, 1, res.FilteredData[0]["a"])
	assert.Equal(t, 3, res.FilteredData[1]["a"])
	// No sort, no grouping: all three shapes agree.
	assert.Equal(t, res.FilteredData, res.SortedData)
	assert.Equal(t, res.SortedData, res.GroupedData)
}

func TestComputeNumericFilterExcludesNil(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"a": 5},
			{"a": nil},
			{"a": 15},
		},
		Columns:      []string{"a"},
		ColumnTypes:  map[string]core.ColumnType{"a": core.ColumnTypeNumber},
		TableFilters: map[string]core.FilterDescriptor{"a": {Value: ">10"}},
		EnableFilter: true,
	})

	require.Len(t, res.FilteredData, 1)
	assert.Equal(t, 15, res.FilteredData[0]["a"])
}

func TestComputeGrouping(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"team": "A", "amt": 10},
			{"team": "A", "amt": 20},
			{"team": "B", "amt": 5},
		},
		Columns:     []string{"team", "amt"},
		ColumnTypes: map[string]core.ColumnType{"amt": core.ColumnTypeNumber},
		GroupFields: []string{"team"},
	})

	require.Len(t, res.GroupedData, 2)
	a, b := res.GroupedData[0], res.GroupedData[1]
	assert.Equal(t, "A", a[core.KeyGroupValue])
	assert.Equal(t, 2, a[core.KeyRowCount])
	assert.Equal(t, 30.0, a["amt"])
	assert.Equal(t, "B", b[core.KeyGroupValue])
	assert.Equal(t, 1, b[core.KeyRowCount])
	assert.Equal(t, 5.0, b["amt"])

	// Pre-grouping shapes survive alongside the grouped output.
	assert.Len(t, res.SortedData, 3)
}

func TestComputeNoOpFiltersKeepEveryRow(t *testing.T) {
	e := NewEngine(nil)
	data := []core.Row{{"a": "x"}, {"a": "y"}}

	for _, v := range []core.FilterValue{nil, "", []any{}, []string{}} {
		res := e.Compute(Input{
			Data:         data,
			Columns:      []string{"a"},
			TableFilters: map[string]core.FilterDescriptor{"a": {Value: v}},
			EnableFilter: true,
		})
		assert.Len(t, res.FilteredData, 2)
	}
}

func TestComputeSearch(t *testing.T) {
	e := NewEngine(nil)
	input := Input{
		Data: []core.Row{
			{"name": "Alice", "org": map[string]any{"dept": "Engineering"}},
			{"name": "Bob", "org": map[string]any{"dept": "Sales"}},
			nil,
		},
		SearchTerm:   "engineer",
		SearchFields: map[string][]string{"name": {}, "org": {"dept"}},
	}

	res := e.Compute(input)
	require.Len(t, res.FilteredData, 1)
	assert.Equal(t, "Alice", res.FilteredData[0]["name"])

	// Searching a top-level field directly.
	input.SearchTerm = "bob"
	res = e.Compute(input)
	require.Len(t, res.FilteredData, 1)
	assert.Equal(t, "Bob", res.FilteredData[0]["name"])
}

func TestComputeSortMetaOverridesSortConfig(t *testing.T) {
	e := NewEngine(nil)
	data := []core.Row{
		{"a": 3, "b": "z"},
		{"a": 1, "b": "y"},
		{"a": 2, "b": "x"},
	}
	meta := []core.SortMeta{{Field: "a", Order: 1}}
	types := map[string]core.ColumnType{"a": core.ColumnTypeNumber}

	configs := []*core.SortConfig{
		nil,
		{Field: "b", Direction: core.SortDesc, FieldType: core.ColumnTypeString},
		{Field: "a", Direction: core.SortDesc, FieldType: core.ColumnTypeNumber},
	}
	for _, cfg := range configs {
		res := e.Compute(Input{
			Data:          data,
			Columns:       []string{"a", "b"},
			ColumnTypes:   types,
			SortConfig:    cfg,
			TableSortMeta: meta,
			EnableSort:    true,
		})
		assert.Equal(t, []any{1, 2, 3}, fieldValues(res.SortedData, "a"))
	}
}

func TestComputeSoftSortAppliesWhenNoMeta(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"n": 2},
			{"n": 1},
			{"n": 3},
		},
		SortConfig: &core.SortConfig{Field: "n", Direction: core.SortDesc, FieldType: core.ColumnTypeNumber},
		EnableSort: true,
	})
	assert.Equal(t, []any{3, 2, 1}, fieldValues(res.SortedData, "n"))
}

func TestComputeSortDisabled(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"n": 2},
			{"n": 1},
		},
		SortConfig: &core.SortConfig{Field: "n", Direction: core.SortAsc, FieldType: core.ColumnTypeNumber},
		EnableSort: false,
	})
	// Pre-filter sort still ran; the sort stage itself is a no-op over
	// the filter output.
	assert.Equal(t, []any{1, 2}, fieldValues(res.SortedData, "n"))
}

func TestComputePercentageFilter(t *testing.T) {
	e := NewEngine(nil)
	pc := core.PercentageColumn{ColumnName: "pct", TargetField: "target", ValueField: "value"}
	res := e.Compute(Input{
		Data: []core.Row{
			{"target": 100, "value": 80},
			{"target": 100, "value": 20},
			{"target": 0, "value": 50},
		},
		PercentageColumns: []core.PercentageColumn{pc},
		TableFilters:      map[string]core.FilterDescriptor{"pct": {Value: ">50"}},
		EnableFilter:      true,
	})

	require.Len(t, res.FilteredData, 1)
	assert.Equal(t, 80, res.FilteredData[0]["value"])
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	e := NewEngine(nil)
	data := []core.Row{
		{"n": 2},
		{"n": 1},
	}
	_ = e.Compute(Input{
		Data:       data,
		SortConfig: &core.SortConfig{Field: "n", Direction: core.SortAsc, FieldType: core.ColumnTypeNumber},
		EnableSort: true,
	})
	assert.Equal(t, []any{2, 1}, fieldValues(data, "n"))
}

func TestComputeMultiselectColumn(t *testing.T) {
	e := NewEngine(nil)
	res := e.Compute(Input{
		Data: []core.Row{
			{"tags": []any{"red", "blue"}},
			{"tags": []any{"green"}},
			{"tags": "red"},
		},
		Columns:            []string{"tags"},
		MultiselectColumns: []string{"tags"},
		TableFilters:       map[string]core.FilterDescriptor{"tags": {Value: []any{"red"}}},
		EnableFilter:       true,
	})
	assert.Len(t, res.FilteredData, 2)
}
