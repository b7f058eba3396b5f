package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/gridworks/tabeng/core"
)

// Input is everything one pipeline invocation needs: the rows, the
// column metadata, and the filter/search/sort/group configuration.
type Input struct {
	Data               []core.Row                        `json:"data"`
	TableFilters       map[string]core.FilterDescriptor  `json:"tableFilters"`
	Columns            []string                          `json:"columns"`
	ColumnTypes        map[string]core.ColumnType        `json:"columnTypes"`
	MultiselectColumns []string                          `json:"multiselectColumns"`
	PercentageColumns  []core.PercentageColumn           `json:"percentageColumns"`
	EnableFilter       bool                              `json:"enableFilter"`
	SearchTerm         string                            `json:"searchTerm"`
	SearchFields       map[string][]string               `json:"searchFields"`
	SortConfig         *core.SortConfig                  `json:"sortConfig"`
	TableSortMeta      []core.SortMeta                   `json:"tableSortMeta"`
	EnableSort         bool                              `json:"enableSort"`
	GroupFields        []string                          `json:"effectiveGroupFields"`
}

// Result carries all three intermediate arrays. Callers need the
// pre-grouping shapes for summary rows, totals and pagination counts.
type Result struct {
	FilteredData []core.Row `json:"filteredData"`
	SortedData   []core.Row `json:"sortedData"`
	GroupedData  []core.Row `json:"groupedData"`
}

// Engine executes the fixed-order stage sequence: search, pre-filter
// sort, filter, sort, recursive group and aggregate. Computation is
// synchronous, pure and deterministic; malformed rows are dropped where
// row shape is required and never crash a run.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a pipeline engine. A nil logger falls back to a
// no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Compute runs the full pipeline over one input. Empty or missing data
// short-circuits to an all-empty result; no further stage runs.
func (e *Engine) Compute(input Input) *Result {
	if len(input.Data) == 0 {
		return &Result{FilteredData: []core.Row{}, SortedData: []core.Row{}, GroupedData: []core.Row{}}
	}

	data := e.applySearch(input)

	if hasSoftSort(input.SortConfig) {
		// Sorting before the filter stage gives top-N style consumers a
		// stable pre-filter ranking.
		data = sortRowsSoft(data, input.SortConfig)
	}

	filtered := e.applyFilters(data, input)
	sorted := e.applySort(filtered, input)

	grouped := sorted
	if len(input.GroupFields) > 0 && len(sorted) > 0 {
		grouped = groupRows(sorted, input.GroupFields, 0, nil, groupOptions{
			sortCfg: input.SortConfig,
			columns: input.Columns,
			types:   input.ColumnTypes,
			pcts:    input.PercentageColumns,
		})
		e.logger.Debug("grouped rows",
			zap.Strings("fields", input.GroupFields),
			zap.Int("groups", len(grouped)))
	}

	return &Result{FilteredData: filtered, SortedData: sorted, GroupedData: grouped}
}

// applySearch retains rows where any configured search field, top level
// or one nesting level down, contains the term case-insensitively.
// Rows that are not objects are dropped here.
func (e *Engine) applySearch(input Input) []core.Row {
	if input.SearchTerm == "" || len(input.SearchFields) == 0 {
		return input.Data
	}
	term := strings.ToLower(input.SearchTerm)
	out := make([]core.Row, 0, len(input.Data))
	for _, row := range input.Data {
		if row == nil {
			continue
		}
		if rowMatchesSearch(row, input.SearchFields, term) {
			out = append(out, row)
		}
	}
	e.logger.Debug("rows remaining after search", zap.Int("count", len(out)))
	return out
}

func rowMatchesSearch(row core.Row, fields map[string][]string, term string) bool {
	for top, nested := range fields {
		if len(nested) == 0 {
			if strings.Contains(strings.ToLower(core.Stringify(Get(row, top))), term) {
				return true
			}
			continue
		}
		for _, sub := range nested {
			if strings.Contains(strings.ToLower(core.Stringify(Get(row, top+"."+sub))), term) {
				return true
			}
		}
	}
	return false
}

// applyFilters retains rows passing every active regular column filter
// and, after those, every active percentage column filter. Filters with
// empty values never exclude a row.
func (e *Engine) applyFilters(rows []core.Row, input Input) []core.Row {
	if !input.EnableFilter {
		return rows
	}

	multiselect := make(map[string]bool, len(input.MultiselectColumns))
	for _, col := range input.MultiselectColumns {
		multiselect[col] = true
	}

	out := make([]core.Row, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		if rowPassesFilters(row, input, multiselect) {
			out = append(out, row)
		}
	}
	e.logger.Debug("rows remaining after filters", zap.Int("count", len(out)))
	return out
}

func rowPassesFilters(row core.Row, input Input, multiselect map[string]bool) bool {
	for _, col := range input.Columns {
		filter, ok := input.TableFilters[col]
		if !ok || filter.IsEmpty() {
			continue
		}
		if !matchColumn(row, col, normalizeType(input.ColumnTypes[col]), multiselect[col], filter) {
			return false
		}
	}
	for _, pc := range input.PercentageColumns {
		filter, ok := input.TableFilters[pc.ColumnName]
		if !ok || filter.IsEmpty() {
			continue
		}
		if !matchPercentage(row, pc, filter.Value) {
			return false
		}
	}
	return true
}

// applySort orders the filtered rows. An explicit multi-key sort takes
// priority over the soft sort at the top level; the soft sort is
// re-applied here because filtering changed the candidate set.
func (e *Engine) applySort(rows []core.Row, input Input) []core.Row {
	if !input.EnableSort || len(rows) == 0 {
		return rows
	}
	if len(input.TableSortMeta) > 0 {
		return sortRowsMeta(rows, input.TableSortMeta, input.ColumnTypes, input.PercentageColumns)
	}
	if hasSoftSort(input.SortConfig) {
		return sortRowsSoft(rows, input.SortConfig)
	}
	return rows
}
