package pipeline

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gridworks/tabeng/core"
)

// valueComparator orders two cell values under one column type. String
// columns use locale collation; number columns subtract, coercing
// non-numeric values to 0 (a quirk call sites rely on: unknowns sort as
// zero, not last); date columns coerce unparseable values to epoch 0;
// boolean columns rank true after false.
type valueComparator struct {
	colType core.ColumnType
	col     *collate.Collator
}

func newValueComparator(t core.ColumnType) *valueComparator {
	vc := &valueComparator{colType: normalizeType(t)}
	if vc.colType == core.ColumnTypeString {
		// Collators keep internal buffers, so each comparator owns one.
		vc.col = collate.New(language.English)
	}
	return vc
}

func (vc *valueComparator) compare(a, b any) int {
	switch vc.colType {
	case core.ColumnTypeNumber:
		return signOf(numericOrZero(a) - numericOrZero(b))
	case core.ColumnTypeDate:
		da, db := timestampOrEpoch(a), timestampOrEpoch(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	case core.ColumnTypeBoolean:
		return boolRank(a) - boolRank(b)
	default:
		return vc.col.CompareString(core.Stringify(a), core.Stringify(b))
	}
}

func numericOrZero(v any) float64 {
	n, ok := core.ToFloat64(v)
	if !ok || math.IsNaN(n) {
		return 0
	}
	return n
}

func timestampOrEpoch(v any) int64 {
	t, ok := parseDate(v)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func boolRank(v any) int {
	if isTruthyCell(v) {
		return 1
	}
	return 0
}

func signOf(f float64) int {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}

func normalizeType(t core.ColumnType) core.ColumnType {
	switch t {
	case core.ColumnTypeNumber, core.ColumnTypeBoolean, core.ColumnTypeDate:
		return t
	}
	return core.ColumnTypeString
}

// hasSoftSort reports whether a usable single-field sort is configured.
func hasSoftSort(cfg *core.SortConfig) bool {
	if cfg == nil {
		return false
	}
	return cfg.Field != "" || (cfg.TopLevelKey != "" && cfg.NestedPath != "")
}

// softSortValue resolves the soft-sort key for a row. A nested path
// addresses a value one level below the top-level key; otherwise the
// field itself is resolved, dotted keys included.
func softSortValue(row core.Row, cfg *core.SortConfig) any {
	if cfg.TopLevelKey != "" && cfg.NestedPath != "" {
		return Get(row, cfg.TopLevelKey+"."+cfg.NestedPath)
	}
	return Get(row, cfg.Field)
}

// sortRowsSoft returns a new slice ordered by the single-field soft
// sort. The input slice is left untouched.
func sortRowsSoft(rows []core.Row, cfg *core.SortConfig) []core.Row {
	out := copyRows(rows)
	vc := newValueComparator(cfg.FieldType)
	desc := cfg.Direction == core.SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		c := vc.compare(softSortValue(out[i], cfg), softSortValue(out[j], cfg))
		if desc {
			c = -c
		}
		return c < 0
	})
	return out
}

// sortRowsMeta applies the explicit multi-key sort as independent
// stable passes, last key first, so the first key keeps the highest
// priority. Percentage columns resolve through their formula.
func sortRowsMeta(rows []core.Row, metas []core.SortMeta, types map[string]core.ColumnType, pcts []core.PercentageColumn) []core.Row {
	out := copyRows(rows)
	for i := len(metas) - 1; i >= 0; i-- {
		meta := metas[i]
		resolve, colType := fieldResolver(meta.Field, types, pcts)
		vc := newValueComparator(colType)
		desc := meta.Order < 0
		sort.SliceStable(out, func(a, b int) bool {
			c := vc.compare(resolve(out[a]), resolve(out[b]))
			if desc {
				c = -c
			}
			return c < 0
		})
	}
	return out
}

// fieldResolver returns the value accessor and effective column type
// for one sort key. A field backed by a percentage column is always
// numeric and reads through the ratio formula.
func fieldResolver(field string, types map[string]core.ColumnType, pcts []core.PercentageColumn) (func(core.Row) any, core.ColumnType) {
	for _, pc := range pcts {
		if pc.ColumnName == field {
			pc := pc
			return func(r core.Row) any {
				if v, ok := PercentageValue(r, pc); ok {
					return v
				}
				return nil
			}, core.ColumnTypeNumber
		}
	}
	return func(r core.Row) any { return Get(r, field) }, types[field]
}

func copyRows(rows []core.Row) []core.Row {
	out := make([]core.Row, len(rows))
	copy(out, rows)
	return out
}
