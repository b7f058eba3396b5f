// Package core defines the shared contracts of the tabeng engine: the
// schema-free Row type, filter and sort descriptors, column typing, and
// the reserved keys used to tag synthesized group rows. Rows carry no
// compile-time schema; columns are discovered from the data, not declared.
package core

// Row represents a single schema-free record. Values are primitives,
// nested maps, or slices. The pipeline never mutates a Row; every stage
// allocates fresh slices and maps for its output.
type Row map[string]any

// FilterValue is the polymorphic value of a column filter. Depending on
// the column type it is a string (text or numeric expression), a bool,
// a two-element date-range slice, or a slice of allowed values.
type FilterValue any

// ColumnType selects which predicate and comparator variant applies to
// a column. Unknown or missing types fall back to ColumnTypeString.
type ColumnType string

const (
	ColumnTypeString  ColumnType = "string"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeDate    ColumnType = "date"
)

// FilterDescriptor holds the filter state for one column. A Value of
// nil, empty string or empty slice means "no filter": every row passes.
type FilterDescriptor struct {
	Value FilterValue `json:"value"`
}

// IsEmpty reports whether the descriptor carries no effective filter.
func (f FilterDescriptor) IsEmpty() bool {
	switch v := f.Value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// PercentageColumn describes a virtual numeric column computed at read
// time as (ValueField / TargetField) * 100. The value is never stored on
// the row; it is resolved on demand for filtering, sorting and
// aggregation.
type PercentageColumn struct {
	ColumnName  string `json:"columnName"`
	TargetField string `json:"targetField"`
	ValueField  string `json:"valueField"`
}

// SortDirection is the direction of the single-field "soft" sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortConfig is the single-field soft sort. It is applied at several
// pipeline points: before filtering, after filtering (when no SortMeta
// overrides it), within each group partition, and when ordering the
// group rows themselves. TopLevelKey and NestedPath address a value one
// nesting level down; when NestedPath is empty, Field is resolved
// directly (dotted keys allowed).
type SortConfig struct {
	Field       string        `json:"field"`
	Direction   SortDirection `json:"direction"`
	TopLevelKey string        `json:"topLevelKey,omitempty"`
	NestedPath  string        `json:"nestedPath,omitempty"`
	FieldType   ColumnType    `json:"fieldType,omitempty"`
}

// SortMeta is one key of the explicit multi-key sort. Order is 1 for
// ascending and -1 for descending. When a SortMeta list is present it
// overrides the SortConfig at the top level, but not within groups.
type SortMeta struct {
	Field string `json:"field"`
	Order int    `json:"order"`
}

// Reserved keys that tag a synthesized group row. Aggregated sums are
// stored under the plain column names next to these.
const (
	KeyIsGroup    = "__group__"
	KeyGroupField = "__groupField__"
	KeyGroupValue = "__groupValue__"
	KeyGroupKey   = "__groupKey__"
	KeyGroupLevel = "__groupLevel__"
	KeyRowCount   = "__rowCount__"
	KeyChildren   = "__children__"
)

// GroupKeySeparator joins the per-level segments of a composite group
// key. A nil group value is rendered as GroupKeyNullSentinel, which is
// distinct from the literal string "null".
const (
	GroupKeySeparator    = "|"
	GroupKeyNullSentinel = "__NULL__"
)

// IsGroupRow reports whether a row was synthesized by the grouping
// engine rather than taken from the input data.
func IsGroupRow(row Row) bool {
	if row == nil {
		return false
	}
	tagged, _ := row[KeyIsGroup].(bool)
	return tagged
}
