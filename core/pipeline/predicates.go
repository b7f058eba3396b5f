package pipeline

import (
	"math"
	"strings"

	"github.com/gridworks/tabeng/core"
)

// numericOp is the shape a free-text numeric filter expression parses
// into. Parse precedence: range, gt, lt, gte, lte; anything else falls
// back to the text predicate against the numeric cell.
type numericOp int

const (
	numericFallback numericOp = iota
	numericRange
	numericGT
	numericLT
	numericGTE
	numericLTE
)

type numericFilter struct {
	op numericOp
	lo float64
	hi float64
}

// parseNumber parses one numeric token with all whitespace stripped.
func parseNumber(token string) (float64, bool) {
	return core.ToFloat64(strings.ReplaceAll(token, " ", ""))
}

// parseNumericFilter turns a free-text expression into a numericFilter.
// "5-10", "5 - 10" and "5- 10" parse identically. A leading "-" is a
// sign, not a range separator.
func parseNumericFilter(raw string) numericFilter {
	expr := strings.TrimSpace(raw)
	if i := strings.Index(expr, "-"); i > 0 {
		lo, loOK := parseNumber(expr[:i])
		hi, hiOK := parseNumber(expr[i+1:])
		if loOK && hiOK {
			return numericFilter{op: numericRange, lo: lo, hi: hi}
		}
	}
	prefixOps := []struct {
		prefix string
		op     numericOp
	}{
		{">", numericGT},
		{"<", numericLT},
		{">=", numericGTE},
		{"<=", numericLTE},
	}
	for _, p := range prefixOps {
		if !strings.HasPrefix(expr, p.prefix) {
			continue
		}
		if n, ok := parseNumber(expr[len(p.prefix):]); ok {
			return numericFilter{op: p.op, lo: n}
		}
	}
	return numericFilter{op: numericFallback}
}

// matchText is the case-insensitive substring predicate. Nil cells
// stringify to the empty string.
func matchText(cell any, filter core.FilterValue) bool {
	return strings.Contains(
		strings.ToLower(core.Stringify(cell)),
		strings.ToLower(core.Stringify(filter)),
	)
}

// matchNumeric evaluates a parsed numeric expression against a cell.
// A cell that does not coerce to a number fails every comparison, the
// same way NaN fails every ordered comparison.
func matchNumeric(cell any, filter core.FilterValue) bool {
	f := parseNumericFilter(core.Stringify(filter))
	if f.op == numericFallback {
		return matchText(cell, filter)
	}
	n, ok := core.ToFloat64(cell)
	if !ok || math.IsNaN(n) {
		return false
	}
	return evalNumeric(n, f)
}

func evalNumeric(n float64, f numericFilter) bool {
	switch f.op {
	case numericRange:
		return n >= f.lo && n <= f.hi
	case numericGT:
		return n > f.lo
	case numericLT:
		return n < f.lo
	case numericGTE:
		return n >= f.lo
	case numericLTE:
		return n <= f.lo
	}
	return false
}

// matchBoolean classifies the cell as truthy (true, 1, "1") or falsy
// (false, 0, "0") and compares against the filter. A filter value that
// is not a bool passes every row; the permissiveness is intentional,
// not defensive.
func matchBoolean(cell any, filter core.FilterValue) bool {
	want, ok := filter.(bool)
	if !ok {
		return true
	}
	if want {
		return isTruthyCell(cell)
	}
	return isFalsyCell(cell)
}

func isTruthyCell(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	n, ok := core.ToFloat64(v)
	return ok && n == 1
}

func isFalsyCell(v any) bool {
	if b, ok := v.(bool); ok {
		return !b
	}
	n, ok := core.ToFloat64(v)
	return ok && n == 0
}

// matchDateRange evaluates a [start, end] filter, each bound nullable.
// A range is active once end is present: end-only keeps cells at or
// before end, both bounds keep the inclusive range. Cells that do not
// parse to a date, including the empty sentinels '', 0 and '0', fail
// any active range.
func matchDateRange(cell any, filter core.FilterValue) bool {
	start, end := dateRangeBounds(filter)
	if end == nil {
		return true
	}
	cellDate, ok := parseDate(cell)
	if !ok {
		return false
	}
	if start != nil && cellDate.Before(*start) {
		return false
	}
	return !cellDate.After(*end)
}

// matchMultiselect checks membership of a cell in a set of allowed
// values. An array cell passes when any element matches. Comparison is
// exact string equality, case sensitive and untrimmed, distinct from
// the text predicate; a nil allowed entry matches only a nil cell.
func matchMultiselect(cell any, filter core.FilterValue) bool {
	allowed := toValueSlice(filter)
	if len(allowed) == 0 {
		return true
	}
	if elems, ok := toValueSliceCell(cell); ok {
		for _, el := range elems {
			for _, a := range allowed {
				if multiselectEqual(el, a) {
					return true
				}
			}
		}
		return false
	}
	for _, a := range allowed {
		if multiselectEqual(cell, a) {
			return true
		}
	}
	return false
}

func multiselectEqual(cell, allowed any) bool {
	if cell == nil || allowed == nil {
		return cell == nil && allowed == nil
	}
	return core.Stringify(cell) == core.Stringify(allowed)
}

func toValueSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, el := range s {
			out[i] = el
		}
		return out
	}
	return nil
}

func toValueSliceCell(v any) ([]any, bool) {
	s := toValueSlice(v)
	return s, s != nil
}

// PercentageValue resolves a percentage column against a row:
// (value / target) * 100. The second return is false when either
// operand is missing or non-numeric, or when the denominator is zero
// or non-finite, or when the result itself is non-finite.
func PercentageValue(row core.Row, pc core.PercentageColumn) (float64, bool) {
	target, tok := core.ToFloat64(Get(row, pc.TargetField))
	value, vok := core.ToFloat64(Get(row, pc.ValueField))
	if !tok || !vok {
		return 0, false
	}
	if target == 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return 0, false
	}
	pct := value / target * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, false
	}
	return pct, true
}

// matchPercentage applies the numeric predicate to a computed
// percentage cell. An uncomputable percentage fails any active filter.
func matchPercentage(row core.Row, pc core.PercentageColumn, filter core.FilterValue) bool {
	pct, ok := PercentageValue(row, pc)
	if !ok {
		return false
	}
	f := parseNumericFilter(core.Stringify(filter))
	if f.op == numericFallback {
		return matchText(pct, filter)
	}
	return evalNumeric(pct, f)
}

// matchColumn dispatches a single column filter by the column's
// declared type. An empty filter value passes every row.
func matchColumn(row core.Row, column string, colType core.ColumnType, multiselect bool, filter core.FilterDescriptor) bool {
	if filter.IsEmpty() {
		return true
	}
	cell := Get(row, column)
	if multiselect {
		return matchMultiselect(cell, filter.Value)
	}
	switch colType {
	case core.ColumnTypeNumber:
		return matchNumeric(cell, filter.Value)
	case core.ColumnTypeBoolean:
		return matchBoolean(cell, filter.Value)
	case core.ColumnTypeDate:
		return matchDateRange(cell, filter.Value)
	default:
		return matchText(cell, filter.Value)
	}
}
