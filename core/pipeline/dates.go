package pipeline

import (
	"strings"
	"time"

	"github.com/gridworks/tabeng/core"
)

// dateLayouts are tried in order when parsing a string cell. The list
// covers the wire formats the grid actually receives: RFC 3339 with and
// without zone, plain dates, and US-style slashed dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
}

// parseDate implements parse-or-null date semantics for arbitrary
// date-like input. The empty sentinels '', 0 and '0' parse to no date.
// Numeric input is interpreted as Unix milliseconds.
func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return *val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" || s == "0" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if n, ok := core.ToFloat64(v); ok {
		if n == 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Time{}, false
}

// dateRangeBounds extracts the nullable [start, end] bounds of a
// date-range filter value. Bounds that fail to parse count as absent.
func dateRangeBounds(filter core.FilterValue) (*time.Time, *time.Time) {
	bounds := toValueSlice(filter)
	if bounds == nil {
		if pair, ok := filter.([]time.Time); ok {
			bounds = make([]any, len(pair))
			for i, t := range pair {
				bounds[i] = t
			}
		}
	}
	var start, end *time.Time
	if len(bounds) > 0 {
		if t, ok := parseDate(bounds[0]); ok {
			start = &t
		}
	}
	if len(bounds) > 1 {
		if t, ok := parseDate(bounds[1]); ok {
			end = &t
		}
	}
	return start, end
}
