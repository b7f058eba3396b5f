// Package pipeline implements the filter/sort/group computation engine:
// a fixed-order stage sequence (search, pre-filter sort, filter, sort,
// recursive grouping with aggregation) over schema-free rows, together
// with the type-aware predicate and comparator libraries the stages are
// built from. Every stage is a pure function over its inputs; rows are
// never mutated and every stage allocates its own output.
package pipeline

import (
	"strings"

	"github.com/gridworks/tabeng/core"
)

// Get resolves a column key against a row. A direct key hit wins, which
// covers flattened rows that carry dotted keys literally. Otherwise a
// dotted key is split and walked one segment at a time, short-circuiting
// to nil the moment any intermediate value is missing or not an object.
// Missing paths never panic.
func Get(row core.Row, key string) any {
	if row == nil || key == "" {
		return nil
	}
	if v, ok := row[key]; ok {
		return v
	}
	if !strings.Contains(key, ".") {
		return nil
	}
	var cur any = map[string]any(row)
	for _, seg := range strings.Split(key, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil
		}
		cur = m[seg]
		if cur == nil {
			return nil
		}
	}
	return cur
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case core.Row:
		return m, true
	}
	return nil, false
}
