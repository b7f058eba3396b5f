// Package flatten converts nested row structures into flat dotted-key
// rows suitable for tabular display, and strips the transient
// bookkeeping keys other layers attach to rows in passing.
package flatten

import (
	"strings"

	"github.com/gridworks/tabeng/core"
)

// Bookkeeping keys removed by RemoveIndexKeys. "__typename" rides along
// on GraphQL responses; "__index__" is a transient per-row marker used
// while correlating extraction results.
var indexKeys = map[string]bool{
	"__index__":  true,
	"__typename": true,
}

// Rows flattens each row independently. The input rows are not touched.
func Rows(rows []core.Row) []core.Row {
	out := make([]core.Row, len(rows))
	for i, row := range rows {
		out[i] = Row(row)
	}
	return out
}

// Row returns a new row where every nested object becomes a set of
// dotted-key leaves. Arrays are kept verbatim so multiselect cells
// survive flattening.
func Row(row core.Row) core.Row {
	out := make(core.Row, len(row))
	for key, value := range row {
		flattenInto(out, key, value)
	}
	return out
}

func flattenInto(out core.Row, prefix string, value any) {
	nested, ok := toMap(value)
	if !ok || len(nested) == 0 {
		out[prefix] = value
		return
	}
	for key, v := range nested {
		flattenInto(out, prefix+"."+key, v)
	}
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case core.Row:
		return m, true
	}
	return nil, false
}

// RemoveIndexKeys strips transient bookkeeping keys from every row,
// returning new rows. Dotted descendants of a bookkeeping key are
// stripped as well.
func RemoveIndexKeys(rows []core.Row) []core.Row {
	out := make([]core.Row, len(rows))
	for i, row := range rows {
		clean := make(core.Row, len(row))
		for key, value := range row {
			if isIndexKey(key) {
				continue
			}
			clean[key] = value
		}
		out[i] = clean
	}
	return out
}

func isIndexKey(key string) bool {
	if indexKeys[key] {
		return true
	}
	for k := range indexKeys {
		if strings.HasPrefix(key, k+".") {
			return true
		}
	}
	return false
}
