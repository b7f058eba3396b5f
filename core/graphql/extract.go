package graphql

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"

	"github.com/gridworks/tabeng/core"
	"github.com/gridworks/tabeng/core/cache"
	"github.com/gridworks/tabeng/core/flatten"
)

// Extractor turns a GraphQL response plus its query text into keyed row
// sets. It is a pure synchronous transform; the optional parse cache is
// a memo over the pure query-to-AST step and is owned by the caller.
type Extractor struct {
	logger     *zap.Logger
	parseCache *cache.Cache[string, *ast.QueryDocument]
}

// NewExtractor creates an extractor. Both the logger and the parse
// cache may be nil.
func NewExtractor(logger *zap.Logger, parseCache *cache.Cache[string, *ast.QueryDocument]) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger, parseCache: parseCache}
}

// Extract executes the full extraction: discover node paths in the
// query, run each against the response, flatten the results, and merge
// field results that share a GraphQL type. A query that fails to parse
// falls back to two hardcoded structural guesses so dynamically built
// or malformed queries still yield something. The return is nil only
// when no field produced any registration at all; fields that exist
// but hold no rows register empty lists.
func (e *Extractor) Extract(response map[string]any, query string) *core.RowSet {
	doc, err := e.parseQuery(query)
	if err != nil || len(doc.Operations) == 0 {
		e.logger.Debug("query parse failed, using structural fallback", zap.Error(err))
		return e.fallbackExtract(response)
	}

	paths := DiscoverNodePaths(doc.Operations[0].SelectionSet, nil)
	if len(paths) == 0 {
		return nil
	}

	type fieldResult struct {
		name    string
		gqlType string
		rows    []core.Row
	}
	results := make([]fieldResult, 0, len(paths))
	for _, np := range paths {
		raw := evalSteps(response, pathToSteps(np.Path))
		rows := objectRows(raw)
		results = append(results, fieldResult{
			name:    np.FieldName,
			gqlType: np.GraphQLType,
			rows:    flatten.Rows(rows),
		})
	}

	// Merge by GraphQL type. Index-like fields are auxiliary lookups
	// and never merge; merging them would corrupt row shape.
	byType := make(map[string]int)
	for _, r := range results {
		if r.gqlType == "" || isIndexLikeField(r.name) {
			continue
		}
		byType[r.gqlType]++
	}

	out := core.NewKeyedRowSet()
	for _, r := range results {
		key := r.name
		if r.gqlType != "" && !isIndexLikeField(r.name) && byType[r.gqlType] > 1 {
			// Differently aliased queries against one type are one
			// logical table, keyed by the type name.
			key = r.gqlType
		}
		out.Add(key, flatten.RemoveIndexKeys(r.rows))
	}
	if out.Empty() {
		return nil
	}
	return out
}

func (e *Extractor) parseQuery(query string) (*ast.QueryDocument, error) {
	if e.parseCache != nil {
		if doc, ok := e.parseCache.Get(query); ok {
			return doc, nil
		}
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return nil, err
	}
	if e.parseCache != nil {
		e.parseCache.Set(query, doc)
	}
	return doc, nil
}

// fallbackExtract applies the two hardcoded structural guesses,
// data.data.*.edges[].node then data.edges[].node, against the raw
// response. The second guess registers under the literal key "data"
// because no field name is recoverable without a query.
func (e *Extractor) fallbackExtract(response map[string]any) *core.RowSet {
	out := core.NewKeyedRowSet()

	if data, ok := toMap(response["data"]); ok {
		if inner, ok := toMap(data["data"]); ok {
			keys := make([]string, 0, len(inner))
			for k := range inner {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rows := objectRows(edgesNodeValues(inner[k]))
				if len(rows) > 0 {
					out.Add(k, flatten.RemoveIndexKeys(flatten.Rows(rows)))
				}
			}
		}
		if out.Empty() {
			rows := objectRows(edgesNodeValues(data))
			if len(rows) > 0 {
				out.Add("data", flatten.RemoveIndexKeys(flatten.Rows(rows)))
			}
		}
	}

	if out.Empty() {
		return nil
	}
	return out
}

// step is one link of a data-access query: either a literal object key
// or an edges[].node array projection.
type step struct {
	key        string
	projection bool
}

// pathToSteps converts a discovered node path into access steps,
// collapsing every adjacent edges,node pair into a single projection
// step and prefixing the response root key.
func pathToSteps(path []string) []step {
	steps := []step{{key: "data"}}
	for i := 0; i < len(path); i++ {
		if path[i] == "edges" && i+1 < len(path) && path[i+1] == "node" {
			steps = append(steps, step{key: "edges", projection: true})
			i++
			continue
		}
		steps = append(steps, step{key: path[i]})
	}
	return steps
}

// evalSteps runs access steps against a JSON value. A projection step
// maps every edges element through its node and splices nested
// projection results flat, JMESPath style.
func evalSteps(node any, steps []step) any {
	cur := node
	for i, st := range steps {
		m, ok := toMap(cur)
		if !ok {
			return nil
		}
		if !st.projection {
			cur = m[st.key]
			continue
		}

		edges, ok := m[st.key].([]any)
		if !ok {
			return nil
		}
		rest := steps[i+1:]
		out := make([]any, 0, len(edges))
		for _, edge := range edges {
			em, ok := toMap(edge)
			if !ok {
				continue
			}
			node := em["node"]
			if node == nil {
				continue
			}
			if len(rest) == 0 {
				out = append(out, node)
				continue
			}
			switch r := evalSteps(node, rest).(type) {
			case nil:
			case []any:
				out = append(out, r...)
			default:
				out = append(out, r)
			}
		}
		return out
	}
	return cur
}

// edgesNodeValues is the structural guess edges[].node over one value.
func edgesNodeValues(v any) []any {
	m, ok := toMap(v)
	if !ok {
		return nil
	}
	edges, ok := m["edges"].([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(edges))
	for _, edge := range edges {
		if em, ok := toMap(edge); ok {
			if node := em["node"]; node != nil {
				out = append(out, node)
			}
		}
	}
	return out
}

// objectRows keeps only the object elements of an extraction result as
// rows. Non-array and empty results yield an empty row list, which
// still registers: callers distinguish "field absent" from "field
// present but empty" upstream.
func objectRows(v any) []core.Row {
	arr, ok := v.([]any)
	if !ok {
		return []core.Row{}
	}
	rows := make([]core.Row, 0, len(arr))
	for _, el := range arr {
		if m, ok := toMap(el); ok {
			rows = append(rows, core.Row(m))
		}
	}
	return rows
}

// isIndexLikeField matches auxiliary lookup fields that must keep their
// own key instead of merging into their type's row set.
func isIndexLikeField(name string) bool {
	n := strings.ToLower(name)
	for _, marker := range []string{"index", "postingdetails", "lookup", "reference"} {
		if strings.Contains(n, marker) {
			return true
		}
	}
	return strings.Contains(n, "detail") && (strings.Contains(n, "posting") || strings.Contains(n, "index"))
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
