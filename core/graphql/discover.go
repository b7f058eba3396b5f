// Package graphql extracts tabular row sets from GraphQL responses
// without any schema knowledge: the query text is parsed to an AST,
// every Relay-style edges/node selection is discovered as a node path,
// and each path is executed against the JSON response to produce
// flattened rows merged by underlying GraphQL type.
package graphql

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// NodePath describes one place in a query where a list of record-like
// objects is selected. It is derived transiently from an AST parse and
// discarded after extraction.
type NodePath struct {
	Path        []string
	LeafFields  []string
	GraphQLType string
	FieldName   string
}

// DiscoverNodePaths walks a selection set depth first and records a
// NodePath wherever a field named "node" terminates a branch. The
// top-level field's name is the underlying type identifier and its
// alias (or name) is the field name actually used in the query; both
// are captured at depth 0 and propagated unchanged.
func DiscoverNodePaths(set ast.SelectionSet, path []string) []NodePath {
	return discover(set, path, "", "")
}

func discover(set ast.SelectionSet, path []string, gqlType, fieldName string) []NodePath {
	var out []NodePath
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}

		t, fn := gqlType, fieldName
		if len(path) == 0 {
			t, fn = field.Name, aliasOrName(field)
		}

		if field.Name == "node" {
			out = append(out, NodePath{
				Path:        appendSegment(path, aliasOrName(field)),
				LeafFields:  leafFields(field.SelectionSet),
				GraphQLType: t,
				FieldName:   fn,
			})
			continue
		}

		if len(field.SelectionSet) > 0 {
			out = append(out, discover(field.SelectionSet, appendSegment(path, aliasOrName(field)), t, fn)...)
		}
	}
	return out
}

// leafFields collects the names of sub-fields that carry no selection
// set of their own.
func leafFields(set ast.SelectionSet) []string {
	var out []string
	for _, sel := range set {
		if f, ok := sel.(*ast.Field); ok && len(f.SelectionSet) == 0 {
			out = append(out, aliasOrName(f))
		}
	}
	return out
}

func aliasOrName(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func appendSegment(path []string, seg string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, seg)
}
