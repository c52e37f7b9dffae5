// Package types defines the core type system for the path-query engine.
//
// This package contains type definitions for:
//   - Path: a parsed path expression (ordered sequence of PathNode)
//   - PathNode: a single path segment (property, index, slice, ...)
//   - FilterNode: a node of a filter predicate expression
//   - ValueType: runtime type tags for document values
//   - Error types: structured errors with kinds and codes
package types

import "sort"

// NodeKind identifies the kind of a path segment.
type NodeKind string

const (
	NodeRoot      NodeKind = "root"      // $
	NodeProperty  NodeKind = "property"  // .name
	NodeIndex     NodeKind = "index"     // [n]
	NodeWildcard  NodeKind = "wildcard"  // [*] or .*
	NodeRecursive NodeKind = "recursive" // ..name or ..
	NodeSlice     NodeKind = "slice"     // [a:b:c]
	NodeFilter    NodeKind = "filter"    // [?( expr )]
)

// PathNode represents a single segment of a path expression.
// Which fields are meaningful depends on Kind; all others stay zero.
type PathNode struct {
	Kind     NodeKind
	Name     string      // NodeProperty; NodeRecursive target ("" = collect everything)
	Index    int         // NodeIndex; negative counts from the end
	Start    *int        // NodeSlice; nil = omitted
	End      *int        // NodeSlice; nil = omitted
	Step     *int        // NodeSlice; nil = omitted (defaults to 1)
	Expr     *FilterNode // NodeFilter predicate
	Position int         // byte offset in the source expression
}

// NewPathNode creates a path node of the given kind at the given source offset.
func NewPathNode(kind NodeKind, position int) *PathNode {
	return &PathNode{Kind: kind, Position: position}
}

// Path is a parsed path expression. A leading NodeRoot segment is optional
// in the source text; when present it must be the first segment and appear
// at most once.
type Path struct {
	Nodes  []*PathNode
	source string
}

// NewPath creates a Path from its segments and original source text.
func NewPath(nodes []*PathNode, source string) *Path {
	return &Path{Nodes: nodes, source: source}
}

// Source returns the original expression text the path was parsed from.
func (p *Path) Source() string {
	return p.source
}

// FilterKind identifies the kind of a filter expression node.
type FilterKind string

const (
	FilterLiteral  FilterKind = "literal"  // 42, 'str', true, null
	FilterProperty FilterKind = "property" // @.path.to.field
	FilterBinary   FilterKind = "binary"   // ==, &&, contains, before, ...
	FilterUnary    FilterKind = "unary"    // !, exists, empty
	FilterFunction FilterKind = "function" // size(@.items), now(), ...
)

// FilterNode represents a node of a filter predicate expression.
// The operator and function name sets are closed; unrecognized names are
// rejected at evaluation time, not at parse time.
type FilterNode struct {
	Kind     FilterKind
	Value    interface{}   // FilterLiteral: nil, bool, float64 or string
	PropPath []string      // FilterProperty: dotted segments relative to @ (empty = @ itself)
	Op       string        // FilterBinary / FilterUnary operator
	LHS      *FilterNode   // FilterBinary left operand
	RHS      *FilterNode   // FilterBinary right operand; FilterUnary operand
	Name     string        // FilterFunction name
	Args     []*FilterNode // FilterFunction arguments
	Position int
}

// NewFilterNode creates a filter node of the given kind at the given offset.
func NewFilterNode(kind FilterKind, position int) *FilterNode {
	return &FilterNode{Kind: kind, Position: position}
}

// ValueType is the runtime type tag of a document value.
type ValueType string

const (
	TypeNull    ValueType = "null"
	TypeBoolean ValueType = "boolean"
	TypeNumber  ValueType = "number"
	TypeString  ValueType = "string"
	TypeObject  ValueType = "object"
	TypeArray   ValueType = "array"
)

// TypeOfValue returns the type tag for a document value.
// Documents are trees of nil, bool, float64, string,
// map[string]interface{} and []interface{}.
func TypeOfValue(v interface{}) ValueType {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case float64, float32, int, int64:
		return TypeNumber
	case string:
		return TypeString
	case map[string]interface{}:
		return TypeObject
	case []interface{}:
		return TypeArray
	default:
		// Unrecognized leaf kinds from hand-built documents.
		return TypeNull
	}
}

// SortedKeys returns the keys of an object in sorted order. Wildcard and
// recursive traversal iterate objects through this helper so that
// multi-value results are deterministic.
func SortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
