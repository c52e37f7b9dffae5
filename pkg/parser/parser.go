// Package parser implements the path expression parser.
//
// The parser uses a hand-written recursive descent approach. A path
// expression is a sequence of segments over a document tree:
//
//	$.store.items[2:8:2]
//	users[?(@.age >= 18 && @.name ~= 'jon')].email
//	$..id
//
// The filter sub-grammar inside [?( ... )] is parsed with precedence
// climbing: || binds weaker than &&, which binds weaker than equality,
// which binds weaker than relational and named infix operators, which
// bind weaker than unary !.
//
// Malformed input is returned as a structured *types.Error carrying the
// byte offset of the failure; the parser never panics across its boundary.
package parser

import (
	"github.com/treedoc/pathquery/pkg/types"
)

// Parse parses a path expression and returns its AST.
//
// The leading '$' root anchor is optional: "a.b" and "$.a.b" produce
// equivalent paths modulo the explicit root node.
//
// Example:
//
//	path, err := parser.Parse("$.users[?(@.age >= 18)].name")
//	if err != nil {
//	    var perr *types.Error
//	    errors.As(err, &perr) // perr.Position for caret reporting
//	}
func Parse(input string) (*types.Path, error) {
	p := NewParser(input)
	return p.Parse()
}

// MustParse is like Parse but panics if the expression cannot be parsed.
// It simplifies safe initialization of package-level variables.
func MustParse(input string) *types.Path {
	path, err := Parse(input)
	if err != nil {
		panic("pathquery: Parse(" + input + "): " + err.Error())
	}
	return path
}

// ParseFilter parses a standalone filter predicate expression, the content
// of a [?( ... )] segment. Exposed for collaborators that store predicates
// separately from paths.
func ParseFilter(input string) (*types.FilterNode, error) {
	p := NewParser(input)
	expr, err := p.parseFilterExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.errorf(types.ErrSyntaxError, "Unexpected token: %s", p.current.Value)
	}
	return expr, nil
}
