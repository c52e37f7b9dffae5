// Package pathquery implements a path expression language for querying
// in-memory document trees.
//
// Expressions navigate nested maps and arrays with property access, array
// indexing and slicing, wildcards, recursive descent and filter
// predicates, including fuzzy string matching and temporal comparisons:
//
//	$.store.book[?(@.price < 10)].title
//	$..author
//	$.items[1:5:2]
//	$.users[?(@.name ~= 'jonh')]
//
// # Quick Start
//
//	// Parse once, evaluate many times
//	path, err := pathquery.Parse("$.store.book[0].title")
//	engine := pathquery.NewEngine(doc)
//	value, found, err := engine.Evaluate(path)
//
//	// One-shot evaluation
//	value, found, err := pathquery.Evaluate(doc, "$.store.book[0].title")
//
// # Safety
//
// Expressions are treated as untrusted input: dangerous property names
// are rejected, recursion depth and total work are budgeted, and regex
// matching is screened and time-bounded. See the evaluator package for
// the limits and how to tune them.
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/treedoc/pathquery/pkg/parser
//   - Evaluator: github.com/treedoc/pathquery/pkg/evaluator
//   - Analyzer: github.com/treedoc/pathquery/pkg/analyzer
//   - Types: github.com/treedoc/pathquery/pkg/types
package pathquery

import (
	"fmt"

	"github.com/treedoc/pathquery/pkg/evaluator"
	"github.com/treedoc/pathquery/pkg/parser"
	"github.com/treedoc/pathquery/pkg/types"
)

// Version returns the current version of the library.
func Version() string {
	return "v0.1.0-dev"
}

// Parse compiles a path expression for repeated evaluation. The returned
// AST is immutable and safe for concurrent use.
func Parse(expr string) (*types.Path, error) {
	return parser.Parse(expr)
}

// MustParse is like Parse but panics on invalid input. It simplifies safe
// initialization of package-level variables.
func MustParse(expr string) *types.Path {
	path, err := parser.Parse(expr)
	if err != nil {
		panic(fmt.Sprintf("pathquery: Parse(%q): %v", expr, err))
	}
	return path
}

// Engine evaluates parsed expressions against one document, with result
// caching. It is an alias for the evaluator's engine type.
type Engine = evaluator.Engine

// Option configures an Engine.
type Option = evaluator.Option

// Re-exported engine options, so common tuning does not require importing
// the evaluator package directly.
var (
	WithMaxDepth            = evaluator.WithMaxDepth
	WithMaxIterations       = evaluator.WithMaxIterations
	WithRegexTimeout        = evaluator.WithRegexTimeout
	WithCaching             = evaluator.WithCaching
	WithCacheSize           = evaluator.WithCacheSize
	WithSimilarityThreshold = evaluator.WithSimilarityThreshold
	WithClock               = evaluator.WithClock
	WithDebug               = evaluator.WithDebug
	WithLogger              = evaluator.WithLogger
)

// NewEngine creates an engine bound to the given document. For repeated
// queries against the same document this amortizes evaluation through the
// result cache.
func NewEngine(doc interface{}, opts ...Option) *Engine {
	return evaluator.New(doc, opts...)
}

// Evaluate parses and evaluates an expression in a single call. The
// second return value distinguishes an absent result from an explicit
// null. For repeated evaluations, use Parse and NewEngine instead.
func Evaluate(doc interface{}, expr string, opts ...Option) (interface{}, bool, error) {
	path, err := parser.Parse(expr)
	if err != nil {
		return nil, false, err
	}
	return evaluator.Evaluate(doc, path, opts...)
}

// Exists parses an expression and reports whether it resolves to at least
// one value. A valid but non-resolving path is false, not an error.
func Exists(doc interface{}, expr string, opts ...Option) (bool, error) {
	path, err := parser.Parse(expr)
	if err != nil {
		return false, err
	}
	return evaluator.Exists(doc, path, opts...)
}

// TypeOf parses an expression and returns the type tag of the value it
// resolves to. An explicit null leaf reports types.TypeNull with
// found=true, distinct from a non-resolving path.
func TypeOf(doc interface{}, expr string, opts ...Option) (types.ValueType, bool, error) {
	path, err := parser.Parse(expr)
	if err != nil {
		return "", false, err
	}
	return evaluator.TypeOf(doc, path, opts...)
}
