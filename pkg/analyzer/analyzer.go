// Package analyzer provides static inspection of parsed path expressions.
//
// Validation catches problems before evaluation: structurally invalid
// ASTs, blacklisted property names, unknown operators and functions.
// Analysis reports shape metrics callers use for admission control and
// cache policy, such as whether an expression is deterministic.
package analyzer

import (
	"fmt"

	"github.com/treedoc/pathquery/pkg/evaluator"
	"github.com/treedoc/pathquery/pkg/types"
)

// Issue is a single finding with the offset of the node it concerns.
type Issue struct {
	Code     types.ErrorCode
	Message  string
	Position int
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s (at %d)", i.Code, i.Message, i.Position)
}

// ValidationResult aggregates findings for one expression. Warnings do
// not affect Valid.
type ValidationResult struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Report describes the shape of an expression.
type Report struct {
	// Depth is the number of path segments, the explicit root excluded.
	Depth        int
	HasWildcard  bool
	HasRecursive bool
	HasFilter    bool
	HasSlice     bool
	// IsDeterministic is false when the expression reads the clock, so
	// results may change between evaluations of the same document.
	IsDeterministic bool
	// Complexity is a 1 to 10 cost estimate. Property and index segments
	// are cheap; wildcards, filters and recursive descent dominate.
	Complexity int
	// NodeCounts tallies path segments by kind.
	NodeCounts map[types.NodeKind]int
}

// Validate statically checks a parsed expression. A nil path is invalid.
func Validate(path *types.Path) ValidationResult {
	res := ValidationResult{Valid: true}
	if path == nil {
		res.fail(types.ErrSyntaxError, "nil path", 0)
		return res
	}

	for i, node := range path.Nodes {
		if node.Kind == types.NodeRoot && i != 0 {
			res.fail(types.ErrRootPosition, "root segment only allowed at the start", node.Position)
		}

		switch node.Kind {
		case types.NodeProperty, types.NodeRecursive:
			if node.Name != "" && evaluator.IsDangerousName(node.Name) {
				res.fail(types.ErrDangerousProperty,
					"access to property '"+node.Name+"' is not allowed", node.Position)
			}
			if node.Kind == types.NodeRecursive && node.Name == "" {
				res.warn(types.ErrIterationBudget,
					"unnamed recursive descent visits every node and may hit the iteration budget",
					node.Position)
			}
		case types.NodeSlice:
			if node.Step != nil && *node.Step == 0 {
				res.fail(types.ErrSliceStepZero, "slice step cannot be zero", node.Position)
			}
		case types.NodeFilter:
			validateFilter(node.Expr, &res)
		}
	}
	return res
}

func validateFilter(expr *types.FilterNode, res *ValidationResult) {
	if expr == nil {
		return
	}
	switch expr.Kind {
	case types.FilterProperty:
		for _, name := range expr.PropPath {
			if evaluator.IsDangerousName(name) {
				res.fail(types.ErrDangerousProperty,
					"access to property '"+name+"' is not allowed", expr.Position)
			}
		}
	case types.FilterBinary:
		if !evaluator.IsBinaryOperator(expr.Op) {
			res.fail(types.ErrUnknownOperator, "unknown operator: "+expr.Op, expr.Position)
		}
		validateFilter(expr.LHS, res)
		validateFilter(expr.RHS, res)
	case types.FilterUnary:
		if !evaluator.IsUnaryOperator(expr.Op) {
			res.fail(types.ErrUnknownOperator, "unknown unary operator: "+expr.Op, expr.Position)
		}
		validateFilter(expr.RHS, res)
	case types.FilterFunction:
		if !evaluator.IsBuiltinFunction(expr.Name) {
			res.fail(types.ErrUnknownFunction, "unknown function: "+expr.Name, expr.Position)
		}
		for _, arg := range expr.Args {
			validateFilter(arg, res)
		}
	}
}

func (r *ValidationResult) fail(code types.ErrorCode, msg string, pos int) {
	r.Valid = false
	r.Errors = append(r.Errors, Issue{Code: code, Message: msg, Position: pos})
}

func (r *ValidationResult) warn(code types.ErrorCode, msg string, pos int) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: msg, Position: pos})
}

// Analyze computes shape metrics for a parsed expression.
func Analyze(path *types.Path) Report {
	rep := Report{
		IsDeterministic: true,
		NodeCounts:      make(map[types.NodeKind]int),
	}
	if path == nil {
		rep.Complexity = 1
		return rep
	}

	cost := 0
	for _, node := range path.Nodes {
		rep.NodeCounts[node.Kind]++
		switch node.Kind {
		case types.NodeRoot:
			continue
		case types.NodeProperty, types.NodeIndex:
			cost++
		case types.NodeWildcard:
			rep.HasWildcard = true
			cost += 2
		case types.NodeSlice:
			rep.HasSlice = true
			cost += 2
		case types.NodeFilter:
			rep.HasFilter = true
			cost += 2 + filterCost(node.Expr)
			if !evaluator.FilterIsDeterministic(node.Expr) {
				rep.IsDeterministic = false
			}
		case types.NodeRecursive:
			rep.HasRecursive = true
			cost += 4
		}
		rep.Depth++
	}

	rep.Complexity = cost
	if rep.Complexity < 1 {
		rep.Complexity = 1
	}
	if rep.Complexity > 10 {
		rep.Complexity = 10
	}
	return rep
}

func filterCost(expr *types.FilterNode) int {
	if expr == nil {
		return 0
	}
	switch expr.Kind {
	case types.FilterBinary:
		cost := 1
		if expr.Op == "matches" {
			cost = 2
		}
		return cost + filterCost(expr.LHS) + filterCost(expr.RHS)
	case types.FilterUnary:
		return 1 + filterCost(expr.RHS)
	case types.FilterFunction:
		cost := 1
		for _, arg := range expr.Args {
			cost += filterCost(arg)
		}
		return cost
	default:
		return 0
	}
}
