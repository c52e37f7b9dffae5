package evaluator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/treedoc/pathquery/pkg/types"
)

// evalFilterBool evaluates a filter expression to its boolean form with
// the candidate bound in ctx.
func (e *Engine) evalFilterBool(expr *types.FilterNode, ctx *EvalContext) (bool, error) {
	value, found, err := e.evalFilterValue(expr, ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return truthy(value), nil
}

// evalFilterValue is the value-producing variant used for operand
// resolution. The second return value reports presence: a missing or
// non-object intermediate in a relative property lookup short-circuits
// to absent rather than erroring.
func (e *Engine) evalFilterValue(expr *types.FilterNode, ctx *EvalContext) (interface{}, bool, error) {
	// Nested subexpressions draw from the same depth budget as path
	// segments, so hand-built trees cannot recurse unboundedly.
	ctx, err := ctx.descend()
	if err != nil {
		return nil, false, err
	}
	if err := ctx.tick(); err != nil {
		return nil, false, err
	}

	switch expr.Kind {
	case types.FilterLiteral:
		return expr.Value, true, nil

	case types.FilterProperty:
		return e.resolveCandidatePath(expr.PropPath, ctx)

	case types.FilterUnary:
		return e.evalUnary(expr, ctx)

	case types.FilterBinary:
		return e.evalBinary(expr, ctx)

	case types.FilterFunction:
		return e.callFunction(expr, ctx)

	default:
		return nil, false, types.NewEvalError(types.ErrOperandType,
			"unknown filter node kind: "+string(expr.Kind))
	}
}

// resolveCandidatePath walks a dotted relative path from the bound
// candidate. The same dangerous-name blacklist applies as for explicit
// path segments. A sequence's length is reachable as the special-cased
// read '.length'; it is not a generic property lookup.
func (e *Engine) resolveCandidatePath(propPath []string, ctx *EvalContext) (interface{}, bool, error) {
	current := ctx.candidate
	for _, name := range propPath {
		if err := checkPropertyName(name); err != nil {
			return nil, false, err
		}
		if obj, ok := current.(map[string]interface{}); ok {
			value, exists := obj[name]
			if !exists {
				return nil, false, nil
			}
			current = value
			continue
		}
		if name == "length" {
			switch v := current.(type) {
			case []interface{}:
				current = float64(len(v))
				continue
			case string:
				current = float64(len(v))
				continue
			}
		}
		// Non-object intermediate short-circuits to absent.
		return nil, false, nil
	}
	return current, true, nil
}

func (e *Engine) evalUnary(expr *types.FilterNode, ctx *EvalContext) (interface{}, bool, error) {
	switch expr.Op {
	case "!":
		b, err := e.evalFilterBool(expr.RHS, ctx)
		if err != nil {
			return nil, false, err
		}
		return !b, true, nil

	case "exists":
		_, found, err := e.evalFilterValue(expr.RHS, ctx)
		if err != nil {
			return nil, false, err
		}
		return found, true, nil

	case "empty":
		value, found, err := e.evalFilterValue(expr.RHS, ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return true, true, nil
		}
		return isEmpty(value), true, nil

	default:
		return nil, false, types.NewEvalError(types.ErrUnknownOperator,
			"unknown unary operator: "+expr.Op)
	}
}

func (e *Engine) evalBinary(expr *types.FilterNode, ctx *EvalContext) (interface{}, bool, error) {
	switch expr.Op {
	case "&&":
		// Short-circuit by re-deriving the boolean form of each side.
		left, err := e.evalFilterBool(expr.LHS, ctx)
		if err != nil {
			return nil, false, err
		}
		if !left {
			return false, true, nil
		}
		right, err := e.evalFilterBool(expr.RHS, ctx)
		if err != nil {
			return nil, false, err
		}
		return right, true, nil

	case "||":
		left, err := e.evalFilterBool(expr.LHS, ctx)
		if err != nil {
			return nil, false, err
		}
		if left {
			return true, true, nil
		}
		right, err := e.evalFilterBool(expr.RHS, ctx)
		if err != nil {
			return nil, false, err
		}
		return right, true, nil
	}

	lhs, lfound, err := e.evalFilterValue(expr.LHS, ctx)
	if err != nil {
		return nil, false, err
	}
	rhs, rfound, err := e.evalFilterValue(expr.RHS, ctx)
	if err != nil {
		return nil, false, err
	}

	switch expr.Op {
	case "==":
		if !lfound || !rfound {
			return false, true, nil
		}
		return looseEqual(lhs, rhs), true, nil

	case "!=":
		// A missing operand is unequal to anything.
		if !lfound || !rfound {
			return true, true, nil
		}
		return !looseEqual(lhs, rhs), true, nil

	case "<", "<=", ">", ">=":
		if !lfound || !rfound {
			return false, true, nil
		}
		cmp, comparable := compareOrder(lhs, rhs)
		if !comparable {
			return false, true, nil
		}
		switch expr.Op {
		case "<":
			return cmp < 0, true, nil
		case "<=":
			return cmp <= 0, true, nil
		case ">":
			return cmp > 0, true, nil
		default:
			return cmp >= 0, true, nil
		}

	case "contains", "startsWith", "endsWith":
		// An absent operand never matches; without this gate it would
		// stringify to "null" and compare as a real value.
		if !lfound || !rfound {
			return false, true, nil
		}
		switch expr.Op {
		case "contains":
			return strings.Contains(stringify(lhs), stringify(rhs)), true, nil
		case "startsWith":
			return strings.HasPrefix(stringify(lhs), stringify(rhs)), true, nil
		default:
			return strings.HasSuffix(stringify(lhs), stringify(rhs)), true, nil
		}

	case "matches":
		if !lfound || !rfound {
			return false, true, nil
		}
		matched, err := e.matchRegex(stringify(lhs), stringify(rhs))
		if err != nil {
			return nil, false, err
		}
		return matched, true, nil

	case "in":
		if !rfound {
			return false, true, nil
		}
		list, ok := rhs.([]interface{})
		if !ok {
			return nil, false, types.NewEvalError(types.ErrOperandType,
				"'in' requires an array right operand")
		}
		if !lfound {
			return false, true, nil
		}
		for _, elem := range list {
			if looseEqual(lhs, elem) {
				return true, true, nil
			}
		}
		return false, true, nil

	case "typeof", "instanceof":
		if !lfound {
			return false, true, nil
		}
		return string(types.TypeOfValue(lhs)) == stringify(rhs), true, nil

	case "~=", "fuzzyMatch", "similar":
		if !lfound || !rfound {
			return false, true, nil
		}
		score := e.cmp.Similarity(stringify(lhs), stringify(rhs))
		return score >= e.opts.SimilarityThreshold, true, nil

	case "~contains", "~startsWith", "~endsWith":
		if !lfound || !rfound {
			return false, true, nil
		}
		switch expr.Op {
		case "~contains":
			return strings.Contains(foldCase(lhs), foldCase(rhs)), true, nil
		case "~startsWith":
			return strings.HasPrefix(foldCase(lhs), foldCase(rhs)), true, nil
		default:
			return strings.HasSuffix(foldCase(lhs), foldCase(rhs)), true, nil
		}

	case "soundsLike":
		if !lfound || !rfound {
			return false, true, nil
		}
		return e.cmp.Phonetic(stringify(lhs)) == e.cmp.Phonetic(stringify(rhs)), true, nil

	case "before", "after", "sameDay", "sameWeek", "sameMonth", "sameYear",
		"daysAgo", "weeksAgo", "monthsAgo", "yearsAgo", "between":
		if !lfound || !rfound {
			return false, true, nil
		}
		return e.evalTemporalOp(expr.Op, lhs, rhs)

	default:
		return nil, false, types.NewEvalError(types.ErrUnknownOperator,
			"unknown operator: "+expr.Op)
	}
}

// truthy derives the boolean form of a value: false for null, zero, the
// empty string and empty containers.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}

// isEmpty reports whether a value is null, an empty string, or an empty
// container.
func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// looseEqual compares two values with numeric normalization but no other
// coercion. Containers compare structurally.
func looseEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}

// compareOrder applies native ordering: numbers numerically, strings
// lexically. Mixed or unordered types are not comparable.
func compareOrder(a, b interface{}) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

// toFloat normalizes the numeric leaf kinds that appear in hand-built and
// decoded documents.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// stringify renders an operand for the string operator family, which
// stringifies both sides.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

func foldCase(v interface{}) string {
	return strings.ToLower(stringify(v))
}
