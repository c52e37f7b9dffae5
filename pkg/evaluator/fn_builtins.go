package evaluator

import (
	"fmt"
	"strings"

	"github.com/treedoc/pathquery/pkg/types"
)

// builtinFunctions is the closed set of callable function names. The set
// is versioned with the engine; there is no user extension point.
var builtinFunctions = map[string]struct{}{
	"contains": {}, "startsWith": {}, "endsWith": {}, "matches": {},
	"size": {}, "typeof": {}, "exists": {}, "empty": {},
	"fuzzyMatch": {}, "soundsLike": {}, "similar": {}, "levenshtein": {},
	"parseDate": {}, "now": {}, "today": {},
	"daysAgo": {}, "weeksAgo": {}, "monthsAgo": {},
}

// binaryOperators is the set of named and symbolic binary operators the
// filter evaluator accepts.
var binaryOperators = map[string]struct{}{
	"&&": {}, "||": {},
	"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
	"contains": {}, "startsWith": {}, "endsWith": {}, "matches": {},
	"in": {}, "typeof": {}, "instanceof": {},
	"~=": {}, "fuzzyMatch": {}, "similar": {},
	"~contains": {}, "~startsWith": {}, "~endsWith": {}, "soundsLike": {},
	"before": {}, "after": {}, "sameDay": {}, "sameWeek": {},
	"sameMonth": {}, "sameYear": {},
	"daysAgo": {}, "weeksAgo": {}, "monthsAgo": {}, "yearsAgo": {},
	"between": {},
}

var unaryOperators = map[string]struct{}{
	"!": {}, "exists": {}, "empty": {},
}

// clockFunctions are the builtins whose result depends on evaluation time.
var clockFunctions = map[string]struct{}{
	"now": {}, "today": {}, "daysAgo": {}, "weeksAgo": {}, "monthsAgo": {},
}

// clockOperators are the binary operators anchored to evaluation time.
var clockOperators = map[string]struct{}{
	"daysAgo": {}, "weeksAgo": {}, "monthsAgo": {}, "yearsAgo": {},
}

// IsBuiltinFunction reports whether name is a callable builtin.
func IsBuiltinFunction(name string) bool {
	_, ok := builtinFunctions[name]
	return ok
}

// IsDeterministic reports whether the expression's result depends only on
// the document. Clock-anchored operators, functions and relative date
// literals re-anchor at every evaluation, so their results change as time
// advances.
func IsDeterministic(path *types.Path) bool {
	if path == nil {
		return true
	}
	for _, node := range path.Nodes {
		if node.Kind == types.NodeFilter && !FilterIsDeterministic(node.Expr) {
			return false
		}
	}
	return true
}

// FilterIsDeterministic reports whether a filter expression avoids every
// clock-anchored construct.
func FilterIsDeterministic(expr *types.FilterNode) bool {
	if expr == nil {
		return true
	}
	switch expr.Kind {
	case types.FilterLiteral:
		return literalDeterministic(expr.Value)
	case types.FilterBinary:
		if _, ok := clockOperators[expr.Op]; ok {
			return false
		}
		return FilterIsDeterministic(expr.LHS) && FilterIsDeterministic(expr.RHS)
	case types.FilterUnary:
		return FilterIsDeterministic(expr.RHS)
	case types.FilterFunction:
		if _, ok := clockFunctions[expr.Name]; ok {
			return false
		}
		for _, arg := range expr.Args {
			if !FilterIsDeterministic(arg) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsBinaryOperator reports whether op is a recognized binary operator.
func IsBinaryOperator(op string) bool {
	_, ok := binaryOperators[op]
	return ok
}

// IsUnaryOperator reports whether op is a recognized unary operator.
func IsUnaryOperator(op string) bool {
	_, ok := unaryOperators[op]
	return ok
}

// literalDeterministic reports whether a literal value is free of
// clock-relative date syntax. Relative anchors ("@now-7d") and ISO 8601
// durations ("P7D", "-PT6H") re-anchor at every evaluation; array
// literals are checked element-wise for the between operator.
func literalDeterministic(v interface{}) bool {
	switch val := v.(type) {
	case string:
		if len(val) > 0 && val[0] == '@' {
			return false
		}
		if len(val) > 1 && val[0] == 'P' && (val[1] == 'T' || (val[1] >= '0' && val[1] <= '9')) {
			return false
		}
		if len(val) > 2 && val[0] == '-' && val[1] == 'P' && (val[2] == 'T' || (val[2] >= '0' && val[2] <= '9')) {
			return false
		}
		return true
	case []interface{}:
		for _, elem := range val {
			if !literalDeterministic(elem) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// callFunction dispatches a builtin function call. The function set is
// closed and versioned; unrecognized names and wrong arity are
// evaluation-time errors.
func (e *Engine) callFunction(expr *types.FilterNode, ctx *EvalContext) (interface{}, bool, error) {
	switch expr.Name {
	case "contains", "startsWith", "endsWith":
		a, b, err := e.twoStringArgs(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		switch expr.Name {
		case "contains":
			return strings.Contains(a, b), true, nil
		case "startsWith":
			return strings.HasPrefix(a, b), true, nil
		default:
			return strings.HasSuffix(a, b), true, nil
		}

	case "matches":
		a, b, err := e.twoStringArgs(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		matched, err := e.matchRegex(a, b)
		if err != nil {
			return nil, false, err
		}
		return matched, true, nil

	case "size":
		value, _, err := e.oneArg(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		return sizeOf(value), true, nil

	case "typeof":
		value, found, err := e.oneArg(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		return string(types.TypeOfValue(value)), true, nil

	case "exists":
		if err := checkArity(expr, 1); err != nil {
			return nil, false, err
		}
		_, found, err := e.evalFilterValue(expr.Args[0], ctx)
		if err != nil {
			return nil, false, err
		}
		return found, true, nil

	case "empty":
		value, found, err := e.oneArg(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return true, true, nil
		}
		return isEmpty(value), true, nil

	case "fuzzyMatch":
		if len(expr.Args) != 2 && len(expr.Args) != 3 {
			return nil, false, arityError(expr.Name, "2 or 3", len(expr.Args))
		}
		a, err := e.stringArg(expr.Args[0], ctx)
		if err != nil {
			return nil, false, err
		}
		b, err := e.stringArg(expr.Args[1], ctx)
		if err != nil {
			return nil, false, err
		}
		threshold := e.opts.SimilarityThreshold
		if len(expr.Args) == 3 {
			t, err := e.numberArg(expr.Args[2], ctx)
			if err != nil {
				return nil, false, err
			}
			threshold = t
		}
		return e.cmp.Similarity(a, b) >= threshold, true, nil

	case "soundsLike":
		a, b, err := e.twoStringArgs(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		return e.cmp.Phonetic(a) == e.cmp.Phonetic(b), true, nil

	case "similar":
		a, b, err := e.twoStringArgs(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		return e.cmp.Similarity(a, b), true, nil

	case "levenshtein":
		a, b, err := e.twoStringArgs(expr, ctx)
		if err != nil {
			return nil, false, err
		}
		return float64(e.cmp.Levenshtein(a, b)), true, nil

	case "parseDate":
		if err := checkArity(expr, 1); err != nil {
			return nil, false, err
		}
		value, found, err := e.evalFilterValue(expr.Args[0], ctx)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		t, err := e.toTime(value)
		if err != nil {
			return nil, false, err
		}
		return float64(t.UnixMilli()), true, nil

	case "now":
		if err := checkArity(expr, 0); err != nil {
			return nil, false, err
		}
		return float64(e.now().UnixMilli()), true, nil

	case "today":
		if err := checkArity(expr, 0); err != nil {
			return nil, false, err
		}
		return float64(e.startOfToday().UnixMilli()), true, nil

	case "daysAgo", "weeksAgo", "monthsAgo":
		if err := checkArity(expr, 1); err != nil {
			return nil, false, err
		}
		n, err := e.numberArg(expr.Args[0], ctx)
		if err != nil {
			return nil, false, err
		}
		t, err := e.timeAgo(expr.Name, n)
		if err != nil {
			return nil, false, err
		}
		return float64(t.UnixMilli()), true, nil

	default:
		return nil, false, types.NewEvalError(types.ErrUnknownFunction,
			"unknown function: "+expr.Name)
	}
}

func checkArity(expr *types.FilterNode, want int) error {
	if len(expr.Args) != want {
		return arityError(expr.Name, fmt.Sprint(want), len(expr.Args))
	}
	return nil
}

func arityError(name, want string, got int) error {
	return types.NewEvalError(types.ErrArgumentCount,
		fmt.Sprintf("%s expects %s argument(s), got %d", name, want, got))
}

func (e *Engine) oneArg(expr *types.FilterNode, ctx *EvalContext) (interface{}, bool, error) {
	if err := checkArity(expr, 1); err != nil {
		return nil, false, err
	}
	return e.evalFilterValue(expr.Args[0], ctx)
}

func (e *Engine) twoStringArgs(expr *types.FilterNode, ctx *EvalContext) (string, string, error) {
	if err := checkArity(expr, 2); err != nil {
		return "", "", err
	}
	a, err := e.stringArg(expr.Args[0], ctx)
	if err != nil {
		return "", "", err
	}
	b, err := e.stringArg(expr.Args[1], ctx)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func (e *Engine) stringArg(arg *types.FilterNode, ctx *EvalContext) (string, error) {
	value, found, err := e.evalFilterValue(arg, ctx)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	return stringify(value), nil
}

func (e *Engine) numberArg(arg *types.FilterNode, ctx *EvalContext) (float64, error) {
	value, found, err := e.evalFilterValue(arg, ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, types.NewEvalError(types.ErrOperandType, "expected a number, got absent")
	}
	n, ok := toFloat(value)
	if !ok {
		return 0, types.NewEvalError(types.ErrOperandType,
			fmt.Sprintf("expected a number, got %s", types.TypeOfValue(value)))
	}
	return n, nil
}

// sizeOf returns the element count of containers, the byte length of
// strings, zero for null, and one for other scalars.
func sizeOf(v interface{}) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return float64(len(val))
	case []interface{}:
		return float64(len(val))
	case map[string]interface{}:
		return float64(len(val))
	default:
		return 1
	}
}
