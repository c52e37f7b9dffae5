package evaluator

import (
	"github.com/treedoc/pathquery/pkg/types"
)

// evalPath walks the path segments left to right over a current value.
//
// Wildcard, recursive, slice and filter segments switch the walk into
// multi-value mode: the remainder of the path is evaluated independently
// against each element and non-absent results are concatenated, flattening
// exactly one extra level of nesting so results are never doubly nested.
// An empty AST yields the whole document.
func (e *Engine) evalPath(path *types.Path, ctx *EvalContext) (interface{}, bool, error) {
	nodes := path.Nodes

	// A leading explicit root node is consumed; the walk starts at the
	// document root either way.
	if len(nodes) > 0 && nodes[0].Kind == types.NodeRoot {
		nodes = nodes[1:]
	}

	current := ctx.root
	var seq []interface{}
	multi := false

	for _, node := range nodes {
		// Each segment consumes one unit of the shared depth budget, the
		// same budget recursive descent draws from.
		deeper, err := ctx.descend()
		if err != nil {
			return nil, false, err
		}
		ctx = deeper
		if err := ctx.tick(); err != nil {
			return nil, false, err
		}

		if !multi {
			out, found, isMulti, err := e.evalSegment(node, current, ctx)
			if err != nil {
				return nil, false, err
			}
			if isMulti {
				multi = true
				seq = out.([]interface{})
				continue
			}
			if !found {
				return nil, false, nil
			}
			current = out
			continue
		}

		var next []interface{}
		for _, elem := range seq {
			if err := ctx.tick(); err != nil {
				return nil, false, err
			}
			out, found, isMulti, err := e.evalSegment(node, elem, ctx)
			if err != nil {
				return nil, false, err
			}
			if !found {
				continue
			}
			if isMulti {
				next = append(next, out.([]interface{})...)
				continue
			}
			next = append(next, out)
		}
		seq = next
	}

	if multi {
		if seq == nil {
			seq = []interface{}{}
		}
		return seq, true, nil
	}
	return current, true, nil
}

// evalSegment applies one segment to a single value. The third return
// value reports whether the segment produced a multi-value sequence.
func (e *Engine) evalSegment(node *types.PathNode, current interface{}, ctx *EvalContext) (interface{}, bool, bool, error) {
	switch node.Kind {
	case types.NodeRoot:
		// Parser guarantees root only at position 0; consumed by evalPath.
		return current, true, false, nil

	case types.NodeProperty:
		out, found, err := evalProperty(node.Name, current)
		return out, found, false, err

	case types.NodeIndex:
		out, found, err := evalIndex(node.Index, current)
		return out, found, false, err

	case types.NodeWildcard:
		out, err := e.evalWildcard(current, ctx)
		return out, true, true, err

	case types.NodeSlice:
		out, err := e.evalSlice(node, current, ctx)
		return out, true, true, err

	case types.NodeRecursive:
		out, err := e.evalRecursive(node.Name, current, ctx)
		return out, true, true, err

	case types.NodeFilter:
		out, err := e.evalFilterSegment(node.Expr, current, ctx)
		return out, true, true, err

	default:
		return nil, false, false, types.NewEvalError(types.ErrOperandType,
			"unknown path node kind: "+string(node.Kind))
	}
}

// evalProperty reads an own key from an object. Missing keys and
// non-object values are absent, not errors; blacklisted names are
// security errors.
func evalProperty(name string, current interface{}) (interface{}, bool, error) {
	if err := checkPropertyName(name); err != nil {
		return nil, false, err
	}
	obj, ok := current.(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	value, exists := obj[name]
	if !exists {
		return nil, false, nil
	}
	return value, true, nil
}

// evalIndex reads a fixed array index. Negative indices count from the
// end; out-of-range indices are absent, not errors.
func evalIndex(index int, current interface{}) (interface{}, bool, error) {
	if err := checkIndexRange(index); err != nil {
		return nil, false, err
	}
	arr, ok := current.([]interface{})
	if !ok {
		return nil, false, nil
	}
	if index < 0 {
		index += len(arr)
	}
	if index < 0 || index >= len(arr) {
		return nil, false, nil
	}
	return arr[index], true, nil
}

// evalWildcard yields every array element, or every object value in
// sorted key order. Scalars yield an empty sequence.
func (e *Engine) evalWildcard(current interface{}, ctx *EvalContext) ([]interface{}, error) {
	switch v := current.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			if err := ctx.tick(); err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case map[string]interface{}:
		keys := types.SortedKeys(v)
		out := make([]interface{}, 0, len(keys))
		for _, k := range keys {
			if err := ctx.tick(); err != nil {
				return nil, err
			}
			out = append(out, v[k])
		}
		return out, nil
	default:
		return []interface{}{}, nil
	}
}

// evalSlice applies Python-style slicing. Defaults resolve to start=0,
// end=length, step=1; bounds are clamped to [0, length]; a negative step
// reverses the walk direction. Step zero is fatal; the parser rejects the
// literal form but hand-built ASTs reach this check.
func (e *Engine) evalSlice(node *types.PathNode, current interface{}, ctx *EvalContext) ([]interface{}, error) {
	step := 1
	if node.Step != nil {
		step = *node.Step
	}
	if step == 0 {
		return nil, types.NewEvalError(types.ErrInvalidSlice, "slice step cannot be zero")
	}
	for _, part := range []*int{node.Start, node.End, node.Step} {
		if part != nil {
			if err := checkIndexRange(*part); err != nil {
				return nil, err
			}
		}
	}

	arr, ok := current.([]interface{})
	if !ok {
		return []interface{}{}, nil
	}
	length := len(arr)

	start, end := 0, length
	if step < 0 {
		start, end = length-1, -1
	}
	if node.Start != nil {
		start = clampSliceBound(*node.Start, length, step < 0)
	}
	if node.End != nil {
		end = clampSliceBound(*node.End, length, step < 0)
	}

	var out []interface{}
	if step > 0 {
		for i := start; i < end; i += step {
			if err := ctx.tick(); err != nil {
				return nil, err
			}
			out = append(out, arr[i])
		}
	} else {
		for i := start; i > end; i += step {
			if err := ctx.tick(); err != nil {
				return nil, err
			}
			out = append(out, arr[i])
		}
	}
	if out == nil {
		out = []interface{}{}
	}
	return out, nil
}

// clampSliceBound normalizes a negative bound from the end and clamps the
// result into valid range. For a reversed walk the lower clamp is -1 so
// that an explicit end before the first element terminates the loop.
func clampSliceBound(n, length int, reversed bool) int {
	if n < 0 {
		n += length
	}
	low := 0
	if reversed {
		low = -1
	}
	if n < low {
		return low
	}
	high := length
	if reversed {
		high = length - 1
	}
	if n > high {
		return high
	}
	return n
}

// evalRecursive performs depth-bounded, full-width recursive descent in
// depth-first pre-order. With a target name it collects the value at every
// matching own key at any depth while continuing to descend into every
// nested container; without a name it collects every array element and
// object value at every depth.
func (e *Engine) evalRecursive(name string, current interface{}, ctx *EvalContext) ([]interface{}, error) {
	out := []interface{}{}
	if err := e.recurse(name, current, ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) recurse(name string, value interface{}, ctx *EvalContext, out *[]interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		for _, k := range types.SortedKeys(v) {
			if err := ctx.tick(); err != nil {
				return err
			}
			// Names discovered during descent pass the same blacklist as
			// explicit segments.
			if err := checkPropertyName(k); err != nil {
				return err
			}
			child := v[k]
			if name == "" || k == name {
				*out = append(*out, child)
			}
			deeper, err := ctx.descend()
			if err != nil {
				return err
			}
			if err := e.recurse(name, child, deeper, out); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, elem := range v {
			if err := ctx.tick(); err != nil {
				return err
			}
			if name == "" {
				*out = append(*out, elem)
			}
			deeper, err := ctx.descend()
			if err != nil {
				return err
			}
			if err := e.recurse(name, elem, deeper, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// evalFilterSegment offers each element of an array to the filter
// predicate. Per-element evaluation errors exclude that element without
// aborting the filter; security errors always propagate.
func (e *Engine) evalFilterSegment(expr *types.FilterNode, current interface{}, ctx *EvalContext) ([]interface{}, error) {
	arr, ok := current.([]interface{})
	if !ok {
		return nil, types.NewEvalError(types.ErrFilterOnNonArray,
			"filter segment requires an array")
	}

	out := []interface{}{}
	for _, elem := range arr {
		if err := ctx.tick(); err != nil {
			return nil, err
		}
		match, err := e.evalFilterBool(expr, ctx.withCandidate(elem))
		if err != nil {
			if types.IsSecurityError(err) {
				return nil, err
			}
			// Ordinary per-element errors are a non-match.
			continue
		}
		if match {
			out = append(out, elem)
		}
	}
	return out, nil
}
