package evaluator

import (
	"fmt"

	"github.com/treedoc/pathquery/pkg/types"
)

// EvalContext maintains the state of one top-level evaluate call: the
// read-only root document, the current candidate (filter mode), and the
// depth and iteration budgets.
//
// Child contexts created per path segment, per filter subexpression and
// per recursive-descent step increment the depth counter but share the
// iteration counter, so budgets accumulate across the whole call instead
// of resetting per branch.
type EvalContext struct {
	// root is the document the call was started on; read-only.
	root interface{}

	// candidate is the value bound to '@' while evaluating a filter
	// predicate, nil outside filter mode.
	candidate interface{}

	// depth tracks recursion depth against maxDepth.
	depth    int
	maxDepth int

	// iterations counts node evaluations and element visits across the
	// whole call; shared by reference with every child context.
	iterations    *int
	maxIterations int
}

// newEvalContext creates the context for one top-level evaluate call.
func newEvalContext(root interface{}, maxDepth, maxIterations int) *EvalContext {
	var iterations int
	return &EvalContext{
		root:          root,
		depth:         0,
		maxDepth:      maxDepth,
		iterations:    &iterations,
		maxIterations: maxIterations,
	}
}

// descend creates a child context one level deeper. The iteration counter
// is shared; only the depth is incremented. Exceeding the depth budget is
// a security error, never a silent truncation.
func (c *EvalContext) descend() (*EvalContext, error) {
	if c.depth+1 > c.maxDepth {
		return nil, types.NewSecurityError(types.ErrMaxDepthExceeded,
			fmt.Sprintf("maximum depth %d exceeded", c.maxDepth))
	}
	child := *c
	child.depth++
	return &child, nil
}

// withCandidate returns a context with the current filter candidate bound,
// sharing all budgets with the receiver.
func (c *EvalContext) withCandidate(candidate interface{}) *EvalContext {
	child := *c
	child.candidate = candidate
	return &child
}

// tick consumes one unit of the iteration budget. Called once per node
// evaluation and once per element visited during wildcard, slice,
// recursive and filter expansion.
func (c *EvalContext) tick() error {
	*c.iterations++
	if *c.iterations > c.maxIterations {
		return types.NewSecurityError(types.ErrIterationBudget,
			fmt.Sprintf("iteration budget %d exceeded", c.maxIterations))
	}
	return nil
}

// Depth returns the current recursion depth.
func (c *EvalContext) Depth() int {
	return c.depth
}

// Iterations returns the number of budget units consumed so far.
func (c *EvalContext) Iterations() int {
	return *c.iterations
}

// String returns a string representation of the context.
func (c *EvalContext) String() string {
	return fmt.Sprintf("Context{depth=%d, iterations=%d}", c.depth, *c.iterations)
}
