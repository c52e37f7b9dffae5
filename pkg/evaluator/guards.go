package evaluator

import (
	"github.com/treedoc/pathquery/pkg/types"
)

// dangerousNames is the fixed blacklist of property names that are never
// readable through user-supplied expression text. Reading them reaches
// shared runtime internals on prototype-based hosts, so the engine rejects
// them uniformly: in explicit path segments, in filter property lookups,
// and for names discovered during recursive descent.
var dangerousNames = map[string]struct{}{
	"__proto__":        {},
	"constructor":      {},
	"prototype":        {},
	"__defineGetter__": {},
	"__defineSetter__": {},
	"__lookupGetter__": {},
	"__lookupSetter__": {},
}

// IsDangerousName reports whether a property name is blacklisted. Static
// analysis uses it to flag expressions before evaluation.
func IsDangerousName(name string) bool {
	_, bad := dangerousNames[name]
	return bad
}

// checkPropertyName returns a security error when name is blacklisted.
func checkPropertyName(name string) error {
	if _, bad := dangerousNames[name]; bad {
		return types.NewSecurityError(types.ErrDangerousProperty,
			"access to property '"+name+"' is not allowed")
	}
	return nil
}

// maxIndexMagnitude bounds array indices and slice parts. Values beyond it
// are rejected as unsafe rather than silently wrapped or clamped.
const maxIndexMagnitude = 1 << 30

// checkIndexRange rejects indices and slice bounds of absurd magnitude.
func checkIndexRange(n int) error {
	if n > maxIndexMagnitude || n < -maxIndexMagnitude {
		return types.NewSecurityError(types.ErrUnsafeRange,
			"index value out of safe range")
	}
	return nil
}
