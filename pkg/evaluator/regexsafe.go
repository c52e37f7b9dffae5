package evaluator

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/treedoc/pathquery/pkg/types"
)

// regexCache memoizes compiled patterns process-wide. Compilation is the
// expensive step; match execution is linear in the input.
var regexCache sync.Map // pattern string -> *regexp.Regexp

// matchRegex applies a pattern from query text to a document string.
// Patterns are screened for quantified groups under an outer quantifier
// before compiling, and the match itself runs under a wall-clock bound.
// A pattern that fails to compile is a non-match, not an error.
func (e *Engine) matchRegex(s, pattern string) (bool, error) {
	if err := checkPatternSafety(pattern); err != nil {
		return false, err
	}

	var re *regexp.Regexp
	if cached, ok := regexCache.Load(pattern); ok {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return false, nil
		}
		regexCache.Store(pattern, compiled)
		re = compiled
	}

	timeout := e.opts.RegexTimeout
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}

	start := time.Now()
	done := make(chan bool, 1)
	go func() {
		done <- re.MatchString(s)
	}()

	select {
	case matched := <-done:
		if time.Since(start) > timeout {
			return false, regexTimeoutError(pattern)
		}
		return matched, nil
	case <-time.After(timeout):
		return false, regexTimeoutError(pattern)
	}
}

func regexTimeoutError(pattern string) error {
	return types.NewSecurityError(types.ErrRegexTimeout,
		"regex match exceeded the time budget: "+pattern)
}

// checkPatternSafety rejects patterns with a quantified group that is
// itself quantified, the classic catastrophic backtracking shape such as
// (a+)+ or (a*)*. The engine itself is linear-time, but queries are
// portable across engines that are not, so the shape is rejected at the
// boundary.
func checkPatternSafety(pattern string) error {
	depth := 0
	quantifiedAt := make(map[int]bool)
	inClass := false
	escaped := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '(':
			if !inClass {
				depth++
				quantifiedAt[depth] = false
			}
		case ')':
			if inClass || depth == 0 {
				continue
			}
			inner := quantifiedAt[depth]
			depth--
			if inner && isQuantifier(pattern, i+1) {
				return types.NewSecurityError(types.ErrUnsafePattern,
					"nested quantifiers in pattern: "+pattern)
			}
		case '*', '+', '?', '{':
			if !inClass && depth > 0 {
				quantifiedAt[depth] = true
			}
		}
	}
	return nil
}

// isQuantifier reports whether a quantifier starts at offset i.
func isQuantifier(pattern string, i int) bool {
	if i >= len(pattern) {
		return false
	}
	switch pattern[i] {
	case '*', '+', '?':
		return true
	case '{':
		end := strings.IndexByte(pattern[i:], '}')
		return end > 1
	}
	return false
}
