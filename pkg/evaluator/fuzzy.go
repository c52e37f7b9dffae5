package evaluator

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// defaultSimilarityThreshold is the minimum similarity score the ~= and
// fuzzyMatch operators treat as a match.
const defaultSimilarityThreshold = 0.8

// Comparator supplies the approximate string comparison algorithms used
// by the fuzzy operator family. Implementations must be safe for
// concurrent use.
type Comparator interface {
	// Similarity returns a score in [0, 1]; 1 means identical after case
	// folding.
	Similarity(a, b string) float64
	// Levenshtein returns the edit distance between a and b.
	Levenshtein(a, b string) int
	// Phonetic returns a phonetic code; equal codes sound alike.
	Phonetic(s string) string
}

type defaultComparator struct{}

// NewComparator returns the default Comparator: case-insensitive
// Levenshtein similarity and Soundex phonetic codes.
func NewComparator() Comparator {
	return defaultComparator{}
}

func (defaultComparator) Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func (defaultComparator) Levenshtein(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

func (defaultComparator) Phonetic(s string) string {
	return soundex(s)
}

// soundexCode maps an upper-case ASCII letter to its Soundex digit, or 0
// for vowels and the ignored letters H, W, Y.
func soundexCode(r rune) byte {
	switch r {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	default:
		return 0
	}
}

// soundex computes the classic four-character Soundex code. Non-letter
// runes are skipped; an input with no letters codes to the empty string.
func soundex(s string) string {
	s = strings.ToUpper(s)

	var first rune
	var rest []rune
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			continue
		}
		if first == 0 {
			first = r
		} else {
			rest = append(rest, r)
		}
	}
	if first == 0 {
		return ""
	}

	code := []byte{byte(first)}
	prev := soundexCode(first)
	for _, r := range rest {
		d := soundexCode(r)
		// H and W are transparent: they do not break a run of equal codes.
		if r == 'H' || r == 'W' {
			continue
		}
		if d != 0 && d != prev {
			code = append(code, d)
			if len(code) == 4 {
				return string(code)
			}
		}
		prev = d
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// LevenshteinDistance exposes the edit distance used by the default
// comparator.
func LevenshteinDistance(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}
