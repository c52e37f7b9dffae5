package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	cmp := NewComparator()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello", "hello", 1},
		{"case insensitive", "Hello", "hELLO", 1},
		{"both empty", "", "", 1},
		{"one edit in ten", "john smith", "john smitt", 0.9},
		{"half different", "abcd", "abxy", 0.5},
		{"nothing shared", "abc", "xyz", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, cmp.Similarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	cmp := NewComparator()
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"john", "jonh"},
		{"", "abc"},
	}
	for _, p := range pairs {
		assert.Equal(t, cmp.Similarity(p[0], p[1]), cmp.Similarity(p[1], p[0]))
	}
}

func TestLevenshtein(t *testing.T) {
	cmp := NewComparator()
	assert.Equal(t, 0, cmp.Levenshtein("abc", "abc"))
	assert.Equal(t, 3, cmp.Levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, cmp.Levenshtein("", "abc"))
	assert.Equal(t, 3, LevenshteinDistance("abc", ""))
}

func TestSoundex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Robert", "R163"},
		{"Rupert", "R163"},
		{"Smith", "S530"},
		{"Smyth", "S530"},
		{"Ashcraft", "A261"},
		{"Tymczak", "T522"},
		{"Pfister", "P236"},
		{"Honeyman", "H555"},
		{"a", "A000"},
		{"", ""},
		{"123", ""},
		{"  o'Brien  ", "O165"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, soundex(tc.in))
		})
	}
}

func TestPhoneticDelegatesToSoundex(t *testing.T) {
	cmp := NewComparator()
	assert.Equal(t, soundex("Robert"), cmp.Phonetic("Robert"))
	assert.Equal(t, cmp.Phonetic("Smith"), cmp.Phonetic("Smyth"))
}
