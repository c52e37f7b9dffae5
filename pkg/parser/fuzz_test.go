package parser

import (
	"testing"

	"github.com/treedoc/pathquery/pkg/types"
)

// FuzzTokenize checks that the lexer never panics and always either
// yields an EOF-terminated token stream or a structured error.
func FuzzTokenize(f *testing.F) {
	for _, seed := range []string{
		"",
		"$",
		"$.store.book[0].title",
		"$..author",
		"$.items[1:5:2]",
		"$.users[?(@.age >= 18 && @.name ~= 'jon')]",
		"'unterminated",
		"a..b[?(size(@.x) > 3)]",
		"~contains",
		"-.5[",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tokens, err := Tokenize(input)
		if err != nil {
			if !types.IsParseError(err) {
				t.Fatalf("non-parse error from lexer: %v", err)
			}
			return
		}
		if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
			t.Fatalf("token stream not EOF-terminated: %v", tokens)
		}
	})
}

// FuzzParse checks that parsing never panics and that the canonical
// printed form of any parse result re-parses to the same canonical form.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"$",
		"$.a.b.c",
		"store.book[*].price",
		"$..id",
		"$.items[-1]",
		"$.items[::2]",
		"$.items[8:5:-1]",
		"$.users[?(@.age < 18 || exists @.guardian)]",
		"$.users[?(!(@.tag in ['a', 'b']))]",
		"$.events[?(@.ts between ['2026-01-01', '2026-12-31'])]",
		"$.docs[?(fuzzyMatch(@.title, 'report', 0.7))]",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		path, err := Parse(input)
		if err != nil {
			// Structured parse errors, or the nesting guard for
			// pathologically deep filter expressions.
			if !types.IsParseError(err) && !types.IsSecurityError(err) {
				t.Fatalf("unexpected error kind from parser: %v", err)
			}
			return
		}

		printed := path.String()
		reparsed, err := Parse(printed)
		if err != nil {
			t.Fatalf("canonical form %q of %q does not re-parse: %v", printed, input, err)
		}
		if got := reparsed.String(); got != printed {
			t.Fatalf("canonical form not stable: %q -> %q", printed, got)
		}
	})
}
