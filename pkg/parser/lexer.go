package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/treedoc/pathquery/pkg/types"
)

const eof = -1

// Lexer converts a path expression into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Tokenize scans the whole input and returns the token sequence, always
// terminated by an EOF token. Malformed input fails with a parse error
// carrying the byte offset of the offending character.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		t := l.Next()
		if t.Type == TokenError {
			return nil, l.err
		}
		tokens = append(tokens, t)
		if t.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all
// subsequent calls. Inter-token whitespace is skipped; whitespace inside
// quoted strings is preserved.
func (l *Lexer) Next() Token {
	l.acceptAll(isWhitespace)
	l.ignore()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Two-character symbols are matched greedily before single-character
	// ones (==, !=, >=, <=, &&, ||, .., ~=).
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// Case-folded operator names: '~' glued to an identifier lexes as one
	// name token ("~contains", "~startsWith", "~endsWith").
	if ch == '~' {
		if l.accept(isNameStart) {
			l.acceptAll(isNameChar)
			return l.newToken(TokenName)
		}
		return l.error(types.ErrInvalidCharacter, "Unexpected character '~'")
	}

	// String literals (single or double quoted)
	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals, including a leading minus sign
	if ch >= '0' && ch <= '9' {
		l.backup()
		return l.scanNumber()
	}
	if ch == '-' {
		if l.accept(isDigit) {
			l.backup()
			return l.scanNumber()
		}
		return l.error(types.ErrInvalidCharacter, "Unexpected character '-'")
	}

	// Names, keywords, or the bare root anchor
	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.error(types.ErrInvalidCharacter, "Unexpected character "+string(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed. Supports both single and
// double quotes with backslash escapes (n, t, r, backslash, quote).
func (l *Lexer) scanString(quote rune) Token {
	var b strings.Builder
Loop:
	for {
		switch ch := l.nextRune(); ch {
		case quote:
			break Loop
		case '\\':
			esc := l.nextRune()
			if esc == eof {
				return l.error(types.ErrStringNotClosed, "Unterminated string literal")
			}
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				// Backslash, quote, or any other escaped character
				// resolves to the character itself.
				b.WriteRune(esc)
			}
		case eof:
			return l.error(types.ErrStringNotClosed, "Unterminated string literal")
		default:
			b.WriteRune(ch)
		}
	}

	l.backup()
	t := l.newToken(TokenString)
	t.Value = b.String()
	l.acceptRune(quote)
	l.ignore()
	return t
}

// scanNumber reads a number literal from the current position.
// Format: -?[0-9]+(\.[0-9]+)? with no exponent form.
func (l *Lexer) scanNumber() Token {
	l.acceptRune('-')
	l.acceptAll(isDigit)

	if l.acceptRune('.') {
		if l.accept(isDigit) {
			l.acceptAll(isDigit)
		} else {
			// No digits after the decimal point: the dot is not part of
			// the number. It could start the recursive-descent operator
			// (e.g. "items[0]..id"). The dot is ASCII, one byte.
			l.current--
		}
	}

	return l.newToken(TokenNumber)
}

// scanName reads an identifier or keyword from the current position.
// Identifiers match [a-zA-Z_$][a-zA-Z0-9_$]*. A bare '$' not followed by
// an identifier character is the distinct root token.
func (l *Lexer) scanName() Token {
	first := l.nextRune()
	if first == '$' && !l.accept(isNameChar) {
		return l.newToken(TokenRoot)
	}
	l.acceptAll(isNameChar)

	t := l.newToken(TokenName)
	if tt := lookupKeyword(t.Value); tt > 0 {
		t.Type = tt
	}
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = types.NewParseError(code, message, t.Position).WithToken(t.Value)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
		Length:   l.current - l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameChar(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
