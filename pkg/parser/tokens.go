package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString  // "hello" or 'hello'
	TokenNumber  // 123, 3.14, -7
	TokenBoolean // true, false
	TokenNull    // null
	TokenName    // fieldName

	// Anchors
	TokenRoot    // $ (bare, not followed by an identifier character)
	TokenCurrent // @

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot      // .
	TokenDotDot   // ..
	TokenColon    // :
	TokenComma    // ,
	TokenStar     // *
	TokenQuestion // ?
	TokenBang     // !

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Logical operators
	TokenAnd // &&
	TokenOr  // ||

	// Fuzzy match operator
	TokenFuzzyEqual // ~=
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString:
		return "(string)"
	case TokenNumber:
		return "(number)"
	case TokenBoolean:
		return "(boolean)"
	case TokenNull:
		return "(null)"
	case TokenName:
		return "(name)"
	case TokenRoot:
		return "$"
	case TokenCurrent:
		return "@"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenDot:
		return "."
	case TokenDotDot:
		return ".."
	case TokenColon:
		return ":"
	case TokenComma:
		return ","
	case TokenStar:
		return "*"
	case TokenQuestion:
		return "?"
	case TokenBang:
		return "!"
	case TokenEqual:
		return "=="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenAnd:
		return "&&"
	case TokenOr:
		return "||"
	case TokenFuzzyEqual:
		return "~="
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in a path expression.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token (escapes resolved for strings)
	Position int       // Starting byte offset in the input string
	Length   int       // Length of the token in the input, in bytes
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	':': TokenColon,
	',': TokenComma,
	'*': TokenStar,
	'?': TokenQuestion,
	'!': TokenBang,
	'<': TokenLess,
	'>': TokenGreater,
	'@': TokenCurrent,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence. Two-character symbols are
// matched greedily before single-character ones.
var symbols2 = [...][]runeTokenType{
	'=': {{'=', TokenEqual}},
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'&': {{'&', TokenAnd}},
	'|': {{'|', TokenOr}},
	'.': {{'.', TokenDotDot}},
	'~': {{'=', TokenFuzzyEqual}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// lookupKeyword returns the token type for a keyword literal.
// Returns 0 if the string is not a recognized keyword.
func lookupKeyword(s string) TokenType {
	switch s {
	case "true", "false":
		return TokenBoolean
	case "null":
		return TokenNull
	default:
		return 0
	}
}
