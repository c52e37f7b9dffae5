package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/treedoc/pathquery/pkg/types"
)

// Parser implements a recursive descent parser for path expressions.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	nesting int // active recursion depth of the filter sub-parser
}

// NewParser creates a new parser for the given input string.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read the first token
	p.advance()
	return p
}

// Parse parses the entire path expression and returns the AST.
//
// Grammar:
//
//	path    := Root? segment*
//	segment := '.' name | '.' '*' | '..' name? |
//	           '[' (index | slice | '*' | '?(' filter ')') ']'
//
// A bare leading name is shorthand for a property segment on the
// implicit root.
func (p *Parser) Parse() (*types.Path, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	var nodes []*types.PathNode

	// Optional explicit root anchor; valid only at position 0.
	if p.current.Type == TokenRoot {
		nodes = append(nodes, types.NewPathNode(types.NodeRoot, p.current.Position))
		p.advance()
	}

	// A path may begin with a bare property name ("a.b.c").
	if p.current.Type == TokenName {
		node := types.NewPathNode(types.NodeProperty, p.current.Position)
		node.Name = p.current.Value
		nodes = append(nodes, node)
		p.advance()
	} else if p.current.Type == TokenStar {
		nodes = append(nodes, types.NewPathNode(types.NodeWildcard, p.current.Position))
		p.advance()
	}

	for p.current.Type != TokenEOF {
		if p.current.Type == TokenError {
			return nil, p.lexer.Error()
		}
		node, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return types.NewPath(nodes, p.lexer.input), nil
}

// parseSegment parses one path segment starting at the current token.
func (p *Parser) parseSegment() (*types.PathNode, error) {
	switch p.current.Type {
	case TokenDot:
		pos := p.current.Position
		p.advance()
		switch p.current.Type {
		case TokenName:
			node := types.NewPathNode(types.NodeProperty, pos)
			node.Name = p.current.Value
			p.advance()
			return node, nil
		case TokenStar:
			node := types.NewPathNode(types.NodeWildcard, pos)
			p.advance()
			return node, nil
		default:
			return nil, p.errorf(types.ErrEmptyProperty, "Expected property name after '.'")
		}

	case TokenDotDot:
		node := types.NewPathNode(types.NodeRecursive, p.current.Position)
		p.advance()
		// Optional target name restricts collection to matching keys.
		if p.current.Type == TokenName {
			node.Name = p.current.Value
			p.advance()
		}
		return node, nil

	case TokenBracketOpen:
		return p.parseBracket()

	case TokenRoot:
		return nil, p.errorf(types.ErrRootPosition, "Root '$' is only valid at the start of a path")

	default:
		return nil, p.errorf(types.ErrSyntaxError, "Unexpected token: %s", p.describeCurrent())
	}
}

// parseBracket parses the content of a '[' ... ']' segment: a fixed index,
// a slice, a wildcard, or a filter predicate.
func (p *Parser) parseBracket() (*types.PathNode, error) {
	pos := p.current.Position
	p.advance() // consume '['

	switch p.current.Type {
	case TokenStar:
		p.advance()
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return types.NewPathNode(types.NodeWildcard, pos), nil

	case TokenQuestion:
		p.advance()
		if err := p.expect(TokenParenOpen); err != nil {
			return nil, err
		}
		expr, err := p.parseFilterExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		node := types.NewPathNode(types.NodeFilter, pos)
		node.Expr = expr
		return node, nil

	case TokenNumber, TokenColon:
		return p.parseIndexOrSlice(pos)

	case TokenError:
		return nil, p.lexer.Error()

	case TokenEOF:
		return nil, p.errorf(types.ErrBracketNotClosed, "Unterminated '['")

	default:
		return nil, p.errorf(types.ErrExpectedIndex, "Expected index, slice, wildcard or filter inside '[ ]'")
	}
}

// parseIndexOrSlice parses '[n]' or '[a:b:c]' with any slice part omissible.
func (p *Parser) parseIndexOrSlice(pos int) (*types.PathNode, error) {
	var first *int
	if p.current.Type == TokenNumber {
		n, err := p.integerValue()
		if err != nil {
			return nil, err
		}
		first = &n
		p.advance()
	}

	// A plain integer followed by ']' is a fixed index.
	if p.current.Type == TokenBracketClose && first != nil {
		p.advance()
		node := types.NewPathNode(types.NodeIndex, pos)
		node.Index = *first
		return node, nil
	}

	if p.current.Type != TokenColon {
		if p.current.Type == TokenEOF {
			return nil, p.errorf(types.ErrBracketNotClosed, "Unterminated '['")
		}
		return nil, p.errorf(types.ErrExpectedIndex, "Expected integer index or slice inside '[ ]'")
	}
	p.advance() // consume first ':'

	node := types.NewPathNode(types.NodeSlice, pos)
	node.Start = first

	if p.current.Type == TokenNumber {
		n, err := p.integerValue()
		if err != nil {
			return nil, err
		}
		node.End = &n
		p.advance()
	}

	if p.current.Type == TokenColon {
		p.advance()
		if p.current.Type == TokenNumber {
			n, err := p.integerValue()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, p.errorAt(types.ErrSliceStepZero, "Slice step cannot be zero", p.current.Position)
			}
			node.Step = &n
			p.advance()
		}
	}

	if p.current.Type == TokenEOF {
		return nil, p.errorf(types.ErrBracketNotClosed, "Unterminated '['")
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return node, nil
}

// integerValue interprets the current number token as an integer.
// Fractional content where a fixed index is required is a distinct error.
func (p *Parser) integerValue() (int, error) {
	if strings.ContainsRune(p.current.Value, '.') {
		return 0, p.errorf(types.ErrExpectedIndex, "Index must be an integer, got %s", p.current.Value)
	}
	n, err := strconv.Atoi(p.current.Value)
	if err != nil {
		return 0, p.errorf(types.ErrInvalidNumber, "Invalid integer: %s", p.current.Value)
	}
	return n, nil
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks that the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.errorf(types.ErrExpectedToken, "Expected %s but got %s", tt.String(), p.describeCurrent())
	}
	p.advance()
	return nil
}

func (p *Parser) describeCurrent() string {
	if p.current.Type == TokenEOF {
		return "(eof)"
	}
	if p.current.Value != "" {
		return p.current.Value
	}
	return p.current.Type.String()
}

// errorf creates a parser error at the current token.
func (p *Parser) errorf(code types.ErrorCode, format string, args ...interface{}) error {
	return p.errorAt(code, fmt.Sprintf(format, args...), p.current.Position)
}

func (p *Parser) errorAt(code types.ErrorCode, message string, position int) error {
	return types.NewParseError(code, message, position).WithToken(p.current.Value)
}
