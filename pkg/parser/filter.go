package parser

import (
	"strconv"

	"github.com/treedoc/pathquery/pkg/types"
)

// maxNesting bounds the recursion of the filter sub-parser. Without it a
// hostile expression of deeply nested parentheses, unary chains or array
// literals exhausts the goroutine stack, which is unrecoverable.
const maxNesting = 128

func (p *Parser) enterNesting() error {
	p.nesting++
	if p.nesting > maxNesting {
		return types.NewSecurityError(types.ErrMaxDepthExceeded,
			"filter expression nesting too deep")
	}
	return nil
}

func (p *Parser) leaveNesting() {
	p.nesting--
}

// parseFilterExpression parses the content of a [?( ... )] predicate.
//
// Precedence, weakest first: || < && < equality (==, !=) < relational
// (<, <=, >, >=, ~= and named infix operators such as contains, in,
// before) < unary !.
//
// The parser checks structural shape only: operator and function names
// outside the closed builtin set are rejected at evaluation time, not here.
func (p *Parser) parseFilterExpression() (*types.FilterNode, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (*types.FilterNode, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.leaveNesting()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenOr {
		pos := p.current.Position
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode("||", left, right, pos)
	}
	return left, nil
}

func (p *Parser) parseAnd() (*types.FilterNode, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenAnd {
		pos := p.current.Position
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = binaryNode("&&", left, right, pos)
	}
	return left, nil
}

func (p *Parser) parseEquality() (*types.FilterNode, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenEqual || p.current.Type == TokenNotEqual {
		op := p.current.Type.String()
		pos := p.current.Position
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = binaryNode(op, left, right, pos)
	}
	return left, nil
}

// parseRelational handles <, <=, >, >=, ~= and named infix operators
// (contains, startsWith, in, typeof, before, daysAgo, ...). A name in
// infix position is always accepted as an operator; whether it belongs
// to the closed operator set is decided by the evaluator.
func (p *Parser) parseRelational() (*types.FilterNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch p.current.Type {
		case TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual, TokenFuzzyEqual:
			op = p.current.Type.String()
		case TokenName:
			op = p.current.Value
		default:
			return left, nil
		}
		pos := p.current.Position
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode(op, left, right, pos)
	}
}

func (p *Parser) parseUnary() (*types.FilterNode, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.leaveNesting()

	switch p.current.Type {
	case TokenBang:
		pos := p.current.Position
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode("!", operand, pos), nil

	case TokenName:
		// A name at operand position is either a function call
		// (name followed by parentheses) or a prefix unary operator
		// such as exists / empty.
		name := p.current
		p.advance()
		if p.current.Type == TokenParenOpen {
			return p.parseFunctionCall(name)
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode(name.Value, operand, name.Position), nil

	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (*types.FilterNode, error) {
	switch p.current.Type {
	case TokenCurrent:
		return p.parseCandidatePath()

	case TokenString:
		node := types.NewFilterNode(types.FilterLiteral, p.current.Position)
		node.Value = p.current.Value
		p.advance()
		return node, nil

	case TokenNumber:
		f, err := strconv.ParseFloat(p.current.Value, 64)
		if err != nil {
			return nil, p.errorf(types.ErrInvalidNumber, "Invalid number: %s", p.current.Value)
		}
		node := types.NewFilterNode(types.FilterLiteral, p.current.Position)
		node.Value = f
		p.advance()
		return node, nil

	case TokenBoolean:
		node := types.NewFilterNode(types.FilterLiteral, p.current.Position)
		node.Value = p.current.Value == "true"
		p.advance()
		return node, nil

	case TokenNull:
		node := types.NewFilterNode(types.FilterLiteral, p.current.Position)
		node.Value = nil
		p.advance()
		return node, nil

	case TokenParenOpen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenBracketOpen:
		return p.parseArrayLiteral()

	case TokenError:
		return nil, p.lexer.Error()

	case TokenEOF:
		return nil, p.errorf(types.ErrUnexpectedEnd, "Unexpected end of filter expression")

	default:
		return nil, p.errorf(types.ErrSyntaxError, "Unexpected token in filter: %s", p.describeCurrent())
	}
}

// parseCandidatePath parses '@' optionally followed by a dotted relative
// path ('@.path.to.field'). The bare '@' refers to the candidate itself.
func (p *Parser) parseCandidatePath() (*types.FilterNode, error) {
	node := types.NewFilterNode(types.FilterProperty, p.current.Position)
	p.advance() // consume '@'
	for p.current.Type == TokenDot {
		p.advance()
		if p.current.Type != TokenName {
			return nil, p.errorf(types.ErrEmptyProperty, "Expected property name after '.'")
		}
		node.PropPath = append(node.PropPath, p.current.Value)
		p.advance()
	}
	return node, nil
}

// parseFunctionCall parses 'name(arg, arg, ...)'. The name token has
// already been consumed; the current token is the opening parenthesis.
func (p *Parser) parseFunctionCall(name Token) (*types.FilterNode, error) {
	node := types.NewFilterNode(types.FilterFunction, name.Position)
	node.Name = name.Value
	p.advance() // consume '('

	if p.current.Type == TokenParenClose {
		p.advance()
		return node, nil
	}

	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseArrayLiteral parses '[lit, lit, ...]' used as the right operand of
// the membership operator. Elements must be literals.
func (p *Parser) parseArrayLiteral() (*types.FilterNode, error) {
	if err := p.enterNesting(); err != nil {
		return nil, err
	}
	defer p.leaveNesting()

	node := types.NewFilterNode(types.FilterLiteral, p.current.Position)
	p.advance() // consume '['

	elems := []interface{}{}
	if p.current.Type != TokenBracketClose {
		for {
			elem, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			if elem.Kind != types.FilterLiteral {
				return nil, p.errorAt(types.ErrSyntaxError,
					"Array literal elements must be literals", elem.Position)
			}
			elems = append(elems, elem.Value)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}

	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	node.Value = elems
	return node, nil
}

func binaryNode(op string, lhs, rhs *types.FilterNode, pos int) *types.FilterNode {
	node := types.NewFilterNode(types.FilterBinary, pos)
	node.Op = op
	node.LHS = lhs
	node.RHS = rhs
	return node
}

func unaryNode(op string, operand *types.FilterNode, pos int) *types.FilterNode {
	node := types.NewFilterNode(types.FilterUnary, pos)
	node.Op = op
	node.RHS = operand
	return node
}
