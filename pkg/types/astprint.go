package types

import (
	"strconv"
	"strings"
)

// String returns the canonical text form of the path. The output is built
// from node fields only, so two structurally equal paths print identically
// regardless of the source text they were parsed from. Re-parsing the
// output yields a structurally equivalent AST (modulo the explicit Root
// node, which the printer always emits).
func (p *Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, n := range p.Nodes {
		if n.Kind == NodeRoot {
			continue
		}
		n.writeTo(&b)
	}
	return b.String()
}

func (n *PathNode) writeTo(b *strings.Builder) {
	switch n.Kind {
	case NodeProperty:
		b.WriteByte('.')
		b.WriteString(n.Name)
	case NodeIndex:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(n.Index))
		b.WriteByte(']')
	case NodeWildcard:
		b.WriteString("[*]")
	case NodeRecursive:
		b.WriteString("..")
		b.WriteString(n.Name)
	case NodeSlice:
		b.WriteByte('[')
		if n.Start != nil {
			b.WriteString(strconv.Itoa(*n.Start))
		}
		b.WriteByte(':')
		if n.End != nil {
			b.WriteString(strconv.Itoa(*n.End))
		}
		if n.Step != nil {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(*n.Step))
		}
		b.WriteByte(']')
	case NodeFilter:
		b.WriteString("[?(")
		b.WriteString(n.Expr.String())
		b.WriteString(")]")
	}
}

// String returns the canonical text form of a path node on its own.
func (n *PathNode) String() string {
	if n.Kind == NodeRoot {
		return "$"
	}
	var b strings.Builder
	n.writeTo(&b)
	return b.String()
}

// String returns the canonical text form of a filter expression.
// Nested binary operands are parenthesized so the printed form re-parses
// with the same structure independent of operator precedence.
func (f *FilterNode) String() string {
	var b strings.Builder
	f.writeTo(&b)
	return b.String()
}

func (f *FilterNode) writeTo(b *strings.Builder) {
	switch f.Kind {
	case FilterLiteral:
		writeLiteral(b, f.Value)
	case FilterProperty:
		b.WriteByte('@')
		for _, seg := range f.PropPath {
			b.WriteByte('.')
			b.WriteString(seg)
		}
	case FilterBinary:
		f.LHS.writeOperand(b)
		b.WriteByte(' ')
		b.WriteString(f.Op)
		b.WriteByte(' ')
		f.RHS.writeOperand(b)
	case FilterUnary:
		b.WriteString(f.Op)
		if f.Op != "!" {
			b.WriteByte(' ')
		}
		f.RHS.writeOperand(b)
	case FilterFunction:
		b.WriteString(f.Name)
		b.WriteByte('(')
		for i, arg := range f.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			arg.writeTo(b)
		}
		b.WriteByte(')')
	}
}

func (f *FilterNode) writeOperand(b *strings.Builder) {
	if f.Kind == FilterBinary {
		b.WriteByte('(')
		f.writeTo(b)
		b.WriteByte(')')
		return
	}
	f.writeTo(b)
}

func writeLiteral(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case []interface{}:
		b.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, elem)
		}
		b.WriteByte(']')
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		b.WriteByte('\'')
		for _, r := range val {
			switch r {
			case '\'':
				b.WriteString(`\'`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				b.WriteRune(r)
			}
		}
		b.WriteByte('\'')
	}
}
