// Package ast defines the tree the parser builds and the evaluator walks.
// A node is a tag (a token reused as the node's label) and an ordered list
// of children; the shape alone encodes statement and expression structure.
package ast

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xplshn/spi/pkg/token"
)

// Node represents a node in the Abstract Syntax Tree.
//
// Binary operators keep the left operand at index 0 and the right at index 1.
// Unary operators have a single child. Identifier and integer leaves have
// none. Nodes tagged token.Other group statements (the program root and each
// compound statement body) or stand for the empty statement.
type Node struct {
	Tok      token.Token
	Children []*Node
}

func newNode(tok token.Token, children ...*Node) *Node {
	return &Node{Tok: tok, Children: children}
}

func NewIdent(tok token.Token) *Node   { return newNode(tok) }
func NewInteger(tok token.Token) *Node { return newNode(tok) }
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, lhs, rhs)
}
func NewBinaryOp(tok token.Token, left, right *Node) *Node {
	return newNode(tok, left, right)
}

// NewUnaryOp retags an additive operator token as a unary one.
func NewUnaryOp(tok token.Token, expr *Node) *Node {
	tok.Type = token.Unary
	return newNode(tok, expr)
}

// NewBlock groups statements under a placeholder tag anchored at tok.
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return &Node{Tok: token.Placeholder(tok), Children: stmts}
}

// NewEmpty is the no-op statement.
func NewEmpty(tok token.Token) *Node { return &Node{Tok: token.Placeholder(tok)} }

// Type is shorthand for n.Tok.Type.
func (n *Node) Type() token.Type { return n.Tok.Type }

// IsLeaf reports whether n is an identifier or integer literal.
func (n *Node) IsLeaf() bool {
	return n.Tok.Type == token.Ident || n.Tok.Type == token.Integer
}

// Walk calls fn for n and its descendants in pre-order. Returning false
// from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Render dumps the tree level by level. Each node is printed as
// "  |TAG(N)|  " where N is its child count; leaves always print (0).
func Render(root *Node) string {
	if root == nil {
		return ""
	}
	var sb strings.Builder
	level := []*Node{root}
	for len(level) > 0 {
		var next []*Node
		for _, n := range level {
			sb.WriteString("  |")
			sb.WriteString(n.Tok.String())
			if n.IsLeaf() {
				sb.WriteString("(0)|  ")
				continue
			}
			sb.WriteByte('(')
			sb.WriteString(strconv.Itoa(len(n.Children)))
			sb.WriteString(")|  ")
			next = append(next, n.Children...)
		}
		sb.WriteByte('\n')
		level = next
	}
	return sb.String()
}

// Fingerprint hashes the tags and child counts of the tree in pre-order.
// Trees with the same shape and labels have the same fingerprint.
func Fingerprint(root *Node) uint64 {
	h := xxhash.New()
	var buf [20]byte
	Walk(root, func(n *Node) bool {
		h.WriteString(n.Tok.String())
		h.Write(strconv.AppendInt(buf[:0], int64(len(n.Children)), 10))
		h.Write([]byte{0})
		return true
	})
	return h.Sum64()
}

// FoldConstants evaluates operator nodes whose operands are all integer
// literals. Divisions by a zero literal are left alone so that evaluation
// reports them. The input tree is not modified.
func FoldConstants(node *Node) *Node {
	if node == nil {
		return nil
	}

	children := make([]*Node, len(node.Children))
	for i, c := range node.Children {
		children[i] = FoldConstants(c)
	}
	node = &Node{Tok: node.Tok, Children: children}

	switch node.Tok.Type {
	case token.AddOp, token.MulOp:
		l, lok := constValue(node.Children[0])
		r, rok := constValue(node.Children[1])
		if !lok || !rok {
			return node
		}
		var res int64
		switch node.Tok.Op {
		case '+':
			res = l + r
		case '-':
			res = l - r
		case '*':
			res = l * r
		case '/':
			if r == 0 {
				return node
			}
			res = l / r
		default:
			return node
		}
		return newConst(node.Tok, res)
	case token.Unary:
		v, ok := constValue(node.Children[0])
		if !ok {
			return node
		}
		if node.Tok.Op == '-' {
			v = -v
		}
		return newConst(node.Tok, v)
	}
	return node
}

// constValue reads an integer literal, or a negated one as produced by
// newConst.
func constValue(n *Node) (int64, bool) {
	switch n.Tok.Type {
	case token.Integer:
		return int64(n.Tok.Int), true
	case token.Unary:
		if n.Tok.Op == '-' && len(n.Children) == 1 && n.Children[0].Tok.Type == token.Integer {
			return -int64(n.Children[0].Tok.Int), true
		}
	}
	return 0, false
}

// newConst builds a literal for v. Literals are unsigned, so negative
// values become a unary minus over their magnitude.
func newConst(at token.Token, v int64) *Node {
	lit := token.Token{
		Type: token.Integer, FileIndex: at.FileIndex, Pos: at.Pos,
		Line: at.Line, Column: at.Column, Len: at.Len,
	}
	if v >= 0 {
		lit.Int = uint64(v)
		lit.Value = strconv.FormatUint(lit.Int, 10)
		return NewInteger(lit)
	}
	lit.Int = uint64(-v)
	lit.Value = strconv.FormatUint(lit.Int, 10)
	neg := at
	neg.Type, neg.Op, neg.Value = token.Unary, '-', "-"
	return newNode(neg, NewInteger(lit))
}
