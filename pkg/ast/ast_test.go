package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/spi/pkg/token"
)

func intLit(v uint64) *Node {
	return NewInteger(token.Token{Type: token.Integer, Int: v})
}

func ident(name string) *Node {
	return NewIdent(token.Token{Type: token.Ident, Value: name})
}

func op(typ token.Type, c rune) token.Token {
	return token.Token{Type: typ, Op: c, Value: string(c)}
}

func assign(name string, rhs *Node) *Node {
	return NewAssign(token.Token{Type: token.Assign}, ident(name), rhs)
}

func program(stmts ...*Node) *Node {
	var begin token.Token
	return NewBlock(begin, []*Node{NewBlock(begin, stmts)})
}

func TestRender(t *testing.T) {
	tree := program(
		assign("a", NewUnaryOp(op(token.AddOp, '-'), intLit(3))),
		NewEmpty(token.Token{}),
	)
	want := "  |Other(1)|  \n" +
		"  |Other(2)|  \n" +
		"  |ASSIGN(2)|    |Other(0)|  \n" +
		"  |variable: a(0)|    |UNARY: -(1)|  \n" +
		"  |INTEGER: 3(0)|  \n"
	if diff := cmp.Diff(want, Render(tree)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestRenderLeavesAlwaysShowZero(t *testing.T) {
	// A leaf that somehow carries children still renders as a leaf and
	// its children are not visited.
	leaf := ident("x")
	leaf.Children = []*Node{intLit(1)}
	if got, want := Render(leaf), "  |variable: x(0)|  \n"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestNewUnaryOpRetags(t *testing.T) {
	n := NewUnaryOp(op(token.AddOp, '+'), intLit(1))
	if n.Type() != token.Unary || n.Tok.Op != '+' {
		t.Errorf("unary node tag = %v %q", n.Type(), n.Tok.Op)
	}
}

func TestFingerprint(t *testing.T) {
	a := program(assign("x", NewBinaryOp(op(token.AddOp, '+'), intLit(1), intLit(2))))
	b := program(assign("x", NewBinaryOp(op(token.AddOp, '+'), intLit(1), intLit(2))))
	c := program(assign("x", NewBinaryOp(op(token.AddOp, '-'), intLit(1), intLit(2))))
	d := program(assign("x", intLit(1)), NewEmpty(token.Token{}))
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("equal trees have different fingerprints")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("trees differing in an operator share a fingerprint")
	}
	if Fingerprint(a) == Fingerprint(d) {
		t.Error("trees differing in shape share a fingerprint")
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := program(assign("x", intLit(1)), assign("y", intLit(2)))
	var seen []string
	Walk(tree, func(n *Node) bool {
		seen = append(seen, n.Tok.String())
		return n.Type() != token.Assign
	})
	want := []string{"Other", "Other", "ASSIGN", "ASSIGN"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldConstants(t *testing.T) {
	tests := []struct {
		name string
		in   *Node
		want string
	}{
		{
			name: "folds nested arithmetic",
			in: NewBinaryOp(op(token.AddOp, '+'), intLit(2),
				NewBinaryOp(op(token.MulOp, '*'), intLit(3), intLit(4))),
			want: "  |INTEGER: 14(0)|  \n",
		},
		{
			name: "negative result becomes unary minus",
			in:   NewBinaryOp(op(token.AddOp, '-'), intLit(2), intLit(5)),
			want: "  |UNARY: -(1)|  \n  |INTEGER: 3(0)|  \n",
		},
		{
			name: "double negation",
			in:   NewUnaryOp(op(token.AddOp, '-'), NewUnaryOp(op(token.AddOp, '-'), intLit(5))),
			want: "  |INTEGER: 5(0)|  \n",
		},
		{
			name: "variables stop folding",
			in: NewBinaryOp(op(token.AddOp, '+'), ident("a"),
				NewBinaryOp(op(token.MulOp, '*'), intLit(3), intLit(4))),
			want: "  |operation: +(2)|  \n  |variable: a(0)|    |INTEGER: 12(0)|  \n",
		},
		{
			name: "division by zero is kept",
			in:   NewBinaryOp(op(token.MulOp, '/'), intLit(1), intLit(0)),
			want: "  |operation: /(2)|  \n  |INTEGER: 1(0)|    |INTEGER: 0(0)|  \n",
		},
		{
			name: "truncating division",
			in:   NewBinaryOp(op(token.MulOp, '/'), NewUnaryOp(op(token.AddOp, '-'), intLit(7)), intLit(2)),
			want: "  |UNARY: -(1)|  \n  |INTEGER: 3(0)|  \n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := Render(tt.in)
			got := FoldConstants(tt.in)
			if diff := cmp.Diff(tt.want, Render(got)); diff != "" {
				t.Errorf("folded tree mismatch (-want +got):\n%s", diff)
			}
			if after := Render(tt.in); after != before {
				t.Errorf("input tree was modified:\nbefore:\n%safter:\n%s", before, after)
			}
		})
	}
}
