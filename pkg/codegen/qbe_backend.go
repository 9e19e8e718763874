package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

// qbeBackend lowers a program to a QBE `main` that computes every
// assignment in order and prints the final store as "name = value" lines,
// sorted by name. A zero divisor or a read of an unassigned variable
// prints a runtime error and exits 1.
type qbeBackend struct {
	out     *strings.Builder
	tmp     int
	defined map[string]bool
	undef   []string
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) GenerateIR(root *ast.Node) (string, error) {
	var body strings.Builder
	b.out = &body
	b.tmp = 0
	b.defined = make(map[string]bool)
	b.undef = nil

	if err := b.genStmt(root); err != nil {
		return "", err
	}

	var names []string
	for name := range b.defined {
		names = append(names, name)
	}
	sort.Strings(names)

	var qbeIR strings.Builder
	qbeIR.WriteString("data $fmt = { b \"%s = %lld\\n\", b 0 }\n")
	qbeIR.WriteString("data $divzero.msg = { b \"runtime error: division by zero\", b 0 }\n")
	for i, name := range names {
		fmt.Fprintf(&qbeIR, "data $name.%d = { b %s, b 0 }\n", i, strconv.Quote(name))
	}
	for i, name := range b.undef {
		fmt.Fprintf(&qbeIR, "data $undef.%d = { b %s, b 0 }\n", i,
			strconv.Quote("runtime error: undefined variable '"+name+"'"))
	}

	qbeIR.WriteString("\nexport function w $main() {\n@start\n")
	qbeIR.WriteString(body.String())
	for i, name := range names {
		fmt.Fprintf(&qbeIR, "\tcall $printf(l $fmt, ..., l $name.%d, l %s)\n", i, varTemp(name))
	}
	qbeIR.WriteString("\tret 0\n")
	qbeIR.WriteString("@divzero\n\tcall $puts(l $divzero.msg)\n\tret 1\n}\n")
	return qbeIR.String(), nil
}

func (b *qbeBackend) newTemp() string {
	b.tmp++
	return fmt.Sprintf("%%t.%d", b.tmp)
}

func varTemp(name string) string { return "%v." + name }

func (b *qbeBackend) genStmt(node *ast.Node) error {
	switch node.Tok.Type {
	case token.Other:
		for _, stmt := range node.Children {
			if err := b.genStmt(stmt); err != nil {
				return err
			}
		}
		return nil
	case token.Assign:
		lhs := node.Children[0]
		if lhs.Tok.Type != token.Ident {
			return util.Errorf(util.RuntimeError, util.ErrInternal, lhs.Tok, "cannot assign to %s", lhs.Tok)
		}
		val, err := b.genExpr(node.Children[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(b.out, "\t%s =l copy %s\n", varTemp(lhs.Tok.Value), val)
		b.defined[lhs.Tok.Value] = true
		return nil
	}
	return util.Errorf(util.RuntimeError, util.ErrInternal, node.Tok, "%s is not a statement", node.Tok)
}

// genExpr returns a QBE operand holding the value of node.
func (b *qbeBackend) genExpr(node *ast.Node) (string, error) {
	switch node.Tok.Type {
	case token.Ident:
		if !b.defined[node.Tok.Value] {
			b.genUndefined(node.Tok.Value)
			return "0", nil
		}
		return varTemp(node.Tok.Value), nil
	case token.Integer:
		return strconv.FormatInt(int64(node.Tok.Int), 10), nil
	case token.Unary:
		v, err := b.genExpr(node.Children[0])
		if err != nil {
			return "", err
		}
		if node.Tok.Op == '+' {
			return v, nil
		}
		res := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =l neg %s\n", res, v)
		return res, nil
	case token.AddOp, token.MulOp:
		l, err := b.genExpr(node.Children[0])
		if err != nil {
			return "", err
		}
		r, err := b.genExpr(node.Children[1])
		if err != nil {
			return "", err
		}
		var op string
		switch node.Tok.Op {
		case '+':
			op = "add"
		case '-':
			op = "sub"
		case '*':
			op = "mul"
		case '/':
			op = "div"
			b.genDivCheck(r)
		default:
			return "", util.Errorf(util.RuntimeError, util.ErrInternal, node.Tok, "unknown operator %s", node.Tok)
		}
		res := b.newTemp()
		fmt.Fprintf(b.out, "\t%s =l %s %s, %s\n", res, op, l, r)
		return res, nil
	}
	return "", util.Errorf(util.RuntimeError, util.ErrInternal, node.Tok, "%s is not a value", node.Tok)
}

// genDivCheck branches to @divzero when divisor is zero. Non-zero literal
// divisors need no check.
func (b *qbeBackend) genDivCheck(divisor string) {
	if n, err := strconv.ParseInt(divisor, 10, 64); err == nil && n != 0 {
		return
	}
	isZero := b.newTemp()
	okLabel := fmt.Sprintf("@ok.%d", b.tmp)
	fmt.Fprintf(b.out, "\t%s =w ceql %s, 0\n", isZero, divisor)
	fmt.Fprintf(b.out, "\tjnz %s, @divzero, %s\n", isZero, okLabel)
	fmt.Fprintf(b.out, "%s\n", okLabel)
}

// genUndefined exits with an error where an unassigned variable is read, so
// failures surface in the same order as under evaluation. Code after it is
// unreachable but still has to be well formed.
func (b *qbeBackend) genUndefined(name string) {
	n := len(b.undef)
	b.undef = append(b.undef, name)
	fmt.Fprintf(b.out, "\tcall $puts(l $undef.%d)\n\tret 1\n@dead.%d\n", n, n)
}
