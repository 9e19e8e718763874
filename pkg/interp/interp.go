// Package interp evaluates a parsed program against a single global
// variable store.
package interp

import (
	"maps"
	"slices"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/lexer"
	"github.com/xplshn/spi/pkg/parser"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

// Store maps variable names to their values. Names are case-sensitive.
type Store map[string]int64

// Names returns the variable names in ascending order.
func (s Store) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Interpreter walks a tree and owns the store of one run.
type Interpreter struct {
	store Store
}

func New() *Interpreter { return &Interpreter{} }

// Run evaluates root with a fresh, empty store. On failure no store is
// returned.
func (in *Interpreter) Run(root *ast.Node) (Store, error) {
	in.store = make(Store)
	if err := in.Visit(root); err != nil {
		in.store = nil
		return nil, err
	}
	s := in.store
	in.store = nil
	return s, nil
}

// Visit executes a statement node: a group of statements or an assignment.
func (in *Interpreter) Visit(node *ast.Node) error {
	switch node.Tok.Type {
	case token.Other:
		for _, stmt := range node.Children {
			if err := in.Visit(stmt); err != nil {
				return err
			}
		}
		return nil
	case token.Assign:
		if len(node.Children) != 2 {
			return internalError(node, "assignment with %d operands", len(node.Children))
		}
		name, err := varName(node.Children[0])
		if err != nil {
			return err
		}
		v, err := in.VisitValue(node.Children[1])
		if err != nil {
			return err
		}
		in.store[name] = v
		return nil
	}
	return internalError(node, "%s is not a statement", node.Tok)
}

// VisitValue evaluates an expression node.
func (in *Interpreter) VisitValue(node *ast.Node) (int64, error) {
	switch node.Tok.Type {
	case token.Ident:
		v, ok := in.store[node.Tok.Value]
		if !ok {
			return 0, util.Errorf(util.RuntimeError, util.ErrUndefinedVariable, node.Tok,
				"undefined variable '%s'", node.Tok.Value)
		}
		return v, nil
	case token.Integer:
		return int64(node.Tok.Int), nil
	case token.Unary:
		if len(node.Children) != 1 {
			return 0, internalError(node, "unary operator with %d operands", len(node.Children))
		}
		v, err := in.VisitValue(node.Children[0])
		if err != nil {
			return 0, err
		}
		switch node.Tok.Op {
		case '+':
			return v, nil
		case '-':
			return -v, nil
		}
	case token.AddOp, token.MulOp:
		if len(node.Children) != 2 {
			return 0, internalError(node, "binary operator with %d operands", len(node.Children))
		}
		l, err := in.VisitValue(node.Children[0])
		if err != nil {
			return 0, err
		}
		r, err := in.VisitValue(node.Children[1])
		if err != nil {
			return 0, err
		}
		switch node.Tok.Op {
		case '+':
			return l + r, nil
		case '-':
			return l - r, nil
		case '*':
			return l * r, nil
		case '/':
			if r == 0 {
				return 0, util.Errorf(util.RuntimeError, util.ErrDivisionByZero, node.Tok, "division by zero")
			}
			return l / r, nil
		}
	}
	return 0, internalError(node, "%s is not a value", node.Tok)
}

func varName(node *ast.Node) (string, error) {
	if node.Tok.Type != token.Ident {
		return "", internalError(node, "cannot assign to %s", node.Tok)
	}
	return node.Tok.Value, nil
}

func internalError(node *ast.Node, format string, args ...any) error {
	return util.Errorf(util.RuntimeError, util.ErrInternal, node.Tok, format, args...)
}

// Result is everything one pass over a source produces.
type Result struct {
	Tree     *ast.Node
	Store    Store
	Warnings []util.Warning
}

// Eval parses and runs source. Tree and Warnings are set as far as the
// pipeline got; Store only on success.
func Eval(source string, cfg *config.Config) (Result, error) {
	return EvalFile([]rune(source), 0, cfg)
}

// EvalFile is Eval for a source registered at fileIndex in a Reporter.
func EvalFile(source []rune, fileIndex int, cfg *config.Config) (Result, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var res Result
	p := parser.NewParser(lexer.NewLexer(source, fileIndex, cfg), cfg)
	tree, err := p.Parse()
	res.Warnings = p.Warnings()
	if err != nil {
		return res, err
	}
	res.Tree = tree
	if cfg.IsFeatureEnabled(config.FeatFold) {
		tree = ast.FoldConstants(tree)
	}
	store, err := New().Run(tree)
	if err != nil {
		return res, err
	}
	res.Store = store
	return res, nil
}
