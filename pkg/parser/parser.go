package parser

import (
	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/lexer"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

// Parser holds the state for the parsing process. It pulls tokens from the
// lexer one at a time and keeps a single token of lookahead.
type Parser struct {
	lexer    *lexer.Lexer
	cfg      *config.Config
	current  token.Token
	warnings []util.Warning
}

// NewParser creates a Parser reading from l
func NewParser(l *lexer.Lexer, cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Parser{lexer: l, cfg: cfg}
}

// Warnings returns the lexer's and the parser's warnings in source order.
func (p *Parser) Warnings() []util.Warning {
	lw := p.lexer.Warnings()
	out := make([]util.Warning, 0, len(lw)+len(p.warnings))
	i, j := 0, 0
	for i < len(lw) && j < len(p.warnings) {
		if lw[i].Tok.Pos <= p.warnings[j].Tok.Pos {
			out = append(out, lw[i])
			i++
		} else {
			out = append(out, p.warnings[j])
			j++
		}
	}
	out = append(out, lw[i:]...)
	return append(out, p.warnings[j:]...)
}

// Parse reads a whole program: a compound statement, the terminating '.',
// and nothing after it.
func (p *Parser) Parse() (*ast.Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	start := p.current
	body, err := p.parseCompoundStmt()
	if err != nil {
		return nil, err
	}
	if err := p.eat(token.Dot); err != nil {
		return nil, err
	}
	if !p.check(token.EOF) {
		return nil, util.Errorf(util.SyntaxError, util.ErrTrailingTokens, p.current,
			"unexpected %s after the final '.'", p.current)
	}
	return ast.NewBlock(start, []*ast.Node{body}), nil
}

// Parser helpers
func (p *Parser) advance() error {
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Is(tokType)
}

// eat consumes the lookahead if its tag is tokType.
func (p *Parser) eat(tokType token.Type) error {
	if p.check(tokType) {
		return p.advance()
	}
	return util.Errorf(util.SyntaxError, util.ErrUnexpectedToken, p.current,
		"expected %s, found %s", tokType, p.current)
}

func (p *Parser) warn(wt config.Warning, tok token.Token, msg string) {
	if p.cfg.IsWarningEnabled(wt) {
		p.warnings = append(p.warnings, util.Warning{Name: p.cfg.WarningName(wt), Tok: tok, Msg: msg})
	}
}

// Statement Parsing
func (p *Parser) parseCompoundStmt() (*ast.Node, error) {
	start := p.current
	if err := p.eat(token.Begin); err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtList()
	if err != nil {
		return nil, err
	}
	if err := p.eat(token.End); err != nil {
		return nil, err
	}
	return ast.NewBlock(start, stmts), nil
}

func (p *Parser) parseStmtList() ([]*ast.Node, error) {
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmts := []*ast.Node{stmt}
	for p.check(token.Semi) {
		if err := p.eat(token.Semi); err != nil {
			return nil, err
		}
		if stmt, err = p.parseStmt(); err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	// Two statements with no separator between them.
	if p.check(token.Ident) {
		return nil, util.Errorf(util.SyntaxError, util.ErrUnexpectedToken, p.current,
			"expected ';' or END before %s", p.current)
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	switch p.current.Type {
	case token.Begin:
		return p.parseCompoundStmt()
	case token.Ident:
		return p.parseAssignStmt()
	}
	p.warn(config.WarnEmptyStmt, p.current, "empty statement")
	return ast.NewEmpty(p.current), nil
}

func (p *Parser) parseAssignStmt() (*ast.Node, error) {
	lhs, err := p.parseVariable()
	if err != nil {
		return nil, err
	}
	assignTok := p.current
	if err := p.eat(token.Assign); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewAssign(assignTok, lhs, rhs), nil
}

func (p *Parser) parseVariable() (*ast.Node, error) {
	tok := p.current
	if err := p.eat(token.Ident); err != nil {
		return nil, err
	}
	return ast.NewIdent(tok), nil
}

// Expression Parsing
func (p *Parser) parseExpr() (*ast.Node, error) {
	node, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.check(token.AddOp) {
		opTok := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinaryOp(opTok, node, right)
	}
	return node, nil
}

func (p *Parser) parseTerm() (*ast.Node, error) {
	node, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.check(token.MulOp) {
		opTok := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinaryOp(opTok, node, right)
	}
	return node, nil
}

func (p *Parser) parseFactor() (*ast.Node, error) {
	tok := p.current
	switch tok.Type {
	case token.AddOp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(tok, operand), nil
	case token.Integer:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.NewInteger(tok), nil
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.eat(token.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case token.Ident:
		return p.parseVariable()
	}
	return nil, util.Errorf(util.SyntaxError, util.ErrUnexpectedToken, tok,
		"expected an expression, found %s", tok)
}
