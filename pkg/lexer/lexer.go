package lexer

import (
	"fmt"
	"math"
	"strings"

	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
	warnings  []util.Warning
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Reset rewinds the cursor to the start of the source.
func (l *Lexer) Reset() {
	l.pos, l.line, l.column = 0, 1, 1
	l.warnings = nil
}

// Warnings returns the warnings raised so far.
func (l *Lexer) Warnings() []util.Warning { return l.warnings }

// Next returns the token at the cursor and advances past it.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if isLetter(ch) {
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	}
	if isDigit(ch) {
		return l.integerLiteral(startPos, startCol, startLine), nil
	}

	l.advance()
	switch ch {
	case '(':
		return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
	case ')':
		return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
	case ';':
		return l.makeToken(token.Semi, "", startPos, startCol, startLine), nil
	case '.':
		return l.makeToken(token.Dot, "", startPos, startCol, startLine), nil
	case ':':
		return l.matchThen('=', token.Assign, startPos, startCol, startLine)
	case '+', '-':
		tok := l.makeToken(token.AddOp, string(ch), startPos, startCol, startLine)
		tok.Op = ch
		return tok, nil
	case '*', '/':
		tok := l.makeToken(token.MulOp, string(ch), startPos, startCol, startLine)
		tok.Op = ch
		return tok, nil
	}

	tok := l.makeToken(token.Other, string(ch), startPos, startCol, startLine)
	return tok, util.Errorf(util.LexError, util.ErrUnexpectedChar, tok, "unrecognized character %q at %d", ch, startPos)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex, Pos: startPos,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

// matchThen finishes a two-character token whose second character is
// mandatory.
func (l *Lexer) matchThen(expected rune, tokType token.Type, startPos, startCol, startLine int) (token.Token, error) {
	if l.peek() == expected {
		l.advance()
		return l.makeToken(tokType, "", startPos, startCol, startLine), nil
	}
	tok := l.makeToken(tokType, "", startPos, startCol, startLine)
	return tok, util.Errorf(util.LexError, util.ErrMalformedAssign, tok, "expected '%c' after ':' at %d", expected, startPos)
}

func (l *Lexer) skipWhitespace() {
	extended := l.cfg.IsFeatureEnabled(config.FeatExtendedWhitespace)
	for {
		switch l.peek() {
		case ' ', '\n':
			l.advance()
		case '\t', '\r':
			if !extended {
				return
			}
			l.advance()
		default:
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isLetter(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.LookupKeyword(value); isKeyword {
		tok.Type = tokType
		tok.Value = ""
		return tok
	}
	upper := strings.ToUpper(value)
	if _, isKeyword := token.LookupKeyword(upper); isKeyword {
		l.warn(config.WarnKeywordCase, tok, "'%s' is an identifier; the keyword is spelled '%s'", value, upper)
	}
	return tok
}

// integerLiteral scans a run of digits. Values past 64 bits wrap.
func (l *Lexer) integerLiteral(startPos, startCol, startLine int) token.Token {
	var value uint64
	wrapped := false
	for isDigit(l.peek()) {
		d := uint64(l.advance() - '0')
		if value > (math.MaxUint64-d)/10 {
			wrapped = true
		}
		value = value*10 + d
	}
	tok := l.makeToken(token.Integer, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
	tok.Int = value
	if wrapped || value > math.MaxInt64 {
		l.warn(config.WarnOverflow, tok, "integer literal %s overflows int64", tok.Value)
	}
	return tok
}

func (l *Lexer) warn(wt config.Warning, tok token.Token, format string, args ...any) {
	if !l.cfg.IsWarningEnabled(wt) {
		return
	}
	l.warnings = append(l.warnings, util.Warning{Name: l.cfg.WarningName(wt), Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func isLetter(ch rune) bool { return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' }

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
