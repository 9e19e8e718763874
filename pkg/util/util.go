package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/spi/pkg/token"
	"golang.org/x/term"
)

// ErrorKind classifies a failure by the pipeline stage that raised it.
type ErrorKind int

const (
	LexError ErrorKind = iota
	SyntaxError
	RuntimeError
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case SyntaxError:
		return "syntax error"
	case RuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Causes carried by *Error, for use with errors.Is.
var (
	ErrUnexpectedChar    = errors.New("unrecognized character")
	ErrMalformedAssign   = errors.New("malformed assignment operator")
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrTrailingTokens    = errors.New("trailing tokens after program end")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrInternal          = errors.New("internal consistency failure")
)

// Error is the single failure value produced by the lexer, parser and
// evaluator. The pipeline stops at the first one.
type Error struct {
	Kind ErrorKind
	Tok  token.Token
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Tok.Line, e.Tok.Column, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind anchored at tok.
func Errorf(kind ErrorKind, cause error, tok token.Token, format string, args ...any) *Error {
	return &Error{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Warning is a non-fatal diagnostic. Name is the -W switch that controls it.
type Warning struct {
	Name string
	Tok  token.Token
	Msg  string
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Reporter prints errors and warnings with the offending source line and a
// caret under the token.
type Reporter struct {
	Out   io.Writer
	Files []SourceFileRecord
	Color bool
}

// NewReporter writes to w, colouring output only when w is a terminal.
func NewReporter(w io.Writer, files []SourceFileRecord) *Reporter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Reporter{Out: w, Files: files, Color: color}
}

func (r *Reporter) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// findFileAndLine converts a token to a file-specific location
func (r *Reporter) findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.Files) {
		return "unknown", tok.Line, tok.Column
	}
	return r.Files[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(r.Files) || tok.Line == 0 {
		return
	}

	content := r.Files[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, c := range content {
		if lineNum <= 1 {
			break
		}
		if c == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(r.Out, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.Out, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), r.paint("32", caret))
}

// Error prints err. Errors that are not *Error are printed without location.
func (r *Reporter) Error(err error) {
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(r.Out, "%s %v\n", r.paint("31", "error:"), err)
		return
	}
	filename, line, col := r.findFileAndLine(e.Tok)
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s\n", filename, line, col, r.paint("31", e.Kind.String()+":"), e.Msg)
	r.printErrorLine(e.Tok)
}

// Warn prints a warning followed by the switch that controls it.
func (r *Reporter) Warn(w Warning) {
	filename, line, col := r.findFileAndLine(w.Tok)
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s [-W%s]\n", filename, line, col, r.paint("33", "warning:"), w.Msg, w.Name)
	r.printErrorLine(w.Tok)
}
