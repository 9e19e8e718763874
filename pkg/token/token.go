package token

import "fmt"

// Type is the tag of a token. Grammar dispatch compares Types only, never
// the payload carried alongside it.
type Type int

const (
	EOF Type = iota
	AddOp
	MulOp
	LParen
	RParen
	Integer
	Unary
	Begin
	End
	Dot
	Assign
	Semi
	Ident
	Other
)

var typeNames = [...]string{
	EOF:     "EOF",
	AddOp:   "additive operator",
	MulOp:   "multiplicative operator",
	LParen:  "'('",
	RParen:  "')'",
	Integer: "integer",
	Unary:   "unary operator",
	Begin:   "BEGIN",
	End:     "END",
	Dot:     "'.'",
	Assign:  "':='",
	Semi:    "';'",
	Ident:   "identifier",
	Other:   "placeholder",
}

// String names the token class, for "expected X" style messages.
func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// LookupKeyword reports whether ident is a reserved word. Keywords are
// matched case-sensitively.
func LookupKeyword(ident string) (Type, bool) {
	switch ident {
	case "BEGIN":
		return Begin, true
	case "END":
		return End, true
	}
	return Ident, false
}

type Token struct {
	Type      Type
	Value     string // identifier name or literal text
	Op        rune   // '+', '-', '*', '/' for AddOp, MulOp and Unary
	Int       uint64 // Integer payload
	FileIndex int
	Pos       int // rune offset into the source
	Line      int
	Column    int
	Len       int
}

// Is reports whether the token has the given tag, ignoring its payload.
func (t Token) Is(typ Type) bool { return t.Type == typ }

// String renders the token the way tree dumps label their nodes.
func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "EOF"
	case AddOp, MulOp:
		return fmt.Sprintf("operation: %c", t.Op)
	case LParen:
		return "("
	case RParen:
		return ")"
	case Integer:
		return fmt.Sprintf("INTEGER: %d", t.Int)
	case Unary:
		return fmt.Sprintf("UNARY: %c", t.Op)
	case Begin:
		return "BEGIN"
	case End:
		return "END"
	case Dot:
		return "DOT"
	case Assign:
		return "ASSIGN"
	case Semi:
		return "SEMI"
	case Ident:
		return "variable: " + t.Value
	case Other:
		return "Other"
	}
	return t.Type.String()
}

// Placeholder is the synthetic tag for grouping and empty nodes.
func Placeholder(at Token) Token {
	return Token{Type: Other, FileIndex: at.FileIndex, Pos: at.Pos, Line: at.Line, Column: at.Column}
}
