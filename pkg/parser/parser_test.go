package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/lexer"
	"github.com/xplshn/spi/pkg/util"
)

func parse(src string, cfg *config.Config) (*ast.Node, *Parser, error) {
	p := NewParser(lexer.NewLexer([]rune(src), 0, cfg), cfg)
	tree, err := p.Parse()
	return tree, p, err
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "empty program",
			src:  "BEGIN END.",
			want: "  |Other(1)|  \n" +
				"  |Other(1)|  \n" +
				"  |Other(0)|  \n",
		},
		{
			name: "precedence",
			src:  "BEGIN x := 2 + 3 * 4 END.",
			want: "  |Other(1)|  \n" +
				"  |Other(1)|  \n" +
				"  |ASSIGN(2)|  \n" +
				"  |variable: x(0)|    |operation: +(2)|  \n" +
				"  |INTEGER: 2(0)|    |operation: *(2)|  \n" +
				"  |INTEGER: 3(0)|    |INTEGER: 4(0)|  \n",
		},
		{
			name: "left associative",
			src:  "BEGIN x := 10 - 2 - 3 END.",
			want: "  |Other(1)|  \n" +
				"  |Other(1)|  \n" +
				"  |ASSIGN(2)|  \n" +
				"  |variable: x(0)|    |operation: -(2)|  \n" +
				"  |operation: -(2)|    |INTEGER: 3(0)|  \n" +
				"  |INTEGER: 10(0)|    |INTEGER: 2(0)|  \n",
		},
		{
			name: "parentheses",
			src:  "BEGIN x := (1 + 2) * y END.",
			want: "  |Other(1)|  \n" +
				"  |Other(1)|  \n" +
				"  |ASSIGN(2)|  \n" +
				"  |variable: x(0)|    |operation: *(2)|  \n" +
				"  |operation: +(2)|    |variable: y(0)|  \n" +
				"  |INTEGER: 1(0)|    |INTEGER: 2(0)|  \n",
		},
		{
			name: "unary chain",
			src:  "BEGIN x := - + 5 END.",
			want: "  |Other(1)|  \n" +
				"  |Other(1)|  \n" +
				"  |ASSIGN(2)|  \n" +
				"  |variable: x(0)|    |UNARY: -(1)|  \n" +
				"  |UNARY: +(1)|  \n" +
				"  |INTEGER: 5(0)|  \n",
		},
		{
			name: "nested blocks and trailing separator",
			src:  "BEGIN BEGIN a := 1 END; b := a; END.",
			want: "  |Other(1)|  \n" +
				"  |Other(3)|  \n" +
				"  |Other(1)|    |ASSIGN(2)|    |Other(0)|  \n" +
				"  |ASSIGN(2)|    |variable: b(0)|    |variable: a(0)|  \n" +
				"  |variable: a(0)|    |INTEGER: 1(0)|  \n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _, err := parse(tt.src, nil)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}
			if diff := cmp.Diff(tt.want, ast.Render(tree)); diff != "" {
				t.Errorf("Render mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	src := "BEGIN a := 1; BEGIN b := -a * (3 + a) END; c := b / 2 END."
	first, _, err := parse(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := parse(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ast.Render(first) != ast.Render(second) {
		t.Error("rendering differs between two parses of the same source")
	}
	if ast.Fingerprint(first) != ast.Fingerprint(second) {
		t.Error("fingerprint differs between two parses of the same source")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src   string
		kind  util.ErrorKind
		cause error
		msg   string
	}{
		{"BEGIN x := 1 END. y", util.SyntaxError, util.ErrTrailingTokens, "unexpected variable: y after the final '.'"},
		{"BEGIN x := 1 END.$", util.LexError, util.ErrUnexpectedChar, "unrecognized character '$' at 17"},
		{"BEGIN END..", util.SyntaxError, util.ErrTrailingTokens, "unexpected DOT after the final '.'"},
		{"BEGIN x := 1 END", util.SyntaxError, util.ErrUnexpectedToken, "expected '.', found EOF"},
		{"x := 1.", util.SyntaxError, util.ErrUnexpectedToken, "expected BEGIN, found variable: x"},
		{"BEGIN x := 1 y := 2 END.", util.SyntaxError, util.ErrUnexpectedToken, "expected ';' or END before variable: y"},
		{"BEGIN x := ) END.", util.SyntaxError, util.ErrUnexpectedToken, "expected an expression, found )"},
		{"BEGIN x := (1 END.", util.SyntaxError, util.ErrUnexpectedToken, "expected ')', found END"},
		{"BEGIN x 1 END.", util.SyntaxError, util.ErrUnexpectedToken, "expected ':=', found INTEGER: 1"},
		{"BEGIN x : 1 END.", util.LexError, util.ErrMalformedAssign, "expected '=' after ':' at 8"},
		{"BEGIN x := 1 @ END.", util.LexError, util.ErrUnexpectedChar, "unrecognized character '@' at 13"},
	}
	for _, tt := range tests {
		tree, _, err := parse(tt.src, nil)
		if tree != nil {
			t.Errorf("%q: got a tree alongside an error", tt.src)
		}
		var e *util.Error
		if !errors.As(err, &e) {
			t.Errorf("%q: error = %v, want *util.Error", tt.src, err)
			continue
		}
		if !errors.Is(err, tt.cause) {
			t.Errorf("%q: cause = %v, want %v", tt.src, e.Err, tt.cause)
		}
		if e.Kind != tt.kind || e.Msg != tt.msg {
			t.Errorf("%q: got %s %q, want %s %q", tt.src, e.Kind, e.Msg, tt.kind, tt.msg)
		}
	}
}

func TestWarnings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnEmptyStmt, true)
	_, p, err := parse("BEGIN ; Begin := 1; END.", cfg)
	if err != nil {
		t.Fatal(err)
	}
	type warn struct {
		Name   string
		Column int
	}
	var got []warn
	for _, w := range p.Warnings() {
		got = append(got, warn{w.Name, w.Tok.Column})
	}
	want := []warn{{"empty-stmt", 7}, {"keyword-case", 9}, {"empty-stmt", 21}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	_, p, err = parse("BEGIN ; END.", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ws := p.Warnings(); len(ws) != 0 {
		t.Errorf("empty-stmt is off by default, got %+v", ws)
	}
}
