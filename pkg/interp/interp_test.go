package interp

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Store
	}{
		{"precedence", "BEGIN x := 2 + 3 * 4 END.", Store{"x": 14}},
		{"left associative subtraction", "BEGIN x := 10 - 2 - 3 END.", Store{"x": 5}},
		{"left associative division", "BEGIN x := 100 / 10 / 5 END.", Store{"x": 2}},
		{"double negation", "BEGIN x := - - 5 END.", Store{"x": 5}},
		{"negation", "BEGIN x := -5 END.", Store{"x": -5}},
		{"unary plus", "BEGIN x := +(3) END.", Store{"x": 3}},
		{"nested blocks share the store", "BEGIN BEGIN y := 1 END; z := y + 1 END.", Store{"y": 1, "z": 2}},
		{"overwrite", "BEGIN a := 1; a := a + 41 END.", Store{"a": 42}},
		{"truncating division", "BEGIN a := -7 / 2; b := 7 / -2 END.", Store{"a": -3, "b": -3}},
		{"names are case sensitive", "BEGIN a := 1; A := 2 END.", Store{"a": 1, "A": 2}},
		{"empty program", "BEGIN END.", Store{}},
		{"empty statements", "BEGIN ; ; x := 1; END.", Store{"x": 1}},
		{"wrapping arithmetic", "BEGIN x := 9223372036854775807 + 1 END.", Store{"x": math.MinInt64}},
		{
			"larger program",
			"BEGIN\n" +
				"    BEGIN\n" +
				"        number := 2;\n" +
				"        a := number;\n" +
				"        b := 10 * a + 10 * number / 4;\n" +
				"        c := a - - b\n" +
				"    END;\n" +
				"    x := 11\n" +
				"END.",
			Store{"number": 2, "a": 2, "b": 25, "c": 27, "x": 11},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Eval(tt.src, nil)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.src, err)
			}
			if diff := cmp.Diff(tt.want, res.Store); diff != "" {
				t.Errorf("store mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		src   string
		kind  util.ErrorKind
		cause error
		msg   string
	}{
		{"BEGIN x := y + 1 END.", util.RuntimeError, util.ErrUndefinedVariable, "undefined variable 'y'"},
		{"BEGIN x := 1 / 0 END.", util.RuntimeError, util.ErrDivisionByZero, "division by zero"},
		{"BEGIN a := 0; x := 5 / (a * 3) END.", util.RuntimeError, util.ErrDivisionByZero, "division by zero"},
		{"BEGIN x := 1; y := x; z := w END.", util.RuntimeError, util.ErrUndefinedVariable, "undefined variable 'w'"},
		{"BEGIN x :- 1 END.", util.LexError, util.ErrMalformedAssign, "expected '=' after ':' at 8"},
		{"BEGIN\tx := 1 END.", util.LexError, util.ErrUnexpectedChar, "unrecognized character '\\t' at 5"},
		{"BEGIN x := 1 END.$", util.LexError, util.ErrUnexpectedChar, "unrecognized character '$' at 17"},
		{"BEGIN x := 1 END. garbage", util.SyntaxError, util.ErrTrailingTokens, "unexpected variable: garbage after the final '.'"},
	}
	for _, tt := range tests {
		res, err := Eval(tt.src, nil)
		if res.Store != nil {
			t.Errorf("%q: partial store %v returned alongside an error", tt.src, res.Store)
		}
		var e *util.Error
		if !errors.As(err, &e) {
			t.Errorf("%q: error = %v, want *util.Error", tt.src, err)
			continue
		}
		if !errors.Is(err, tt.cause) || e.Kind != tt.kind || e.Msg != tt.msg {
			t.Errorf("%q: got %s %q (%v), want %s %q (%v)", tt.src, e.Kind, e.Msg, e.Err, tt.kind, tt.msg, tt.cause)
		}
	}
}

func TestEvalFold(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatFold, true)
	src := "BEGIN a := 2; x := a * (3 + 4) - -1 END."

	folded, err := Eval(src, cfg)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := Eval(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(plain.Store, folded.Store); diff != "" {
		t.Errorf("folding changed the result (-plain +folded):\n%s", diff)
	}
	if ast.Render(plain.Tree) != ast.Render(folded.Tree) {
		t.Error("Result.Tree should be the tree as parsed, before folding")
	}

	// A zero divisor stays a runtime error with folding on.
	if _, err := Eval("BEGIN x := 4 / (2 - 2) END.", cfg); !errors.Is(err, util.ErrDivisionByZero) {
		t.Errorf("folded 4 / (2 - 2): error = %v, want division by zero", err)
	}
}

func TestRunStartsEmpty(t *testing.T) {
	res, err := Eval("BEGIN x := 1 END.", nil)
	if err != nil {
		t.Fatal(err)
	}
	in := New()
	if _, err := in.Run(res.Tree); err != nil {
		t.Fatal(err)
	}
	// The tree is kept when evaluation fails.
	second, err := Eval("BEGIN y := x END.", nil)
	if !errors.Is(err, util.ErrUndefinedVariable) || second.Tree == nil {
		t.Fatalf("Eval: tree %v, error %v", second.Tree, err)
	}
	if _, err := in.Run(second.Tree); !errors.Is(err, util.ErrUndefinedVariable) {
		t.Errorf("second run saw the first run's store: %v", err)
	}
}

func TestInternalErrors(t *testing.T) {
	// An assignment whose target is not an identifier cannot come out of
	// the parser, so the tree is built by hand.
	bad := ast.NewAssign(token.Token{Type: token.Assign},
		ast.NewInteger(token.Token{Type: token.Integer, Int: 1}),
		ast.NewInteger(token.Token{Type: token.Integer, Int: 2}))
	root := ast.NewBlock(token.Token{}, []*ast.Node{bad})

	store, err := New().Run(root)
	if store != nil {
		t.Errorf("store = %v, want nil", store)
	}
	if !errors.Is(err, util.ErrInternal) {
		t.Fatalf("error = %v, want internal failure", err)
	}
	if k, _ := util.KindOf(err); k != util.RuntimeError {
		t.Errorf("kind = %v, want %v", k, util.RuntimeError)
	}
}

func TestStoreNames(t *testing.T) {
	s := Store{"b": 1, "a": 2, "B": 3}
	if diff := cmp.Diff([]string{"B", "a", "b"}, s.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}
