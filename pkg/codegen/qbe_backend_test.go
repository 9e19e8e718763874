package codegen

import (
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/lexer"
	"github.com/xplshn/spi/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	tree, err := parser.NewParser(lexer.NewLexer([]rune(src), 0, nil), nil).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tree
}

func TestGenerateIR(t *testing.T) {
	got, err := NewQBEBackend().GenerateIR(mustParse(t, "BEGIN a := 2; b := -a / 4 END."))
	if err != nil {
		t.Fatal(err)
	}
	want := `data $fmt = { b "%s = %lld\n", b 0 }
data $divzero.msg = { b "runtime error: division by zero", b 0 }
data $name.0 = { b "a", b 0 }
data $name.1 = { b "b", b 0 }

export function w $main() {
@start
	%v.a =l copy 2
	%t.1 =l neg %v.a
	%t.2 =l div %t.1, 4
	%v.b =l copy %t.2
	call $printf(l $fmt, ..., l $name.0, l %v.a)
	call $printf(l $fmt, ..., l $name.1, l %v.b)
	ret 0
@divzero
	call $puts(l $divzero.msg)
	ret 1
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateIRDivisionCheck(t *testing.T) {
	got, err := NewQBEBackend().GenerateIR(mustParse(t, "BEGIN a := 0; b := 1 / a END."))
	if err != nil {
		t.Fatal(err)
	}
	check := "\t%t.1 =w ceql %v.a, 0\n\tjnz %t.1, @divzero, @ok.1\n@ok.1\n\t%t.2 =l div 1, %v.a\n"
	if !strings.Contains(got, check) {
		t.Errorf("IR has no zero check before the division:\n%s", got)
	}
}

func TestGenerateIRUndefinedVariable(t *testing.T) {
	got, err := NewQBEBackend().GenerateIR(mustParse(t, "BEGIN x := y END."))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"data $undef.0 = { b \"runtime error: undefined variable 'y'\", b 0 }\n",
		"\tcall $puts(l $undef.0)\n\tret 1\n@dead.0\n\t%v.x =l copy 0\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("IR lacks %q:\n%s", want, got)
		}
	}
}

func TestGenerateIRKeepsFailureOrder(t *testing.T) {
	// The division fails first when evaluated, so its check has to come
	// before the exit for the unassigned z.
	got, err := NewQBEBackend().GenerateIR(mustParse(t, "BEGIN x := 1 / 0; y := z END."))
	if err != nil {
		t.Fatal(err)
	}
	div := strings.Index(got, "jnz %t.1, @divzero, @ok.1")
	undef := strings.Index(got, "call $puts(l $undef.0)")
	if div < 0 || undef < 0 || div > undef {
		t.Errorf("division check at %d, undefined exit at %d:\n%s", div, undef, got)
	}
}

func TestGenerate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs qbe in PATH on windows")
	}
	cfg := config.NewConfig()
	cfg.QbeTarget = DefaultTarget(runtime.GOOS, runtime.GOARCH)
	asm, err := NewQBEBackend().Generate(mustParse(t, "BEGIN x := 6 * 7 END."), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(asm.String(), "main") {
		t.Errorf("assembly does not define main:\n%s", asm.String())
	}
}
