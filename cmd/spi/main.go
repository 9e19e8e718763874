package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/cli"
	"github.com/xplshn/spi/pkg/codegen"
	"github.com/xplshn/spi/pkg/config"
	"github.com/xplshn/spi/pkg/interp"
	"github.com/xplshn/spi/pkg/lexer"
	"github.com/xplshn/spi/pkg/logs"
	"github.com/xplshn/spi/pkg/parser"
	"github.com/xplshn/spi/pkg/report"
	"github.com/xplshn/spi/pkg/token"
	"github.com/xplshn/spi/pkg/util"
)

// errFailed means a diagnostic has already been printed.
var errFailed = errors.New("failed")

type options struct {
	outFile    string
	format     string
	emit       string
	target     string
	configFile string
	logLevel   string
	dumpAST    bool
	dumpTokens bool
	switches   []string
}

func main() {
	app := cli.NewApp("spi")
	app.Synopsis = "[options] [input.pas ...]"
	app.Description = "An interpreter for a tiny Pascal subset: BEGIN ... END. blocks of integer assignments. " +
		"Each input is run with its own variable store and the final store is printed. " +
		"With no input, or with '-', the program is read from standard input."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/spi>"

	var opts options
	fs := app.FlagSet
	fs.String(&opts.outFile, "output", "o", "-", "Write results (or generated code) to <file>.", "file")
	fs.String(&opts.format, "format", "f", "", "Result format: text, json or yaml.", "format")
	fs.String(&opts.emit, "emit", "e", "eval", "What to produce: eval (run the program), qbe (QBE IL) or asm.", "kind")
	fs.String(&opts.target, "target", "t", "", "QBE target for --emit=asm. Defaults to the host.", "target")
	fs.String(&opts.configFile, "config", "c", "", "Load features and warnings from a .toml or .yaml file.", "file")
	fs.String(&opts.logLevel, "log-level", "", "warn", "Log level: debug, info, warn or error.", "level")
	fs.Bool(&opts.dumpAST, "dump-ast", "a", false, "Print the syntax tree level by level before running.")
	fs.Bool(&opts.dumpTokens, "dump-tokens", "k", false, "Print the token stream before running.")
	fs.Special(&opts.switches, "W", "Enable or disable a warning (-Wall, -Wno-<warning>).", "warning")
	fs.Special(&opts.switches, "F", "Enable or disable a feature (-Fno-<feature>).", "feature")

	cfg := config.NewConfig()
	app.Sections = helpSections(cfg)

	app.Action = func(inputFiles []string) error {
		return run(cfg, opts, inputFiles, os.Stdin, os.Stdout, os.Stderr)
	}

	if err := app.Run(os.Args[1:]); err != nil && !errors.Is(err, cli.ErrHelp) {
		os.Exit(1)
	}
}

func helpSections(cfg *config.Config) []cli.Section {
	var features, warnings []cli.SectionEntry
	for i := config.Feature(0); i < config.FeatCount; i++ {
		info := cfg.Features[i]
		features = append(features, cli.SectionEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	for i := config.Warning(0); i < config.WarnCount; i++ {
		info := cfg.Warnings[i]
		warnings = append(warnings, cli.SectionEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	return []cli.Section{{Name: "Features", Entries: features}, {Name: "Warnings", Entries: warnings}}
}

// run executes the whole driver. Diagnostics go to stderr; results and dumps
// go to the output file or stdout.
func run(cfg *config.Config, opts options, inputFiles []string, stdin io.Reader, stdout, stderr io.Writer) error {
	level, err := logs.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "spi: %v\n", err)
		return errFailed
	}
	logger := logs.New(stderr, level)

	// Config file first, command-line switches override it.
	if opts.configFile != "" {
		if err := cfg.LoadFile(opts.configFile); err != nil {
			fmt.Fprintf(stderr, "spi: %v\n", err)
			return errFailed
		}
		logger.Debug("loaded config", "file", opts.configFile)
	}
	if err := cfg.ProcessFlags(opts.switches); err != nil {
		fmt.Fprintf(stderr, "spi: %v\n", err)
		return errFailed
	}
	if opts.format != "" {
		cfg.Format = opts.format
	}
	if !slices.Contains(report.Formats, cfg.Format) {
		fmt.Fprintf(stderr, "spi: unknown output format '%s'\n", cfg.Format)
		return errFailed
	}
	switch opts.emit {
	case "eval", "qbe":
	case "asm":
		cfg.QbeTarget = opts.target
		if cfg.QbeTarget == "" {
			cfg.QbeTarget = codegen.DefaultTarget(runtime.GOOS, runtime.GOARCH)
		}
		logger.Info("using QBE target", "target", cfg.QbeTarget)
	default:
		fmt.Fprintf(stderr, "spi: unknown --emit kind '%s'\n", opts.emit)
		return errFailed
	}

	out := stdout
	if opts.outFile != "-" && opts.outFile != "" {
		f, err := os.Create(opts.outFile)
		if err != nil {
			fmt.Fprintf(stderr, "spi: %v\n", err)
			return errFailed
		}
		defer f.Close()
		out = f
	}

	if len(inputFiles) == 0 {
		inputFiles = []string{"-"}
	}

	records := make([]util.SourceFileRecord, 0, len(inputFiles))
	reporter := util.NewReporter(stderr, nil)
	failed := false
	for _, path := range inputFiles {
		logger.Debug("reading", "file", path)
		content, err := readSource(path, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "spi: could not read '%s': %v\n", path, err)
			failed = true
			continue
		}
		fileIndex := len(records)
		records = append(records, util.SourceFileRecord{Name: displayName(path), Content: []rune(string(content))})
		reporter.Files = records

		if len(inputFiles) > 1 && opts.emit == "eval" && cfg.Format == "text" {
			fmt.Fprintf(out, "==> %s <==\n", displayName(path))
		}
		if err := runOne(cfg, opts, records[fileIndex].Content, fileIndex, out, reporter, logger.With("file", displayName(path))); err != nil {
			failed = true
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func runOne(cfg *config.Config, opts options, source []rune, fileIndex int, out io.Writer, reporter *util.Reporter, logger *slog.Logger) error {
	start := time.Now()
	lx := lexer.NewLexer(source, fileIndex, cfg)
	p := parser.NewParser(lx, cfg)

	logger.Debug("parsing", "runes", len(source))
	tree, err := p.Parse()
	for _, w := range p.Warnings() {
		reporter.Warn(w)
	}
	if err != nil {
		reporter.Error(err)
		return err
	}
	logger.Debug("parsed", "fingerprint", fmt.Sprintf("%016x", ast.Fingerprint(tree)), "elapsed", time.Since(start))

	if opts.dumpTokens {
		lx.Reset()
		if err := dumpTokens(out, lx); err != nil {
			reporter.Error(err)
			return err
		}
	}
	if opts.dumpAST {
		fmt.Fprint(out, ast.Render(tree))
	}

	if cfg.IsFeatureEnabled(config.FeatFold) {
		logger.Debug("folding")
		tree = ast.FoldConstants(tree)
	}

	switch opts.emit {
	case "qbe":
		logger.Debug("emitting", "kind", "qbe")
		qbeIR, err := codegen.NewQBEBackend().GenerateIR(tree)
		if err != nil {
			reporter.Error(err)
			return err
		}
		_, err = io.WriteString(out, qbeIR)
		return err
	case "asm":
		logger.Debug("emitting", "kind", "asm", "target", cfg.QbeTarget)
		asm, err := codegen.NewQBEBackend().Generate(tree, cfg)
		if err != nil {
			reporter.Error(err)
			return err
		}
		_, err = out.Write(asm.Bytes())
		return err
	}

	logger.Debug("evaluating")
	store, err := interp.New().Run(tree)
	if err != nil {
		reporter.Error(err)
		return err
	}
	logger.Debug("evaluated", "variables", len(store), "elapsed", time.Since(start))
	return report.Write(out, store, cfg.Format)
}

func dumpTokens(w io.Writer, lx *lexer.Lexer) error {
	for {
		tok, err := lx.Next()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d:%d\t%s\n", tok.Line, tok.Column, tok)
		if tok.Is(token.EOF) {
			return nil
		}
	}
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func displayName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return path
}
