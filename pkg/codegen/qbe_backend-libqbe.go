//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
	"modernc.org/libqbe"
)

// DefaultTarget is the QBE target matching the host.
func DefaultTarget(goos, goarch string) string { return libqbe.DefaultTarget(goos, goarch) }

func (b *qbeBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(root)
	if err != nil {
		return nil, err
	}

	var asmBuf bytes.Buffer
	err = libqbe.Main(cfg.QbeTarget, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil)
	if err != nil {
		return nil, fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\nlibqbe error: %w", qbeIR, err)
	}
	return &asmBuf, nil
}
