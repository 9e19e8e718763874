//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
)

// DefaultTarget is the QBE target matching the host.
func DefaultTarget(goos, goarch string) string {
	if goarch == "arm64" {
		return "arm64"
	}
	return "amd64_sysv"
}

func (b *qbeBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	_, err := exec.LookPath("qbe")
	if err != nil {
		return nil, fmt.Errorf("self-contained QBE backend is not supported on Windows and QBE was not found in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(root)
	if err != nil {
		return nil, err
	}

	inputFile, err := os.CreateTemp("", "spi-qbe-*.temp.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(inputFile.Name())
	defer inputFile.Close()

	if _, err = inputFile.WriteString(qbeIR); err != nil {
		return nil, err
	}

	outputFileName := inputFile.Name() + ".asm"
	cmd := exec.Command("qbe", "-o", outputFileName, "-t", cfg.QbeTarget, inputFile.Name())
	if err = cmd.Run(); err != nil {
		return nil, fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\nError: %w", qbeIR, err)
	}

	outputFile, err := os.Open(outputFileName)
	if err != nil {
		return nil, err
	}
	defer os.Remove(outputFileName)
	defer outputFile.Close()

	var asmBuf bytes.Buffer
	if _, err = io.Copy(&asmBuf, outputFile); err != nil {
		return nil, err
	}
	return &asmBuf, nil
}
