package codegen

import (
	"bytes"

	"github.com/xplshn/spi/pkg/ast"
	"github.com/xplshn/spi/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// GenerateIR lowers a program to the backend's intermediate language.
	GenerateIR(root *ast.Node) (string, error)
	// Generate produces target assembly for cfg.QbeTarget.
	Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error)
}
