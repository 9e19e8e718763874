// Package report formats the final variable store of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xplshn/spi/pkg/interp"
	"gopkg.in/yaml.v3"
)

// Formats lists the accepted values of Write's format argument.
var Formats = []string{"text", "json", "yaml"}

// Write prints store to w. Every format lists names in ascending order.
func Write(w io.Writer, store interp.Store, format string) error {
	switch format {
	case "", "text":
		for _, name := range store.Names() {
			if _, err := fmt.Fprintf(w, "%s = %d\n", name, store[name]); err != nil {
				return err
			}
		}
		return nil
	case "json":
		// encoding/json sorts map keys.
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]int64(store))
	case "yaml":
		return writeYAML(w, store)
	}
	return fmt.Errorf("unknown output format '%s'", format)
}

func writeYAML(w io.Writer, store interp.Store) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range store.Names() {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(store[name])},
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
