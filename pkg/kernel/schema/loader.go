package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and structurally decodes a mission/v0 YAML file.
// Returns a structural error if the YAML contains unknown fields.
func LoadFile(path string) (*Mission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mission: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a mission/v0 document from a reader.
func Load(r io.Reader) (*Mission, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	var m Mission
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // strict: reject unknown fields
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	m.SequenceLine = sequenceLine(data)
	return &m, nil
}

// sequenceLine finds where the sequence script starts in the file. Block
// scalars start on the line after their indicator.
func sequenceLine(data []byte) int {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return 0
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return 0
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "sequence" {
			continue
		}
		v := root.Content[i+1]
		if v.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
			return v.Line + 1
		}
		return v.Line
	}
	return 0
}
