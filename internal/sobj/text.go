package sobj

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoder writes a document in one representation.
type Encoder interface {
	Encode(w io.Writer, doc *Document) error
}

// EncoderFor returns the text encoder when text is set, the binary one
// otherwise.
func EncoderFor(text bool) Encoder {
	if text {
		return Text{}
	}
	return Binary{}
}

// Text writes a human-readable YAML rendering.
type Text struct{}

// Encode writes doc to w.
func (Text) Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("sobj: encode text: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("sobj: encode text: %w", err)
	}
	return nil
}

// UnmarshalText parses the YAML rendering back into a document.
func UnmarshalText(b []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("sobj: parse text: %w", err)
	}
	return &doc, nil
}

// MarshalYAML renders texture bytes as a base64 !!binary scalar.
func (t Texture) MarshalYAML() (interface{}, error) {
	return struct {
		Format string     `yaml:"format,omitempty"`
		Data   *yaml.Node `yaml:"data"`
	}{
		Format: t.Format,
		Data: &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString(t.Data),
		},
	}, nil
}

// UnmarshalYAML reads the form written by MarshalYAML.
func (t *Texture) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("sobj: texture: expected mapping, got kind %d", value.Kind)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch key.Value {
		case "format":
			t.Format = val.Value
		case "data":
			data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(val.Value), ""))
			if err != nil {
				return fmt.Errorf("sobj: texture data: %w", err)
			}
			t.Data = data
		}
	}
	return nil
}
