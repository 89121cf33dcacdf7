package yaml

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

type Encoder struct {
	e *yaml.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		e: yaml.NewEncoder(w, yaml.Indent(2), yaml.IndentSequence(true)),
	}
}

func (e *Encoder) Encode(v any) error {
	return e.e.Encode(v) //nolint:wrapcheck // Return the original error.
}

func (e *Encoder) Close() error {
	return e.e.Close() //nolint:wrapcheck // Return the original error.
}

// Marshal encodes v as YAML.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// MarshalJSON encodes v as JSON. Useful when the consumer expects strict
// JSON documents, such as tools fed a manifest file on disk.
func MarshalJSON(v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	out, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	return out, nil
}
