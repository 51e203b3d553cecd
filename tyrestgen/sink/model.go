package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/broady/tyrest/tyrestgen/ir"
)

// Format selects the encoding of a written model.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Ext returns the file extension of the format, including the dot.
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Encode renders api in the given format. YAML output has the same keys in
// the same order as the JSON output.
func Encode(api *ir.API, format Format) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(api); err != nil {
		return nil, fmt.Errorf("sink: encode model: %w", err)
	}

	switch format {
	case FormatJSON, "":
		return buf.Bytes(), nil
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
			return nil, fmt.Errorf("sink: convert model: %w", err)
		}
		blockStyle(&doc)
		var out bytes.Buffer
		yenc := yaml.NewEncoder(&out)
		yenc.SetIndent(2)
		if err := yenc.Encode(&doc); err != nil {
			return nil, fmt.Errorf("sink: encode model: %w", err)
		}
		if err := yenc.Close(); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("sink: unknown format %q", format)
}

// blockStyle drops the flow style the JSON input leaves on every node.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// WriteModel encodes api in format and stores it in s under name. It
// returns the path reported by the sink, e.g. "api.yaml".
func WriteModel(ctx context.Context, s Sink, name string, api *ir.API, format Format) (string, error) {
	if format == "" {
		format = FormatJSON
	}
	content, err := Encode(api, format)
	if err != nil {
		return "", err
	}
	return s.Put(ctx, Model{Name: name, Format: format, Content: content})
}
