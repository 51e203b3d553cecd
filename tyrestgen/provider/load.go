package provider

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/broady/tyrest/tyrestgen/spec"
)

// Format names a description document format.
type Format string

const (
	FormatAuto    Format = ""
	FormatYAML    Format = "yaml"
	FormatOpenAPI Format = "openapi"
)

// Load reads the document at path and builds its spec tree. FormatAuto
// selects OpenAPI when the document has a top-level "openapi" key and the
// native YAML format otherwise.
func Load(ctx context.Context, path string, format Format) (*spec.API, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if format == FormatAuto {
		format = Detect(data)
	}

	switch format {
	case FormatYAML:
		p := &YAMLProvider{}
		return p.BuildSpec(ctx, YAMLInputOptions{Data: data})
	case FormatOpenAPI:
		p := &OpenAPIProvider{}
		return p.BuildSpec(ctx, OpenAPIInputOptions{Data: data, Validate: true})
	default:
		return nil, fmt.Errorf("provider: unknown format %q (expected %q or %q)", format, FormatYAML, FormatOpenAPI)
	}
}

// Detect guesses the format of a document. JSON documents are YAML too.
func Detect(data []byte) Format {
	var probe struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.OpenAPI != "" {
		return FormatOpenAPI
	}
	return FormatYAML
}
