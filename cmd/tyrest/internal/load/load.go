// Package load reads and compiles the description document named on the
// command line.
package load

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/broady/tyrest/tyrestgen"
	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/provider"
)

// Input is the flag set shared by every command that reads a description.
type Input struct {
	Spec   string            `arg:"" help:"Description document (native YAML or OpenAPI)." type:"existingfile"`
	Format string            `help:"Document format (auto, yaml, openapi)." enum:"auto,yaml,openapi" default:"auto"`
	Scalar map[string]string `help:"Map a scalar type to a target type name (name=target)."`

	ImplicitURIParams bool `help:"Bind undeclared path placeholders as string URI parameters." name:"implicit-uri-params"`
}

// Compile loads the document and compiles it with the configured scalar
// mapping and URI parameter mode.
func (in *Input) Compile(ctx context.Context) (*ir.API, error) {
	tree, err := provider.Load(ctx, in.Spec, in.format())
	if err != nil {
		return nil, err
	}

	c := tyrestgen.FromSpec(tree)
	for _, name := range slices.Sorted(maps.Keys(in.Scalar)) {
		c.WithScalar(name, in.Scalar[name])
	}
	if in.ImplicitURIParams {
		c.WithImplicitURIParameters()
	}
	api, err := c.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", in.Spec, err)
	}
	return api, nil
}

func (in *Input) format() provider.Format {
	if in.Format == "auto" {
		return provider.FormatAuto
	}
	return provider.Format(in.Format)
}
