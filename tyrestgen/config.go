package tyrestgen

import (
	"maps"

	"github.com/broady/tyrest/codec"
)

// DefaultMaxDepth bounds resource and inline type nesting when
// Config.MaxDepth is zero.
const DefaultMaxDepth = 64

// Config holds the configuration for a compile pass.
type Config struct {
	// ScalarMapping maps spec scalar names to target type names.
	// Entries are merged over DefaultScalarMapping.
	// e.g. map[string]string{"datetime": "time.Time"}
	ScalarMapping map[string]string

	// Codecs is consulted to check that every body has at least one
	// media type with a registered codec.
	// Default: codec.Default() (JSON and YAML)
	Codecs *codec.Registry

	// MaxDepth bounds the resource tree depth and inline object nesting.
	// Default: DefaultMaxDepth
	MaxDepth int

	// DefaultMediaTypes applies to bodies when neither the body nor the API
	// declares media types.
	// Default: []string{"application/json"}
	DefaultMediaTypes []string

	// ImplicitURIParameters binds placeholders a resource does not declare
	// as string URI parameters, after the declared ones of the same level.
	// Default: false (only declared parameters are bound)
	ImplicitURIParameters bool
}

// DefaultScalarMapping returns the scalar mapping applied when a scalar
// name has no entry in Config.ScalarMapping.
func DefaultScalarMapping() map[string]string {
	return map[string]string{
		"string":   "string",
		"integer":  "int64",
		"number":   "float64",
		"boolean":  "bool",
		"date":     "date",
		"datetime": "datetime",
		"file":     "[]byte",
	}
}

// applyConfigDefaults applies default values to Config.
func applyConfigDefaults(cfg *Config) *Config {
	var result Config
	if cfg != nil {
		result = *cfg
	}

	scalars := DefaultScalarMapping()
	maps.Copy(scalars, result.ScalarMapping)
	result.ScalarMapping = scalars

	if result.Codecs == nil {
		result.Codecs = codec.Default()
	}
	if result.MaxDepth <= 0 {
		result.MaxDepth = DefaultMaxDepth
	}
	if len(result.DefaultMediaTypes) == 0 {
		result.DefaultMediaTypes = []string{"application/json"}
	}
	return &result
}
