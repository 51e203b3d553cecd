package tyrestgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/broady/tyrest/tyrestgen/spec"
)

// ErrCycle is returned when a resource is reachable more than once,
// including through a cycle.
var ErrCycle = spec.ErrCycle

// ErrTooDeep is returned when the resource tree or an inline type nests
// deeper than Config.MaxDepth.
var ErrTooDeep = errors.New("tyrestgen: nesting exceeds maximum depth")

// Location identifies the resource tree position of a compile error.
type Location struct {
	// ResourcePath is the full path template of the resource.
	ResourcePath string

	// Method is the upper-case verb, empty for resource-level errors.
	Method string

	// Field names the parameter, body or property, e.g. "query.limit".
	Field string
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.ResourcePath, l.Method, l.Field} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (l Location) child(field string) Location {
	if l.Field != "" {
		field = l.Field + "." + field
	}
	l.Field = field
	return l
}

// UnresolvableTypeError is returned when a named type is absent from the
// catalog.
type UnresolvableTypeError struct {
	Location Location
	TypeName string
}

func (e *UnresolvableTypeError) Error() string {
	return fmt.Sprintf("tyrestgen: %s: unresolvable type %q", e.Location, e.TypeName)
}

// UnsupportedTypeError is returned for type shapes the value model cannot
// express, such as arrays of arrays.
type UnsupportedTypeError struct {
	Location Location
	Type     string
	Reason   string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("tyrestgen: %s: unsupported type %s: %s", e.Location, e.Type, e.Reason)
}

// UnsupportedMediaTypeError is returned when none of the declared media
// types of a body has a registered codec.
type UnsupportedMediaTypeError struct {
	Location   Location
	MediaTypes []string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("tyrestgen: %s: no registered codec for media types %v", e.Location, e.MediaTypes)
}

// AmbiguousURIParameterError is returned when two sibling resources have
// templates that match the same paths but name their parameters
// differently, or when one template repeats a parameter name.
type AmbiguousURIParameterError struct {
	Path  string
	Other string
	Name  string
}

func (e *AmbiguousURIParameterError) Error() string {
	if e.Other == "" {
		return fmt.Sprintf("tyrestgen: %s: parameter %q appears more than once", e.Path, e.Name)
	}
	return fmt.Sprintf("tyrestgen: %s: conflicts with sibling %s (parameter %q)", e.Path, e.Other, e.Name)
}

// TemplateError is returned when a resource path template cannot be parsed.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("tyrestgen: %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }
