// Package provider builds spec trees from API description documents.
// Providers hand the compiler a linked, unvalidated spec.API; validation is
// the compiler's job.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/broady/tyrest/tyrestgen/spec"
)

// YAMLProvider reads the native YAML description format: a mapping with
// title, version, mediaType and types entries, plus one entry per top-level
// resource keyed by its relative URI. Resources nest the same way and hold
// their methods under lower-case verb keys.
//
//	title: Items
//	types:
//	  Item:
//	    properties:
//	      name: string
//	/items:
//	  get:
//	    queryParameters:
//	      tag: string[]
//	    responses:
//	      200:
//	        body: Item[]
//	  /{id}:
//	    uriParameters:
//	      id: string
type YAMLProvider struct{}

// YAMLInputOptions configures YAML loading.
type YAMLInputOptions struct {
	// Path is read when Data is empty.
	Path string

	// Data is the document content.
	Data []byte
}

// BuildSpec parses the document and returns a linked spec tree.
func (p *YAMLProvider) BuildSpec(ctx context.Context, opts YAMLInputOptions) (*spec.API, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := opts.Data
	if len(data) == 0 {
		if opts.Path == "" {
			return nil, fmt.Errorf("provider: no path or data provided")
		}
		var err error
		data, err = os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
	}
	return LoadYAML(data)
}

// LoadYAML parses a YAML description document.
func LoadYAML(data []byte) (*spec.API, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("provider: empty document")
	}

	api := &spec.API{}
	err := eachPair(doc.Content[0], func(key string, v *yaml.Node) error {
		switch {
		case key == "title":
			api.Title = v.Value
		case key == "version":
			api.Version = v.Value
		case key == "mediaType":
			mts, err := stringList(v)
			if err != nil {
				return err
			}
			api.MediaTypes = mts
		case key == "types":
			return eachPair(v, func(name string, tv *yaml.Node) error {
				decl, err := typeExpr(tv)
				if err != nil {
					return err
				}
				decl.Name = name
				api.Types = append(api.Types, decl)
				return nil
			})
		case strings.HasPrefix(key, "/"):
			r, err := resource(key, v)
			if err != nil {
				return err
			}
			api.Resources = append(api.Resources, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	api.Link()
	return api, nil
}

// SyntaxError reports a malformed description document.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("provider: line %d column %d: %s", e.Line, e.Column, e.Msg)
}

func nodeError(n *yaml.Node, format string, args ...any) error {
	return &SyntaxError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf(format, args...)}
}

var verbs = []string{"get", "post", "put", "patch", "delete", "head", "options", "trace", "connect"}

func resource(uri string, n *yaml.Node) (*spec.Resource, error) {
	r := &spec.Resource{RelativeURI: uri}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		switch {
		case key == "displayName":
			r.DisplayName = v.Value
		case key == "uriParameters":
			params, err := paramMap(v)
			if err != nil {
				return err
			}
			r.URIParameters = params
		case slices.Contains(verbs, key):
			m, err := method(key, v)
			if err != nil {
				return err
			}
			r.Methods = append(r.Methods, m)
		case strings.HasPrefix(key, "/"):
			child, err := resource(key, v)
			if err != nil {
				return err
			}
			r.Resources = append(r.Resources, child)
		}
		return nil
	})
	return r, err
}

func method(verb string, n *yaml.Node) (*spec.Method, error) {
	m := &spec.Method{Verb: verb}
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "queryParameters":
			m.QueryParameters, err = paramMap(v)
		case "headers":
			m.Headers, err = paramMap(v)
		case "body":
			m.Body, err = body(v)
		case "responses":
			err = eachPair(v, func(code string, rv *yaml.Node) error {
				resp, err := response(code, rv)
				if err != nil {
					return err
				}
				m.Responses = append(m.Responses, resp)
				return nil
			})
		}
		return err
	})
	return m, err
}

func response(code string, n *yaml.Node) (*spec.Response, error) {
	status, err := strconv.Atoi(code)
	if err != nil {
		return nil, nodeError(n, "response status %q is not a number", code)
	}
	resp := &spec.Response{Code: status}
	err = eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "headers":
			resp.Headers, err = paramMap(v)
		case "body":
			resp.Body, err = body(v)
		}
		return err
	})
	return resp, err
}

// body accepts either a type expression or a mapping from media types to
// type expressions. With several media types the first one's type is used.
func body(n *yaml.Node) (*spec.Body, error) {
	n = deref(n)
	if n.Kind == yaml.MappingNode && hasMediaTypeKeys(n) {
		b := &spec.Body{}
		err := eachPair(n, func(mt string, v *yaml.Node) error {
			decl, err := typeExpr(v)
			if err != nil {
				return err
			}
			b.MediaTypes = append(b.MediaTypes, mt)
			if b.Type == nil {
				b.Type = decl
			}
			return nil
		})
		return b, err
	}
	decl, err := typeExpr(n)
	if err != nil {
		return nil, err
	}
	return &spec.Body{Type: decl}, nil
}

func hasMediaTypeKeys(n *yaml.Node) bool {
	for i := 0; i < len(n.Content); i += 2 {
		if strings.Contains(n.Content[i].Value, "/") {
			return true
		}
	}
	return false
}

func paramMap(n *yaml.Node) ([]*spec.Param, error) {
	var params []*spec.Param
	err := eachPair(n, func(name string, v *yaml.Node) error {
		decl, err := typeExpr(v)
		if err != nil {
			return err
		}
		params = append(params, &spec.Param{Name: name, Type: decl})
		return nil
	})
	return params, err
}

var scalarNames = []string{"string", "integer", "number", "boolean", "date", "datetime", "file"}

// typeExpr parses a type. A scalar node is a type name: a scalar, "object",
// a catalog type, or any of these followed by "[]". A mapping may set type,
// properties, items and alreadyDefined. A null node is a string.
func typeExpr(n *yaml.Node) (*spec.TypeDecl, error) {
	n = deref(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return spec.Scalar("string"), nil
		}
		return typeName(n, n.Value)
	case yaml.MappingNode:
		return typeMapping(n)
	}
	return nil, nodeError(n, "expected a type name or a type mapping")
}

func typeName(n *yaml.Node, name string) (*spec.TypeDecl, error) {
	name = strings.TrimSpace(name)
	if base, ok := strings.CutSuffix(name, "[]"); ok {
		items, err := typeName(n, base)
		if err != nil {
			return nil, err
		}
		return spec.ArrayOf(items), nil
	}
	switch {
	case name == "":
		return nil, nodeError(n, "empty type name")
	case name == "object" || name == "any":
		return spec.Object(), nil
	case name == "array":
		return &spec.TypeDecl{Kind: spec.KindArray}, nil
	case slices.Contains(scalarNames, name):
		return spec.Scalar(name), nil
	}
	return spec.Named(name), nil
}

func typeMapping(n *yaml.Node) (*spec.TypeDecl, error) {
	var (
		base     *spec.TypeDecl
		props    []*spec.PropertyDecl
		hasProps bool
		items    *spec.TypeDecl
		already  string
	)
	err := eachPair(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "type":
			base, err = typeExpr(v)
		case "items":
			items, err = typeExpr(v)
		case "alreadyDefined":
			already = strings.TrimSpace(v.Value)
		case "properties":
			hasProps = true
			err = eachPair(v, func(name string, pv *yaml.Node) error {
				decl, err := typeExpr(pv)
				if err != nil {
					return err
				}
				props = append(props, spec.Property(strings.TrimSuffix(name, "?"), decl))
				return nil
			})
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	switch {
	case base != nil:
	case hasProps || already != "":
		base = spec.Object()
	case items != nil:
		base = &spec.TypeDecl{Kind: spec.KindArray}
	default:
		base = spec.Scalar("string")
	}

	if hasProps {
		if base.Kind != spec.KindObject {
			return nil, nodeError(n, "properties declared on %s type", base.Kind)
		}
		base.Properties = props
	}
	if items != nil {
		if base.Kind != spec.KindArray {
			return nil, nodeError(n, "items declared on %s type", base.Kind)
		}
		base.Items = items
	}
	if base.Kind == spec.KindArray && base.Items == nil {
		return nil, nodeError(n, "array type without items")
	}
	base.AlreadyDefined = already
	return base, nil
}

func stringList(n *yaml.Node) ([]string, error) {
	n = deref(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, deref(c).Value)
		}
		return out, nil
	}
	return nil, nodeError(n, "expected a string or a list of strings")
}

// eachPair calls fn for every key of a mapping node in document order. A
// null node is an empty mapping.
func eachPair(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	n = deref(n)
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return nodeError(n, "expected a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, deref(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
