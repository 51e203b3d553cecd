package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/broady/tyrest/tyrestgen/spec"
)

// AlreadyDefinedExtension marks an OpenAPI schema as defined outside the
// API. Its string value is emitted verbatim as the type name.
const AlreadyDefinedExtension = "x-already-defined"

// OpenAPIProvider adapts OpenAPI 3 documents. Flat paths are folded into a
// resource tree with one resource per path segment; path parameters are
// declared on the resource whose segment holds the placeholder.
type OpenAPIProvider struct{}

// OpenAPIInputOptions configures OpenAPI loading. Exactly one of Doc, Data
// and Path is used, in that order.
type OpenAPIInputOptions struct {
	Doc  *openapi3.T
	Data []byte
	Path string

	// Validate runs the document validation of kin-openapi before adapting.
	Validate bool
}

// BuildSpec loads the document and returns a linked spec tree.
func (p *OpenAPIProvider) BuildSpec(ctx context.Context, opts OpenAPIInputOptions) (*spec.API, error) {
	doc := opts.Doc
	if doc == nil {
		loader := openapi3.NewLoader()
		loader.Context = ctx
		var err error
		switch {
		case len(opts.Data) > 0:
			doc, err = loader.LoadFromData(opts.Data)
		case opts.Path != "":
			doc, err = loader.LoadFromFile(opts.Path)
		default:
			return nil, fmt.Errorf("provider: no document, path or data provided")
		}
		if err != nil {
			return nil, fmt.Errorf("provider: load openapi: %w", err)
		}
	}
	if opts.Validate {
		if err := doc.Validate(ctx); err != nil {
			return nil, fmt.Errorf("provider: invalid openapi document: %w", err)
		}
	}
	return FromOpenAPI(doc)
}

// FromOpenAPI converts an OpenAPI document. Component schemas become named
// types; responses keyed by anything other than a status code, such as
// "default" or "2XX", are skipped.
func FromOpenAPI(doc *openapi3.T) (*spec.API, error) {
	if doc == nil {
		return nil, fmt.Errorf("provider: nil document")
	}

	api := &spec.API{}
	if doc.Info != nil {
		api.Title = strings.TrimSpace(doc.Info.Title)
		api.Version = strings.TrimSpace(doc.Info.Version)
	}

	if doc.Components != nil {
		for _, name := range sortedKeys(doc.Components.Schemas) {
			decl := schemaDecl(doc.Components.Schemas[name])
			decl.Name = name
			api.Types = append(api.Types, decl)
		}
	}

	root := &spec.Resource{}
	for _, path := range sortedKeys(doc.Paths) {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		r := resourceAt(root, path)
		ops := []struct {
			verb string
			op   *openapi3.Operation
		}{
			{"get", item.Get},
			{"post", item.Post},
			{"put", item.Put},
			{"patch", item.Patch},
			{"delete", item.Delete},
			{"head", item.Head},
			{"options", item.Options},
			{"trace", item.Trace},
		}
		for _, pair := range ops {
			if pair.op == nil {
				continue
			}
			r.Methods = append(r.Methods, operation(pair.verb, item.Parameters, pair.op, r))
		}
	}
	api.Resources = root.Resources
	api.Link()
	return api, nil
}

// resourceAt returns the resource for path below root, creating one
// resource per missing segment.
func resourceAt(root *spec.Resource, path string) *spec.Resource {
	cur := root
	segments := strings.FieldsFunc(path, func(c rune) bool { return c == '/' })
	if len(segments) == 0 {
		segments = []string{""}
	}
	for _, seg := range segments {
		uri := "/" + seg
		var next *spec.Resource
		for _, c := range cur.Resources {
			if c.RelativeURI == uri {
				next = c
				break
			}
		}
		if next == nil {
			next = &spec.Resource{RelativeURI: uri}
			cur.AddResource(next)
		}
		cur = next
	}
	return cur
}

func operation(verb string, shared openapi3.Parameters, op *openapi3.Operation, r *spec.Resource) *spec.Method {
	m := &spec.Method{Verb: verb}

	params := make([]*openapi3.Parameter, 0, len(shared)+len(op.Parameters))
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			key := ref.Value.In + ":" + ref.Value.Name
			if i, ok := index[key]; ok {
				params[i] = ref.Value
				continue
			}
			index[key] = len(params)
			params = append(params, ref.Value)
		}
	}

	for _, p := range params {
		decl := schemaDecl(p.Schema)
		switch p.In {
		case openapi3.ParameterInQuery:
			m.QueryParameters = append(m.QueryParameters, &spec.Param{Name: p.Name, Type: decl})
		case openapi3.ParameterInHeader:
			m.Headers = append(m.Headers, &spec.Param{Name: p.Name, Type: decl})
		case openapi3.ParameterInPath:
			declarePathParam(r, &spec.Param{Name: p.Name, Type: decl})
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		m.Body = contentBody(op.RequestBody.Value.Content)
	}

	codes := make([]int, 0, len(op.Responses))
	refs := make(map[int]*openapi3.ResponseRef, len(op.Responses))
	for key, ref := range op.Responses {
		code, err := strconv.Atoi(key)
		if err != nil || ref == nil || ref.Value == nil {
			continue
		}
		codes = append(codes, code)
		refs[code] = ref
	}
	sort.Ints(codes)
	for _, code := range codes {
		v := refs[code].Value
		resp := &spec.Response{Code: code, Body: contentBody(v.Content)}
		for _, name := range sortedKeys(v.Headers) {
			h := v.Headers[name]
			if h == nil || h.Value == nil {
				continue
			}
			resp.Headers = append(resp.Headers, &spec.Param{Name: name, Type: schemaDecl(h.Value.Schema)})
		}
		m.Responses = append(m.Responses, resp)
	}
	return m
}

// declarePathParam declares p on the closest resource of r's chain whose
// segment holds the placeholder, once.
func declarePathParam(r *spec.Resource, p *spec.Param) {
	for cur := r; cur != nil; cur = cur.Parent() {
		if !strings.Contains(cur.RelativeURI, "{"+p.Name+"}") {
			continue
		}
		for _, existing := range cur.URIParameters {
			if existing.Name == p.Name {
				return
			}
		}
		cur.URIParameters = append(cur.URIParameters, p)
		return
	}
}

func contentBody(content openapi3.Content) *spec.Body {
	if len(content) == 0 {
		return nil
	}
	b := &spec.Body{}
	for _, mt := range sortedKeys(content) {
		media := content[mt]
		if media == nil {
			continue
		}
		b.MediaTypes = append(b.MediaTypes, mt)
		if b.Type == nil {
			b.Type = schemaDecl(media.Schema)
		}
	}
	if b.Type == nil {
		return nil
	}
	return b
}

func schemaDecl(ref *openapi3.SchemaRef) *spec.TypeDecl {
	if ref == nil {
		return spec.Object()
	}
	if ref.Ref != "" {
		return spec.Named(ref.Ref[strings.LastIndex(ref.Ref, "/")+1:])
	}
	s := ref.Value
	if s == nil {
		return spec.Object()
	}
	if name := alreadyDefined(s.Extensions); name != "" {
		return &spec.TypeDecl{Kind: spec.KindObject, AlreadyDefined: name}
	}

	switch s.Type {
	case openapi3.TypeString:
		switch s.Format {
		case "date":
			return spec.Scalar("date")
		case "date-time":
			return spec.Scalar("datetime")
		case "binary":
			return spec.Scalar("file")
		}
		return spec.Scalar("string")
	case openapi3.TypeInteger:
		return spec.Scalar("integer")
	case openapi3.TypeNumber:
		return spec.Scalar("number")
	case openapi3.TypeBoolean:
		return spec.Scalar("boolean")
	case openapi3.TypeArray:
		return spec.ArrayOf(schemaDecl(s.Items))
	}

	props := make([]*spec.PropertyDecl, 0, len(s.Properties))
	for _, name := range sortedKeys(s.Properties) {
		props = append(props, spec.Property(name, schemaDecl(s.Properties[name])))
	}
	return spec.Object(props...)
}

func alreadyDefined(ext map[string]any) string {
	raw, ok := ext[AlreadyDefinedExtension]
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case json.RawMessage:
		var s string
		if json.Unmarshal(v, &s) == nil {
			return s
		}
	}
	return ""
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
