// Package tyrestgen compiles a spec tree into the value model consumed by
// source emitters and by the tyrest router.
//
// A compile pass is a single read-only walk over the tree. Problems that
// make the model unusable are returned as errors; problems that only drop a
// property are collected as ir.Diagnostics on the result.
package tyrestgen

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/broady/tyrest/codec"
	"github.com/broady/tyrest/internal/pathtmpl"
	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/naming"
	"github.com/broady/tyrest/tyrestgen/spec"
)

// Compile validates api and compiles it. A nil catalog is replaced by
// spec.CatalogOf(api); a nil cfg uses the defaults.
func Compile(api *spec.API, catalog *spec.Catalog, cfg *Config) (*ir.API, error) {
	if err := spec.Validate(api); err != nil {
		return nil, err
	}
	cfg = applyConfigDefaults(cfg)
	if catalog == nil {
		catalog = spec.CatalogOf(api)
	}

	p := &pass{
		api:     api,
		cfg:     cfg,
		types:   newTypeResolver(catalog, cfg),
		visited: make(map[*spec.Resource]bool),
		out: &ir.API{
			Title:     api.Title,
			Values:    []*ir.ValueSpec{},
			Endpoints: []ir.Endpoint{},
		},
	}
	if err := p.walk(api.Resources, nil); err != nil {
		return nil, err
	}
	if errs := p.out.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("tyrestgen: invalid model: %w", errors.Join(errs...))
	}
	return p.out, nil
}

// pass holds the state of one compile.
type pass struct {
	api     *spec.API
	cfg     *Config
	types   *TypeResolver
	visited map[*spec.Resource]bool
	out     *ir.API
}

// node is a resource with its traversal context.
type node struct {
	chain  []*spec.Resource
	tmpl   pathtmpl.Template
	label  string
	params []*spec.Param
}

func (n *node) location(m *spec.Method) Location {
	return Location{ResourcePath: n.tmpl.String(), Method: strings.ToUpper(m.Verb)}
}

func (p *pass) walk(resources []*spec.Resource, parent *node) error {
	if err := checkSiblings(resources); err != nil {
		return err
	}
	for _, r := range resources {
		n, err := p.node(r, parent)
		if err != nil {
			return err
		}
		for _, m := range r.Methods {
			if m == nil {
				continue
			}
			if err := p.compileMethod(n, m); err != nil {
				return err
			}
		}
		if err := p.walk(r.Resources, n); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) node(r *spec.Resource, parent *node) (*node, error) {
	tmpl, err := pathtmpl.Parse(r.RelativeURI)
	if err != nil {
		return nil, &TemplateError{Path: r.RelativeURI, Err: err}
	}

	n := &node{tmpl: tmpl}
	if parent != nil {
		n.tmpl = parent.tmpl.Join(tmpl)
		n.chain = slices.Clone(parent.chain)
	}
	path := n.tmpl.String()
	if p.visited[r] {
		return nil, fmt.Errorf("%w at %s", ErrCycle, path)
	}
	p.visited[r] = true
	n.chain = append(n.chain, r)
	if len(n.chain) > p.cfg.MaxDepth {
		return nil, fmt.Errorf("%w at %s", ErrTooDeep, path)
	}

	n.label = r.DisplayName
	if n.label == "" {
		n.label = spec.PathLabel(path)
	}

	for _, param := range r.URIParameters {
		if param != nil && !tmpl.Has(param.Name) {
			p.diag(ir.DiagUnusedURIParameter,
				fmt.Sprintf("URI parameter %q does not appear in %q", param.Name, r.RelativeURI),
				Location{ResourcePath: path, Field: "uri." + param.Name})
		}
	}

	n.params, err = resolveURIParameters(n.chain, p.cfg.ImplicitURIParameters)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (p *pass) compileMethod(n *node, m *spec.Method) error {
	e := ir.Endpoint{
		Resource:      n.label,
		Path:          n.tmpl.String(),
		Verb:          strings.ToUpper(m.Verb),
		Handler:       naming.PropertyName(n.label, m.Verb, "Handler"),
		Bindings:      []ir.Binding{},
		URIParameters: n.tmpl.Params(),
	}

	req, err := p.compileRequest(n, m, &e)
	if err != nil {
		return err
	}
	resp, err := p.compileResponse(n, m, &e)
	if err != nil {
		return err
	}
	e.Request = req.Name
	e.Response = resp.Name

	p.out.Values = append(p.out.Values, req, resp)
	p.out.Endpoints = append(p.out.Endpoints, e)
	return nil
}

// mediaTypes returns the media types of a body, falling back to the API and
// then the configured defaults. At least one must have a codec.
func (p *pass) mediaTypes(b *spec.Body, loc Location) ([]string, error) {
	declared := b.MediaTypes
	if len(declared) == 0 {
		declared = p.api.MediaTypes
	}
	if len(declared) == 0 {
		declared = p.cfg.DefaultMediaTypes
	}
	if _, ok := p.cfg.Codecs.Supports(declared); !ok {
		return nil, &UnsupportedMediaTypeError{Location: loc, MediaTypes: slices.Clone(declared)}
	}
	return slices.Clone(declared), nil
}

func (p *pass) propertyName(raw string, loc Location) (string, bool) {
	name := naming.PropertyName(raw)
	if !naming.IsIdentifier(name) {
		p.diag(ir.DiagInvalidName, fmt.Sprintf("%q does not yield an identifier", raw), loc)
		return "", false
	}
	return name, true
}

// addProperty appends prop unless the name is taken, in which case it
// records a diagnostic and reports false.
func (p *pass) addProperty(props *[]ir.PropertySpec, prop ir.PropertySpec, loc Location) bool {
	for _, existing := range *props {
		if existing.Name == prop.Name {
			p.diag(ir.DiagDuplicateProperty,
				fmt.Sprintf("property %q already defined; later declaration dropped", prop.Name),
				loc)
			return false
		}
	}
	*props = append(*props, prop)
	return true
}

func (p *pass) diag(code, message string, loc Location) {
	p.out.AddDiagnostic(ir.Diagnostic{Code: code, Message: message, Location: loc.String()})
}

// Compiler provides a fluent API over Compile.
//
// Example:
//
//	api, err := tyrestgen.FromSpec(tree).
//	    WithScalar("datetime", "time.Time").
//	    WithMaxDepth(16).
//	    Compile()
type Compiler struct {
	api     *spec.API
	catalog *spec.Catalog
	cfg     Config
}

// FromSpec creates a Compiler for api.
func FromSpec(api *spec.API) *Compiler {
	return &Compiler{api: api}
}

// WithCatalog sets the type catalog. Without it the API's own type
// declarations are used.
func (c *Compiler) WithCatalog(catalog *spec.Catalog) *Compiler {
	c.catalog = catalog
	return c
}

// WithScalar maps a spec scalar name to a target type name.
func (c *Compiler) WithScalar(name, target string) *Compiler {
	if c.cfg.ScalarMapping == nil {
		c.cfg.ScalarMapping = make(map[string]string)
	}
	c.cfg.ScalarMapping[name] = target
	return c
}

// WithCodecs sets the codec registry checked for body media types.
func (c *Compiler) WithCodecs(reg *codec.Registry) *Compiler {
	c.cfg.Codecs = reg
	return c
}

// WithMaxDepth bounds resource and inline type nesting.
func (c *Compiler) WithMaxDepth(n int) *Compiler {
	c.cfg.MaxDepth = n
	return c
}

// WithDefaultMediaTypes sets the media types of bodies that declare none.
func (c *Compiler) WithDefaultMediaTypes(mediaTypes ...string) *Compiler {
	c.cfg.DefaultMediaTypes = mediaTypes
	return c
}

// WithImplicitURIParameters binds path placeholders that no resource
// declares as string URI parameters.
func (c *Compiler) WithImplicitURIParameters() *Compiler {
	c.cfg.ImplicitURIParameters = true
	return c
}

// Compile runs the compile pass.
func (c *Compiler) Compile() (*ir.API, error) {
	return Compile(c.api, c.catalog, &c.cfg)
}
