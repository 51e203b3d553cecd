// Package spec defines the hierarchical API description consumed by the
// compiler: nested resources with path templates, methods, typed parameters,
// bodies and per-status responses.
//
// A spec tree is owned by whoever parsed it. The compiler and the router only
// read it; neither mutates nodes or parent links.
package spec

import (
	"strings"
)

// API is the root of a spec tree.
type API struct {
	// Title names the API. Emitters use it to name top-level artifacts.
	Title string `validate:"required"`

	// Version is the free-form API version.
	Version string

	// MediaTypes are the default body media types for methods and responses
	// that do not declare their own.
	MediaTypes []string

	// Types are the named type declarations of the API. They seed a Catalog.
	Types []*TypeDecl `validate:"dive"`

	// Resources are the top-level resources.
	Resources []*Resource `validate:"dive"`
}

// Link sets the parent link of every resource in the tree. Providers call it
// once after building a tree; it is idempotent.
func (a *API) Link() {
	for _, r := range a.Resources {
		r.parent = nil
		r.link()
	}
}

// Walk calls fn for every resource in depth-first, declaration order.
// Walking stops at the first error. A resource reachable more than once is
// visited once.
func (a *API) Walk(fn func(r *Resource) error) error {
	seen := make(map[*Resource]bool)
	var walk func(rs []*Resource) error
	walk = func(rs []*Resource) error {
		for _, r := range rs {
			if r == nil || seen[r] {
				continue
			}
			seen[r] = true
			if err := fn(r); err != nil {
				return err
			}
			if err := walk(r.Resources); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(a.Resources)
}

// Resource is one path segment of the API and its subtree.
type Resource struct {
	// RelativeURI is the path template of this level, e.g. "/items" or "/{id}".
	// It may span several segments ("/a/{id}").
	RelativeURI string `validate:"required,startswith=/"`

	// DisplayName is the label used for naming generated values. When empty,
	// Label derives one from RelativeURI.
	DisplayName string

	// URIParameters declares the placeholders of RelativeURI.
	URIParameters []*Param `validate:"dive"`

	Methods   []*Method   `validate:"dive"`
	Resources []*Resource `validate:"dive"`

	parent *Resource
}

// AddResource appends child and links it to r.
func (r *Resource) AddResource(child *Resource) *Resource {
	child.parent = r
	r.Resources = append(r.Resources, child)
	child.link()
	return r
}

func (r *Resource) link() {
	for _, c := range r.Resources {
		c.parent = r
		c.link()
	}
}

// Parent returns the enclosing resource, or nil for a top-level resource.
func (r *Resource) Parent() *Resource {
	return r.parent
}

// Label returns DisplayName, or a label derived from the literal and
// placeholder names of the full path ("/items/{id}" becomes "items id").
// The root resource is labeled "root".
func (r *Resource) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return PathLabel(r.FullPath())
}

// PathLabel derives a label from the literal and placeholder names of a path
// template. The root path is labeled "root".
func PathLabel(path string) string {
	fields := strings.FieldsFunc(path, func(c rune) bool {
		return c == '/' || c == '{' || c == '}' || c == '.'
	})
	if len(fields) == 0 {
		return "root"
	}
	return strings.Join(fields, " ")
}

// FullPath concatenates the relative URIs from the root to r.
func (r *Resource) FullPath() string {
	var parts []string
	seen := make(map[*Resource]bool)
	for cur := r; cur != nil && !seen[cur]; cur = cur.parent {
		seen[cur] = true
		parts = append(parts, cur.RelativeURI)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(strings.TrimSuffix(parts[i], "/"))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Method returns the method declared for verb, or nil.
func (r *Resource) Method(verb string) *Method {
	for _, m := range r.Methods {
		if strings.EqualFold(m.Verb, verb) {
			return m
		}
	}
	return nil
}

// Method is one verb on a resource.
type Method struct {
	// Verb is the lower-case HTTP verb.
	Verb string `validate:"required,oneof=get post put patch delete head options trace connect"`

	QueryParameters []*Param `validate:"dive"`
	Headers         []*Param `validate:"dive"`

	// Body is the request body, nil when the method takes none.
	Body *Body `validate:"omitempty"`

	Responses []*Response `validate:"dive"`
}

// Body describes a request or response body.
type Body struct {
	// MediaTypes lists the supported media types. Empty means the API defaults.
	MediaTypes []string

	// Type is the declared body type.
	Type *TypeDecl `validate:"required"`
}

// Response is one declared response of a method.
type Response struct {
	Code    int      `validate:"min=100,max=599"`
	Headers []*Param `validate:"dive"`
	Body    *Body    `validate:"omitempty"`
}

// Param is a query parameter, header or URI parameter declaration.
type Param struct {
	Name string    `validate:"required"`
	Type *TypeDecl `validate:"required"`
}

// StringParam returns a Param of scalar string type.
func StringParam(name string) *Param {
	return &Param{Name: name, Type: Scalar("string")}
}
