package spec

import (
	"fmt"
	"sort"
)

// TypeKind identifies the shape of a TypeDecl.
type TypeKind int

const (
	KindScalar TypeKind = iota // string, integer, number, boolean, date, datetime, file
	KindArray                  // list of Items
	KindObject                 // record of Properties; zero properties means arbitrary object
	KindNamed                  // reference to a catalog type by TypeName
)

// String returns the string representation of the kind.
func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// TypeDecl is a declared type. Exactly the fields relevant to Kind are set.
type TypeDecl struct {
	// Name is the declaration name for top-level catalog types. Empty for
	// inline declarations.
	Name string

	Kind TypeKind `validate:"min=0,max=3"`

	// Scalar is the scalar name for KindScalar.
	Scalar string

	// Items is the element type for KindArray.
	Items *TypeDecl `validate:"omitempty"`

	// Properties are the fields of a KindObject declaration.
	Properties []*PropertyDecl `validate:"dive"`

	// TypeName is the referenced catalog type for KindNamed.
	TypeName string

	// AlreadyDefined, when set, names a type that exists outside this API.
	// It is emitted verbatim and never expanded.
	AlreadyDefined string
}

// PropertyDecl is one property of an object declaration.
type PropertyDecl struct {
	Name string    `validate:"required"`
	Type *TypeDecl `validate:"required"`
}

// Scalar returns a scalar declaration.
func Scalar(name string) *TypeDecl {
	return &TypeDecl{Kind: KindScalar, Scalar: name}
}

// ArrayOf returns an array declaration of items.
func ArrayOf(items *TypeDecl) *TypeDecl {
	return &TypeDecl{Kind: KindArray, Items: items}
}

// Object returns an object declaration with the given properties.
func Object(props ...*PropertyDecl) *TypeDecl {
	return &TypeDecl{Kind: KindObject, Properties: props}
}

// Named returns a reference to the catalog type name.
func Named(name string) *TypeDecl {
	return &TypeDecl{Kind: KindNamed, TypeName: name}
}

// Property returns a property declaration.
func Property(name string, t *TypeDecl) *PropertyDecl {
	return &PropertyDecl{Name: name, Type: t}
}

// IsArbitraryObject reports whether d is an object without declared properties.
func (d *TypeDecl) IsArbitraryObject() bool {
	return d != nil && d.Kind == KindObject && len(d.Properties) == 0 && d.AlreadyDefined == ""
}

// IsArbitraryObjectArray reports whether d is an array of arbitrary objects.
func (d *TypeDecl) IsArbitraryObjectArray() bool {
	return d != nil && d.Kind == KindArray && d.Items.IsArbitraryObject()
}

func (d *TypeDecl) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.AlreadyDefined != "" {
		return "(already-defined " + d.AlreadyDefined + ")"
	}
	switch d.Kind {
	case KindScalar:
		return d.Scalar
	case KindArray:
		return d.Items.String() + "[]"
	case KindNamed:
		return d.TypeName
	case KindObject:
		if d.Name != "" {
			return d.Name
		}
		return fmt.Sprintf("object{%d}", len(d.Properties))
	}
	return "unknown"
}

// Catalog maps type names to declarations. A Catalog is built once before a
// compile pass and only read during it; share it between concurrent
// compiles only if no one adds to it.
type Catalog struct {
	types map[string]*TypeDecl
}

// NewCatalog returns a catalog holding decls. Later declarations with the
// same name replace earlier ones.
func NewCatalog(decls ...*TypeDecl) *Catalog {
	c := &Catalog{types: make(map[string]*TypeDecl, len(decls))}
	for _, d := range decls {
		c.Add(d)
	}
	return c
}

// CatalogOf returns a catalog seeded with the API's own type declarations.
func CatalogOf(api *API) *Catalog {
	return NewCatalog(api.Types...)
}

// Add registers d under d.Name. Declarations without a name are ignored.
func (c *Catalog) Add(d *TypeDecl) {
	if d == nil || d.Name == "" {
		return
	}
	c.types[d.Name] = d
}

// Lookup returns the declaration registered under name.
func (c *Catalog) Lookup(name string) (*TypeDecl, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.types[name]
	return d, ok
}

// Names returns the sorted names of all declarations.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declarations.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.types)
}
