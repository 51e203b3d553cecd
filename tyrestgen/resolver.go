package tyrestgen

import (
	"fmt"

	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/naming"
	"github.com/broady/tyrest/tyrestgen/spec"
)

// TypeResolver maps declared types to property types. A resolver only
// reads its catalog; it holds no other state.
type TypeResolver struct {
	catalog  *spec.Catalog
	scalars  map[string]string
	maxDepth int
}

// NewTypeResolver returns a resolver over catalog. A nil or incomplete
// scalars map falls back to DefaultScalarMapping.
func NewTypeResolver(catalog *spec.Catalog, scalars map[string]string) *TypeResolver {
	cfg := applyConfigDefaults(&Config{ScalarMapping: scalars})
	return newTypeResolver(catalog, cfg)
}

func newTypeResolver(catalog *spec.Catalog, cfg *Config) *TypeResolver {
	return &TypeResolver{
		catalog:  catalog,
		scalars:  cfg.ScalarMapping,
		maxDepth: cfg.MaxDepth,
	}
}

// Resolve returns the property type of decl:
//
//   - scalar: single reference through the scalar mapping; unmapped names
//     are looked up in the catalog as custom types
//   - array: list of the resolved element; arrays of arrays are rejected
//   - object without properties: arbitrary object
//   - object with properties: embedded anonymous value
//   - already-defined: external reference, never expanded
//   - named: catalog reference
func (r *TypeResolver) Resolve(decl *spec.TypeDecl, loc Location) (ir.PropertyTypeSpec, error) {
	return r.resolve(decl, loc, 0)
}

func (r *TypeResolver) resolve(decl *spec.TypeDecl, loc Location, depth int) (ir.PropertyTypeSpec, error) {
	if decl == nil {
		return ir.PropertyTypeSpec{}, &UnsupportedTypeError{Location: loc, Type: "<nil>", Reason: "missing type"}
	}
	if depth > r.maxDepth {
		return ir.PropertyTypeSpec{}, fmt.Errorf("%w at %s", ErrTooDeep, loc)
	}
	if decl.AlreadyDefined != "" {
		return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: &ir.ExternalRef{Name: decl.AlreadyDefined}}, nil
	}

	switch decl.Kind {
	case spec.KindScalar:
		target, err := r.scalar(decl.Scalar, loc)
		if err != nil {
			return ir.PropertyTypeSpec{}, err
		}
		return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: target}, nil

	case spec.KindArray:
		if decl.Items == nil {
			return ir.PropertyTypeSpec{}, &UnsupportedTypeError{Location: loc, Type: decl.String(), Reason: "array without item type"}
		}
		if decl.Items.Kind == spec.KindArray && decl.Items.AlreadyDefined == "" {
			return ir.PropertyTypeSpec{}, &UnsupportedTypeError{Location: loc, Type: decl.String(), Reason: "arrays of arrays are not supported"}
		}
		elem, err := r.resolve(decl.Items, loc, depth+1)
		if err != nil {
			return ir.PropertyTypeSpec{}, err
		}
		return ir.PropertyTypeSpec{Cardinality: ir.List, Target: elem.Target}, nil

	case spec.KindObject:
		if decl.IsArbitraryObject() {
			return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: &ir.ArbitraryObject{}}, nil
		}
		anon := &ir.AnonymousValueSpec{}
		seen := make(map[string]bool, len(decl.Properties))
		for _, p := range decl.Properties {
			name := naming.PropertyName(p.Name)
			if seen[name] {
				return ir.PropertyTypeSpec{}, &UnsupportedTypeError{Location: loc.child(p.Name), Type: decl.String(), Reason: "duplicate property " + name}
			}
			seen[name] = true
			pt, err := r.resolve(p.Type, loc.child(p.Name), depth+1)
			if err != nil {
				return ir.PropertyTypeSpec{}, err
			}
			anon.Properties = append(anon.Properties, ir.PropertySpec{Name: name, Type: pt})
		}
		return ir.Embed(anon), nil

	case spec.KindNamed:
		target, err := r.named(decl.TypeName, loc)
		if err != nil {
			return ir.PropertyTypeSpec{}, err
		}
		return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: target}, nil
	}

	return ir.PropertyTypeSpec{}, &UnsupportedTypeError{Location: loc, Type: decl.String(), Reason: "unknown kind " + decl.Kind.String()}
}

func (r *TypeResolver) scalar(name string, loc Location) (ir.TypeTarget, error) {
	if mapped, ok := r.scalars[name]; ok {
		return &ir.ScalarRef{Name: mapped}, nil
	}
	return r.named(name, loc)
}

func (r *TypeResolver) named(name string, loc Location) (ir.TypeTarget, error) {
	decl, ok := r.catalog.Lookup(name)
	if !ok {
		return nil, &UnresolvableTypeError{Location: loc, TypeName: name}
	}
	if decl.AlreadyDefined != "" {
		return &ir.ExternalRef{Name: decl.AlreadyDefined}, nil
	}
	return &ir.NamedRef{Name: name}, nil
}

// ParamShape classifies a parameter type. Only ShapeString and
// ShapeStringList can be bound from a query string, header or path.
type ParamShape int

const (
	ShapeUnsupported ParamShape = iota
	ShapeString
	ShapeStringList
)

// String returns the string representation of the shape.
func (s ParamShape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeStringList:
		return "string[]"
	default:
		return "unsupported"
	}
}

// Cardinality returns the property cardinality of a bindable shape.
func (s ParamShape) Cardinality() ir.Cardinality {
	if s == ShapeStringList {
		return ir.List
	}
	return ir.Single
}

// ClassifyParam returns the shape of a parameter type.
func ClassifyParam(decl *spec.TypeDecl) ParamShape {
	switch {
	case isStringScalar(decl):
		return ShapeString
	case decl != nil && decl.Kind == spec.KindArray && decl.AlreadyDefined == "" && isStringScalar(decl.Items):
		return ShapeStringList
	default:
		return ShapeUnsupported
	}
}

func isStringScalar(decl *spec.TypeDecl) bool {
	return decl != nil && decl.Kind == spec.KindScalar && decl.AlreadyDefined == "" && decl.Scalar == "string"
}

// ParamType returns the property type of a bindable parameter. The boolean
// is false for unsupported shapes.
func (r *TypeResolver) ParamType(decl *spec.TypeDecl) (ir.PropertyTypeSpec, ParamShape, bool) {
	shape := ClassifyParam(decl)
	switch shape {
	case ShapeString:
		return ir.Scalar(r.scalars["string"]), shape, true
	case ShapeStringList:
		return ir.ScalarList(r.scalars["string"]), shape, true
	default:
		return ir.PropertyTypeSpec{}, shape, false
	}
}
