// Package ir defines the value-model produced by the compiler and consumed by
// every source emitter and by the runtime router.
//
// IR values are built once by a compile pass and are read-only afterwards.
package ir

// Cardinality says whether a property holds one value or a list.
type Cardinality int

const (
	Single Cardinality = iota
	List
)

// String returns the string representation of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case Single:
		return "single"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// TypeKind identifies whether a property type refers to a type declared
// elsewhere or embeds an anonymous value.
type TypeKind int

const (
	KindExternal TypeKind = iota // reference to a scalar, catalog, external or arbitrary type
	KindEmbedded                 // anonymous nested value
)

// String returns the string representation of the kind.
func (k TypeKind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// ValueSpec is a named record type.
type ValueSpec struct {
	// Name is the type identifier, e.g. "RootPostRequest".
	Name string

	// Properties in declaration order. Names are unique.
	Properties []PropertySpec
}

// Property returns the property called name.
func (v *ValueSpec) Property(name string) (PropertySpec, bool) {
	for _, p := range v.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}

// PropertyNames returns the property names in order.
func (v *ValueSpec) PropertyNames() []string {
	names := make([]string, len(v.Properties))
	for i, p := range v.Properties {
		names[i] = p.Name
	}
	return names
}

// AnonymousValueSpec is an unnamed record scoped to one property. It is only
// reachable through an Embedded type target.
type AnonymousValueSpec struct {
	Properties []PropertySpec
}

// Property returns the property called name.
func (v *AnonymousValueSpec) Property(name string) (PropertySpec, bool) {
	for _, p := range v.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}

// PropertySpec is one field of a value.
type PropertySpec struct {
	Name string
	Type PropertyTypeSpec
}

// PropertyTypeSpec is the type of a property.
type PropertyTypeSpec struct {
	Cardinality Cardinality

	// Target is what the property holds. Its Kind determines the property's
	// TypeKind; an Embedded target always carries its AnonymousValueSpec.
	Target TypeTarget
}

// Kind returns the kind of the type's target.
func (t PropertyTypeSpec) Kind() TypeKind {
	if t.Target == nil {
		return KindExternal
	}
	return t.Target.Kind()
}

// Embedded returns the anonymous value of an embedded type, or nil.
func (t PropertyTypeSpec) Embedded() *AnonymousValueSpec {
	if e, ok := t.Target.(*Embedded); ok {
		return e.Spec
	}
	return nil
}

// TypeTarget is the closed set of things a property type can point at.
type TypeTarget interface {
	// Kind returns KindEmbedded for *Embedded and KindExternal otherwise.
	Kind() TypeKind

	// Ensure only types in this package can implement TypeTarget.
	sealed()
}

// ScalarRef names a scalar type through the caller's scalar mapping,
// e.g. "string" or "int64".
type ScalarRef struct {
	Name string
}

// NamedRef refers to a type declared in the API's type catalog.
type NamedRef struct {
	Name string
}

// ExternalRef refers to a type defined outside the API. Name is emitted
// verbatim.
type ExternalRef struct {
	Name string
}

// ArbitraryObject is an untyped object.
type ArbitraryObject struct{}

// Embedded holds an anonymous nested value.
type Embedded struct {
	Spec *AnonymousValueSpec
}

func (*ScalarRef) Kind() TypeKind       { return KindExternal }
func (*NamedRef) Kind() TypeKind        { return KindExternal }
func (*ExternalRef) Kind() TypeKind     { return KindExternal }
func (*ArbitraryObject) Kind() TypeKind { return KindExternal }
func (*Embedded) Kind() TypeKind        { return KindEmbedded }

func (*ScalarRef) sealed()       {}
func (*NamedRef) sealed()        {}
func (*ExternalRef) sealed()     {}
func (*ArbitraryObject) sealed() {}
func (*Embedded) sealed()        {}

// Scalar returns a single-valued scalar type.
func Scalar(name string) PropertyTypeSpec {
	return PropertyTypeSpec{Cardinality: Single, Target: &ScalarRef{Name: name}}
}

// ScalarList returns a list of scalars.
func ScalarList(name string) PropertyTypeSpec {
	return PropertyTypeSpec{Cardinality: List, Target: &ScalarRef{Name: name}}
}

// Named returns a single-valued reference to a catalog type.
func Named(name string) PropertyTypeSpec {
	return PropertyTypeSpec{Cardinality: Single, Target: &NamedRef{Name: name}}
}

// Embed returns a single-valued embedded type holding spec.
func Embed(spec *AnonymousValueSpec) PropertyTypeSpec {
	return PropertyTypeSpec{Cardinality: Single, Target: &Embedded{Spec: spec}}
}

// RefName returns the referenced type name of t, or "" for embedded and
// arbitrary targets.
func RefName(t TypeTarget) string {
	switch t := t.(type) {
	case *ScalarRef:
		return t.Name
	case *NamedRef:
		return t.Name
	case *ExternalRef:
		return t.Name
	}
	return ""
}
