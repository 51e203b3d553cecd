package ir

import (
	"encoding/json"
	"fmt"
)

// JSON serialization support for IR types.
// Type targets include a "kind" field for type discrimination.

// MarshalText implements encoding.TextMarshaler for Cardinality.
func (c Cardinality) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MarshalText implements encoding.TextMarshaler for TypeKind.
func (k TypeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MarshalText implements encoding.TextMarshaler for Source.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalJSON implements json.Marshaler for PropertyTypeSpec.
func (t PropertyTypeSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Cardinality Cardinality `json:"cardinality"`
		Kind        TypeKind    `json:"kind"`
		Target      TypeTarget  `json:"target"`
	}{
		Cardinality: t.Cardinality,
		Kind:        t.Kind(),
		Target:      t.Target,
	})
}

// MarshalJSON implements json.Marshaler for ScalarRef.
func (r *ScalarRef) MarshalJSON() ([]byte, error) {
	return marshalRef("scalar", r.Name)
}

// MarshalJSON implements json.Marshaler for NamedRef.
func (r *NamedRef) MarshalJSON() ([]byte, error) {
	return marshalRef("named", r.Name)
}

// MarshalJSON implements json.Marshaler for ExternalRef.
func (r *ExternalRef) MarshalJSON() ([]byte, error) {
	return marshalRef("external", r.Name)
}

// MarshalJSON implements json.Marshaler for ArbitraryObject.
func (*ArbitraryObject) MarshalJSON() ([]byte, error) {
	return []byte(`{"kind":"arbitrary"}`), nil
}

// MarshalJSON implements json.Marshaler for Embedded.
func (e *Embedded) MarshalJSON() ([]byte, error) {
	if e.Spec == nil {
		return nil, fmt.Errorf("ir: embedded target without value spec")
	}
	return json.Marshal(&struct {
		Kind       string         `json:"kind"`
		Properties []PropertySpec `json:"properties"`
	}{
		Kind:       "embedded",
		Properties: e.Spec.Properties,
	})
}

func marshalRef(kind, name string) ([]byte, error) {
	return json.Marshal(&struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}{
		Kind: kind,
		Name: name,
	})
}

// MarshalJSON implements json.Marshaler for PropertySpec.
func (p PropertySpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Name string           `json:"name"`
		Type PropertyTypeSpec `json:"type"`
	}{
		Name: p.Name,
		Type: p.Type,
	})
}

// MarshalJSON implements json.Marshaler for ValueSpec.
func (v *ValueSpec) MarshalJSON() ([]byte, error) {
	props := v.Properties
	if props == nil {
		props = []PropertySpec{}
	}
	return json.Marshal(&struct {
		Name       string         `json:"name"`
		Properties []PropertySpec `json:"properties"`
	}{
		Name:       v.Name,
		Properties: props,
	})
}
