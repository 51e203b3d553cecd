package tyrest

import (
	"fmt"
	"reflect"

	"github.com/gorilla/schema"

	"github.com/broady/tyrest/tyrestgen/ir"
)

var schemaDecoder = schema.NewDecoder()

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
	schemaDecoder.SetAliasTag("tyrest")
}

// Field is one bound request property.
type Field struct {
	// Name is the request value property, e.g. "xRequestId".
	Name   string
	Source ir.Source

	// WireName is the parameter or header name, empty for the payload.
	WireName    string
	Cardinality ir.Cardinality

	// Values holds the bound strings. A single field holds at most one.
	Values []string
}

// Request is the bound request value of one endpoint. Fields appear in the
// endpoint's property order: query parameters, headers, payload, URI
// parameters.
type Request struct {
	endpoint *ir.Endpoint
	fields   []Field

	payload    any
	hasPayload bool
}

// Endpoint returns the endpoint the request was routed to.
func (r *Request) Endpoint() *ir.Endpoint {
	return r.endpoint
}

// Fields returns the bound string fields in property order. Absent fields
// are omitted.
func (r *Request) Fields() []Field {
	return r.fields
}

func (r *Request) field(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether the property is present. The payload property is
// present when a body was decoded to a non-null value.
func (r *Request) Has(name string) bool {
	if name == payloadProperty {
		return r.hasPayload
	}
	_, ok := r.field(name)
	return ok
}

// String returns the first value of a property.
func (r *Request) String(name string) (string, bool) {
	f, ok := r.field(name)
	if !ok || len(f.Values) == 0 {
		return "", false
	}
	return f.Values[0], true
}

// Strings returns all values of a property, nil when absent.
func (r *Request) Strings(name string) []string {
	f, ok := r.field(name)
	if !ok {
		return nil
	}
	return f.Values
}

// Payload returns the decoded body. ok is false when the method declares no
// body, the body was empty, or it decoded to null.
func (r *Request) Payload() (v any, ok bool) {
	return r.payload, r.hasPayload
}

// PayloadAs returns the decoded body as T. It fails when the body is absent
// or was decoded to another type.
func PayloadAs[T any](r *Request) (T, error) {
	var zero T
	if !r.hasPayload {
		return zero, fmt.Errorf("tyrest: %s %s: no payload", r.endpoint.Verb, r.endpoint.Path)
	}
	v, ok := r.payload.(T)
	if !ok {
		return zero, fmt.Errorf("tyrest: %s %s: payload is %T, not %s", r.endpoint.Verb, r.endpoint.Path, r.payload, reflect.TypeFor[T]())
	}
	return v, nil
}

// Bind decodes the string fields into dst, a pointer to a struct, keyed by
// property name. Struct fields are matched by their "tyrest" tag or, when
// untagged, by name. The payload is assigned to a field tagged
// `tyrest:"payload"` when its type is assignable.
func (r *Request) Bind(dst any) error {
	values := make(map[string][]string, len(r.fields))
	for _, f := range r.fields {
		values[f.Name] = f.Values
	}
	if err := schemaDecoder.Decode(dst, values); err != nil {
		return Errorf(CodeInvalidArgument, "bind request: %v", err)
	}
	if r.hasPayload {
		return r.bindPayload(dst)
	}
	return nil
}

func (r *Request) bindPayload(dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("tyrest: Bind: %T is not a pointer to a struct", dst)
	}
	sv := v.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		sf := st.Field(i)
		if sf.Tag.Get("tyrest") != payloadProperty || !sf.IsExported() {
			continue
		}
		pv := reflect.ValueOf(r.payload)
		switch {
		case pv.Type().AssignableTo(sf.Type):
			sv.Field(i).Set(pv)
		case pv.Kind() == reflect.Pointer && pv.Elem().Type().AssignableTo(sf.Type):
			sv.Field(i).Set(pv.Elem())
		default:
			return fmt.Errorf("tyrest: Bind: payload %s is not assignable to field %s of type %s", pv.Type(), sf.Name, sf.Type)
		}
		return nil
	}
	return nil
}
