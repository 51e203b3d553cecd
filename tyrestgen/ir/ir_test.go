package ir

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestPropertyTypeSpec_Kind(t *testing.T) {
	tests := []struct {
		name string
		typ  PropertyTypeSpec
		want TypeKind
	}{
		{"scalar", Scalar("string"), KindExternal},
		{"named", Named("Item"), KindExternal},
		{"external", PropertyTypeSpec{Target: &ExternalRef{Name: "x.Y"}}, KindExternal},
		{"arbitrary", PropertyTypeSpec{Target: &ArbitraryObject{}}, KindExternal},
		{"embedded", Embed(&AnonymousValueSpec{}), KindEmbedded},
		{"nil target", PropertyTypeSpec{}, KindExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropertyTypeSpec_Embedded(t *testing.T) {
	spec := &AnonymousValueSpec{Properties: []PropertySpec{{Name: "payload", Type: Named("Item")}}}
	if got := Embed(spec).Embedded(); got != spec {
		t.Errorf("Embedded() = %v, want %v", got, spec)
	}
	if got := Scalar("string").Embedded(); got != nil {
		t.Errorf("Embedded() on scalar = %v, want nil", got)
	}
}

func TestRefName(t *testing.T) {
	if got := RefName(&ScalarRef{Name: "int64"}); got != "int64" {
		t.Errorf("RefName(scalar) = %q", got)
	}
	if got := RefName(&ExternalRef{Name: "x.Y"}); got != "x.Y" {
		t.Errorf("RefName(external) = %q", got)
	}
	if got := RefName(&ArbitraryObject{}); got != "" {
		t.Errorf("RefName(arbitrary) = %q", got)
	}
}

func TestValueSpec_Property(t *testing.T) {
	v := &ValueSpec{Name: "RootGetRequest", Properties: []PropertySpec{
		{Name: "q", Type: Scalar("string")},
		{Name: "tags", Type: ScalarList("string")},
	}}
	p, ok := v.Property("tags")
	if !ok || p.Type.Cardinality != List {
		t.Errorf("Property(tags) = %v, %v", p, ok)
	}
	if _, ok := v.Property("missing"); ok {
		t.Error("Property(missing) should fail")
	}
	if got := v.PropertyNames(); !reflect.DeepEqual(got, []string{"q", "tags"}) {
		t.Errorf("PropertyNames() = %v", got)
	}
}

func TestAPI_Find(t *testing.T) {
	api := &API{
		Values: []*ValueSpec{{Name: "A"}, {Name: "B"}},
		Endpoints: []Endpoint{
			{Path: "/items", Verb: "GET", Responses: []ResponseSlot{{Status: 200, Property: "status200"}}},
			{Path: "/items", Verb: "POST"},
		},
	}
	if v := api.FindValue("B"); v == nil || v.Name != "B" {
		t.Errorf("FindValue(B) = %v", v)
	}
	if v := api.FindValue("C"); v != nil {
		t.Errorf("FindValue(C) = %v, want nil", v)
	}
	e := api.FindEndpoint("/items", "GET")
	if e == nil {
		t.Fatal("FindEndpoint(/items GET) = nil")
	}
	if s, ok := e.Slot(200); !ok || s.Property != "status200" {
		t.Errorf("Slot(200) = %v, %v", s, ok)
	}
	if _, ok := e.Slot(404); ok {
		t.Error("Slot(404) should fail")
	}
	if e := api.FindEndpoint("/items", "DELETE"); e != nil {
		t.Errorf("FindEndpoint(DELETE) = %v, want nil", e)
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Code: DiagUnsupportedParameterType, Message: "integer query parameter", Location: "/items GET"}
	if got := d.String(); got != "/items GET: unsupported_parameter_type: integer query parameter" {
		t.Errorf("String() = %q", got)
	}
	d.Location = ""
	if got := d.String(); got != "unsupported_parameter_type: integer query parameter" {
		t.Errorf("String() = %q", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	v := &ValueSpec{Name: "RootPostResponse", Properties: []PropertySpec{
		{Name: "status200", Type: Embed(&AnonymousValueSpec{Properties: []PropertySpec{
			{Name: "location", Type: Scalar("string")},
			{Name: "payload", Type: Named("Item")},
		}})},
		{Name: "status201", Type: PropertyTypeSpec{Cardinality: List, Target: &ArbitraryObject{}}},
		{Name: "status202", Type: PropertyTypeSpec{Target: &ExternalRef{Name: "org.acme.Thing"}}},
	}}

	got, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"name":"RootPostResponse","properties":[` +
		`{"name":"status200","type":{"cardinality":"single","kind":"embedded","target":{"kind":"embedded","properties":[` +
		`{"name":"location","type":{"cardinality":"single","kind":"external","target":{"kind":"scalar","name":"string"}}},` +
		`{"name":"payload","type":{"cardinality":"single","kind":"external","target":{"kind":"named","name":"Item"}}}]}}},` +
		`{"name":"status201","type":{"cardinality":"list","kind":"external","target":{"kind":"arbitrary"}}},` +
		`{"name":"status202","type":{"cardinality":"single","kind":"external","target":{"kind":"external","name":"org.acme.Thing"}}}]}`
	if string(got) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", got, want)
	}
}

func TestMarshalJSON_EmptyValue(t *testing.T) {
	got, err := json.Marshal(&ValueSpec{Name: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"name":"Empty","properties":[]}` {
		t.Errorf("Marshal() = %s", got)
	}
}

func TestMarshalJSON_EmbeddedWithoutSpec(t *testing.T) {
	_, err := json.Marshal(PropertySpec{Name: "bad", Type: PropertyTypeSpec{Target: &Embedded{}}})
	if err == nil {
		t.Error("expected error for embedded target without spec")
	}
}

func TestMarshalJSON_Endpoint(t *testing.T) {
	e := Endpoint{
		Path: "/items/{id}",
		Verb: "GET",
		Bindings: []Binding{
			{Property: "q", Source: SourceQuery, WireName: "q", Cardinality: Single},
			{Property: "id", Source: SourceURI, WireName: "id", Cardinality: Single},
		},
	}
	got, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"source":"query"`, `"source":"uri"`, `"cardinality":"single"`} {
		if !strings.Contains(string(got), want) {
			t.Errorf("Marshal() = %s, missing %s", got, want)
		}
	}
}

func TestAPI_Validate(t *testing.T) {
	api := &API{
		Values: []*ValueSpec{
			{Name: "GetRequest", Properties: []PropertySpec{{Name: "q", Type: Scalar("string")}}},
			{Name: "GetResponse", Properties: []PropertySpec{
				{Name: "status200", Type: Embed(&AnonymousValueSpec{Properties: []PropertySpec{
					{Name: "payload", Type: Named("Item")},
				}})},
			}},
		},
		Endpoints: []Endpoint{{Path: "/", Verb: "GET", Request: "GetRequest", Response: "GetResponse"}},
	}
	if errs := api.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}
}

func TestAPI_ValidateErrors(t *testing.T) {
	api := &API{
		Values: []*ValueSpec{
			{Name: "A", Properties: []PropertySpec{
				{Name: "x", Type: Scalar("string")},
				{Name: "x", Type: Scalar("string")},
				{Name: "y"},
				{Name: "z", Type: PropertyTypeSpec{Target: &Embedded{}}},
				{Name: "w", Type: Embed(&AnonymousValueSpec{Properties: []PropertySpec{
					{Name: "p", Type: Scalar("string")},
					{Name: "p", Type: Scalar("string")},
				}})},
			}},
			{Name: "A"},
		},
		Endpoints: []Endpoint{{Path: "/", Verb: "GET", Request: "A", Response: "Missing"}},
	}

	codes := make(map[string]int)
	for _, err := range api.Validate() {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("unexpected error type %T", err)
		}
		codes[verr.Code]++
	}
	want := map[string]int{
		"duplicate_value":         1,
		"duplicate_property":      2,
		"missing_target":          1,
		"embedded_without_spec":   1,
		"missing_value_reference": 1,
	}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("validation codes = %v, want %v", codes, want)
	}
}
