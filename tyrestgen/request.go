package tyrestgen

import (
	"fmt"

	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/naming"
	"github.com/broady/tyrest/tyrestgen/spec"
)

// PayloadProperty is the property holding a decoded body.
const PayloadProperty = "payload"

// compileRequest builds the request value of m and fills the request side
// of e. Properties are laid out as query parameters, headers, the payload
// and finally the resolved URI parameters. The payload property is always
// single; e.PayloadList records an array body.
func (p *pass) compileRequest(n *node, m *spec.Method, e *ir.Endpoint) (*ir.ValueSpec, error) {
	loc := n.location(m)
	v := &ir.ValueSpec{Name: naming.TypeName(n.label, m.Verb, "Request")}

	p.bindParams(v, e, loc, ir.SourceQuery, m.QueryParameters)
	p.bindParams(v, e, loc, ir.SourceHeader, m.Headers)

	if m.Body != nil {
		bloc := loc.child("body")
		typ, err := p.types.Resolve(m.Body.Type, bloc)
		if err != nil {
			return nil, err
		}
		mediaTypes, err := p.mediaTypes(m.Body, bloc)
		if err != nil {
			return nil, err
		}
		if p.addProperty(&v.Properties, ir.PropertySpec{Name: PayloadProperty, Type: payloadRef(m.Body.Type, typ)}, bloc) {
			e.Bindings = append(e.Bindings, ir.Binding{
				Property:    PayloadProperty,
				Source:      ir.SourcePayload,
				Cardinality: ir.Single,
			})
		}
		e.HasPayload = true
		e.PayloadList = typ.Cardinality == ir.List
		e.MediaTypes = mediaTypes
		e.PayloadType = payloadTypeName(typ)
	}

	p.bindParams(v, e, loc, ir.SourceURI, n.params)
	return v, nil
}

func (p *pass) bindParams(v *ir.ValueSpec, e *ir.Endpoint, loc Location, source ir.Source, params []*spec.Param) {
	for _, param := range params {
		if param == nil {
			continue
		}
		ploc := loc.child(source.String() + "." + param.Name)
		typ, shape, ok := p.types.ParamType(param.Type)
		if !ok {
			p.diag(ir.DiagUnsupportedParameterType,
				fmt.Sprintf("%s parameter %q has type %s; only string and string[] are bound", source, param.Name, param.Type),
				ploc)
			continue
		}
		name, ok := p.propertyName(param.Name, ploc)
		if !ok {
			continue
		}
		if !p.addProperty(&v.Properties, ir.PropertySpec{Name: name, Type: typ}, ploc) {
			continue
		}
		e.Bindings = append(e.Bindings, ir.Binding{
			Property:    name,
			Source:      source,
			WireName:    param.Name,
			Cardinality: shape.Cardinality(),
		})
	}
}

// payloadTypeName returns the referenced type of a body, or "" for untyped
// and inline bodies.
func payloadTypeName(t ir.PropertyTypeSpec) string {
	switch t.Target.(type) {
	case *ir.NamedRef, *ir.ExternalRef:
		return ir.RefName(t.Target)
	}
	return ""
}

// payloadRef returns the request payload property type: a single reference
// to the declared body type. Named and scalar bodies keep their resolved
// target, array bodies are referenced by their declared name, e.g. "Item[]",
// and inline objects become arbitrary objects.
func payloadRef(decl *spec.TypeDecl, resolved ir.PropertyTypeSpec) ir.PropertyTypeSpec {
	switch {
	case resolved.Cardinality == ir.List:
		return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: &ir.ExternalRef{Name: decl.String()}}
	case resolved.Kind() == ir.KindEmbedded:
		return ir.PropertyTypeSpec{Cardinality: ir.Single, Target: &ir.ArbitraryObject{}}
	}
	return resolved
}
