package tyrestgen

import (
	"strconv"

	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/naming"
	"github.com/broady/tyrest/tyrestgen/spec"
)

// StatusProperty returns the response value property of a status code.
func StatusProperty(code int) string {
	return "status" + strconv.Itoa(code)
}

// compileResponse builds the response value of m, one embedded property per
// declared status, and fills e.Responses in the same order.
func (p *pass) compileResponse(n *node, m *spec.Method, e *ir.Endpoint) (*ir.ValueSpec, error) {
	loc := n.location(m)
	v := &ir.ValueSpec{Name: naming.TypeName(n.label, m.Verb, "Response")}
	e.Responses = make([]ir.ResponseSlot, 0, len(m.Responses))

	for _, resp := range m.Responses {
		if resp == nil {
			continue
		}
		slot := ir.ResponseSlot{Status: resp.Code, Property: StatusProperty(resp.Code)}
		sloc := loc.child(slot.Property)
		anon := &ir.AnonymousValueSpec{}

		for _, h := range resp.Headers {
			if h == nil {
				continue
			}
			hloc := sloc.child("header." + h.Name)
			typ, err := p.types.Resolve(h.Type, hloc)
			if err != nil {
				return nil, err
			}
			name, ok := p.propertyName(h.Name, hloc)
			if !ok || !p.addProperty(&anon.Properties, ir.PropertySpec{Name: name, Type: typ}, hloc) {
				continue
			}
			// Header values travel as strings whatever the declared type.
			slot.Headers = append(slot.Headers, ir.Binding{
				Property:    name,
				Source:      ir.SourceHeader,
				WireName:    h.Name,
				Cardinality: typ.Cardinality,
			})
		}

		if resp.Body != nil {
			bloc := sloc.child("body")
			typ, err := p.types.Resolve(resp.Body.Type, bloc)
			if err != nil {
				return nil, err
			}
			mediaTypes, err := p.mediaTypes(resp.Body, bloc)
			if err != nil {
				return nil, err
			}
			if p.addProperty(&anon.Properties, ir.PropertySpec{Name: PayloadProperty, Type: typ}, bloc) {
				slot.HasPayload = true
				slot.PayloadType = payloadTypeName(typ)
				slot.MediaTypes = mediaTypes
			}
		}

		v.Properties = append(v.Properties, ir.PropertySpec{Name: slot.Property, Type: ir.Embed(anon)})
		e.Responses = append(e.Responses, slot)
	}
	return v, nil
}
