package tyrest

import (
	"maps"
	"slices"
)

// StatusValue is the populated record of one response status: its header
// properties and its payload.
type StatusValue struct {
	// Headers maps header property names, e.g. "location", to values.
	// Values may contain the %API_PATH% placeholder.
	Headers map[string][]string

	// Payload is encoded with the codec negotiated from the request's Accept
	// header. nil writes no body.
	Payload any
}

// Response is a status-keyed response value. Exactly one status must be
// populated when it is returned from a handler.
type Response struct {
	statuses map[int]*StatusValue
}

// NewResponse returns a response with no populated status.
func NewResponse() *Response {
	return &Response{statuses: make(map[int]*StatusValue)}
}

// Respond returns a response with status code populated with payload.
//
//	return tyrest.Respond(201, nil).WithHeader(201, "location", "%API_PATH%/items/7"), nil
func Respond(code int, payload any) *Response {
	return NewResponse().With(code, &StatusValue{Payload: payload})
}

// With populates status code with v, replacing a previous value.
func (r *Response) With(code int, v *StatusValue) *Response {
	if r.statuses == nil {
		r.statuses = make(map[int]*StatusValue)
	}
	if v == nil {
		v = &StatusValue{}
	}
	r.statuses[code] = v
	return r
}

// WithHeader sets a header property of status code, populating it if needed.
func (r *Response) WithHeader(code int, property string, values ...string) *Response {
	v := r.Status(code)
	if v == nil {
		v = &StatusValue{}
		r.With(code, v)
	}
	if v.Headers == nil {
		v.Headers = make(map[string][]string)
	}
	v.Headers[property] = values
	return r
}

// Status returns the value of status code, or nil when it is not populated.
func (r *Response) Status(code int) *StatusValue {
	if r == nil {
		return nil
	}
	return r.statuses[code]
}

// Populated returns the populated status codes in ascending order.
func (r *Response) Populated() []int {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.statuses))
}
