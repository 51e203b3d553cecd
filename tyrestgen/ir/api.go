package ir

// API is the complete output of one compile pass.
type API struct {
	// Title is the API title from the spec tree.
	Title string `json:"title"`

	// Values holds the request and response values, two per method, in
	// depth-first resource order.
	Values []*ValueSpec `json:"values"`

	// Endpoints holds the binding contract of every method, in the same
	// order as Values.
	Endpoints []Endpoint `json:"endpoints"`

	// Diagnostics contains non-fatal issues found during compilation.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// FindValue looks up a value by name. Returns nil if not found.
func (a *API) FindValue(name string) *ValueSpec {
	for _, v := range a.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// FindEndpoint looks up the endpoint for a full path template and verb.
// Returns nil if not found.
func (a *API) FindEndpoint(path, verb string) *Endpoint {
	for i := range a.Endpoints {
		if a.Endpoints[i].Path == path && a.Endpoints[i].Verb == verb {
			return &a.Endpoints[i]
		}
	}
	return nil
}

// AddDiagnostic records a diagnostic.
func (a *API) AddDiagnostic(d Diagnostic) {
	a.Diagnostics = append(a.Diagnostics, d)
}

// Source says where a request property is read from.
type Source int

const (
	SourceQuery Source = iota
	SourceHeader
	SourcePayload
	SourceURI
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceQuery:
		return "query"
	case SourceHeader:
		return "header"
	case SourcePayload:
		return "payload"
	case SourceURI:
		return "uri"
	default:
		return "unknown"
	}
}

// Binding ties one value property to its wire representation.
type Binding struct {
	// Property is the value property name.
	Property string `json:"property"`

	// Source is where the value comes from.
	Source Source `json:"source"`

	// WireName is the parameter or header name on the wire. Empty for payload.
	WireName string `json:"wireName,omitempty"`

	Cardinality Cardinality `json:"cardinality"`
}

// Endpoint is the runtime contract of one method on one resource.
type Endpoint struct {
	// Resource is the resource label, e.g. "items".
	Resource string `json:"resource"`

	// Path is the full path template, e.g. "/items/{id}".
	Path string `json:"path"`

	// Verb is the upper-case HTTP method.
	Verb string `json:"verb"`

	// Handler is the handler name, e.g. "itemsGetHandler".
	Handler string `json:"handler"`

	// Request and Response name the endpoint's values.
	Request  string `json:"request"`
	Response string `json:"response"`

	// Bindings lists the request bindings in request-value property order.
	Bindings []Binding `json:"bindings"`

	// URIParameters lists the placeholder names of Path in capture order.
	URIParameters []string `json:"uriParameters,omitempty"`

	// MediaTypes are the accepted request body media types. Empty when the
	// method takes no body.
	MediaTypes []string `json:"mediaTypes,omitempty"`

	// PayloadType is the request body type name, empty when there is no
	// body or the body is untyped.
	PayloadType string `json:"payloadType,omitempty"`

	// HasPayload reports whether the method declares a request body.
	HasPayload bool `json:"hasPayload"`

	// PayloadList reports an array request body, decoded as a list of
	// PayloadType.
	PayloadList bool `json:"payloadList,omitempty"`

	// Responses lists the declared statuses in declaration order.
	Responses []ResponseSlot `json:"responses"`
}

// Slot returns the response slot for status.
func (e *Endpoint) Slot(status int) (ResponseSlot, bool) {
	for _, s := range e.Responses {
		if s.Status == status {
			return s, true
		}
	}
	return ResponseSlot{}, false
}

// ResponseSlot is the contract of one declared response status.
type ResponseSlot struct {
	Status int `json:"status"`

	// Property is the response value property, e.g. "status200".
	Property string `json:"property"`

	// Headers binds the slot's header properties to wire header names.
	Headers []Binding `json:"headers,omitempty"`

	HasPayload  bool     `json:"hasPayload"`
	PayloadType string   `json:"payloadType,omitempty"`
	MediaTypes  []string `json:"mediaTypes,omitempty"`
}

// Diagnostic is a non-fatal issue encountered during compilation.
type Diagnostic struct {
	// Code is a machine-readable identifier.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Location is the resource tree position that triggered the diagnostic.
	Location string `json:"location,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Location == "" {
		return d.Code + ": " + d.Message
	}
	return d.Location + ": " + d.Code + ": " + d.Message
}

// Diagnostic codes.
const (
	DiagUnsupportedParameterType = "unsupported_parameter_type"
	DiagDuplicateProperty        = "duplicate_property"
	DiagInvalidName              = "invalid_name"
	DiagUnusedURIParameter       = "unused_uri_parameter"
)
