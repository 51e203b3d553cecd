package tyrest

import (
	"bytes"
	"errors"
	"io"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// MethodUnimplemented is returned by RequestDelegate.Method for verbs the
// router does not know.
const MethodUnimplemented = "UNIMPLEMENTED"

// Methods lists the verbs a RequestDelegate reports as is.
var Methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions, http.MethodTrace,
	http.MethodConnect,
}

// ErrResponseComplete is returned by ResponseDelegate writes after Complete.
var ErrResponseComplete = errors.New("tyrest: response already complete")

// PathExpression is the compiled form of a resource path template, mounted
// under the router's API path.
type PathExpression struct {
	// Template is the full path template, e.g. "/items/{id}".
	Template string

	// Regexp matches a full request path. Group i+1 captures Names[i].
	Regexp *regexp.Regexp

	// Names lists the placeholder names in capture order.
	Names []string
}

// Captures returns the values captured from path grouped by name, in
// capture order, or nil if path does not match.
func (e *PathExpression) Captures(path string) map[string][]string {
	m := e.Regexp.FindStringSubmatch(path)
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(e.Names))
	for i, name := range e.Names {
		out[name] = append(out[name], m[i+1])
	}
	return out
}

// RequestDelegate is the transport's view of one inbound request.
// Implementations are created per request; derived maps are computed at
// most once.
type RequestDelegate interface {
	// PathMatch applies re to the request path and returns the submatches,
	// or nil when it does not match.
	PathMatch(re *regexp.Regexp) []string

	// Method returns the upper-case verb, or MethodUnimplemented.
	Method() string

	// Payload returns the request body. ok is false when there is none.
	// The caller closes the body.
	Payload() (body io.ReadCloser, ok bool)

	// ContentType returns the Content-Type header.
	ContentType() (string, bool)

	// Accept returns the Accept header, "" when absent.
	Accept() string

	// AbsolutePath returns the absolute URL of a path relative to the host.
	AbsolutePath(relative string) string

	// URIParameters returns the values captured by expr from the request path.
	URIParameters(expr *PathExpression) map[string][]string

	QueryParameters() map[string][]string
	Headers() map[string][]string
}

// ResponseDelegate receives the response of one request. Every call after
// Complete fails with ErrResponseComplete.
type ResponseDelegate interface {
	SetStatus(code int) error
	SetHeader(name string, values ...string) error
	WritePayload(p []byte) error
	Complete() error
}

// HTTPRequest adapts an *http.Request.
type HTTPRequest struct {
	r *http.Request

	queryOnce  sync.Once
	query      map[string][]string
	headerOnce sync.Once
	headers    map[string][]string

	mu  sync.Mutex
	uri map[*PathExpression]map[string][]string
}

// NewHTTPRequest returns a delegate for r.
func NewHTTPRequest(r *http.Request) *HTTPRequest {
	return &HTTPRequest{r: r}
}

// Request returns the underlying request.
func (d *HTTPRequest) Request() *http.Request {
	return d.r
}

func (d *HTTPRequest) PathMatch(re *regexp.Regexp) []string {
	return re.FindStringSubmatch(d.r.URL.Path)
}

func (d *HTTPRequest) Method() string {
	m := strings.ToUpper(d.r.Method)
	if slices.Contains(Methods, m) {
		return m
	}
	return MethodUnimplemented
}

func (d *HTTPRequest) Payload() (io.ReadCloser, bool) {
	if d.r.Body == nil || d.r.Body == http.NoBody {
		return nil, false
	}
	return d.r.Body, true
}

func (d *HTTPRequest) ContentType() (string, bool) {
	v := d.r.Header.Get("Content-Type")
	return v, v != ""
}

func (d *HTTPRequest) Accept() string {
	return d.r.Header.Get("Accept")
}

// AbsolutePath joins the request scheme and host with relative.
func (d *HTTPRequest) AbsolutePath(relative string) string {
	scheme := "http"
	if d.r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + d.r.Host + "/" + strings.TrimLeft(relative, "/")
}

func (d *HTTPRequest) URIParameters(expr *PathExpression) map[string][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if params, ok := d.uri[expr]; ok {
		return params
	}
	if d.uri == nil {
		d.uri = make(map[*PathExpression]map[string][]string)
	}
	params := expr.Captures(d.r.URL.Path)
	d.uri[expr] = params
	return params
}

func (d *HTTPRequest) QueryParameters() map[string][]string {
	d.queryOnce.Do(func() {
		d.query = d.r.URL.Query()
	})
	return d.query
}

func (d *HTTPRequest) Headers() map[string][]string {
	d.headerOnce.Do(func() {
		d.headers = maps.Clone(d.r.Header)
		if d.headers == nil {
			d.headers = map[string][]string{}
		}
	})
	return d.headers
}

// HTTPResponse buffers a response and writes it to an http.ResponseWriter on
// Complete.
type HTTPResponse struct {
	w http.ResponseWriter

	mu     sync.Mutex
	status int
	header http.Header
	body   bytes.Buffer
	done   bool
}

// NewHTTPResponse returns a delegate writing to w.
func NewHTTPResponse(w http.ResponseWriter) *HTTPResponse {
	return &HTTPResponse{w: w, header: make(http.Header)}
}

func (d *HTTPResponse) SetStatus(code int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return ErrResponseComplete
	}
	d.status = code
	return nil
}

func (d *HTTPResponse) SetHeader(name string, values ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return ErrResponseComplete
	}
	d.header[http.CanonicalHeaderKey(name)] = slices.Clone(values)
	return nil
}

func (d *HTTPResponse) WritePayload(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return ErrResponseComplete
	}
	d.body.Write(p)
	return nil
}

// Complete flushes the buffered response. A response without a status is
// sent as 200.
func (d *HTTPResponse) Complete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return ErrResponseComplete
	}
	d.done = true

	h := d.w.Header()
	maps.Copy(h, d.header)
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	d.w.WriteHeader(status)
	if d.body.Len() == 0 {
		return nil
	}
	_, err := d.w.Write(d.body.Bytes())
	return err
}

// Completed reports whether Complete has been called.
func (d *HTTPResponse) Completed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Reset discards everything buffered so far. It has no effect after
// Complete.
func (d *HTTPResponse) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.status = 0
	d.header = make(http.Header)
	d.body.Reset()
}
