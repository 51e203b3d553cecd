// Package tyrest routes HTTP requests to handlers by the endpoint contract
// compiled from a resource tree by tyrestgen.
//
// A Router matches the request path against the compiled path templates,
// selects the endpoint for the verb, decodes and binds the request value,
// invokes the handler registered under the endpoint's handler name and
// writes the single populated status of the returned response value.
//
//	api, err := tyrestgen.Compile(tree, nil, nil)
//	...
//	router, err := tyrest.NewRouter(api, tyrest.Handlers{
//	    "itemsGetHandler": listItems,
//	})
//	...
//	http.ListenAndServe(":8080", router.WithAPIPath("/api"))
package tyrest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/broady/tyrest/codec"
	"github.com/broady/tyrest/internal/pathtmpl"
	"github.com/broady/tyrest/tyrestgen"
	"github.com/broady/tyrest/tyrestgen/ir"
)

// ErrNoRoute is returned by Process when no resource matches the request
// path. Nothing has been written to the response.
var ErrNoRoute = errors.New("tyrest: no route")

// APIPathPlaceholder is replaced in response header values by the absolute
// URL of the API mount path.
const APIPathPlaceholder = "%API_PATH%"

const payloadProperty = tyrestgen.PayloadProperty

// DefaultMaxRequestBodySize is the request body limit of a new Router.
const DefaultMaxRequestBodySize = 1 << 20

var validate = validator.New()

// Router dispatches requests to handlers. Configure it with the With*
// methods before it serves its first request.
type Router struct {
	api      *ir.API
	handlers Handlers

	apiPath            string
	codecs             *codec.Registry
	payloadTypes       map[string]reflect.Type
	logger             *slog.Logger
	interceptors       []Interceptor
	middlewares        []func(http.Handler) http.Handler
	maxRequestBodySize uint64
	fallback           http.Handler
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	validator          *validator.Validate

	once     sync.Once
	routes   []*route
	handler  http.Handler
	buildErr error
}

// route is one resource path and the endpoints declared on it.
type route struct {
	tmpl      pathtmpl.Template
	expr      *PathExpression
	endpoints map[string]*ir.Endpoint
	verbs     []string
}

// NewRouter returns a router for api. Handlers are looked up by endpoint
// handler name; endpoints without a handler answer 501.
func NewRouter(api *ir.API, handlers Handlers) (*Router, error) {
	if api == nil {
		return nil, errors.New("tyrest: nil API")
	}
	for i := range api.Endpoints {
		e := &api.Endpoints[i]
		if _, err := pathtmpl.Parse(e.Path); err != nil {
			return nil, fmt.Errorf("tyrest: endpoint %s %s: %w", e.Verb, e.Path, err)
		}
	}
	r := &Router{
		api:                api,
		handlers:           make(Handlers, len(handlers)),
		codecs:             codec.Default(),
		payloadTypes:       make(map[string]reflect.Type),
		maxRequestBodySize: DefaultMaxRequestBodySize,
		validator:          validate,
	}
	for name, h := range handlers {
		r.handlers[name] = h
	}
	return r, nil
}

// WithAPIPath mounts the API under path, e.g. "/api".
func (r *Router) WithAPIPath(path string) *Router {
	r.apiPath = "/" + strings.Trim(path, "/")
	if r.apiPath == "/" {
		r.apiPath = ""
	}
	return r
}

// WithHandler registers fn under a handler name, replacing a previous one.
func (r *Router) WithHandler(name string, fn HandlerFunc) *Router {
	if _, exists := r.handlers[name]; exists {
		r.log().Warn("duplicate handler registration", slog.String("handler", name))
	}
	r.handlers[name] = fn
	return r
}

// WithCodecs sets the codec registry used for request and response bodies.
func (r *Router) WithCodecs(reg *codec.Registry) *Router {
	r.codecs = reg
	return r
}

// WithPayloadType decodes bodies of the named payload type into values of
// prototype's type. Single bodies are delivered as a pointer, list bodies as
// a slice. Bodies of unregistered types decode into generic values.
//
//	router.WithPayloadType("Item", Item{})
func (r *Router) WithPayloadType(name string, prototype any) *Router {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		delete(r.payloadTypes, name)
		return r
	}
	r.payloadTypes[name] = t
	return r
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func (r *Router) WithLogger(logger *slog.Logger) *Router {
	r.logger = logger
	return r
}

// WithInterceptor adds an interceptor. Interceptors run in the order added,
// the first one outermost.
func (r *Router) WithInterceptor(i Interceptor) *Router {
	r.interceptors = append(r.interceptors, i)
	return r
}

// WithMiddleware adds an HTTP middleware around the router's http.Handler.
// The first one added is outermost.
func (r *Router) WithMiddleware(mw func(http.Handler) http.Handler) *Router {
	r.middlewares = append(r.middlewares, mw)
	return r
}

// WithMaxRequestBodySize limits request bodies. 0 means no limit.
// Default is 1MB.
func (r *Router) WithMaxRequestBodySize(size uint64) *Router {
	r.maxRequestBodySize = size
	return r
}

// WithFallback serves requests that match no resource. Without one they get
// a 404 envelope.
func (r *Router) WithFallback(h http.Handler) *Router {
	r.fallback = h
	return r
}

// WithErrorTransformer sets the mapping applied to handler errors.
func (r *Router) WithErrorTransformer(fn ErrorTransformer) *Router {
	r.errorTransformer = fn
	return r
}

// WithMaskInternalErrors replaces the message of internal errors with a
// generic one. The original error is still logged.
func (r *Router) WithMaskInternalErrors() *Router {
	r.maskInternalErrors = true
	return r
}

// WithValidator sets the validator applied to decoded struct payloads.
func (r *Router) WithValidator(v *validator.Validate) *Router {
	r.validator = v
	return r
}

func (r *Router) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// table builds the routing table on first use.
func (r *Router) table() ([]*route, error) {
	r.once.Do(func() {
		r.routes, r.buildErr = r.buildRoutes()
		r.checkHandlers()

		var h http.Handler = http.HandlerFunc(r.serveHTTP)
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}
		r.handler = h
	})
	return r.routes, r.buildErr
}

func (r *Router) buildRoutes() ([]*route, error) {
	byPath := make(map[string]*route)
	var routes []*route
	for i := range r.api.Endpoints {
		e := &r.api.Endpoints[i]
		rt, ok := byPath[e.Path]
		if !ok {
			tmpl, err := pathtmpl.Parse(e.Path)
			if err != nil {
				return nil, fmt.Errorf("tyrest: endpoint %s %s: %w", e.Verb, e.Path, err)
			}
			compiled, err := tmpl.Compile(r.apiPath)
			if err != nil {
				return nil, fmt.Errorf("tyrest: endpoint %s %s: %w", e.Verb, e.Path, err)
			}
			rt = &route{
				tmpl:      tmpl,
				expr:      &PathExpression{Template: tmpl.String(), Regexp: compiled.Regexp, Names: compiled.Names},
				endpoints: make(map[string]*ir.Endpoint),
			}
			byPath[e.Path] = rt
			routes = append(routes, rt)
		}
		verb := strings.ToUpper(e.Verb)
		if _, dup := rt.endpoints[verb]; dup {
			r.log().Warn("duplicate endpoint ignored", slog.String("verb", verb), slog.String("path", e.Path))
			continue
		}
		rt.endpoints[verb] = e
		rt.verbs = append(rt.verbs, verb)
	}
	sort.SliceStable(routes, func(i, j int) bool {
		return pathtmpl.MoreSpecific(routes[i].tmpl, routes[j].tmpl)
	})
	return routes, nil
}

func (r *Router) checkHandlers() {
	used := make(map[string]string)
	for _, e := range r.api.Endpoints {
		id := e.Verb + " " + e.Path
		if other, ok := used[e.Handler]; ok {
			r.log().Warn("endpoints share a handler name",
				slog.String("handler", e.Handler),
				slog.String("endpoint", id),
				slog.String("other", other))
			continue
		}
		used[e.Handler] = id
	}
	for name := range r.handlers {
		if _, ok := used[name]; !ok {
			r.log().Warn("handler matches no endpoint", slog.String("handler", name))
		}
	}
}

// RouteInfo describes one routed resource path.
type RouteInfo struct {
	// Path is the full path template.
	Path string

	// Pattern is the anchored expression matched against request paths.
	Pattern string

	// Verbs lists the declared verbs in declaration order.
	Verbs []string

	// Handlers maps each verb to its handler name.
	Handlers map[string]string
}

// Routes returns the routing table in match order.
func (r *Router) Routes() ([]RouteInfo, error) {
	routes, err := r.table()
	if err != nil {
		return nil, err
	}
	out := make([]RouteInfo, 0, len(routes))
	for _, rt := range routes {
		info := RouteInfo{
			Path:     rt.expr.Template,
			Pattern:  rt.expr.Regexp.String(),
			Verbs:    slices.Clone(rt.verbs),
			Handlers: make(map[string]string, len(rt.verbs)),
		}
		for _, v := range rt.verbs {
			info.Handlers[v] = rt.endpoints[v].Handler
		}
		out = append(out, info)
	}
	return out, nil
}

// Process runs one request through the router: route, bind, invoke the
// handler and emit its response. Requests the router rejects, such as an
// undeclared verb or a malformed body, are answered through resp and
// Process returns nil. Process returns ErrNoRoute without writing anything
// when no resource matches, and returns handler errors unchanged.
func (r *Router) Process(ctx context.Context, req RequestDelegate, resp ResponseDelegate) error {
	routes, err := r.table()
	if err != nil {
		return err
	}

	verb := req.Method()
	var (
		matched bool
		rt      *route
		e       *ir.Endpoint
		allow   []string
	)
	for _, candidate := range routes {
		if req.PathMatch(candidate.expr.Regexp) == nil {
			continue
		}
		matched = true
		if found, ok := candidate.endpoints[verb]; ok {
			rt, e = candidate, found
			break
		}
		for _, v := range candidate.verbs {
			if !slices.Contains(allow, v) {
				allow = append(allow, v)
			}
		}
	}
	if !matched {
		return ErrNoRoute
	}
	if e == nil {
		return writeError(resp, Errorf(CodeMethodNotAllowed, "method %s not allowed", verb), r.log(),
			Header{Name: "Allow", Values: []string{strings.Join(allow, ", ")}})
	}

	handler := r.handlers[e.Handler]
	if handler == nil {
		return writeError(resp, Errorf(CodeNotImplemented, "%s %s is not implemented", e.Verb, e.Path), r.log())
	}

	request, env := r.bind(ctx, req, rt, e)
	if env == errMalformedPayload {
		return writeMalformedPayload(resp)
	}
	if env != nil {
		return writeError(resp, env, r.log())
	}

	c := newContext(ctx, e, req)
	var res *Response
	if chain := chainInterceptors(r.interceptors); chain != nil {
		res, err = chain(c, request, handler)
	} else {
		res, err = handler(c, request)
	}
	if err != nil {
		return err
	}
	return r.emit(c, req, resp, e, res)
}

// bind builds the request value. A non-nil *Error rejects the request.
func (r *Router) bind(ctx context.Context, req RequestDelegate, rt *route, e *ir.Endpoint) (*Request, *Error) {
	out := &Request{endpoint: e}
	var uri map[string][]string
	for _, b := range e.Bindings {
		var values []string
		switch b.Source {
		case ir.SourcePayload:
			v, ok, env := r.decodePayload(ctx, req, e)
			if env != nil {
				return nil, env
			}
			out.payload, out.hasPayload = v, ok
			continue
		case ir.SourceQuery:
			values = req.QueryParameters()[b.WireName]
		case ir.SourceHeader:
			values = headerValues(req.Headers(), b.WireName)
		case ir.SourceURI:
			if uri == nil {
				uri = req.URIParameters(rt.expr)
			}
			values = uri[b.WireName]
		}
		if len(values) == 0 {
			continue
		}
		if b.Cardinality == ir.Single {
			// A URI name captured more than once belongs to the deepest
			// declaration.
			if b.Source == ir.SourceURI {
				values = values[len(values)-1:]
			} else {
				values = values[:1]
			}
		}
		out.fields = append(out.fields, Field{
			Name:        b.Property,
			Source:      b.Source,
			WireName:    b.WireName,
			Cardinality: b.Cardinality,
			Values:      slices.Clone(values),
		})
	}
	return out, nil
}

func headerValues(headers map[string][]string, name string) []string {
	if v, ok := headers[name]; ok {
		return v
	}
	if v, ok := headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// decodePayload reads and decodes the request body. An empty body and a
// null literal are absent payloads.
func (r *Router) decodePayload(ctx context.Context, req RequestDelegate, e *ir.Endpoint) (any, bool, *Error) {
	body, ok := req.Payload()
	if !ok {
		return nil, false, nil
	}
	defer body.Close()

	var src io.Reader = body
	if r.maxRequestBodySize > 0 {
		src = io.LimitReader(body, readLimit(r.maxRequestBodySize))
	}
	data, err := io.ReadAll(src)
	if err != nil {
		r.log().WarnContext(ctx, "failed to read request body",
			slog.String("endpoint", e.Verb+" "+e.Path),
			slog.Any("error", err))
		return nil, false, errMalformedPayload
	}
	if r.maxRequestBodySize > 0 && uint64(len(data)) > r.maxRequestBodySize {
		return nil, false, Errorf(CodePayloadTooLarge, "request body exceeds %d bytes", r.maxRequestBodySize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}

	contentType, _ := req.ContentType()
	c, err := r.codecs.Negotiate(contentType, e.MediaTypes)
	if err != nil {
		return nil, false, Errorf(CodeUnsupportedMediaType, "unsupported content type %q", contentType).
			WithDetail("accepted", e.MediaTypes)
	}

	target, value := r.newPayload(e.PayloadType, e.PayloadList)
	present, err := c.Decode(data, target)
	if err != nil {
		r.log().WarnContext(ctx, "malformed request body",
			slog.String("endpoint", e.Verb+" "+e.Path),
			slog.String("content_type", contentType),
			slog.Any("error", err))
		return nil, false, errMalformedPayload
	}
	if !present {
		return nil, false, nil
	}

	payload := value()
	if err := r.validatePayload(payload); err != nil {
		return nil, false, r.transform(err)
	}
	return payload, true, nil
}

// readLimit returns the reader limit for a body of at most size bytes: one
// byte more, so an oversized body is detected.
func readLimit(size uint64) int64 {
	if size >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(size) + 1
}

// newPayload returns the decode target for a payload type and a function
// returning the decoded value.
func (r *Router) newPayload(typeName string, list bool) (any, func() any) {
	t, ok := r.payloadTypes[typeName]
	if !ok || typeName == "" {
		var v any
		return &v, func() any { return v }
	}
	if list {
		p := reflect.New(reflect.SliceOf(t))
		return p.Interface(), func() any { return p.Elem().Interface() }
	}
	p := reflect.New(t)
	return p.Interface(), func() any { return p.Interface() }
}

func (r *Router) validatePayload(v any) error {
	if r.validator == nil || v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct:
		return r.validator.Struct(v)
	case rv.Kind() == reflect.Slice && elemIsStruct(rv.Type().Elem()):
		return r.validator.Var(v, "dive")
	}
	return nil
}

func elemIsStruct(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// emit writes the single populated status of res.
func (r *Router) emit(ctx *Context, req RequestDelegate, resp ResponseDelegate, e *ir.Endpoint, res *Response) error {
	if res == nil {
		return r.policyViolation(ctx, resp, "handler returned no response")
	}
	populated := res.Populated()
	if len(populated) != 1 {
		return r.policyViolation(ctx, resp, fmt.Sprintf("response populates %d statuses %v, want exactly one", len(populated), populated))
	}
	code := populated[0]
	slot, ok := e.Slot(code)
	if !ok {
		return r.policyViolation(ctx, resp, fmt.Sprintf("status %d is not declared", code))
	}
	v := res.Status(code)

	var (
		body        []byte
		contentType string
	)
	if v.Payload != nil {
		if !slot.HasPayload {
			return r.policyViolation(ctx, resp, fmt.Sprintf("status %d declares no payload", code))
		}
		c, err := r.codecs.Accept(req.Accept(), slot.MediaTypes)
		if err != nil {
			return r.policyViolation(ctx, resp, err.Error())
		}
		body, err = c.Encode(v.Payload)
		if err != nil {
			return r.policyViolation(ctx, resp, "encode payload: "+err.Error())
		}
		contentType = c.MediaType()
	}

	if err := resp.SetStatus(code); err != nil {
		return err
	}
	for _, h := range slot.Headers {
		values, ok := v.Headers[h.Property]
		if !ok || len(values) == 0 {
			continue
		}
		if h.Cardinality == ir.Single {
			values = values[:1]
		}
		if err := resp.SetHeader(h.WireName, r.substitute(req, values)...); err != nil {
			return err
		}
	}
	if body != nil {
		if err := resp.SetHeader("Content-Type", contentType); err != nil {
			return err
		}
		if err := resp.WritePayload(body); err != nil {
			return err
		}
	}
	return resp.Complete()
}

func (r *Router) substitute(req RequestDelegate, values []string) []string {
	out := make([]string, len(values))
	var base string
	for i, v := range values {
		if strings.Contains(v, APIPathPlaceholder) {
			if base == "" {
				base = strings.TrimSuffix(req.AbsolutePath(r.apiPath), "/")
			}
			v = strings.ReplaceAll(v, APIPathPlaceholder, base)
		}
		out[i] = v
	}
	return out
}

func (r *Router) policyViolation(ctx *Context, resp ResponseDelegate, msg string) error {
	r.log().ErrorContext(ctx, "invalid handler response",
		slog.String("endpoint", ctx.EndpointID()),
		slog.String("handler", ctx.HandlerName()),
		slog.String("problem", msg))
	return writeError(resp, r.mask(Errorf(CodeInternal, "invalid handler response: %s", msg)), r.log())
}

func (r *Router) transform(err error) *Error {
	var env *Error
	if r.errorTransformer != nil {
		env = r.errorTransformer(err)
	}
	if env == nil {
		env = DefaultErrorTransformer(err)
	}
	return r.mask(env)
}

func (r *Router) mask(env *Error) *Error {
	if r.maskInternalErrors && env.Code == CodeInternal {
		return &Error{Code: CodeInternal, Message: "internal server error", Details: env.Details}
	}
	return env
}

// Handler returns the router as an http.Handler wrapped in its middleware.
func (r *Router) Handler() http.Handler {
	_, _ = r.table()
	return r.handler
}

// ServeHTTP implements http.Handler, including the configured middleware.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler().ServeHTTP(w, req)
}

func (r *Router) serveHTTP(w http.ResponseWriter, hr *http.Request) {
	resp := NewHTTPResponse(w)
	defer func() {
		if rec := recover(); rec != nil {
			r.log().Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			if resp.Completed() {
				return
			}
			resp.Reset()
			_ = writeError(resp, r.mask(Errorf(CodeInternal, "internal server error (panic): %v", rec)), r.log())
		}
	}()

	err := r.Process(hr.Context(), NewHTTPRequest(hr), resp)
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoRoute) && r.fallback != nil && !resp.Completed() {
		r.fallback.ServeHTTP(w, hr)
		return
	}
	if resp.Completed() {
		r.log().ErrorContext(hr.Context(), "request failed after response was sent",
			slog.String("path", hr.URL.Path),
			slog.Any("error", err))
		return
	}
	if !errors.Is(err, ErrNoRoute) {
		r.log().ErrorContext(hr.Context(), "handler failed",
			slog.String("method", hr.Method),
			slog.String("path", hr.URL.Path),
			slog.Any("error", err))
	}
	resp.Reset()
	if werr := writeError(resp, r.transform(err), r.log()); werr != nil {
		r.log().Error("failed to write error response", slog.Any("error", werr))
	}
}
