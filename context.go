package tyrest

import (
	"context"

	"github.com/broady/tyrest/tyrestgen/ir"
)

type contextKey struct{}

// Context is passed to interceptors and, as a context.Context, to handlers.
// It carries the routed endpoint and the transport's request delegate.
type Context struct {
	context.Context
	endpoint *ir.Endpoint
	delegate RequestDelegate
}

// NewContext returns the context a router passes to interceptors and
// handlers for endpoint e. Custom transports and tests use it to call
// interceptors directly.
func NewContext(parent context.Context, e *ir.Endpoint, d RequestDelegate) *Context {
	return newContext(parent, e, d)
}

func newContext(parent context.Context, e *ir.Endpoint, d RequestDelegate) *Context {
	c := &Context{endpoint: e, delegate: d}
	c.Context = context.WithValue(parent, contextKey{}, c)
	return c
}

// FromContext returns the *Context of a handler or interceptor call.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}

// Endpoint returns the routed endpoint.
func (c *Context) Endpoint() *ir.Endpoint {
	return c.endpoint
}

// EndpointID returns "VERB /path/template".
func (c *Context) EndpointID() string {
	return c.endpoint.Verb + " " + c.endpoint.Path
}

// HandlerName returns the name the handler was looked up by.
func (c *Context) HandlerName() string {
	return c.endpoint.Handler
}

// Delegate returns the transport's request delegate.
func (c *Context) Delegate() RequestDelegate {
	return c.delegate
}

// HTTPRequest returns the delegate as *HTTPRequest when the request came
// through the router's http.Handler.
func (c *Context) HTTPRequest() (*HTTPRequest, bool) {
	d, ok := c.delegate.(*HTTPRequest)
	return d, ok
}
