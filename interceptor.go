package tyrest

import (
	"context"
)

// HandlerFunc handles one bound request. Handlers are looked up by the
// endpoint's handler name, e.g. "itemsGetHandler".
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handlers maps handler names to handlers.
type Handlers map[string]HandlerFunc

// Interceptor wraps handler execution. It can inspect the request, short
// circuit with an error, or replace the response. next runs the remaining
// interceptors and the handler.
//
//	func timing(ctx *tyrest.Context, req *tyrest.Request, next tyrest.HandlerFunc) (*tyrest.Response, error) {
//	    start := time.Now()
//	    res, err := next(ctx, req)
//	    log.Printf("%s took %v", ctx.EndpointID(), time.Since(start))
//	    return res, err
//	}
type Interceptor func(ctx *Context, req *Request, next HandlerFunc) (*Response, error)

// chainInterceptors combines interceptors into one. The first is the
// outermost.
func chainInterceptors(interceptors []Interceptor) Interceptor {
	switch len(interceptors) {
	case 0:
		return nil
	case 1:
		return interceptors[0]
	}
	return func(ctx *Context, req *Request, handler HandlerFunc) (*Response, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current, next := interceptors[i], chain
			chain = func(c context.Context, req *Request) (*Response, error) {
				return current(contextFor(c, ctx), req, next)
			}
		}
		return chain(ctx, req)
	}
}

// contextFor returns c as a *Context, wrapping it with the endpoint
// information of fallback when an interceptor replaced the context.
func contextFor(c context.Context, fallback *Context) *Context {
	if tc, ok := c.(*Context); ok {
		return tc
	}
	if tc, ok := FromContext(c); ok && tc.Context == c {
		return tc
	}
	return newContext(c, fallback.endpoint, fallback.delegate)
}
