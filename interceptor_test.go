package tyrest

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/broady/tyrest/tyrestgen/ir"
)

func testContext() *Context {
	e := &ir.Endpoint{Path: "/items/{id}", Verb: "GET", Handler: "itemsIdGetHandler"}
	return newContext(context.Background(), e, NewHTTPRequest(httptest.NewRequest("GET", "/items/7", nil)))
}

func TestChainInterceptors_Empty(t *testing.T) {
	chain := chainInterceptors([]Interceptor{})
	if chain != nil {
		t.Error("expected nil chain for empty interceptors")
	}
}

func TestChainInterceptors_Single(t *testing.T) {
	called := false
	interceptor := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		called = true
		return next(ctx, req)
	}

	chain := chainInterceptors([]Interceptor{interceptor})
	if chain == nil {
		t.Fatal("expected non-nil chain")
	}

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		return Respond(200, "result"), nil
	}

	res, err := chain(testContext(), &Request{}, handler)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := res.Status(200); got == nil || got.Payload != "result" {
		t.Errorf("expected status 200 with 'result', got %+v", got)
	}
	if !called {
		t.Error("expected interceptor to be called")
	}
}

func TestChainInterceptors_Multiple(t *testing.T) {
	var order []string

	record := func(name string) Interceptor {
		return func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
			order = append(order, "before-"+name)
			res, err := next(ctx, req)
			order = append(order, "after-"+name)
			return res, err
		}
	}

	chain := chainInterceptors([]Interceptor{record("1"), record("2"), record("3")})
	if chain == nil {
		t.Fatal("expected non-nil chain")
	}

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		order = append(order, "handler")
		return Respond(200, nil), nil
	}

	if _, err := chain(testContext(), &Request{}, handler); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	expectedOrder := []string{"before-1", "before-2", "before-3", "handler", "after-3", "after-2", "after-1"}
	if len(order) != len(expectedOrder) {
		t.Fatalf("expected %d calls, got %d", len(expectedOrder), len(order))
	}
	for i, expected := range expectedOrder {
		if order[i] != expected {
			t.Errorf("at position %d: expected %s, got %s", i, expected, order[i])
		}
	}
}

func TestChainInterceptors_ErrorPropagation(t *testing.T) {
	testErr := errors.New("test error")

	pass := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		return next(ctx, req)
	}
	fail := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		return nil, testErr
	}

	chain := chainInterceptors([]Interceptor{pass, fail, pass})

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		t.Error("handler should not be called when interceptor returns error")
		return nil, nil
	}

	res, err := chain(testContext(), &Request{}, handler)
	if err != testErr {
		t.Errorf("expected test error, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %v", res)
	}
}

func TestChainInterceptors_ModifyResponse(t *testing.T) {
	interceptor := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		res, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		return res.WithHeader(200, "xTrace", "abc"), nil
	}

	chain := chainInterceptors([]Interceptor{interceptor})

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		return Respond(200, "original"), nil
	}

	res, err := chain(testContext(), &Request{}, handler)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	v := res.Status(200)
	if v.Payload != "original" || len(v.Headers["xTrace"]) != 1 {
		t.Errorf("expected payload kept and header added, got %+v", v)
	}
}

func TestChainInterceptors_ContextPropagation(t *testing.T) {
	type ctxKey string
	key := ctxKey("test-key")

	outer := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		return next(context.WithValue(ctx, key, "test-value"), req)
	}
	inner := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		if ctx.EndpointID() != "GET /items/{id}" {
			t.Errorf("expected endpoint info after context replacement, got %q", ctx.EndpointID())
		}
		return next(ctx, req)
	}

	chain := chainInterceptors([]Interceptor{outer, inner})

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		if val := ctx.Value(key); val != "test-value" {
			t.Errorf("expected 'test-value' in context, got %v", val)
		}
		return Respond(204, nil), nil
	}

	res, err := chain(testContext(), &Request{}, handler)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if res.Status(204) == nil {
		t.Error("expected status 204 to be populated")
	}
}

func TestChainInterceptors_EndpointInfo(t *testing.T) {
	interceptor := func(ctx *Context, req *Request, next HandlerFunc) (*Response, error) {
		if ctx.HandlerName() != "itemsIdGetHandler" {
			t.Errorf("expected handler name itemsIdGetHandler, got %s", ctx.HandlerName())
		}
		if ctx.Endpoint().Path != "/items/{id}" {
			t.Errorf("expected path /items/{id}, got %s", ctx.Endpoint().Path)
		}
		return next(ctx, req)
	}

	chain := chainInterceptors([]Interceptor{interceptor})

	handler := func(ctx context.Context, req *Request) (*Response, error) {
		return Respond(200, nil), nil
	}

	if _, err := chain(testContext(), &Request{}, handler); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
