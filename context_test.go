package tyrest

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/broady/tyrest/tyrestgen/ir"
)

func TestFromContext(t *testing.T) {
	t.Run("with tyrest context", func(t *testing.T) {
		c := testContext()
		derived := context.WithValue(c, struct{}{}, "x")

		got, ok := FromContext(derived)
		if !ok {
			t.Fatal("expected ok to be true")
		}
		if got != c {
			t.Error("expected the original *Context")
		}
	})

	t.Run("without tyrest context", func(t *testing.T) {
		if _, ok := FromContext(context.Background()); ok {
			t.Error("expected ok to be false")
		}
	})
}

func TestNewContext(t *testing.T) {
	e := &ir.Endpoint{Path: "/items", Verb: "POST", Handler: "itemsPostHandler"}
	req := httptest.NewRequest("POST", "/items", nil)
	delegate := NewHTTPRequest(req)

	c := newContext(context.Background(), e, delegate)

	if c.Endpoint() != e {
		t.Error("endpoint not stored in context")
	}
	if c.EndpointID() != "POST /items" {
		t.Errorf("expected endpoint id 'POST /items', got %q", c.EndpointID())
	}
	if c.HandlerName() != "itemsPostHandler" {
		t.Errorf("expected handler name, got %q", c.HandlerName())
	}
	if c.Delegate() != delegate {
		t.Error("delegate not stored in context")
	}
	hr, ok := c.HTTPRequest()
	if !ok || hr.Request() != req {
		t.Error("expected the HTTP request delegate")
	}
}

func TestContext_HTTPRequest_OtherDelegate(t *testing.T) {
	c := newContext(context.Background(), &ir.Endpoint{}, &fakeRequest{})
	if _, ok := c.HTTPRequest(); ok {
		t.Error("expected ok to be false for a non-HTTP delegate")
	}
}
