package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"kept", "abc-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenHeader, seenContext string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenHeader = r.Header.Get(RequestIDHeader)
				seenContext, _ = RequestIDFromContext(r.Context())
			})

			req := httptest.NewRequest("GET", "/items", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			RequestID(next).ServeHTTP(w, req)

			echoed := w.Header().Get(RequestIDHeader)
			if echoed == "" || echoed != seenHeader || echoed != seenContext {
				t.Errorf("response %q, request %q, context %q", echoed, seenHeader, seenContext)
			}
			if tt.incoming != "" && echoed != tt.incoming {
				t.Errorf("expected incoming ID %q to be kept, got %q", tt.incoming, echoed)
			}
			if tt.incoming == "" {
				if _, err := uuid.Parse(echoed); err != nil {
					t.Errorf("generated ID %q is not a UUID: %v", echoed, err)
				}
				if req.Header.Get(RequestIDHeader) != "" {
					t.Error("expected the caller's request to be left unchanged")
				}
			}
		})
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if _, ok := RequestIDFromContext(httptest.NewRequest("GET", "/", nil).Context()); ok {
		t.Error("expected no request ID")
	}
}
