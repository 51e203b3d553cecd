package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/broady/tyrest"
	"github.com/broady/tyrest/tyrestgen"
	"github.com/broady/tyrest/tyrestgen/ir"
	"github.com/broady/tyrest/tyrestgen/provider"
)

func newTestContext(parent context.Context, verb, path string) *tyrest.Context {
	e := &ir.Endpoint{Verb: verb, Path: path, Handler: "testHandler"}
	return tyrest.NewContext(parent, e, tyrest.NewHTTPRequest(httptest.NewRequest(verb, "/", nil)))
}

// logLines decodes the JSON log records written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestLoggingInterceptor(t *testing.T) {
	customErr := tyrest.NewError(tyrest.CodeNotFound, "resource not found")

	tests := []struct {
		name     string
		verb     string
		path     string
		result   *tyrest.Response
		err      error
		wantMsg  string
		wantAttr map[string]string
	}{
		{
			name:     "success",
			verb:     "GET",
			path:     "/items/{id}",
			result:   tyrest.Respond(200, "response"),
			wantMsg:  "request completed",
			wantAttr: map[string]string{"endpoint": "GET /items/{id}"},
		},
		{
			name:     "plain error",
			verb:     "POST",
			path:     "/items",
			err:      errors.New("test error"),
			wantMsg:  "request failed",
			wantAttr: map[string]string{"endpoint": "POST /items", "error": "test error", "code": "internal"},
		},
		{
			name:     "envelope error",
			verb:     "DELETE",
			path:     "/comments/{id}",
			err:      customErr,
			wantMsg:  "request failed",
			wantAttr: map[string]string{"endpoint": "DELETE /comments/{id}", "error": "not_found: resource not found", "code": "not_found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			interceptor := LoggingInterceptor(slog.New(slog.NewJSONHandler(&buf, nil)))

			ctx := newTestContext(context.Background(), tt.verb, tt.path)
			req := &tyrest.Request{}
			handler := func(_ context.Context, got *tyrest.Request) (*tyrest.Response, error) {
				if got != req {
					t.Error("expected request to be passed through")
				}
				return tt.result, tt.err
			}

			res, err := interceptor(ctx, req, handler)
			if err != tt.err {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if res != tt.result {
				t.Errorf("res = %v, want %v", res, tt.result)
			}

			lines := logLines(t, &buf)
			if len(lines) != 2 {
				t.Fatalf("expected 2 log records, got %d: %s", len(lines), buf.String())
			}
			if lines[0]["msg"] != "request started" || lines[0]["handler"] != "testHandler" {
				t.Errorf("start record = %v", lines[0])
			}
			end := lines[1]
			if end["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", end["msg"], tt.wantMsg)
			}
			if _, ok := end["duration"]; !ok {
				t.Error("expected a duration attribute")
			}
			for k, want := range tt.wantAttr {
				if got, _ := end[k].(string); got != want {
					t.Errorf("%s = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestLoggingInterceptor_Status(t *testing.T) {
	tests := []struct {
		name       string
		res        *tyrest.Response
		wantLevel  string
		wantStatus string
	}{
		{"one status", tyrest.Respond(200, nil), "INFO", `"status":200`},
		{"two statuses", tyrest.Respond(200, nil).With(404, nil), "WARN", `"status":[200,404]`},
		{"no response", nil, "WARN", `"status":null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			interceptor := LoggingInterceptor(slog.New(slog.NewJSONHandler(&buf, nil)))

			ctx := newTestContext(context.Background(), "GET", "/items")
			handler := func(context.Context, *tyrest.Request) (*tyrest.Response, error) {
				return tt.res, nil
			}
			if _, err := interceptor(ctx, &tyrest.Request{}, handler); err != nil {
				t.Fatal(err)
			}

			lines := logLines(t, &buf)
			if len(lines) != 2 {
				t.Fatalf("expected 2 log records, got %s", buf.String())
			}
			if lines[1]["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", lines[1]["level"], tt.wantLevel)
			}
			if !strings.Contains(buf.String(), tt.wantStatus) {
				t.Errorf("expected %s in log output: %s", tt.wantStatus, buf.String())
			}
		})
	}
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	api := compileItems(t)
	router, err := tyrest.NewRouter(api, tyrest.Handlers{
		"itemsIdGetHandler": func(ctx context.Context, req *tyrest.Request) (*tyrest.Response, error) {
			return tyrest.Respond(200, map[string]string{}), nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	router.WithLogger(logger).WithInterceptor(LoggingInterceptor(logger))

	req := httptest.NewRequest("GET", "/items/7", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	RequestID(router).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	lines := logLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log records, got %s", buf.String())
	}
	for _, rec := range lines {
		if rec["request_id"] != "req-42" {
			t.Errorf("record %v lacks request_id", rec)
		}
	}
}

func TestLoggingInterceptor_NilLogger(t *testing.T) {
	interceptor := LoggingInterceptor(nil)

	ctx := newTestContext(context.Background(), "GET", "/items")
	handler := func(context.Context, *tyrest.Request) (*tyrest.Response, error) {
		return tyrest.Respond(204, nil), nil
	}

	result, err := interceptor(ctx, &tyrest.Request{}, handler)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result.Status(204) == nil {
		t.Errorf("expected status 204, got %v", result.Populated())
	}
}

func TestLoggingInterceptor_PropagatesContext(t *testing.T) {
	interceptor := LoggingInterceptor(slog.New(slog.DiscardHandler))

	type ctxKey string
	key := ctxKey("test-key")
	ctx := newTestContext(context.WithValue(context.Background(), key, "test-value"), "GET", "/items")

	handler := func(ctx context.Context, req *tyrest.Request) (*tyrest.Response, error) {
		if val := ctx.Value(key); val != "test-value" {
			t.Error("expected context value to be propagated")
		}
		return tyrest.Respond(200, nil), nil
	}
	if _, err := interceptor(ctx, &tyrest.Request{}, handler); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func compileItems(t *testing.T) *ir.API {
	t.Helper()
	tree, err := provider.LoadYAML([]byte("title: Items\n/items/{id}:\n  uriParameters:\n    id: string\n  get:\n    responses:\n      200:\n        body: object\n"))
	if err != nil {
		t.Fatal(err)
	}
	api, err := tyrestgen.Compile(tree, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return api
}

func TestLoggingInterceptor_Router(t *testing.T) {
	api := compileItems(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	router, err := tyrest.NewRouter(api, tyrest.Handlers{
		"itemsIdGetHandler": func(ctx context.Context, req *tyrest.Request) (*tyrest.Response, error) {
			id, _ := req.String("id")
			return tyrest.Respond(200, map[string]string{"id": id}), nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	router.WithLogger(logger).WithInterceptor(LoggingInterceptor(logger))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/items/7", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":"7"`) {
		t.Errorf("body = %s", w.Body.String())
	}

	lines := logLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log records, got %s", buf.String())
	}
	if lines[1]["endpoint"] != "GET /items/{id}" || lines[1]["handler"] != nil {
		t.Errorf("completion record = %v", lines[1])
	}
	if _, ok := lines[1]["request_id"]; ok {
		t.Errorf("request_id logged without the RequestID middleware: %v", lines[1])
	}
}
