package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/broady/tyrest/tyrestgen/ir"
)

func TestModel_Path(t *testing.T) {
	tests := []struct {
		m       Model
		want    string
		wantErr bool
	}{
		{m: Model{Name: "api", Format: FormatJSON}, want: "api.json"},
		{m: Model{Name: "items", Format: FormatYAML}, want: "items.yaml"},
		{m: Model{Name: "api.v2", Format: FormatJSON}, want: "api.v2.json"},
		{m: Model{Name: ""}, wantErr: true},
		{m: Model{Name: ".."}, wantErr: true},
		{m: Model{Name: "gen/api"}, wantErr: true},
		{m: Model{Name: `gen\api`}, wantErr: true},
		{m: Model{Name: "C:api"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.m.Name, func(t *testing.T) {
			if err := tt.m.check(); (err != nil) != tt.wantErr {
				t.Fatalf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.m.Path() != tt.want {
				t.Errorf("Path() = %q, want %q", tt.m.Path(), tt.want)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	content := []byte("title: a\n")
	path, err := s.Put(ctx, Model{Name: "a", Format: FormatYAML, Content: content})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if path != "a.yaml" {
		t.Errorf("path = %q, want a.yaml", path)
	}
	content[0] = 'j'
	got, ok := s.Get("a.yaml")
	if !ok || string(got.Content) != "title: a\n" || got.Format != FormatYAML {
		t.Errorf("Get() = %+v, %v; want the stored copy", got, ok)
	}
	got.Content[0] = 'x'
	if again, _ := s.Get("a.yaml"); string(again.Content) != "title: a\n" {
		t.Errorf("Get() leaked internal storage: %q", again.Content)
	}
	if _, ok := s.Get("missing.json"); ok {
		t.Error("Get(missing) should report false")
	}

	if _, err := s.Put(ctx, Model{Name: "../x"}); err == nil {
		t.Error("expected invalid name error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Put(canceled, Model{Name: "c"}); err == nil {
		t.Error("expected context error")
	}

	s.Reset()
	if len(s.Paths()) != 0 {
		t.Error("Reset() should clear models")
	}
}

func TestMemorySink_Concurrent(t *testing.T) {
	s := NewMemorySink()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("m%02d", i)
			if _, err := s.Put(context.Background(), Model{Name: name, Content: []byte(name)}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	paths := s.Paths()
	if len(paths) != 20 || paths[0] != "m00.json" || paths[19] != "m19.json" {
		t.Errorf("Paths() = %v", paths)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()
	model := func(content string) Model {
		return Model{Name: "api", Format: FormatJSON, Content: []byte(content)}
	}

	t.Run("creates the output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "gen", "model")
		path, err := NewFilesystemSink(dir).Put(ctx, model("{}"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if path != "api.json" {
			t.Errorf("path = %q", path)
		}
		got, err := os.ReadFile(filepath.Join(dir, "api.json"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "{}" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("file mode", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		s.Mode = 0o600
		if _, err := s.Put(ctx, model("{}")); err != nil {
			t.Fatal(err)
		}
		info, err := os.Stat(filepath.Join(dir, "api.json"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		for _, content := range []string{"one", "two"} {
			if _, err := s.Put(ctx, model(content)); err != nil {
				t.Fatal(err)
			}
		}
		got, _ := os.ReadFile(filepath.Join(dir, "api.json"))
		if string(got) != "two" {
			t.Errorf("content = %q, want two", got)
		}
	})

	t.Run("no overwrite", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		s.Overwrite = false
		if _, err := s.Put(ctx, model("one")); err != nil {
			t.Fatal(err)
		}
		_, err := s.Put(ctx, model("two"))
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("second Put() = %v, want already exists", err)
		}
		got, _ := os.ReadFile(filepath.Join(dir, "api.json"))
		if string(got) != "one" {
			t.Errorf("content = %q, want one", got)
		}
	})

	t.Run("no temp files left", func(t *testing.T) {
		dir := t.TempDir()
		s := NewFilesystemSink(dir)
		s.Overwrite = false
		if _, err := s.Put(ctx, model("{}")); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Put(ctx, model("{}")); err == nil {
			t.Fatal("expected already exists")
		}
		matches, _ := filepath.Glob(filepath.Join(dir, ".tyrest-*.tmp"))
		if len(matches) != 0 {
			t.Errorf("temp files left: %v", matches)
		}
	})

	t.Run("rejects path names", func(t *testing.T) {
		s := NewFilesystemSink(t.TempDir())
		if _, err := s.Put(ctx, Model{Name: "../escape"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriterSink(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{"json", FormatJSON, "a\nb\n"},
		{"yaml separates documents", FormatYAML, "a\n---\nb\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := NewWriterSink(&buf)
			for _, name := range []string{"a", "b"} {
				path, err := s.Put(context.Background(), Model{Name: name, Format: tt.format, Content: []byte(name + "\n")})
				if err != nil {
					t.Fatal(err)
				}
				if path != name+tt.format.Ext() {
					t.Errorf("path = %q", path)
				}
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func testModel() *ir.API {
	return &ir.API{
		Title: "Items",
		Values: []*ir.ValueSpec{
			{Name: "ItemsGetRequest", Properties: []ir.PropertySpec{{Name: "tag", Type: ir.ScalarList("string")}}},
			{Name: "ItemsGetResponse", Properties: []ir.PropertySpec{{Name: "status200", Type: ir.Embed(&ir.AnonymousValueSpec{})}}},
		},
		Endpoints: []ir.Endpoint{{
			Resource:  "items",
			Path:      "/items",
			Verb:      "GET",
			Handler:   "itemsGetHandler",
			Request:   "ItemsGetRequest",
			Response:  "ItemsGetResponse",
			Bindings:  []ir.Binding{{Property: "tag", Source: ir.SourceQuery, WireName: "tag", Cardinality: ir.List}},
			Responses: []ir.ResponseSlot{{Status: 200, Property: "status200"}},
		}},
	}
}

func TestEncode(t *testing.T) {
	api := testModel()

	jsonOut, err := Encode(api, FormatJSON)
	if err != nil {
		t.Fatalf("Encode(json) error = %v", err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(jsonOut, &fromJSON); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}

	yamlOut, err := Encode(api, FormatYAML)
	if err != nil {
		t.Fatalf("Encode(yaml) error = %v", err)
	}
	if bytes.Contains(yamlOut, []byte("{")) {
		t.Errorf("yaml output uses flow style:\n%s", yamlOut)
	}
	if !strings.HasPrefix(string(yamlOut), "title: Items\n") {
		t.Errorf("yaml output should start with the title:\n%s", yamlOut)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(yamlOut, &fromYAML); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}

	// Scalars keep their JSON types through the conversion.
	endpoint := fromYAML["endpoints"].([]any)[0].(map[string]any)
	if endpoint["verb"] != "GET" {
		t.Errorf("verb = %#v", endpoint["verb"])
	}
	slot := endpoint["responses"].([]any)[0].(map[string]any)
	if slot["status"] != 200 {
		t.Errorf("status = %#v, want 200", slot["status"])
	}

	if _, err := Encode(api, Format("xml")); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestWriteModel(t *testing.T) {
	s := NewMemorySink()
	path, err := WriteModel(context.Background(), s, "items", testModel(), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if path != "items.yaml" {
		t.Errorf("path = %q, want items.yaml", path)
	}
	m, ok := s.Get("items.yaml")
	if !ok || m.Format != FormatYAML || len(m.Content) == 0 {
		t.Errorf("stored model = %+v, %v", m, ok)
	}

	path, err = WriteModel(context.Background(), s, "items", testModel(), "")
	if err != nil || path != "items.json" {
		t.Errorf("WriteModel(default format) = %q, %v; want items.json", path, err)
	}
}

func TestQuery(t *testing.T) {
	tests := []struct {
		expr    string
		want    []string
		wantErr bool
	}{
		{expr: ".title", want: []string{"Items"}},
		{expr: ".endpoints[] | .handler", want: []string{"itemsGetHandler"}},
		{expr: ".endpoints[].responses[].status", want: []string{"200"}},
		{expr: ".values[].name", want: []string{"ItemsGetRequest", "ItemsGetResponse"}},
		{expr: ".diagnostics[]?", want: nil},
		{expr: ".endpoints[", wantErr: true},
		{expr: ".title | error", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			results, err := Query(context.Background(), testModel(), tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Query() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var got []string
			for _, r := range results {
				got = append(got, fmt.Sprint(r))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Query() = %v, want %v", got, tt.want)
			}
		})
	}
}
