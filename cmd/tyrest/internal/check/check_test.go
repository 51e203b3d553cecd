package check

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/tyrest/cmd/tyrest/internal/load"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const clean = `title: Clean
/items:
  get:
    queryParameters:
      tag: string[]
    headers:
      X-Request-Id:
    responses:
      200:
  /{id}:
    uriParameters:
      id: string
    put:
      body: object
      responses:
        204:
`

const noisy = `title: Noisy
/items:
  get:
    queryParameters:
      limit: integer
    responses:
      200:
`

func TestCmd(t *testing.T) {
	tests := []struct {
		name    string
		content string
		strict  bool
		wantErr bool
		want    []string
	}{
		{
			name:    "clean",
			content: clean,
			want: []string{
				"✓ Clean: 2 endpoints, 4 values",
				"✓ 2 parameters, 1 headers, 1 payloads bound",
				"✓ No diagnostics",
			},
		},
		{
			name:    "diagnostics",
			content: noisy,
			want:    []string{"! ", "unsupported_parameter_type"},
		},
		{
			name:    "strict",
			content: noisy,
			strict:  true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cmd{Input: load.Input{Spec: writeSpec(t, tt.content), Format: "auto"}, Strict: tt.strict}
			var out bytes.Buffer
			err := c.run(context.Background(), &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}
