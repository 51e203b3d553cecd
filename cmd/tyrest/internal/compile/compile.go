package compile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/broady/tyrest/cmd/tyrest/internal/load"
	"github.com/broady/tyrest/tyrestgen/sink"
)

type Cmd struct {
	load.Input `embed:""`

	Out      string `help:"Output directory, or - for stdout." short:"o" default:"-"`
	Name     string `help:"Base name of the written model file." default:"api"`
	Encoding string `help:"Model encoding (json or yaml)." enum:"json,yaml" default:"json" short:"e"`
}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout, os.Stderr)
}

func (c *Cmd) run(ctx context.Context, stdout, stderr io.Writer) error {
	api, err := c.Compile(ctx)
	if err != nil {
		return err
	}

	var out sink.Sink
	if c.Out == "-" {
		out = sink.NewWriterSink(stdout)
	} else {
		dir, err := filepath.Abs(c.Out)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		out = sink.NewFilesystemSink(dir)
	}

	path, err := sink.WriteModel(ctx, out, c.Name, api, sink.Format(c.Encoding))
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}

	for _, d := range api.Diagnostics {
		fmt.Fprintf(stderr, "warning: %s\n", d)
	}
	if c.Out != "-" {
		fmt.Fprintf(stderr, "✓ Wrote %s (%d endpoints)\n", filepath.Join(c.Out, path), len(api.Endpoints))
	}
	return nil
}
