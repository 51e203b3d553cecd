package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/broady/tyrest/cmd/tyrest/internal/load"
	"github.com/broady/tyrest/tyrestgen/sink"
)

type Cmd struct {
	load.Input `embed:""`

	Expr    string `arg:"" help:"jq expression evaluated against the compiled model, e.g. '.endpoints[].handler'."`
	Compact bool   `help:"Print one result per line without indentation." short:"c"`
}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *Cmd) run(ctx context.Context, out io.Writer) error {
	api, err := c.Compile(ctx)
	if err != nil {
		return err
	}
	results, err := sink.Query(ctx, api, c.Expr)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
