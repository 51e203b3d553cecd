package check

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/broady/tyrest/cmd/tyrest/internal/load"
	"github.com/broady/tyrest/tyrestgen/ir"
)

type Cmd struct {
	load.Input `embed:""`

	Strict bool `help:"Fail when the compile produced diagnostics."`
}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout)
}

func (c *Cmd) run(ctx context.Context, out io.Writer) error {
	api, err := c.Compile(ctx)
	if err != nil {
		return err
	}

	var params, headers, payloads int
	for _, e := range api.Endpoints {
		for _, b := range e.Bindings {
			switch b.Source {
			case ir.SourceQuery, ir.SourceURI:
				params++
			case ir.SourceHeader:
				headers++
			case ir.SourcePayload:
				payloads++
			}
		}
	}

	fmt.Fprintf(out, "✓ %s: %d endpoints, %d values\n", api.Title, len(api.Endpoints), len(api.Values))
	fmt.Fprintf(out, "✓ %d parameters, %d headers, %d payloads bound\n", params, headers, payloads)

	if len(api.Diagnostics) == 0 {
		fmt.Fprintln(out, "✓ No diagnostics")
		return nil
	}
	for _, d := range api.Diagnostics {
		fmt.Fprintf(out, "! %s\n", d)
	}
	if c.Strict {
		return fmt.Errorf("%d diagnostics", len(api.Diagnostics))
	}
	return nil
}
