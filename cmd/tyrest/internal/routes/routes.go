package routes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/broady/tyrest"
	"github.com/broady/tyrest/cmd/tyrest/internal/load"
)

type Cmd struct {
	load.Input `embed:""`

	Patterns bool `help:"Also print the expression each path is matched with."`
}

func (c *Cmd) Run() error {
	return c.run(context.Background(), os.Stdout, os.Stderr)
}

func (c *Cmd) run(ctx context.Context, stdout, stderr io.Writer) error {
	api, err := c.Compile(ctx)
	if err != nil {
		return err
	}
	router, err := tyrest.NewRouter(api, nil)
	if err != nil {
		return err
	}
	router.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	routes, err := router.Routes()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	if c.Patterns {
		fmt.Fprintln(tw, "VERB\tPATH\tHANDLER\tPATTERN")
	} else {
		fmt.Fprintln(tw, "VERB\tPATH\tHANDLER")
	}
	for _, r := range routes {
		for _, v := range r.Verbs {
			if c.Patterns {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v, r.Path, r.Handlers[v], r.Pattern)
			} else {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", v, r.Path, r.Handlers[v])
			}
		}
	}
	return tw.Flush()
}
