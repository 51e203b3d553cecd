package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/tyrest/cmd/tyrest/internal/check"
	"github.com/broady/tyrest/cmd/tyrest/internal/compile"
	"github.com/broady/tyrest/cmd/tyrest/internal/query"
	"github.com/broady/tyrest/cmd/tyrest/internal/routes"
	"github.com/broady/tyrest/cmd/tyrest/internal/serve"
)

type CLI struct {
	Version VersionCmd  `cmd:"" help:"Print version information."`
	Compile compile.Cmd `cmd:"" help:"Compile a description into its value model."`
	Check   check.Cmd   `cmd:"" help:"Compile a description and report diagnostics without writing files."`
	Routes  routes.Cmd  `cmd:"" help:"Print the routing table of a description."`
	Query   query.Cmd   `cmd:"" help:"Evaluate a jq expression against the compiled model."`
	Serve   serve.Cmd   `cmd:"" help:"Serve a description with stub handlers."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("tyrest"),
		kong.Description("Compile REST resource descriptions and inspect their routing contract."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
