// Command bwobs is a development CLI for functions built with bwfn.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

type App struct {
	Invoke InvokeCmd `cmd:"" help:"POST an event to a function running with BW_RUNTIME=http."`
	Policy PolicyCmd `cmd:"" help:"Validate a unit-of-work policy and print its environment."`
}

func main() {
	var app App
	ctx := kong.Parse(&app,
		kong.Name("bwobs"),
		kong.Description("Observable function development CLI."),
		kong.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil)),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
