package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const Version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:                 "btlite",
		Version:              Version,
		Usage:                "deterministic discrete-event backtester",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			runCommand,
			dumpCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
