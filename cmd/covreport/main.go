package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "covreport",
		Usage:    "Turn istanbul coverage JSON into Cobertura XML and coverage summaries",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `covreport reads istanbul coverage maps (coverage-final.json, .nyc_output)
and writes Cobertura XML for CI coverage plugins, or prints per-file summaries.

Inputs may be files or directories; directories contribute their *.json files.
With no inputs, coverage/coverage-final.json is read.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"COVREPORT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon, yaml",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: setupConfig,
		Commands: []*cli.Command{
			coberturaCmd(),
			summaryCmd(),
			mergeCmd(),
			validateCmd(),
			configCmd(),
		},
	}
}
