package main

import (
	"fmt"

	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults, the config file and global flags.

Examples:
  covreport config show                   # Show effective config
  covreport -c covreport.toml config show # Show config from specific file`,
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	cfg := configFrom(c)
	w := c.App.Writer

	if source := configSource(c); source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(content)
	return err
}

// runConfigValidate relies on setupConfig having already loaded and
// validated the file; reaching it means the config is valid.
func runConfigValidate(c *cli.Context) error {
	msg := messenger(c, configFrom(c))
	if source := configSource(c); source != "" {
		msg.Success("Configuration valid: %s", source)
	} else {
		msg.Warning("No config file found. Default configuration is valid.")
	}
	return nil
}
