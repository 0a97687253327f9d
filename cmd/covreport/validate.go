package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/covreport/internal/schema"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check coverage files against the istanbul coverage schema",
		ArgsUsage: "[coverage.json|dir...]",
		Action:    runValidateCmd,
	}
}

func runValidateCmd(c *cli.Context) error {
	cfg := configFrom(c)
	msg := messenger(c, cfg)

	files, err := getInputs(c)
	if err != nil {
		return err
	}
	v, err := schema.NewValidator()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		errs := v.ValidateBytes(data)
		if len(errs) == 0 {
			msg.Success("%s: valid", path)
			continue
		}
		failed++
		msg.Error("%s: %d problem(s)", path, len(errs))
		for _, e := range errs {
			fmt.Fprintf(c.App.ErrWriter, "  - %s\n", e)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d file(s)", errValidationFailed, failed, len(files))
	}
	return nil
}
