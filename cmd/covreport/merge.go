package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func mergeCmd() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge coverage files into one istanbul coverage map",
		ArgsUsage: "[coverage.json|dir...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "Write JSON without indentation",
			},
		},
		Action: runMergeCmd,
	}
}

func runMergeCmd(c *cli.Context) error {
	cfg := configFrom(c)
	files, err := getInputs(c)
	if err != nil {
		return err
	}
	m, err := loadCoverage(c, cfg, files)
	if err != nil {
		return err
	}

	var data []byte
	if c.Bool("compact") {
		data, err = json.Marshal(m)
	} else {
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode merged coverage: %w", err)
	}
	data = append(data, '\n')

	if path := c.String("output"); path != "" && path != "-" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write merged coverage: %w", err)
		}
		messenger(c, cfg).Success("Merged %d input(s) into %s (%d covered files)", len(files), path, m.Len())
		return nil
	}
	_, err = c.App.Writer.Write(data)
	return err
}
