package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/covreport/internal/loader"
	"github.com/panbanda/covreport/internal/output"
	"github.com/panbanda/covreport/internal/progress"
	"github.com/panbanda/covreport/pkg/config"
	"github.com/panbanda/covreport/pkg/coverage"
)

// defaultInput is what istanbul's json reporter writes.
var defaultInput = filepath.Join("coverage", "coverage-final.json")

const (
	metaConfig       = "config"
	metaConfigSource = "configSource"
)

// setupConfig loads the config file and applies global flag overrides.
func setupConfig(c *cli.Context) error {
	cfg := config.DefaultConfig()
	source := c.String("config")
	if source == "" {
		source = config.Find()
	}
	if source != "" {
		loaded, err := config.Load(source)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Output.Color {
		color.NoColor = true
	}

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaConfigSource] = source
	return nil
}

// configFrom returns the config prepared by setupConfig.
func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func configSource(c *cli.Context) string {
	s, _ := c.App.Metadata[metaConfigSource].(string)
	return s
}

// newFormatter writes data to --output when given, otherwise to the app writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" && path != "-" {
		return output.NewFormatter(format, path, cfg.Output.Color)
	}
	return output.NewWriterFormatter(format, c.App.Writer, c.App.ErrWriter, cfg.Output.Color), nil
}

// messenger is a formatter used only for status messages.
func messenger(c *cli.Context, cfg *config.Config) *output.Formatter {
	return output.NewWriterFormatter(output.FormatText, c.App.Writer, c.App.ErrWriter, cfg.Output.Color)
}

// getInputs resolves positional arguments to coverage files. Directories
// expand to the *.json files directly inside them.
func getInputs(c *cli.Context) ([]string, error) {
	args := c.Args().Slice()
	if len(args) == 0 {
		args = []string{defaultInput}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("coverage input %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("coverage input %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("coverage input %s: no .json files in directory", arg)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// loadCoverage reads and merges files with the config's input settings.
func loadCoverage(c *cli.Context, cfg *config.Config, files []string) (*coverage.Map, error) {
	msg := messenger(c, cfg)
	opts := loader.OptionsFromConfig(cfg)

	var tracker *progress.Tracker
	if len(files) > 1 {
		tracker = progress.NewTrackerTo(c.App.ErrWriter, "Loading coverage", len(files))
		opts.OnProgress = tracker.Tick
	}

	res, err := loader.Load(c.Context, files, opts)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	tracker.FinishSuccess()

	if cfg.Output.Verbose {
		msg.Info("Loaded %d coverage file(s), %d covered file(s)", len(res.Loaded), res.Map.Len())
		for _, dup := range res.Duplicates {
			msg.Warning("Skipped duplicate input %s", dup)
		}
		if res.Excluded > 0 {
			msg.Info("Excluded %d covered file(s)", res.Excluded)
		}
	}
	if res.Map.Len() == 0 {
		msg.Warning("No covered files after exclusions")
	}
	return res.Map, nil
}

// errValidationFailed is returned when one or more inputs fail schema checks.
var errValidationFailed = errors.New("coverage validation failed")

// formatPct renders a percentage the way istanbul's text reporter does.
func formatPct(pct float64) string {
	return fmt.Sprintf("%.2f", pct)
}
