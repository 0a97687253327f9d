package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/covreport/internal/vcs"
	"github.com/panbanda/covreport/pkg/cobertura"
	"github.com/panbanda/covreport/pkg/config"
	"github.com/panbanda/covreport/pkg/report"
)

func coberturaCmd() *cli.Command {
	return &cli.Command{
		Name:      "cobertura",
		Aliases:   []string{"cob"},
		Usage:     "Write a Cobertura XML report",
		ArgsUsage: "[coverage.json|dir...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "project-root",
				Usage: "Directory file names are reported relative to (default: working directory)",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: `Report file name inside --dir ("-" writes to stdout)`,
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Report directory",
			},
			&cli.StringFlag{
				Name:  "summarizer",
				Usage: "How files are grouped into packages: flat, pkg, nested",
			},
			&cli.BoolFlag{
				Name:  "git-root",
				Usage: "Use the enclosing git repository as the project root",
			},
		},
		Action: runCoberturaCmd,
	}
}

func runCoberturaCmd(c *cli.Context) error {
	cfg := configFrom(c)
	applyCoberturaFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := getInputs(c)
	if err != nil {
		return err
	}
	m, err := loadCoverage(c, cfg, files)
	if err != nil {
		return err
	}

	summarizer, err := report.ParseSummarizer(cfg.Report.Summarizer)
	if err != nil {
		return err
	}
	root, err := resolveProjectRoot(cfg)
	if err != nil {
		return err
	}

	rctx := report.NewContext(cfg.Report.Dir, m, summarizer)
	rctx.Stdout = c.App.Writer
	err = cobertura.Write(rctx,
		cobertura.WithProjectRoot(root),
		cobertura.WithFile(cfg.Cobertura.File),
	)
	if err != nil {
		return fmt.Errorf("write cobertura report: %w", err)
	}

	if cfg.Cobertura.File != report.StdoutName {
		path := cfg.Cobertura.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Report.Dir, path)
		}
		msg := messenger(c, cfg)
		msg.Success("Cobertura report written to %s", path)
		if cfg.Output.Verbose {
			msg.Info("Project root: %s", root)
		}
	}
	return nil
}

func applyCoberturaFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("project-root") {
		cfg.Cobertura.ProjectRoot = c.String("project-root")
	}
	if c.IsSet("file") {
		cfg.Cobertura.File = c.String("file")
	}
	if c.IsSet("dir") {
		cfg.Report.Dir = c.String("dir")
	}
	if c.IsSet("summarizer") {
		cfg.Report.Summarizer = c.String("summarizer")
	}
	if c.Bool("git-root") {
		cfg.Cobertura.DetectGitRoot = true
	}
}

// resolveProjectRoot picks the explicit root, else the git root when
// enabled, else the working directory.
func resolveProjectRoot(cfg *config.Config) (string, error) {
	if cfg.Cobertura.ProjectRoot != "" {
		return cfg.Cobertura.ProjectRoot, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	if cfg.Cobertura.DetectGitRoot {
		return vcs.ProjectRootOr(wd, wd), nil
	}
	return wd, nil
}
