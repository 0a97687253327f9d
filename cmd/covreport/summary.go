package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/covreport/internal/output"
	"github.com/panbanda/covreport/pkg/coverage"
)

func summaryCmd() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Aliases:   []string{"sum"},
		Usage:     "Print per-file coverage percentages",
		ArgsUsage: "[coverage.json|dir...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "uncovered",
				Usage: "Include the uncovered line numbers of each file",
			},
			&cli.Float64Flag{
				Name:  "fail-under",
				Usage: "Exit with an error when total line coverage is below this percentage",
			},
		},
		Action: runSummaryCmd,
	}
}

type summaryRow struct {
	File       string  `json:"file" yaml:"file" toon:"file"`
	Statements float64 `json:"statements" yaml:"statements" toon:"statements"`
	Branches   float64 `json:"branches" yaml:"branches" toon:"branches"`
	Functions  float64 `json:"functions" yaml:"functions" toon:"functions"`
	Lines      float64 `json:"lines" yaml:"lines" toon:"lines"`
	Uncovered  []int   `json:"uncovered_lines,omitempty" yaml:"uncovered_lines,omitempty" toon:"uncovered_lines,omitempty"`
}

type summaryReport struct {
	Files []summaryRow      `json:"files" yaml:"files" toon:"files"`
	Total *coverage.Summary `json:"total" yaml:"total" toon:"total"`
}

func newSummaryRow(name string, s *coverage.Summary) summaryRow {
	return summaryRow{
		File:       name,
		Statements: s.Statements.Pct,
		Branches:   s.Branches.Pct,
		Functions:  s.Functions.Pct,
		Lines:      s.Lines.Pct,
	}
}

func runSummaryCmd(c *cli.Context) error {
	cfg := configFrom(c)
	files, err := getInputs(c)
	if err != nil {
		return err
	}
	m, err := loadCoverage(c, cfg, files)
	if err != nil {
		return err
	}

	withUncovered := c.Bool("uncovered")
	wd, _ := os.Getwd()

	data := summaryReport{Total: m.Summary()}
	for _, path := range m.Files() {
		fc, err := m.FileCoverageFor(path)
		if err != nil {
			return err
		}
		row := newSummaryRow(displayPath(wd, path), fc.Summary())
		if withUncovered {
			row.Uncovered = fc.UncoveredLines()
		}
		data.Files = append(data.Files, row)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(summaryTable(data, withUncovered, formatter.Colored())); err != nil {
		return err
	}

	if c.IsSet("fail-under") {
		threshold := c.Float64("fail-under")
		if data.Total.Lines.Pct < threshold {
			return fmt.Errorf("line coverage %.2f%% is below the %.2f%% threshold", data.Total.Lines.Pct, threshold)
		}
	}
	return nil
}

func summaryTable(data summaryReport, withUncovered, colored bool) *output.Table {
	headers := []string{"File", "Stmts", "Branch", "Funcs", "Lines"}
	if withUncovered {
		headers = append(headers, "Uncovered Lines")
	}

	cell := func(pct float64) string {
		text := formatPct(pct)
		if colored {
			return output.CoverageColor(pct, text)
		}
		return text
	}

	rows := make([][]string, 0, len(data.Files))
	for _, f := range data.Files {
		row := []string{f.File, cell(f.Statements), cell(f.Branches), cell(f.Functions), cell(f.Lines)}
		if withUncovered {
			row = append(row, joinLines(f.Uncovered))
		}
		rows = append(rows, row)
	}

	total := newSummaryRow("All files", data.Total)
	footer := []string{total.File, formatPct(total.Statements), formatPct(total.Branches), formatPct(total.Functions), formatPct(total.Lines)}
	if withUncovered {
		footer = append(footer, "")
	}

	return output.NewTable("Coverage Summary", headers, rows, footer, data)
}

// displayPath shortens absolute paths under the working directory.
func displayPath(wd, path string) string {
	if wd == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// joinLines renders line numbers compactly, collapsing consecutive runs.
func joinLines(lines []int) string {
	var parts []string
	for i := 0; i < len(lines); {
		j := i
		for j+1 < len(lines) && lines[j+1] == lines[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, strconv.Itoa(lines[i])+"-"+strconv.Itoa(lines[j]))
		} else {
			parts = append(parts, strconv.Itoa(lines[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
