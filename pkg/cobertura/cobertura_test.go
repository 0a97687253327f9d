package cobertura

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/panbanda/covreport/pkg/coverage"
	"github.com/panbanda/covreport/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type xmlCoverage struct {
	XMLName         xml.Name     `xml:"coverage"`
	LinesValid      int          `xml:"lines-valid,attr"`
	LinesCovered    int          `xml:"lines-covered,attr"`
	LineRate        string       `xml:"line-rate,attr"`
	BranchesValid   int          `xml:"branches-valid,attr"`
	BranchesCovered int          `xml:"branches-covered,attr"`
	BranchRate      string       `xml:"branch-rate,attr"`
	Timestamp       string       `xml:"timestamp,attr"`
	Complexity      string       `xml:"complexity,attr"`
	Version         string       `xml:"version,attr"`
	Sources         []string     `xml:"sources>source"`
	Packages        []xmlPackage `xml:"packages>package"`
	StrayClasses    []xmlClass   `xml:"packages>class"`
}

type xmlPackage struct {
	Name       string     `xml:"name,attr"`
	LineRate   string     `xml:"line-rate,attr"`
	BranchRate string     `xml:"branch-rate,attr"`
	Classes    []xmlClass `xml:"classes>class"`
}

type xmlClass struct {
	Name       string      `xml:"name,attr"`
	Filename   string      `xml:"filename,attr"`
	LineRate   string      `xml:"line-rate,attr"`
	BranchRate string      `xml:"branch-rate,attr"`
	Methods    []xmlMethod `xml:"methods>method"`
	Lines      []xmlLine   `xml:"lines>line"`
}

type xmlMethod struct {
	Name      string    `xml:"name,attr"`
	Hits      int       `xml:"hits,attr"`
	Signature string    `xml:"signature,attr"`
	Lines     []xmlLine `xml:"lines>line"`
}

type xmlLine struct {
	Number            int    `xml:"number,attr"`
	Hits              int    `xml:"hits,attr"`
	Branch            string `xml:"branch,attr"`
	ConditionCoverage string `xml:"condition-coverage,attr"`
}

var fixedClock = func() time.Time { return time.UnixMilli(1700000000000) }

func loadMap(t *testing.T, names ...string) *coverage.Map {
	t.Helper()
	m := coverage.NewMap()
	for _, name := range names {
		part, err := coverage.Load(filepath.Join("testdata", name))
		require.NoError(t, err)
		m.Merge(part)
	}
	return m
}

// render writes m as Cobertura and returns the raw document.
func render(t *testing.T, m *coverage.Map, summarizer report.Summarizer, root string) string {
	t.Helper()
	dir := t.TempDir()
	ctx := report.NewContext(dir, m, summarizer)
	err := Write(ctx, WithProjectRoot(root), WithClock(fixedClock))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	return string(data)
}

func parse(t *testing.T, doc string) xmlCoverage {
	t.Helper()
	var out xmlCoverage
	require.NoError(t, xml.Unmarshal([]byte(doc), &out))
	return out
}

func TestSingleFileReport(t *testing.T) {
	root := t.TempDir()
	doc := render(t, loadMap(t, "simple.json"), report.SummarizerPkg, root)

	lines := strings.Split(doc, "\n")
	assert.Equal(t, `<?xml version="1.0" ?>`, lines[0])
	assert.Equal(t, `<!DOCTYPE coverage SYSTEM "http://cobertura.sourceforge.net/xml/coverage-04.dtd">`, lines[1])

	cov := parse(t, doc)
	assert.Equal(t, 2, cov.LinesValid)
	assert.Equal(t, 1, cov.LinesCovered)
	assert.Equal(t, "0.5", cov.LineRate)
	assert.Equal(t, 0, cov.BranchesValid)
	assert.Equal(t, "1", cov.BranchRate)
	assert.Equal(t, "1700000000000", cov.Timestamp)
	assert.Equal(t, "0", cov.Complexity)
	assert.Equal(t, "0.1", cov.Version)
	assert.Equal(t, []string{filepath.Clean(root)}, cov.Sources)

	require.Len(t, cov.Packages, 1)
	pkg := cov.Packages[0]
	assert.Equal(t, "src", pkg.Name)
	assert.Equal(t, "0.5", pkg.LineRate)

	require.Len(t, pkg.Classes, 1)
	class := pkg.Classes[0]
	assert.Equal(t, "a.js", class.Name)
	assert.Equal(t, filepath.FromSlash("src/a.js"), class.Filename)
	assert.Equal(t, []xmlLine{
		{Number: 1, Hits: 5, Branch: "false"},
		{Number: 2, Hits: 0, Branch: "false"},
	}, class.Lines)

	require.Len(t, class.Methods, 1)
	method := class.Methods[0]
	assert.Equal(t, "foo", method.Name)
	assert.Equal(t, 5, method.Hits)
	assert.Equal(t, "()V", method.Signature)
	assert.Equal(t, []xmlLine{{Number: 1, Hits: 5}}, method.Lines)
}

func TestPackagesGroupedByDirectory(t *testing.T) {
	doc := render(t, loadMap(t, "branches.json"), report.SummarizerPkg, "/work/app")
	cov := parse(t, doc)

	assert.Equal(t, 9, cov.LinesValid)
	assert.Equal(t, 8, cov.LinesCovered)
	assert.Equal(t, "0.8888", cov.LineRate)
	assert.Equal(t, 6, cov.BranchesValid)
	assert.Equal(t, 4, cov.BranchesCovered)
	assert.Equal(t, "0.6666", cov.BranchRate)
	assert.Empty(t, cov.StrayClasses)

	require.Len(t, cov.Packages, 2)
	core, util := cov.Packages[0], cov.Packages[1]

	assert.Equal(t, "lib.core", core.Name)
	assert.Equal(t, "0.8571", core.LineRate)
	assert.Equal(t, "0.6666", core.BranchRate)
	require.Len(t, core.Classes, 2)

	engine := core.Classes[0]
	assert.Equal(t, "engine.js", engine.Name)
	assert.Equal(t, filepath.FromSlash("lib/core/engine.js"), engine.Filename)
	assert.Equal(t, "0.75", engine.LineRate)
	assert.Equal(t, "0.5", engine.BranchRate)
	assert.Equal(t, []xmlMethod{
		{Name: "start", Hits: 4, Signature: "()V", Lines: []xmlLine{{Number: 2, Hits: 4}}},
		{Name: "(anonymous_1)", Hits: 0, Signature: "()V", Lines: []xmlLine{{Number: 6, Hits: 0}}},
	}, engine.Methods)
	assert.Equal(t, []xmlLine{
		{Number: 1, Hits: 1, Branch: "false"},
		{Number: 3, Hits: 4, Branch: "true", ConditionCoverage: "50% (1/2)"},
		{Number: 4, Hits: 4, Branch: "false"},
		{Number: 6, Hits: 0, Branch: "false"},
	}, engine.Lines)

	loop := core.Classes[1]
	assert.Equal(t, "loop.js", loop.Name)
	assert.Equal(t, xmlLine{Number: 2, Hits: 3, Branch: "true", ConditionCoverage: "75% (3/4)"}, loop.Lines[1])

	assert.Equal(t, "lib.util", util.Name)
	require.Len(t, util.Classes, 1)
	assert.Equal(t, "pad&trim", util.Classes[0].Methods[0].Name)
}

func TestAttributesAreEscaped(t *testing.T) {
	doc := render(t, loadMap(t, "branches.json", "other.json"), report.SummarizerPkg, "/work/app")

	assert.Contains(t, doc, `name="pad&amp;trim"`)
	assert.Contains(t, doc, `name="render&lt;T&gt;"`)
	assert.NotContains(t, doc, "pad&trim")
}

func TestConditionCoverageFormat(t *testing.T) {
	cov := parse(t, render(t, loadMap(t, "branches.json", "other.json"), report.SummarizerPkg, "/work/app"))

	pattern := regexp.MustCompile(`^\d+% \(\d+/\d+\)$`)
	seen := 0
	for _, pkg := range cov.Packages {
		for _, class := range pkg.Classes {
			for _, line := range class.Lines {
				switch line.Branch {
				case "true":
					seen++
					assert.Regexp(t, pattern, line.ConditionCoverage)
				case "false":
					assert.Empty(t, line.ConditionCoverage)
				default:
					t.Errorf("line %d of %s: branch=%q", line.Number, class.Filename, line.Branch)
				}
			}
		}
	}
	assert.Equal(t, 3, seen)
}

func TestRatesAreFractions(t *testing.T) {
	cov := parse(t, render(t, loadMap(t, "simple.json", "branches.json", "other.json"), report.SummarizerNested, "/"))

	inRange := func(s string) {
		assert.Regexp(t, `^(0(\.\d+)?|1)$`, s)
	}
	inRange(cov.LineRate)
	inRange(cov.BranchRate)
	for _, pkg := range cov.Packages {
		inRange(pkg.LineRate)
		inRange(pkg.BranchRate)
		for _, class := range pkg.Classes {
			inRange(class.LineRate)
			inRange(class.BranchRate)
		}
	}
}

func TestMethodsCarryDeclarationLine(t *testing.T) {
	m := loadMap(t, "branches.json")
	cov := parse(t, render(t, m, report.SummarizerPkg, "/work/app"))

	for _, pkg := range cov.Packages {
		for _, class := range pkg.Classes {
			fc, err := m.FileCoverageFor(filepath.Join("/work/app", class.Filename))
			require.NoError(t, err)
			require.Len(t, class.Methods, len(fc.FnMap))
			for i, id := range fc.FunctionKeys() {
				method := class.Methods[i]
				require.Len(t, method.Lines, 1)
				assert.Equal(t, fc.FnMap[id].DeclLine(), method.Lines[0].Number)
				assert.Equal(t, fc.F[id], method.Lines[0].Hits)
				assert.Equal(t, method.Hits, method.Lines[0].Hits)
			}
		}
	}
}

func TestMergedMapsReport(t *testing.T) {
	m := loadMap(t, "simple.json", "branches.json", "other.json")
	cov := parse(t, render(t, m, report.SummarizerPkg, "/"))

	assert.Empty(t, cov.StrayClasses)
	names := map[string][]string{}
	for _, pkg := range cov.Packages {
		for _, class := range pkg.Classes {
			names[pkg.Name] = append(names[pkg.Name], class.Name)
		}
	}
	assert.Equal(t, map[string][]string{
		"work.app.lib.core": {"engine.js", "loop.js"},
		"work.app.lib.util": {"strings.js"},
		"src":               {"a.js", "b.js"},
	}, names)

	// src/a.js appears in two inputs; its hits are summed, not duplicated.
	var a xmlClass
	for _, pkg := range cov.Packages {
		for _, class := range pkg.Classes {
			if class.Name == "a.js" {
				a = class
			}
		}
	}
	assert.Equal(t, []xmlLine{
		{Number: 1, Hits: 7, Branch: "false"},
		{Number: 2, Hits: 2, Branch: "false"},
	}, a.Lines)
	assert.Equal(t, 7, a.Methods[0].Hits)
}

func TestFlatTreeIsOnePackage(t *testing.T) {
	cov := parse(t, render(t, loadMap(t, "branches.json"), report.SummarizerFlat, "/work/app"))

	require.Len(t, cov.Packages, 1)
	assert.Equal(t, "lib", cov.Packages[0].Name)
	assert.Len(t, cov.Packages[0].Classes, 3)
}

func TestRootTotalsMatchSummary(t *testing.T) {
	for _, s := range []report.Summarizer{report.SummarizerFlat, report.SummarizerPkg, report.SummarizerNested} {
		t.Run(string(s), func(t *testing.T) {
			m := loadMap(t, "simple.json", "branches.json", "other.json")
			want := m.Summary()
			cov := parse(t, render(t, m, s, "/"))
			assert.Equal(t, want.Lines.Total, cov.LinesValid)
			assert.Equal(t, want.Lines.Covered, cov.LinesCovered)
			assert.Equal(t, want.Branches.Total, cov.BranchesValid)
			assert.Equal(t, want.Branches.Covered, cov.BranchesCovered)
		})
	}
}

func TestEmptyMap(t *testing.T) {
	cov := parse(t, render(t, coverage.NewMap(), report.SummarizerPkg, "/"))
	assert.Equal(t, 0, cov.LinesValid)
	assert.Equal(t, "1", cov.LineRate)
	assert.Empty(t, cov.Packages)
}

func TestDetailWithoutSummaryIsDropped(t *testing.T) {
	m := loadMap(t, "branches.json")
	tree, err := report.NewTree(m, report.SummarizerPkg)
	require.NoError(t, err)

	dir := t.TempDir()
	ctx := report.NewContext(dir, m, report.SummarizerPkg)
	e, err := New(WithProjectRoot("/work/app"), WithClock(fixedClock))
	require.NoError(t, err)

	// Only details are reported; their parents never reach OnSummary.
	require.NoError(t, e.OnStart(tree.Root, ctx))
	for _, dirNode := range tree.Root.Children() {
		for _, file := range dirNode.Children() {
			require.NoError(t, e.OnDetail(file, ctx))
		}
	}
	require.NoError(t, e.OnEnd(tree.Root, ctx))

	data, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	cov := parse(t, string(data))
	assert.Empty(t, cov.Packages)
	assert.Empty(t, cov.StrayClasses)
	assert.Equal(t, 9, cov.LinesValid)
}

func TestCustomFileName(t *testing.T) {
	dir := t.TempDir()
	ctx := report.NewContext(dir, loadMap(t, "simple.json"), report.SummarizerPkg)
	require.NoError(t, Write(ctx, WithFile("custom.xml"), WithProjectRoot(dir)))

	assert.FileExists(t, filepath.Join(dir, "custom.xml"))
	assert.NoFileExists(t, filepath.Join(dir, DefaultFile))
}

func TestDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	e, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultFile, e.File())
	assert.Equal(t, filepath.Clean(wd), e.ProjectRoot())

	e, err = New(WithProjectRoot("relative/../dir"), WithFile(""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "dir"), e.ProjectRoot())
	assert.Equal(t, DefaultFile, e.File())
}

func TestEndWithoutStart(t *testing.T) {
	e, err := New(WithProjectRoot("/"))
	require.NoError(t, err)
	assert.ErrorIs(t, e.OnEnd(nil, nil), ErrNotStarted)
}

func TestOpenErrorPropagates(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	ctx := report.NewContext(filepath.Join(blocker, "out"), loadMap(t, "simple.json"), report.SummarizerPkg)
	err := Write(ctx, WithProjectRoot(base))
	assert.Error(t, err)
}
