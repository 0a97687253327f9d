// Package cobertura writes a coverage report tree as a Cobertura XML
// document, the format read by Jenkins and most CI coverage plugins.
package cobertura

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/panbanda/covreport/pkg/coverage"
	"github.com/panbanda/covreport/pkg/report"
)

// DefaultFile is the report file name used when none is configured.
const DefaultFile = "cobertura-coverage.xml"

const (
	xmlDeclaration = `<?xml version="1.0" ?>`
	doctype        = `<!DOCTYPE coverage SYSTEM "http://cobertura.sourceforge.net/xml/coverage-04.dtd">`

	// Function signatures are not modelled; Cobertura expects one.
	methodSignature = "()V"
)

// ErrNotStarted is returned by OnEnd when OnStart never opened the output.
var ErrNotStarted = errors.New("cobertura report was not started")

var _ report.Visitor = (*Emitter)(nil)

// Emitter is a report.Visitor producing one Cobertura document. Package and
// class output is deferred until OnEnd so files can be grouped after the
// whole tree has been seen. An Emitter serves a single run.
type Emitter struct {
	projectRoot string
	file        string
	now         func() time.Time

	cw   *report.ContentWriter
	xml  *report.XMLWriter
	root *report.Node

	packageNodes []*report.Node
	classNodes   []*report.Node
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithProjectRoot sets the directory file names are made relative to.
func WithProjectRoot(dir string) Option {
	return func(e *Emitter) {
		e.projectRoot = dir
	}
}

// WithFile sets the report file name.
func WithFile(name string) Option {
	return func(e *Emitter) {
		e.file = name
	}
}

// WithClock sets the source of the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// New creates an emitter. The project root defaults to the working directory.
func New(opts ...Option) (*Emitter, error) {
	e := &Emitter{
		file: DefaultFile,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve project root: %w", err)
		}
		e.projectRoot = wd
	}
	abs, err := filepath.Abs(e.projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	e.projectRoot = filepath.Clean(abs)
	if e.file == "" {
		e.file = DefaultFile
	}
	return e, nil
}

// Write renders the context's coverage as a Cobertura document.
func Write(ctx *report.Context, opts ...Option) error {
	e, err := New(opts...)
	if err != nil {
		return err
	}
	return ctx.Run(e)
}

// ProjectRoot returns the normalized project root.
func (e *Emitter) ProjectRoot() string {
	return e.projectRoot
}

// File returns the report file name.
func (e *Emitter) File() string {
	return e.file
}

// OnStart opens the report file.
func (e *Emitter) OnStart(root *report.Node, ctx *report.Context) error {
	cw, err := ctx.WriteFile(e.file)
	if err != nil {
		return err
	}
	e.cw = cw
	e.xml = ctx.XMLWriter(cw)
	e.root = root
	return nil
}

// OnSummary records a package candidate.
func (e *Emitter) OnSummary(node *report.Node, _ *report.Context) error {
	e.packageNodes = append(e.packageNodes, node)
	return nil
}

// OnDetail records a class candidate.
func (e *Emitter) OnDetail(node *report.Node, _ *report.Context) error {
	e.classNodes = append(e.classNodes, node)
	return nil
}

// OnEnd writes the document and closes the report file.
func (e *Emitter) OnEnd(_ *report.Node, _ *report.Context) error {
	if e.cw == nil {
		return ErrNotStarted
	}
	if err := e.writeRootStats(e.root); err != nil {
		return err
	}
	for _, pn := range e.packageNodes {
		if err := e.writePackage(pn); err != nil {
			return err
		}
	}
	if err := e.xml.CloseAll(); err != nil {
		return err
	}
	if err := e.cw.Close(); err != nil {
		return fmt.Errorf("close cobertura report: %w", err)
	}
	return nil
}

func (e *Emitter) writeRootStats(node *report.Node) error {
	metrics := node.CoverageSummary(false)

	if err := e.cw.Println(xmlDeclaration); err != nil {
		return err
	}
	if err := e.cw.Println(doctype); err != nil {
		return err
	}
	err := e.xml.OpenTag("coverage",
		report.Attr{Name: "lines-valid", Value: strconv.Itoa(metrics.Lines.Total)},
		report.Attr{Name: "lines-covered", Value: strconv.Itoa(metrics.Lines.Covered)},
		report.Attr{Name: "line-rate", Value: rate(metrics.Lines.Pct)},
		report.Attr{Name: "branches-valid", Value: strconv.Itoa(metrics.Branches.Total)},
		report.Attr{Name: "branches-covered", Value: strconv.Itoa(metrics.Branches.Covered)},
		report.Attr{Name: "branch-rate", Value: rate(metrics.Branches.Pct)},
		report.Attr{Name: "timestamp", Value: strconv.FormatInt(e.now().UnixMilli(), 10)},
		report.Attr{Name: "complexity", Value: "0"},
		report.Attr{Name: "version", Value: "0.1"},
	)
	if err != nil {
		return err
	}
	if err := e.xml.OpenTag("sources"); err != nil {
		return err
	}
	if err := e.xml.InlineTag("source", nil, e.projectRoot); err != nil {
		return err
	}
	if err := e.xml.CloseTag("sources"); err != nil {
		return err
	}
	return e.xml.OpenTag("packages")
}

// writePackage emits a summary node together with the detail nodes directly
// beneath it. Nodes without file children produce nothing.
func (e *Emitter) writePackage(node *report.Node) error {
	metrics := node.CoverageSummary(true)
	if metrics == nil {
		return nil
	}

	var classNodes []*report.Node
	for _, cn := range e.classNodes {
		if cn.Parent() == node {
			classNodes = append(classNodes, cn)
		}
	}
	if len(classNodes) == 0 {
		return nil
	}

	paths := make([]string, len(classNodes))
	for i, cn := range classNodes {
		paths[i] = cn.FileCoverage().Path
	}
	name := PackageName(e.projectRoot, GreatestCommonPath(paths))

	err := e.xml.OpenTag("package",
		report.Attr{Name: "name", Value: name},
		report.Attr{Name: "line-rate", Value: rate(metrics.Lines.Pct)},
		report.Attr{Name: "branch-rate", Value: rate(metrics.Branches.Pct)},
	)
	if err != nil {
		return err
	}
	if err := e.xml.OpenTag("classes"); err != nil {
		return err
	}
	for _, cn := range classNodes {
		if err := e.writeClass(cn); err != nil {
			return err
		}
	}
	if err := e.xml.CloseTag("classes"); err != nil {
		return err
	}
	return e.xml.CloseTag("package")
}

func (e *Emitter) writeClass(node *report.Node) error {
	fc := node.FileCoverage()
	metrics := node.CoverageSummary(false)

	err := e.xml.OpenTag("class",
		report.Attr{Name: "name", Value: ClassName(fc.Path)},
		report.Attr{Name: "filename", Value: relativeTo(e.projectRoot, fc.Path)},
		report.Attr{Name: "line-rate", Value: rate(metrics.Lines.Pct)},
		report.Attr{Name: "branch-rate", Value: rate(metrics.Branches.Pct)},
	)
	if err != nil {
		return err
	}
	if err := e.writeMethods(fc); err != nil {
		return err
	}
	if err := e.writeLines(fc); err != nil {
		return err
	}
	return e.xml.CloseTag("class")
}

func (e *Emitter) writeMethods(fc *coverage.FileCoverage) error {
	if err := e.xml.OpenTag("methods"); err != nil {
		return err
	}
	for _, id := range fc.FunctionKeys() {
		fn := fc.FnMap[id]
		hits := strconv.Itoa(fc.F[id])

		err := e.xml.OpenTag("method",
			report.Attr{Name: "name", Value: fn.Name},
			report.Attr{Name: "hits", Value: hits},
			report.Attr{Name: "signature", Value: methodSignature},
		)
		if err != nil {
			return err
		}
		// The declaration line carries the method hits so CI plugins credit them.
		if err := e.xml.OpenTag("lines"); err != nil {
			return err
		}
		err = e.xml.InlineTag("line", []report.Attr{
			{Name: "number", Value: strconv.Itoa(fn.DeclLine())},
			{Name: "hits", Value: hits},
		}, "")
		if err != nil {
			return err
		}
		if err := e.xml.CloseTag("lines"); err != nil {
			return err
		}
		if err := e.xml.CloseTag("method"); err != nil {
			return err
		}
	}
	return e.xml.CloseTag("methods")
}

func (e *Emitter) writeLines(fc *coverage.FileCoverage) error {
	if err := e.xml.OpenTag("lines"); err != nil {
		return err
	}
	lines := fc.LineCoverage()
	branchByLine := fc.BranchCoverageByLine()
	for _, line := range coverage.SortedLines(lines) {
		attrs := []report.Attr{
			{Name: "number", Value: strconv.Itoa(line)},
			{Name: "hits", Value: strconv.Itoa(lines[line])},
			{Name: "branch", Value: "false"},
		}
		if detail, ok := branchByLine[line]; ok {
			attrs[2].Value = "true"
			attrs = append(attrs, report.Attr{Name: "condition-coverage", Value: conditionCoverage(detail)})
		}
		if err := e.xml.InlineTag("line", attrs, ""); err != nil {
			return err
		}
	}
	return e.xml.CloseTag("lines")
}

// rate converts a percentage to the 0..1 fraction Cobertura uses.
func rate(pct float64) string {
	r := math.Round(pct*100) / 10000
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func conditionCoverage(b coverage.BranchLineCoverage) string {
	return fmt.Sprintf("%d%% (%d/%d)", int(b.Coverage), b.Covered, b.Total)
}
