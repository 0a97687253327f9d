package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/panbanda/covreport/pkg/coverage"
)

// StdoutName is the file name that makes WriteFile target standard output.
const StdoutName = "-"

// Context carries what a report needs while visiting a tree: the coverage
// map, how to group it, and where to write.
type Context struct {
	Dir        string
	Map        *coverage.Map
	Summarizer Summarizer

	// Stdout receives output written to StdoutName. Defaults to os.Stdout.
	Stdout io.Writer

	tree *Tree
}

// NewContext creates a context writing under dir.
func NewContext(dir string, m *coverage.Map, summarizer Summarizer) *Context {
	return &Context{
		Dir:        dir,
		Map:        m,
		Summarizer: summarizer,
		Stdout:     os.Stdout,
	}
}

// Tree builds (once) the report tree for the context's map.
func (c *Context) Tree() (*Tree, error) {
	if c.tree != nil {
		return c.tree, nil
	}
	tree, err := NewTree(c.Map, c.Summarizer)
	if err != nil {
		return nil, err
	}
	c.tree = tree
	return tree, nil
}

// WriteFile opens name under the context directory for writing, creating
// the directory when needed. Absolute names are used as given.
func (c *Context) WriteFile(name string) (*ContentWriter, error) {
	if name == StdoutName {
		out := c.Stdout
		if out == nil {
			out = os.Stdout
		}
		return newContentWriter(out, nil), nil
	}

	path := name
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}
	return newContentWriter(f, f), nil
}

// XMLWriter wraps cw with an indenting tag writer.
func (c *Context) XMLWriter(cw *ContentWriter) *XMLWriter {
	return NewXMLWriter(cw)
}

// Run builds the tree and visits it with v.
func (c *Context) Run(v Visitor) error {
	tree, err := c.Tree()
	if err != nil {
		return err
	}
	return tree.Visit(v, c)
}
