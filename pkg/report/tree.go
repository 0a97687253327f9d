package report

import (
	"fmt"
	"strings"

	"github.com/panbanda/covreport/pkg/coverage"
)

// Summarizer selects how files are grouped into summary nodes.
type Summarizer string

const (
	// SummarizerFlat puts every file directly under the root.
	SummarizerFlat Summarizer = "flat"
	// SummarizerPkg creates one summary node per directory, all under the root.
	SummarizerPkg Summarizer = "pkg"
	// SummarizerNested mirrors the directory hierarchy.
	SummarizerNested Summarizer = "nested"
)

// ParseSummarizer validates a summarizer name. Empty selects pkg.
func ParseSummarizer(s string) (Summarizer, error) {
	switch Summarizer(strings.ToLower(s)) {
	case "", SummarizerPkg:
		return SummarizerPkg, nil
	case SummarizerFlat:
		return SummarizerFlat, nil
	case SummarizerNested:
		return SummarizerNested, nil
	default:
		return "", fmt.Errorf("unknown summarizer %q (want flat, pkg or nested)", s)
	}
}

// Tree is a report tree rooted at a summary node.
type Tree struct {
	Root *Node
}

type fileEntry struct {
	path nodePath
	fc   *coverage.FileCoverage
}

// NewTree groups the files of m according to summarizer.
func NewTree(m *coverage.Map, summarizer Summarizer) (*Tree, error) {
	entries := relativeEntries(m)

	var root *Node
	switch summarizer {
	case SummarizerFlat:
		root = flatTree(entries)
	case SummarizerPkg, "":
		root = pkgTree(entries)
	case SummarizerNested:
		root = nestedTree(entries)
	default:
		return nil, fmt.Errorf("unknown summarizer %q", summarizer)
	}
	return &Tree{Root: root}, nil
}

// relativeEntries strips the directory prefix shared by every file.
func relativeEntries(m *coverage.Map) []fileEntry {
	var common nodePath
	paths := m.Files()
	for i, p := range paths {
		dir := splitPath(p).parent()
		if i == 0 {
			common = dir
			continue
		}
		n := 0
		for n < len(common) && n < len(dir) && common[n] == dir[n] {
			n++
		}
		common = common[:n]
	}

	entries := make([]fileEntry, 0, len(paths))
	for _, p := range paths {
		fc, _ := m.FileCoverageFor(p)
		entries = append(entries, fileEntry{
			path: splitPath(p)[len(common):],
			fc:   fc,
		})
	}
	return entries
}

func flatTree(entries []fileEntry) *Node {
	root := newNode(nil, nil)
	for _, e := range entries {
		root.addChild(newNode(e.path, e.fc))
	}
	return root
}

func pkgTree(entries []fileEntry) *Node {
	var dirs []*Node
	byPath := make(map[string]*Node)
	for _, e := range entries {
		dir := e.path.parent()
		node, ok := byPath[dir.String()]
		if !ok {
			node = newNode(dir, nil)
			byPath[dir.String()] = node
			dirs = append(dirs, node)
		}
		node.addChild(newNode(e.path, e.fc))
	}

	if len(dirs) == 1 {
		return dirs[0]
	}
	root := newNode(nil, nil)
	for _, d := range dirs {
		root.addChild(d)
	}
	return root
}

func nestedTree(entries []fileEntry) *Node {
	root := newNode(nil, nil)
	byPath := map[string]*Node{"": root}

	var dirFor func(p nodePath) *Node
	dirFor = func(p nodePath) *Node {
		if node, ok := byPath[p.String()]; ok {
			return node
		}
		node := newNode(p, nil)
		byPath[p.String()] = node
		dirFor(p.parent()).addChild(node)
		return node
	}

	for _, e := range entries {
		dirFor(e.path.parent()).addChild(newNode(e.path, e.fc))
	}
	return root
}
