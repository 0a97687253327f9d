// Package report builds a tree of summary (directory) and detail (file)
// nodes over a coverage map and drives visitors across it.
package report

import (
	"strings"

	"github.com/panbanda/covreport/pkg/coverage"
)

// nodePath is a sequence of path segments relative to the tree's common parent.
type nodePath []string

func splitPath(p string) nodePath {
	p = strings.ReplaceAll(p, "\\", "/")
	var out nodePath
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (p nodePath) String() string {
	return strings.Join(p, "/")
}

func (p nodePath) parent() nodePath {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// ancestorOf reports whether p is a strict prefix of other.
func (p nodePath) ancestorOf(other nodePath) bool {
	if len(other) <= len(p) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Node is one entry of the report tree. Summary nodes group files; detail
// nodes wrap the coverage of a single file.
type Node struct {
	path         nodePath
	parent       *Node
	children     []*Node
	fileCoverage *coverage.FileCoverage

	full      *coverage.Summary
	filesOnly *coverage.Summary
	computed  [2]bool
}

func newNode(path nodePath, fc *coverage.FileCoverage) *Node {
	return &Node{path: path, fileCoverage: fc}
}

func (n *Node) addChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

// Parent returns the enclosing summary node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// IsSummary reports whether the node groups other nodes rather than a file.
func (n *Node) IsSummary() bool {
	return n.fileCoverage == nil
}

// FileCoverage returns the file record of a detail node, nil otherwise.
func (n *Node) FileCoverage() *coverage.FileCoverage {
	return n.fileCoverage
}

// QualifiedName is the node path relative to the tree's common parent.
func (n *Node) QualifiedName() string {
	return n.path.String()
}

// RelativeName is the node path relative to its parent.
func (n *Node) RelativeName() string {
	var parentPath nodePath
	if n.parent != nil {
		parentPath = n.parent.path
	}
	if parentPath.ancestorOf(n.path) {
		return n.path[len(parentPath):].String()
	}
	return n.path.String()
}

// CoverageSummary returns the node's totals. For detail nodes this is the
// file summary. For summary nodes it aggregates every descendant, or only
// the direct file children when filesOnly is set; in that case a node with
// no file children yields nil.
func (n *Node) CoverageSummary(filesOnly bool) *coverage.Summary {
	idx := 0
	if filesOnly {
		idx = 1
	}
	if n.computed[idx] {
		if filesOnly {
			return n.filesOnly
		}
		return n.full
	}

	var summary *coverage.Summary
	if !n.IsSummary() {
		summary = n.fileCoverage.Summary()
	} else {
		count := 0
		summary = coverage.NewSummary()
		for _, child := range n.children {
			if filesOnly && child.IsSummary() {
				continue
			}
			count++
			summary.Merge(child.CoverageSummary(filesOnly))
		}
		if count == 0 && filesOnly {
			summary = nil
		}
	}

	n.computed[idx] = true
	if filesOnly {
		n.filesOnly = summary
	} else {
		n.full = summary
	}
	return summary
}
