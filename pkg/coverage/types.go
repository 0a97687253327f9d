// Package coverage models istanbul-format code coverage: per-file statement,
// function and branch hit counts plus the summaries derived from them.
package coverage

import (
	"sort"
	"strconv"
)

// Position is a line/column location in a source file. Lines are 1-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// FunctionMapping describes a function declared in a file.
type FunctionMapping struct {
	Name string `json:"name"`
	Decl Range  `json:"decl"`
	Loc  Range  `json:"loc"`
	Line int    `json:"line,omitempty"`
}

// DeclLine returns the line the function is declared on. Older coverage
// producers omit decl, so loc and the legacy line field are consulted in turn.
func (m FunctionMapping) DeclLine() int {
	switch {
	case m.Decl.Start.Line > 0:
		return m.Decl.Start.Line
	case m.Loc.Start.Line > 0:
		return m.Loc.Start.Line
	default:
		return m.Line
	}
}

// BranchMapping describes a branch point and the locations of its arms.
type BranchMapping struct {
	Type      string  `json:"type"`
	Loc       Range   `json:"loc"`
	Locations []Range `json:"locations"`
	Line      int     `json:"line,omitempty"`
}

// StartLine returns the line the branch begins on.
func (m BranchMapping) StartLine() int {
	if m.Line > 0 {
		return m.Line
	}
	return m.Loc.Start.Line
}

// BranchLineCoverage pools every branch arm that starts on one line.
type BranchLineCoverage struct {
	Coverage float64 `json:"coverage"`
	Covered  int     `json:"covered"`
	Total    int     `json:"total"`
}

// sortedKeys orders istanbul map ids numerically when they are numbers
// and lexically otherwise.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// SortedLines returns the keys of a per-line map in ascending order.
func SortedLines[T any](m map[int]T) []int {
	lines := make([]int, 0, len(m))
	for line := range m {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}
