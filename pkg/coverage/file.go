package coverage

// FileCoverage is the istanbul coverage record for one source file.
type FileCoverage struct {
	Path         string                     `json:"path"`
	StatementMap map[string]Range           `json:"statementMap"`
	FnMap        map[string]FunctionMapping `json:"fnMap"`
	BranchMap    map[string]BranchMapping   `json:"branchMap"`
	S            map[string]int             `json:"s"`
	F            map[string]int             `json:"f"`
	B            map[string][]int           `json:"b"`
}

// NewFileCoverage returns an empty record for path.
func NewFileCoverage(path string) *FileCoverage {
	fc := &FileCoverage{Path: path}
	fc.init()
	return fc
}

func (fc *FileCoverage) init() {
	if fc.StatementMap == nil {
		fc.StatementMap = make(map[string]Range)
	}
	if fc.FnMap == nil {
		fc.FnMap = make(map[string]FunctionMapping)
	}
	if fc.BranchMap == nil {
		fc.BranchMap = make(map[string]BranchMapping)
	}
	if fc.S == nil {
		fc.S = make(map[string]int)
	}
	if fc.F == nil {
		fc.F = make(map[string]int)
	}
	if fc.B == nil {
		fc.B = make(map[string][]int)
	}
}

// FunctionKeys returns the function ids in declaration order.
func (fc *FileCoverage) FunctionKeys() []string {
	return sortedKeys(fc.FnMap)
}

// LineCoverage maps each line that starts a statement to the highest hit
// count among the statements on it.
func (fc *FileCoverage) LineCoverage() map[int]int {
	lines := make(map[int]int)
	for id, loc := range fc.StatementMap {
		line := loc.Start.Line
		count := fc.S[id]
		if prev, ok := lines[line]; !ok || prev < count {
			lines[line] = count
		}
	}
	return lines
}

// UncoveredLines returns the lines whose statements were never hit.
func (fc *FileCoverage) UncoveredLines() []int {
	var out []int
	lines := fc.LineCoverage()
	for _, line := range SortedLines(lines) {
		if lines[line] == 0 {
			out = append(out, line)
		}
	}
	return out
}

// BranchCoverageByLine pools the arms of every branch starting on the same
// line. Lines without a branch are absent from the result.
func (fc *FileCoverage) BranchCoverageByLine() map[int]BranchLineCoverage {
	arms := make(map[int][]int)
	for _, id := range sortedKeys(fc.BranchMap) {
		line := fc.BranchMap[id].StartLine()
		arms[line] = append(arms[line], fc.B[id]...)
	}

	out := make(map[int]BranchLineCoverage, len(arms))
	for line, counts := range arms {
		covered := 0
		for _, c := range counts {
			if c > 0 {
				covered++
			}
		}
		var pct float64
		if len(counts) > 0 {
			pct = float64(covered) / float64(len(counts)) * 100
		}
		out[line] = BranchLineCoverage{Coverage: pct, Covered: covered, Total: len(counts)}
	}
	return out
}

// Summary computes the file's totals.
func (fc *FileCoverage) Summary() *Summary {
	s := NewSummary()

	lines := fc.LineCoverage()
	s.Lines = newTotals(len(lines), countHit(lines))
	s.Statements = newTotals(len(fc.S), countHit(fc.S))
	s.Functions = newTotals(len(fc.F), countHit(fc.F))

	total, covered := 0, 0
	for _, arms := range fc.B {
		for _, c := range arms {
			total++
			if c > 0 {
				covered++
			}
		}
	}
	s.Branches = newTotals(total, covered)
	return s
}

func countHit[K comparable](m map[K]int) int {
	n := 0
	for _, v := range m {
		if v > 0 {
			n++
		}
	}
	return n
}

// Merge adds other's hit counts into fc. Ids unknown to fc are copied over
// together with their mappings.
func (fc *FileCoverage) Merge(other *FileCoverage) {
	if other == nil {
		return
	}
	fc.init()

	for id, hits := range other.S {
		if _, ok := fc.StatementMap[id]; !ok {
			fc.StatementMap[id] = other.StatementMap[id]
		}
		fc.S[id] += hits
	}
	for id, hits := range other.F {
		if _, ok := fc.FnMap[id]; !ok {
			fc.FnMap[id] = other.FnMap[id]
		}
		fc.F[id] += hits
	}
	for id, arms := range other.B {
		if _, ok := fc.BranchMap[id]; !ok {
			fc.BranchMap[id] = other.BranchMap[id]
		}
		dst := fc.B[id]
		if len(dst) < len(arms) {
			grown := make([]int, len(arms))
			copy(grown, dst)
			dst = grown
		}
		for i, c := range arms {
			dst[i] += c
		}
		fc.B[id] = dst
	}
}

// Clone returns a deep copy of fc.
func (fc *FileCoverage) Clone() *FileCoverage {
	out := NewFileCoverage(fc.Path)
	out.Merge(fc)
	for id, loc := range fc.StatementMap {
		out.StatementMap[id] = loc
	}
	for id, fn := range fc.FnMap {
		out.FnMap[id] = fn
	}
	for id, br := range fc.BranchMap {
		out.BranchMap[id] = br
	}
	return out
}
