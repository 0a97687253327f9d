package coverage

import (
	"fmt"
	"math"
)

// Totals holds the counts for one coverage metric.
type Totals struct {
	Total   int     `json:"total"`
	Covered int     `json:"covered"`
	Skipped int     `json:"skipped"`
	Pct     float64 `json:"pct"`
}

// Percent computes covered/total as a percentage truncated to two decimals.
// An empty metric counts as fully covered.
func Percent(covered, total int) float64 {
	if total <= 0 {
		return 100
	}
	tmp := float64(1000*100*covered) / float64(total)
	return math.Floor(tmp/10) / 100
}

func newTotals(total, covered int) Totals {
	return Totals{Total: total, Covered: covered, Pct: Percent(covered, total)}
}

func (t *Totals) add(other Totals) {
	t.Total += other.Total
	t.Covered += other.Covered
	t.Skipped += other.Skipped
	t.Pct = Percent(t.Covered, t.Total)
}

// Summary aggregates line, statement, function and branch totals.
type Summary struct {
	Lines      Totals `json:"lines"`
	Statements Totals `json:"statements"`
	Functions  Totals `json:"functions"`
	Branches   Totals `json:"branches"`
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		Lines:      newTotals(0, 0),
		Statements: newTotals(0, 0),
		Functions:  newTotals(0, 0),
		Branches:   newTotals(0, 0),
	}
}

// Merge adds other's counts into s and recomputes percentages.
func (s *Summary) Merge(other *Summary) *Summary {
	if other == nil {
		return s
	}
	s.Lines.add(other.Lines)
	s.Statements.add(other.Statements)
	s.Functions.add(other.Functions)
	s.Branches.add(other.Branches)
	return s
}

// IsEmpty reports whether the summary has nothing to cover.
func (s *Summary) IsEmpty() bool {
	return s.Lines.Total == 0
}

func (s *Summary) String() string {
	return fmt.Sprintf("lines %d/%d (%.2f%%), branches %d/%d (%.2f%%)",
		s.Lines.Covered, s.Lines.Total, s.Lines.Pct,
		s.Branches.Covered, s.Branches.Total, s.Branches.Pct)
}
