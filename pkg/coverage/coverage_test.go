package coverage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) *Map {
	t.Helper()
	m, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return m
}

func TestPercent(t *testing.T) {
	tests := []struct {
		covered, total int
		want           float64
	}{
		{0, 0, 100},
		{0, 4, 0},
		{3, 4, 75},
		{1, 3, 33.33},
		{2, 3, 66.66},
		{8, 9, 88.88},
		{9, 9, 100},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percent(tt.covered, tt.total), 1e-9, "Percent(%d, %d)", tt.covered, tt.total)
	}
}

func TestLineCoverage(t *testing.T) {
	m := loadFixture(t, "branches.json")
	fc, err := m.FileCoverageFor("/work/app/lib/core/engine.js")
	require.NoError(t, err)

	// Line 6 carries two unhit statements; line 3 keeps the larger count.
	assert.Equal(t, map[int]int{1: 1, 3: 4, 4: 4, 6: 0}, fc.LineCoverage())
	assert.Equal(t, []int{6}, fc.UncoveredLines())
}

func TestBranchCoverageByLine(t *testing.T) {
	m := loadFixture(t, "branches.json")

	engine, err := m.FileCoverageFor("/work/app/lib/core/engine.js")
	require.NoError(t, err)
	assert.Equal(t, map[int]BranchLineCoverage{
		3: {Coverage: 50, Covered: 1, Total: 2},
	}, engine.BranchCoverageByLine())

	// Both branches of loop.js start on line 2 and are pooled.
	loop, err := m.FileCoverageFor("/work/app/lib/core/loop.js")
	require.NoError(t, err)
	assert.Equal(t, map[int]BranchLineCoverage{
		2: {Coverage: 75, Covered: 3, Total: 4},
	}, loop.BranchCoverageByLine())

	strs, err := m.FileCoverageFor("/work/app/lib/util/strings.js")
	require.NoError(t, err)
	assert.Empty(t, strs.BranchCoverageByLine())
}

func TestFileSummary(t *testing.T) {
	m := loadFixture(t, "branches.json")
	fc, err := m.FileCoverageFor("/work/app/lib/core/engine.js")
	require.NoError(t, err)

	s := fc.Summary()
	assert.Equal(t, Totals{Total: 4, Covered: 3, Pct: 75}, s.Lines)
	assert.Equal(t, Totals{Total: 5, Covered: 3, Pct: 60}, s.Statements)
	assert.Equal(t, Totals{Total: 2, Covered: 1, Pct: 50}, s.Functions)
	assert.Equal(t, Totals{Total: 2, Covered: 1, Pct: 50}, s.Branches)
}

func TestMapSummary(t *testing.T) {
	m := loadFixture(t, "branches.json")

	s := m.Summary()
	assert.Equal(t, 9, s.Lines.Total)
	assert.Equal(t, 8, s.Lines.Covered)
	assert.InDelta(t, 88.88, s.Lines.Pct, 1e-9)
	assert.Equal(t, 6, s.Branches.Total)
	assert.Equal(t, 4, s.Branches.Covered)
	assert.InDelta(t, 66.66, s.Branches.Pct, 1e-9)
}

func TestEmptyBranchesAreFullyCovered(t *testing.T) {
	m := loadFixture(t, "simple.json")
	fc, err := m.FileCoverageFor("src/a.js")
	require.NoError(t, err)

	s := fc.Summary()
	assert.Equal(t, 0, s.Branches.Total)
	assert.Equal(t, float64(100), s.Branches.Pct)
	assert.Equal(t, Totals{Total: 2, Covered: 1, Pct: 50}, s.Lines)
}

func TestFunctionKeysNumericOrder(t *testing.T) {
	fc := NewFileCoverage("x.js")
	for _, id := range []string{"10", "2", "0", "1"} {
		fc.FnMap[id] = FunctionMapping{Name: "fn" + id}
	}
	assert.Equal(t, []string{"0", "1", "2", "10"}, fc.FunctionKeys())
}

func TestDeclLineFallbacks(t *testing.T) {
	assert.Equal(t, 4, FunctionMapping{Decl: Range{Start: Position{Line: 4}}, Line: 9}.DeclLine())
	assert.Equal(t, 7, FunctionMapping{Loc: Range{Start: Position{Line: 7}}, Line: 9}.DeclLine())
	assert.Equal(t, 9, FunctionMapping{Line: 9}.DeclLine())
}

func TestParseUsesKeyWhenPathMissing(t *testing.T) {
	m, err := Parse([]byte(`{"lib/x.js": {"statementMap": {}, "s": {}}}`))
	require.NoError(t, err)

	fc, err := m.FileCoverageFor("lib/x.js")
	require.NoError(t, err)
	assert.Equal(t, "lib/x.js", fc.Path)
	assert.NotNil(t, fc.FnMap)
}

func TestParseLegacyEnvelope(t *testing.T) {
	doc := `{"a.js": {"data": {"path": "a.js", "statementMap": {"0": {"start": {"line": 3}, "end": {"line": 3}}}, "s": {"0": 2}}}}`
	m, err := Parse([]byte(doc))
	require.NoError(t, err)

	fc, err := m.FileCoverageFor("a.js")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{3: 2}, fc.LineCoverage())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"a.js": {"s": "nope"}}`))
	assert.Error(t, err)
}

func TestFileCoverageForMissing(t *testing.T) {
	_, err := NewMap().FileCoverageFor("nope.js")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestMergeAddsHits(t *testing.T) {
	a := loadFixture(t, "simple.json")
	b := loadFixture(t, "simple.json")

	a.Merge(b)
	require.Equal(t, 1, a.Len())

	fc, err := a.FileCoverageFor("src/a.js")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 10, 2: 0}, fc.LineCoverage())
	assert.Equal(t, 10, fc.F["0"])

	// The source map must not be aliased by the merge.
	orig, err := b.FileCoverageFor("src/a.js")
	require.NoError(t, err)
	assert.Equal(t, 5, orig.F["0"])
}

func TestMergeDisjointMaps(t *testing.T) {
	m := loadFixture(t, "simple.json")
	m.Merge(loadFixture(t, "branches.json"))

	assert.Equal(t, []string{
		"/work/app/lib/core/engine.js",
		"/work/app/lib/core/loop.js",
		"/work/app/lib/util/strings.js",
		"src/a.js",
	}, m.Files())
}

func TestMergeGrowsBranchArms(t *testing.T) {
	a := NewFileCoverage("x.js")
	a.B["0"] = []int{1}
	b := NewFileCoverage("x.js")
	b.BranchMap["0"] = BranchMapping{Line: 2}
	b.B["0"] = []int{1, 3}

	a.Merge(b)
	assert.Equal(t, []int{2, 3}, a.B["0"])
}

func TestFilter(t *testing.T) {
	m := loadFixture(t, "branches.json")
	m.Filter(func(path string) bool {
		return filepath.Base(filepath.Dir(path)) == "core"
	})
	assert.Equal(t, 2, m.Len())
}
