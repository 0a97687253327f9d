package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrFileNotFound is returned when a map holds no coverage for a path.
var ErrFileNotFound = errors.New("no file coverage for path")

// Map holds file coverage keyed by file path.
type Map struct {
	files map[string]*FileCoverage
}

// NewMap creates an empty coverage map.
func NewMap() *Map {
	return &Map{files: make(map[string]*FileCoverage)}
}

// Parse decodes an istanbul coverage JSON document: an object whose values
// are file coverage records. Records without a path take their key.
func Parse(data []byte) (*Map, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode coverage map: %w", err)
	}

	m := NewMap()
	for key, msg := range raw {
		fc, err := parseFileCoverage(msg)
		if err != nil {
			return nil, fmt.Errorf("decode coverage for %s: %w", key, err)
		}
		if fc.Path == "" {
			fc.Path = key
		}
		m.AddFileCoverage(fc)
	}
	return m, nil
}

// parseFileCoverage also accepts the legacy {"data": {...}} envelope.
func parseFileCoverage(msg json.RawMessage) (*FileCoverage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) > 0 {
		msg = envelope.Data
	}

	var fc FileCoverage
	if err := json.Unmarshal(msg, &fc); err != nil {
		return nil, err
	}
	fc.init()
	return &fc, nil
}

// Load reads and parses a coverage JSON file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// AddFileCoverage stores fc, merging hit counts when the path is already present.
func (m *Map) AddFileCoverage(fc *FileCoverage) {
	if existing, ok := m.files[fc.Path]; ok {
		existing.Merge(fc)
		return
	}
	m.files[fc.Path] = fc.Clone()
}

// Merge folds every file of other into m.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	for _, path := range other.Files() {
		m.AddFileCoverage(other.files[path])
	}
}

// Files returns the covered paths in sorted order.
func (m *Map) Files() []string {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files in the map.
func (m *Map) Len() int {
	return len(m.files)
}

// FileCoverageFor returns the record for path.
func (m *Map) FileCoverageFor(path string) (*FileCoverage, error) {
	fc, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	return fc, nil
}

// Filter drops every file for which keep returns false.
func (m *Map) Filter(keep func(path string) bool) {
	for p := range m.files {
		if !keep(p) {
			delete(m.files, p)
		}
	}
}

// Summary aggregates the totals of every file.
func (m *Map) Summary() *Summary {
	s := NewSummary()
	for _, fc := range m.files {
		s.Merge(fc.Summary())
	}
	return s
}

// MarshalJSON writes the map back in istanbul format.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.files)
}
