package cobertura

import (
	"path/filepath"
	"strings"
)

// GreatestCommonPath returns the longest run of leading directory segments
// shared by the directories of paths, with a trailing separator. A single
// path yields its own directory unchanged.
func GreatestCommonPath(paths []string) string {
	switch len(paths) {
	case 0:
		return ""
	case 1:
		return filepath.Dir(filepath.Clean(paths[0]))
	}

	segments := make([][]string, len(paths))
	for i, p := range paths {
		dir := filepath.ToSlash(filepath.Dir(filepath.Clean(p)))
		segments[i] = strings.Split(dir, "/")
	}

	var common []string
	for i := 0; ; i++ {
		seg, ok := segmentAt(segments, i)
		if !ok {
			break
		}
		common = append(common, seg)
	}
	if len(common) == 0 {
		return ""
	}
	return filepath.FromSlash(strings.Join(common, "/") + "/")
}

// segmentAt returns the segment at index i if every sequence has the same one.
func segmentAt(segments [][]string, i int) (string, bool) {
	if i >= len(segments[0]) {
		return "", false
	}
	seg := segments[0][i]
	for _, s := range segments[1:] {
		if i >= len(s) || s[i] != seg {
			return "", false
		}
	}
	return seg, true
}

// PackageName turns a directory into a dotted package name relative to
// projectRoot.
func PackageName(projectRoot, dir string) string {
	rel := relativeTo(projectRoot, dir)
	if rel == "." {
		rel = ""
	}
	name := strings.NewReplacer("/", ".", `\`, ".").Replace(rel)
	return strings.TrimSuffix(name, ".")
}

// ClassName is the final segment of a file path.
func ClassName(path string) string {
	path = filepath.Clean(path)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// relativeTo makes path relative to root. Relative paths are taken to be
// relative to root already.
func relativeTo(root, path string) string {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
