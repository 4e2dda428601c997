// Package selector resolves include/exclude glob pattern sets against a
// vault root to a finite, stable set of regular-file paths.
package selector

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude is used when a vault's configuration specifies no
// include patterns.
var DefaultInclude = []string{"**/*"}

// DefaultExclude covers Cast's own bookkeeping directory and the common
// version-control and editor directories seen across the retrieval pack.
var DefaultExclude = []string{".cast/**", ".git/**", ".obsidian/**"}

// Select walks root and returns the relative (forward-slash) paths of
// regular files matching at least one include pattern and no exclude
// pattern. Symbolic links are never followed. Hidden files and
// directories (dot-prefixed segments) are excluded unless an include
// pattern explicitly names a dot segment. Output is sorted, so repeated
// calls over an unchanged filesystem are stable.
func Select(root string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if isHidden(rel) && !includesHidden(include, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !matchAny(include, rel) {
			return nil
		}
		if matchAny(exclude, rel) {
			return nil
		}

		matches = append(matches, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// isHidden reports whether any path segment begins with a dot.
func isHidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// includesHidden reports whether an include pattern explicitly opts into
// a dot-prefixed segment matching rel.
func includesHidden(include []string, rel string) bool {
	for _, p := range include {
		if strings.Contains(p, "/.") || strings.HasPrefix(p, ".") {
			ok, err := doublestar.Match(p, rel)
			if err == nil && ok {
				return true
			}
		}
	}
	return false
}
