package index

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RuleSelector narrows an index snapshot to the entries a sync rule
// applies to, mirroring the pre-distillation selection criteria
// (paths_any, types, categories, tags_any, tags_all) that the distilled
// planner spec otherwise leaves implicit as "the union of source and
// destination."
type RuleSelector struct {
	PathsAny   []string
	Types      []string
	Categories []string
	TagsAny    []string
	TagsAll    []string
}

// Matches reports whether an entry satisfies every configured criterion;
// an empty criterion is treated as unconstrained.
func (r RuleSelector) Matches(e *Entry) bool {
	if len(r.PathsAny) > 0 && !matchAnyPath(r.PathsAny, e.Path) {
		return false
	}
	if len(r.Types) > 0 && !contains(r.Types, e.DocType) {
		return false
	}
	if len(r.Categories) > 0 && !contains(r.Categories, e.Category) {
		return false
	}
	if len(r.TagsAny) > 0 && !intersects(r.TagsAny, e.Tags) {
		return false
	}
	if len(r.TagsAll) > 0 && !containsAll(e.Tags, r.TagsAll) {
		return false
	}
	return true
}

// Select filters entries by the rule.
func (r RuleSelector) Select(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if r.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// IsHub reports whether an entry is a folder-note: either its filename
// (without extension) matches its parent directory's name, or its
// document type is explicitly "Hub".
func IsHub(e *Entry) bool {
	if e.DocType == "Hub" {
		return true
	}
	stem := strings.TrimSuffix(path.Base(e.Path), path.Ext(e.Path))
	parent := path.Base(path.Dir(e.Path))
	return stem != "" && stem == parent
}

// FilterHubs removes hub/folder-note entries from entries.
func FilterHubs(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if !IsHub(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchAnyPath(patterns []string, p string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, p); err == nil && ok {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		if !contains(haystack, n) {
			return false
		}
	}
	return true
}
