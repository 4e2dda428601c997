package merge

import "strings"

// blockSplit is one heading-delimited section of a document body. The
// zero-th block (before the first top-level heading) carries an empty
// Heading.
type blockSplit struct {
	Heading string
	Content string
}

// isTopHeading reports whether a line opens a top-level heading ("# "),
// as distinct from a sub-heading ("## " or deeper).
func isTopHeading(line string) bool {
	return strings.HasPrefix(line, "# ") || line == "#"
}

// splitByHeadings splits body into ordered blocks on top-level heading
// lines, preserving each block's content (including its heading line)
// verbatim.
func splitByHeadings(body string) []blockSplit {
	lines := strings.Split(body, "\n")

	var blocks []blockSplit
	var cur []string
	heading := ""
	flush := func() {
		if len(cur) == 0 && heading == "" {
			return
		}
		blocks = append(blocks, blockSplit{Heading: heading, Content: strings.Join(cur, "\n")})
	}

	for _, line := range lines {
		if isTopHeading(line) {
			flush()
			heading = line
			cur = []string{line}
			continue
		}
		cur = append(cur, line)
	}
	flush()

	return blocks
}

// headingOrder returns the order blocks should be emitted in: base's
// headings in their original order, then any heading introduced only by
// source (in source's order), then any introduced only by dest.
func headingOrder(base map[string]string, baseOrder, sourceOrder, destOrder []string) []string {
	seen := make(map[string]struct{})
	var order []string
	add := func(h string) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		order = append(order, h)
	}
	for _, h := range baseOrder {
		add(h)
	}
	for _, h := range sourceOrder {
		if _, inBase := base[h]; !inBase {
			add(h)
		}
	}
	for _, h := range destOrder {
		if _, inBase := base[h]; !inBase {
			add(h)
		}
	}
	return order
}

func toMapOrdered(blocks []blockSplit) (m map[string]string, order []string) {
	m = make(map[string]string, len(blocks))
	order = make([]string, 0, len(blocks))
	for _, b := range blocks {
		if _, exists := m[b.Heading]; !exists {
			order = append(order, b.Heading)
		}
		m[b.Heading] = b.Content
	}
	return m, order
}

// Hunk is a pair of competing block contents that three-way merge could
// not auto-resolve, located within Result.Merged by byte offset.
type Hunk struct {
	Heading       string
	SourceContent string
	DestContent   string
	ByteStart     int
	ByteEnd       int
}

// Result is the outcome of a body merge. When Hunks is non-empty,
// Merged already has conflict markers embedded at each hunk's location;
// the applier decides, based on whether any hunks remain, whether to
// treat Merged as the real update or as conflict-file content.
type Result struct {
	Merged string
	Hunks  []Hunk
}

// Labels names the two sides for embedded conflict markers.
type Labels struct {
	Source string
	Dest   string
}

// MergeBody three-way merges base, source, and destination bodies,
// block-wise over top-level heading boundaries. Per block: unchanged on
// both sides keeps the base; a change on one side only takes that side;
// identical changes, or one side a prefix of the other, take that
// content (the longer one for a prefix); anything else becomes a hunk
// rendered with conflict markers. Blocks absent from the base are
// resolved the same way between the two sides, or taken as-is when
// only one side has them.
func MergeBody(base, source, dest string, labels Labels) Result {
	baseBlocks := splitByHeadings(base)
	sourceBlocks := splitByHeadings(source)
	destBlocks := splitByHeadings(dest)

	baseMap, baseOrder := toMapOrdered(baseBlocks)
	sourceMap, sourceOrder := toMapOrdered(sourceBlocks)
	destMap, destOrder := toMapOrdered(destBlocks)

	order := headingOrder(baseMap, baseOrder, sourceOrder, destOrder)

	var b strings.Builder
	var hunks []Hunk

	writeBlock := func(content string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}

	for _, h := range order {
		baseVal, inBase := baseMap[h]
		srcVal, inSrc := sourceMap[h]
		dstVal, inDst := destMap[h]

		var resolved string
		var hunk Hunk
		var ok bool

		switch {
		case inBase:
			resolved, hunk, ok = resolveAgainstBase(h, baseVal, srcVal, inSrc, dstVal, inDst)
		case inSrc && inDst:
			resolved, hunk, ok = resolveNewOnBoth(h, srcVal, dstVal)
		case inSrc:
			resolved, ok = srcVal, true
		case inDst:
			resolved, ok = dstVal, true
		}

		if ok {
			if resolved != "" {
				writeBlock(resolved)
			}
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		start := b.Len()
		b.WriteString(renderConflictMarkers(hunk, labels))
		hunk.ByteStart = start
		hunk.ByteEnd = b.Len()
		hunks = append(hunks, hunk)
	}

	return Result{Merged: b.String(), Hunks: hunks}
}

func resolveAgainstBase(heading, base string, src string, inSrc bool, dst string, inDst bool) (resolved string, hunk Hunk, ok bool) {
	srcVal := src
	if !inSrc {
		srcVal = ""
	}
	dstVal := dst
	if !inDst {
		dstVal = ""
	}

	srcChanged := srcVal != base
	dstChanged := dstVal != base

	switch {
	case !srcChanged && !dstChanged:
		return base, Hunk{}, true
	case srcChanged && !dstChanged:
		return srcVal, Hunk{}, true
	case !srcChanged && dstChanged:
		return dstVal, Hunk{}, true
	default:
		if srcVal == dstVal {
			return srcVal, Hunk{}, true
		}
		if longer, resolved := prefixContainment(srcVal, dstVal); resolved {
			return longer, Hunk{}, true
		}
		return "", Hunk{Heading: heading, SourceContent: srcVal, DestContent: dstVal}, false
	}
}

func resolveNewOnBoth(heading, src, dst string) (resolved string, hunk Hunk, ok bool) {
	if src == dst {
		return src, Hunk{}, true
	}
	if longer, resolved := prefixContainment(src, dst); resolved {
		return longer, Hunk{}, true
	}
	return "", Hunk{Heading: heading, SourceContent: src, DestContent: dst}, false
}

// prefixContainment implements the append-mostly heuristic: if one
// side's content is a strict prefix of the other, ignoring trailing
// whitespace, that is not a conflict — take the longer version.
func prefixContainment(a, b string) (longer string, ok bool) {
	ta := strings.TrimRight(a, " \t\n")
	tb := strings.TrimRight(b, " \t\n")
	switch {
	case strings.HasPrefix(tb, ta):
		return b, true
	case strings.HasPrefix(ta, tb):
		return a, true
	default:
		return "", false
	}
}

// MarkerSize is the conflict-marker width, matching diff3's
// conventional seven-character fence.
const MarkerSize = 7

func renderConflictMarkers(h Hunk, labels Labels) string {
	open := strings.Repeat("<", MarkerSize)
	sep := strings.Repeat("=", MarkerSize)
	closeFence := strings.Repeat(">", MarkerSize)
	return open + " " + labels.Source + "\n" + h.SourceContent + "\n" + sep + "\n" + h.DestContent + "\n" + closeFence + " " + labels.Dest
}
