package fix

import (
	"sort"
	"strings"

	"yangls/internal/diag"
	"yangls/internal/source"
	"yangls/internal/yang"
)

// indentStep is one additional level of nesting inside the merged block.
const indentStep = "  "

// MergeDeviations builds the edit set that folds every deviation block for
// one target into the first occurrence. The bodies keep their document order
// and are separated by a single blank line. It needs at least two
// occurrences; with fewer there is nothing to merge and ok is false.
func MergeDeviations(f *source.File, target string, occurrences []source.Span) (diag.Fix, bool) {
	if f == nil || len(occurrences) < 2 {
		return diag.Fix{}, false
	}
	occ := make([]source.Span, len(occurrences))
	copy(occ, occurrences)
	sort.Slice(occ, func(i, j int) bool { return occ[i].Start < occ[j].Start })

	text := string(f.Content)

	base := lineIndent(text, int(occ[0].Start))
	child := base + indentStep

	header := ""
	bodies := make([]string, 0, len(occ))
	for i, sp := range occ {
		open, close, ok := blockBounds(text, sp)
		if !ok {
			return diag.Fix{}, false
		}
		if i == 0 {
			header = strings.TrimRight(text[sp.Start:open], " \t")
		}
		bodies = append(bodies, reindent(text[open+1:close], child))
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString(" {\n")
	b.WriteString(strings.Join(bodies, "\n\n"))
	b.WriteString("\n")
	b.WriteString(base)
	b.WriteString("}")

	edits := make([]diag.TextEdit, 0, len(occ))
	edits = append(edits, diag.TextEdit{
		Span:    occ[0],
		NewText: b.String(),
		OldText: text[occ[0].Start:occ[0].End],
	})
	for _, sp := range occ[1:] {
		edits = append(edits, diag.TextEdit{
			Span:    sp,
			OldText: text[sp.Start:sp.End],
		})
	}

	return diag.Fix{
		ID:          "merge-deviations:" + target,
		Title:       "Merge duplicate deviation blocks for " + target,
		IsPreferred: true,
		Edits:       edits,
	}, true
}

// blockBounds locates the outermost brace pair of the block covered by sp.
func blockBounds(text string, sp source.Span) (open, close int, ok bool) {
	if sp.Start >= sp.End || int(sp.End) > len(text) {
		return 0, 0, false
	}
	rel := strings.IndexByte(text[sp.Start:sp.End], '{')
	if rel < 0 {
		return 0, 0, false
	}
	open = int(sp.Start) + rel
	close = yang.MatchBrace(text, open)
	if close <= open {
		return 0, 0, false
	}
	return open, close, true
}

// lineIndent returns the leading whitespace of the line containing off.
func lineIndent(text string, off int) string {
	if off > len(text) {
		off = len(text)
	}
	ls := strings.LastIndexByte(text[:off], '\n') + 1
	i := ls
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return text[ls:i]
}

// reindent strips the common leading whitespace of a block body and
// re-prefixes every non-blank line with indent.
func reindent(body, indent string) string {
	lines := strings.Split(strings.TrimRight(body, " \t\r\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	width := -1
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		w := 0
		for w < len(ln) && (ln[w] == ' ' || ln[w] == '\t') {
			w++
		}
		if width < 0 || w < width {
			width = w
		}
	}
	if width < 0 {
		return ""
	}
	out := make([]string, len(lines))
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out[i] = indent + ln[width:]
	}
	return strings.Join(out, "\n")
}
