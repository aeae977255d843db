package lsp

import (
	"strings"
	"unicode/utf8"
)

// applyChanges folds a batch of content changes into the stored text. A
// change without a range replaces the whole document.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := clampOffset(offsetForPosition(text, change.Range.Start), len(text))
		end := clampOffset(offsetForPosition(text, change.Range.End), len(text))
		if end < start {
			end = start
		}
		var b strings.Builder
		b.Grow(len(text) - (end - start) + len(change.Text))
		b.WriteString(text[:start])
		b.WriteString(change.Text)
		b.WriteString(text[end:])
		text = b.String()
	}
	return text
}

func clampOffset(off, limit int) int {
	if off < 0 {
		return 0
	}
	if off > limit {
		return limit
	}
	return off
}

// offsetForPosition maps an LSP position (0-based line, UTF-16 character
// units) to a byte offset within text. Out-of-range positions clamp to the
// nearest valid offset.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	lineStart := 0
	for l := 0; l < pos.Line; l++ {
		next := strings.IndexByte(text[lineStart:], '\n')
		if next < 0 {
			return len(text)
		}
		lineStart += next + 1
	}
	units := 0
	for i := lineStart; i < len(text); {
		if text[i] == '\n' {
			return i
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		width := 1
		if r > 0xFFFF {
			width = 2
		}
		if units+width > pos.Character {
			return i
		}
		units += width
		i += size
		if units == pos.Character {
			return i
		}
	}
	return len(text)
}
