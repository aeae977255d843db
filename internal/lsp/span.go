package lsp

import (
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"

	"yangls/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// utf16Width is the number of UTF-16 code units a rune occupies, which is
// what LSP character offsets count.
func utf16Width(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// lineBounds returns the byte range of a 0-based line, newline excluded.
func lineBounds(file *source.File, line int) (uint32, uint32) {
	var start uint32
	if line > 0 {
		start = file.LineIdx[line-1] + 1
	}
	end := safeUint32(len(file.Content))
	if line < len(file.LineIdx) {
		end = file.LineIdx[line]
	}
	if start > end {
		start = end
	}
	return start, end
}

// offsetForPositionInFile converts an LSP position (0-based line, UTF-16
// character units) into a byte offset. Positions past the end clamp.
func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil || pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	if len(file.Content) == 0 {
		return 0
	}
	if pos.Line >= len(file.LineIdx)+1 {
		return safeUint32(len(file.Content))
	}

	start, end := lineBounds(file, pos.Line)
	units := 0
	off := start
	for off < end {
		r, size := utf8.DecodeRune(file.Content[off:end])
		w := utf16Width(r)
		if units+w > pos.Character {
			break
		}
		units += w
		off += safeUint32(size)
		if units == pos.Character {
			break
		}
	}
	return off
}

// positionForOffsetInFile converts a byte offset to an LSP position.
func positionForOffsetInFile(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	if limit := safeUint32(len(file.Content)); offset > limit {
		offset = limit
	}

	line := sort.Search(len(file.LineIdx), func(i int) bool {
		return file.LineIdx[i] >= offset
	})
	var lineStart uint32
	if line > 0 {
		lineStart = file.LineIdx[line-1] + 1
	}
	if lineStart > offset {
		lineStart = offset
	}

	units := 0
	for off := lineStart; off < offset; {
		r, size := utf8.DecodeRune(file.Content[off:offset])
		if off+safeUint32(size) > offset {
			break
		}
		units += utf16Width(r)
		off += safeUint32(size)
	}
	return position{Line: line, Character: units}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}

// rangesOverlap reports whether two ranges touch, treating a zero-width
// request range as a cursor position inside the other range.
func rangesOverlap(a, b lspRange) bool {
	return !positionLess(b.End, a.Start) && !positionLess(a.End, b.Start)
}

func positionLess(a, b position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}
