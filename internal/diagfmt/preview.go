package diagfmt

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"yangls/internal/diag"
	"yangls/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixEditPreview renders the full lines touched by an edit, before and
// after applying it, for display next to the edit.
func buildFixEditPreview(fs *source.FileSet, edit diag.TextEdit) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, fmt.Errorf("nil FileSet")
	}
	file := fs.Get(edit.Span.File)
	if file == nil {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}

	startPos, endPos := fs.Resolve(edit.Span)
	blockStart, blockEnd, err := lineBlockBounds(file, startPos.Line, max(endPos.Line, startPos.Line))
	if err != nil {
		return fixEditPreview{}, err
	}

	original := append([]byte(nil), file.Content[blockStart:blockEnd]...)

	relStart := int(edit.Span.Start) - int(blockStart)
	relEnd := int(edit.Span.End) - int(blockStart)
	if relStart < 0 || relEnd < relStart || relEnd > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span [%d,%d) outside preview block", relStart, relEnd)
	}

	patched := make([]byte, 0, len(original)+len(edit.NewText))
	patched = append(patched, original[:relStart]...)
	patched = append(patched, edit.NewText...)
	patched = append(patched, original[relEnd:]...)

	return fixEditPreview{
		before: previewLines(original),
		after:  previewLines(patched),
	}, nil
}

// lineBlockBounds returns the byte range covering the 1-based lines
// [startLine, endLine], end exclusive and including the trailing newline of
// the last line when present.
func lineBlockBounds(f *source.File, startLine, endLine uint32) (uint32, uint32, error) {
	contentLen, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return 0, 0, fmt.Errorf("file content overflow: %w", err)
	}

	var start uint32
	if startLine > 1 {
		if idx := int(startLine) - 2; idx < len(f.LineIdx) {
			start = f.LineIdx[idx] + 1
		} else {
			start = contentLen
		}
	}

	end := contentLen
	if endLine >= 1 {
		if idx := int(endLine) - 1; idx < len(f.LineIdx) {
			end = f.LineIdx[idx] + 1
		}
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func previewLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}
