package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"yangls/internal/diag"
	"yangls/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID          string
	Title       string
	Source      string
	Message     string
	PrimaryPath string
	EditCount   int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// fileState is the in-memory working copy of one file during an apply run.
// applied stays sorted by span start so offset translation can walk it once.
type fileState struct {
	buf       []byte
	applied   []diag.TextEdit
	editCount int
}

func (st *fileState) clone() *fileState {
	return &fileState{
		buf:       append([]byte(nil), st.buf...),
		applied:   append([]diag.TextEdit(nil), st.applied...),
		editCount: st.editCount,
	}
}

// translate maps an offset in the original file into the working buffer by
// summing the length deltas of applied edits that end at or before it.
func (st *fileState) translate(pos int) int {
	delta := 0
	for _, e := range st.applied {
		if int(e.Span.Start) > pos {
			break
		}
		if end := int(e.Span.End); end <= pos {
			delta += len(e.NewText) - (end - int(e.Span.Start))
		}
	}
	return pos + delta
}

func (st *fileState) recordApplied(edit diag.TextEdit) {
	at := sort.Search(len(st.applied), func(i int) bool {
		if st.applied[i].Span.Start == edit.Span.Start {
			return st.applied[i].Span.End >= edit.Span.End
		}
		return st.applied[i].Span.Start > edit.Span.Start
	})
	st.applied = append(st.applied, diag.TextEdit{})
	copy(st.applied[at+1:], st.applied[at:])
	st.applied[at] = edit
}

func (st *fileState) conflicts(edits []diag.TextEdit) bool {
	for _, prev := range st.applied {
		for _, next := range edits {
			if spansConflict(prev, next) {
				return true
			}
		}
	}
	return false
}

// Apply collects fixes from diagnostics, selects a subset according to opts,
// applies the edits in memory, and writes every touched file back to disk.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied:     make([]AppliedFix, 0),
		Skipped:     make([]SkippedFix, 0),
		FileChanges: make([]FileChange, 0),
	}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates := collectCandidates(diagnostics, result)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	orderCandidates(candidates)

	selected := pickCandidates(candidates, opts, result)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	states := make(map[source.FileID]*fileState)
	for _, cand := range selected {
		applyOne(fs, cand, states, result)
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}
	return result, flushFiles(fs, states, result)
}

// collectCandidates pulls every fix out of the diagnostics, synthesizing an
// identifier for fixes that carry none. Empty fixes are reported as skipped.
func collectCandidates(diagnostics []diag.Diagnostic, result *ApplyResult) []candidate {
	var out []candidate
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			if len(f.Edits) == 0 {
				result.Skipped = append(result.Skipped, SkippedFix{
					ID:     f.ID,
					Title:  f.Title,
					Reason: "fix has no edits",
				})
				continue
			}
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s-%d-%d-%d", d.SourceID(), d.Primary.File, d.Primary.Start, idx)
			}
			out = append(out, candidate{diag: d, fix: f, order: len(out)})
		}
	}
	return out
}

// orderCandidates sorts by file, span, collection order, then fix preference
// and identity, so apply runs are deterministic.
func orderCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.diag.Primary.File != b.diag.Primary.File {
			return a.diag.Primary.File < b.diag.Primary.File
		}
		if a.diag.Primary.Start != b.diag.Primary.Start {
			return a.diag.Primary.Start < b.diag.Primary.Start
		}
		if a.diag.Primary.End != b.diag.Primary.End {
			return a.diag.Primary.End < b.diag.Primary.End
		}
		if a.order != b.order {
			return a.order < b.order
		}
		if a.fix.IsPreferred != b.fix.IsPreferred {
			return a.fix.IsPreferred
		}
		if a.fix.ID != b.fix.ID {
			return a.fix.ID < b.fix.ID
		}
		return a.fix.Title < b.fix.Title
	})
}

func pickCandidates(candidates []candidate, opts ApplyOptions, result *ApplyResult) []candidate {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				return []candidate{cand}
			}
		}
		result.Skipped = append(result.Skipped, SkippedFix{
			ID:     opts.TargetID,
			Reason: "fix id not found",
		})
		return nil
	case ApplyModeAll:
		return candidates
	case ApplyModeOnce:
		return candidates[:1]
	default:
		return nil
	}
}

// applyOne stages a single fix against cloned file states and commits only
// if every edit lands. A failed edit skips the whole fix, not just the edit.
func applyOne(fs *source.FileSet, cand candidate, states map[source.FileID]*fileState, result *ApplyResult) {
	perFile := make(map[source.FileID][]diag.TextEdit)
	for _, edit := range cand.fix.Edits {
		perFile[edit.Span.File] = append(perFile[edit.Span.File], edit)
	}

	staged := make(map[source.FileID]*fileState, len(perFile))
	totalEdits := 0
	skip := func(reason string) {
		result.Skipped = append(result.Skipped, SkippedFix{
			ID:     cand.fix.ID,
			Title:  cand.fix.Title,
			Reason: reason,
		})
	}

	for fileID, edits := range perFile {
		file := fs.Get(fileID)
		if file == nil {
			skip("target file not in set")
			return
		}
		if file.Flags&source.FileVirtual != 0 {
			skip("target file is virtual")
			return
		}

		st := states[fileID]
		if st == nil {
			st = &fileState{buf: append([]byte(nil), file.Content...)}
		} else {
			st = st.clone()
		}
		if st.conflicts(edits) {
			skip(fmt.Sprintf("conflicts with previously applied edits in %s", file.FormatPath("auto", fs.BaseDir())))
			return
		}

		// back to front so earlier offsets stay valid within this fix
		sort.SliceStable(edits, func(i, j int) bool {
			if edits[i].Span.Start == edits[j].Span.Start {
				return edits[i].Span.End > edits[j].Span.End
			}
			return edits[i].Span.Start > edits[j].Span.Start
		})

		for _, edit := range edits {
			start := st.translate(int(edit.Span.Start))
			end := st.translate(int(edit.Span.End))
			if start < 0 || end < start || end > len(st.buf) {
				skip("edit span out of range")
				return
			}
			if edit.OldText != "" && string(st.buf[start:end]) != edit.OldText {
				skip("existing text does not match expected content")
				return
			}
			tail := append([]byte(nil), st.buf[end:]...)
			st.buf = append(append(st.buf[:start], []byte(edit.NewText)...), tail...)
			st.recordApplied(edit)
		}
		st.editCount += len(edits)
		staged[fileID] = st
		totalEdits += len(edits)
	}

	for fileID, st := range staged {
		states[fileID] = st
	}

	primaryPath := ""
	if primary := fs.Get(cand.diag.Primary.File); primary != nil {
		primaryPath = primary.FormatPath("auto", fs.BaseDir())
	}
	result.Applied = append(result.Applied, AppliedFix{
		ID:          cand.fix.ID,
		Title:       cand.fix.Title,
		Source:      cand.diag.SourceID(),
		Message:     cand.diag.Message,
		PrimaryPath: primaryPath,
		EditCount:   totalEdits,
	})
}

// flushFiles writes every touched buffer back to disk, preserving the
// original file mode where it can be read.
func flushFiles(fs *source.FileSet, states map[source.FileID]*fileState, result *ApplyResult) error {
	for fileID, st := range states {
		file := fs.Get(fileID)

		mode := os.FileMode(0o644)
		if info, err := os.Stat(file.Path); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(file.Path, st.buf, mode); err != nil {
			return fmt.Errorf("write %s: %w", file.Path, err)
		}
		result.FileChanges = append(result.FileChanges, FileChange{
			Path:      file.FormatPath("relative", fs.BaseDir()),
			EditCount: st.editCount,
		})
	}
	sort.SliceStable(result.FileChanges, func(i, j int) bool {
		return result.FileChanges[i].Path < result.FileChanges[j].Path
	})
	return nil
}

// spansConflict treats spans as half-open [Start, End) intervals. Two
// zero-length edits never conflict; a zero-length edit conflicts with a
// non-empty span that contains its position.
func spansConflict(a, b diag.TextEdit) bool {
	aStart, aEnd := a.Span.Start, a.Span.End
	bStart, bEnd := b.Span.Start, b.Span.End

	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart <= aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}
