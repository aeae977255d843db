package diag

import "yangls/internal/source"

// Note is a secondary span/message pair attached to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// TextEdit replaces the text covered by Span with NewText. OldText, when
// non-empty, is a guard: the edit only applies if the current text matches.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// Fix is a data-only description of an automated correction.
type Fix struct {
	ID          string
	Title       string
	IsPreferred bool
	Edits       []TextEdit
}

// Diagnostic is one finding against one document.
type Diagnostic struct {
	Severity Severity
	Code     Code
	RuleID   string // id of the rule that produced this finding, "" for internal codes
	Message  string
	Primary  source.Span
	GroupID  string // deviation target path for duplicate-deviation findings
	Notes    []Note
	Fixes    []Fix
}

// WithNote returns a copy of the diagnostic with an extra note attached.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithFix returns a copy of the diagnostic with a fix attached.
func (d Diagnostic) WithFix(fix Fix) Diagnostic {
	d.Fixes = append(d.Fixes, fix)
	return d
}

// SourceID returns the identifier shown to the host: the rule id when the
// finding came from a rule, the internal code id otherwise.
func (d Diagnostic) SourceID() string {
	if d.RuleID != "" {
		return d.RuleID
	}
	return d.Code.ID()
}
