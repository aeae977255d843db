// Package diag defines the diagnostic model shared by the extractor, the
// rule engine, and the output layers.
//
// Diagnostic is the central record. Rule-sourced diagnostics carry the rule's
// id in RuleID; engine-internal conditions (rule-set load failures, scan
// anomalies) use the compact Code space from codes.go. GroupID is only set
// for duplicate-deviation findings and names the deviation target path the
// finding belongs to; the quick-fix layer keys merge actions on it.
//
// Producers either construct Diagnostics directly or emit through a Reporter.
// Bag aggregates diagnostics for CLI output and supports deterministic
// sorting and deduplication. The LSP path deliberately bypasses Bag.Sort:
// rule evaluation order (rule-definition order, then node order) is part of
// the engine's contract and is preserved on the wire.
//
// Fix models an automated correction as plain data (a title plus text edits
// in byte-span coordinates). OldText on an edit is an optional guard the fix
// engine checks before applying, so stale edits fail closed.
package diag
