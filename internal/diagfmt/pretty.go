package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"yangls/internal/diag"
	"yangls/internal/source"
)

const tabStop = "    "

// Pretty writes diagnostics for humans. Callers sort the bag first; output
// follows bag order. Each finding renders as
//
//	<path>:<line>:<col>: <severity>[<source>]: <message>
//	   12 |   import foo;
//	      |   ^~~~~~~~~~
//
// followed by its notes and fix titles when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeDiagnostic(w, d, fs, opts)
	}
	if n := bag.Suppressed(); n > 0 {
		fmt.Fprintf(w, "note: %d rule evaluation error(s) suppressed\n", n)
	}
}

func writeDiagnostic(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	start, _ := fs.Resolve(d.Primary)
	path := formatPath(fs, d.Primary.File, opts.PathMode)

	sev := d.Severity.String()
	if opts.Color {
		sev = severityPaint(d.Severity).Sprint(sev)
	}
	fmt.Fprintf(w, "%s:%d:%d: %s[%s]: %s\n", path, start.Line, start.Col, sev, d.SourceID(), d.Message)

	writeContext(w, fs, d.Primary, opts)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			pos, _ := fs.Resolve(note.Span)
			fmt.Fprintf(w, "  note: %s (%s:%d:%d)\n", note.Msg, formatPath(fs, note.Span.File, opts.PathMode), pos.Line, pos.Col)
		}
	}
	if opts.ShowFixes {
		for _, fix := range d.Fixes {
			suffix := ""
			if fix.IsPreferred {
				suffix = " (preferred)"
			}
			fmt.Fprintf(w, "  fix: %s%s\n", fix.Title, suffix)
		}
	}
}

// writeContext prints the primary line (plus opts.Context lines above it)
// with a gutter, then the caret line underneath.
func writeContext(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts) {
	file := fs.Get(span.File)
	if file == nil {
		return
	}
	start, _ := fs.Resolve(span)

	firstLine := start.Line
	if opts.Context > 0 && firstLine > uint32(opts.Context) { // #nosec G115
		firstLine -= uint32(opts.Context) // #nosec G115
	} else if opts.Context > 0 {
		firstLine = 1
	}
	for ln := firstLine; ln <= start.Line; ln++ {
		fmt.Fprintf(w, "%4d | %s\n", ln, expandTabs(file.GetLine(ln)))
	}

	lineText := file.GetLine(start.Line)
	col := int(start.Col) - 1
	if col > len(lineText) {
		col = len(lineText)
	}
	indent := runewidth.StringWidth(expandTabs(lineText[:col]))

	spanEnd := col + int(span.Len())
	if spanEnd > len(lineText) {
		spanEnd = len(lineText)
	}
	caretWidth := runewidth.StringWidth(lineText[col:spanEnd])
	if caretWidth < 1 {
		caretWidth = 1
	}

	caret := "^" + strings.Repeat("~", caretWidth-1)
	if opts.Color {
		caret = color.New(color.FgGreen, color.Bold).Sprint(caret)
	}
	fmt.Fprintf(w, "     | %s%s\n", strings.Repeat(" ", indent), caret)
}

func severityPaint(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", fs.BaseDir())
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", tabStop)
}
