// Package yang turns raw YANG document text into a lightweight structural
// model without a full grammar. Each construct category is located by an
// anchored pattern and, for brace-delimited categories, closed by the brace
// matcher. Keywords inside string literals or multi-line free text can be
// mis-detected; that false-positive surface is an accepted approximation of
// the regex-anchored design, not a defect.
package yang

import (
	"regexp"
	"strings"

	"yangls/internal/source"
)

var (
	reModule     = regexp.MustCompile(`(?m)^[ \t]*module[ \t]+([\w.-]+)[ \t]*\{`)
	reNamespace  = regexp.MustCompile(`namespace[ \t]+"?([^"\s;]+)"?[ \t]*;`)
	reImport     = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+([\w.-]+)[ \t]*([{;])`)
	reTypedef    = regexp.MustCompile(`(?m)^[ \t]*typedef[ \t]+([\w.-]+)[ \t]*\{`)
	reStatus     = regexp.MustCompile(`(?m)^[ \t]*status[ \t]+"?(current|deprecated|obsolete)"?[ \t]*;`)
	reList       = regexp.MustCompile(`(?m)^[ \t]*list[ \t]+([\w.-]+)[ \t]*\{`)
	reKey        = regexp.MustCompile(`(?m)^[ \t]*key[ \t]+"?([^";]+?)"?[ \t]*;`)
	reChildLeaf  = regexp.MustCompile(`(?m)^[ \t]*leaf[ \t]+([\w.-]+)[ \t]*\{`)
	reBlock      = regexp.MustCompile(`(?m)^[ \t]*(anyxml|augment|choice|container|extension|feature|notification|rpc)[ \t]+("[^"]*"|[^\s{]+)[ \t]*\{`)
	reDeviation  = regexp.MustCompile(`(?m)^[ \t]*deviation[ \t]+("[^"]*"|[^\s{]+)[ \t]*\{`)
	reConstraint = regexp.MustCompile(`(?m)^[ \t]*(leaf-list|leaf)[ \t]+([\w.-]+)[ \t]*\{`)

	// Substatement presence probes tolerate single-line bodies such as
	// `leaf x { must ". > 0"; }`.
	reMust = regexp.MustCompile(`(?:^|\{|;)\s*must[ \t"']`)
	reWhen = regexp.MustCompile(`(?:^|\{|;)\s*when[ \t"']`)
	reDesc = regexp.MustCompile(`(?:^|\{|;)\s*description[ \t"']`)
)

// Parse scans the whole document and returns its structural model. It is
// invoked on open and on every content change; there is no incremental mode.
// A document without a module statement yields Ast.Module == nil, not an
// error. Categories are extracted independently of each other, so a list
// nested inside a container shows up in both Lists and Blocks.
func Parse(f *source.File) *Ast {
	text := string(f.Content)
	ast := &Ast{
		Module:      extractModule(f.ID, text),
		Imports:     extractImports(f.ID, text),
		Typedefs:    extractTypedefs(f.ID, text),
		Statuses:    extractStatuses(f.ID, text),
		Lists:       extractLists(f.ID, text),
		Blocks:      extractBlocks(f.ID, text),
		Deviations:  extractDeviations(f.ID, text),
		Constraints: extractConstraints(f.ID, text),
	}
	markDuplicateDeviations(ast.Deviations)
	return ast
}

func extractModule(id source.FileID, text string) *ModuleHeader {
	m := reModule.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	kw := keywordStart(text, m[0])
	open := m[1] - 1 // the '{' terminating the match
	close := MatchBrace(text, open)
	header := &ModuleHeader{
		Name: text[m[2]:m[3]],
		Span: span(id, kw, close+1),
		Line: lineAt(text, kw),
	}
	if ns := reNamespace.FindStringSubmatch(text[open : close+1]); ns != nil {
		header.Namespace = ns[1]
	}
	return header
}

func extractImports(id source.FileID, text string) []ImportNode {
	var out []ImportNode
	for _, m := range reImport.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		end := m[5]
		if text[m[4]] == '{' {
			end = MatchBrace(text, m[4]) + 1
		}
		out = append(out, ImportNode{
			Name: text[m[2]:m[3]],
			Span: span(id, kw, end),
			Line: lineAt(text, kw),
		})
	}
	return out
}

func extractTypedefs(id source.FileID, text string) []TypedefNode {
	var out []TypedefNode
	for _, m := range reTypedef.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		open := m[1] - 1
		close := MatchBrace(text, open)
		out = append(out, TypedefNode{
			Name: text[m[2]:m[3]],
			Span: span(id, kw, close+1),
			Line: lineAt(text, kw),
			Body: firstLines(innerBody(text, open, close), previewLines),
		})
	}
	return out
}

func extractStatuses(id source.FileID, text string) []StatusNode {
	var out []StatusNode
	for _, m := range reStatus.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		out = append(out, StatusNode{
			Value:     StatusValue(text[m[2]:m[3]]),
			Span:      span(id, kw, m[1]),
			Line:      lineAt(text, kw),
			Following: linesAfter(text, m[1], previewLines),
		})
	}
	return out
}

func extractLists(id source.FileID, text string) []ListNode {
	var out []ListNode
	for _, m := range reList.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		open := m[1] - 1
		close := MatchBrace(text, open)
		body := innerBody(text, open, close)
		node := ListNode{
			Name: text[m[2]:m[3]],
			Line: lineAt(text, kw),
			Span: span(id, kw, close+1),
			Body: firstLines(body, previewLines),
		}
		if key := reKey.FindStringSubmatch(body); key != nil {
			node.Keys = strings.Fields(key[1])
		}
		for _, leaf := range reChildLeaf.FindAllStringSubmatch(body, -1) {
			node.Children = append(node.Children, leaf[1])
		}
		out = append(out, node)
	}
	return out
}

func extractBlocks(id source.FileID, text string) []BlockNode {
	var out []BlockNode
	for _, m := range reBlock.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		open := m[1] - 1
		close := MatchBrace(text, open)
		out = append(out, BlockNode{
			Keyword: text[m[2]:m[3]],
			Name:    strings.Trim(text[m[4]:m[5]], `"`),
			Span:    span(id, kw, close+1),
			Line:    lineAt(text, kw),
			Body:    firstLines(innerBody(text, open, close), previewLines),
		})
	}
	return out
}

func extractDeviations(id source.FileID, text string) []DeviationNode {
	var out []DeviationNode
	for _, m := range reDeviation.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		open := m[1] - 1
		close := MatchBrace(text, open)
		out = append(out, DeviationNode{
			Target: strings.Trim(text[m[2]:m[3]], `"`),
			Span:   span(id, kw, close+1),
		})
	}
	return out
}

func extractConstraints(id source.FileID, text string) []ConstraintNode {
	var out []ConstraintNode
	for _, m := range reConstraint.FindAllStringSubmatchIndex(text, -1) {
		kw := keywordStart(text, m[0])
		open := m[1] - 1
		close := MatchBrace(text, open)
		body := innerBody(text, open, close)
		out = append(out, ConstraintNode{
			Keyword:        text[m[2]:m[3]],
			Name:           text[m[4]:m[5]],
			Span:           span(id, kw, close+1),
			HasMust:        reMust.MatchString(body),
			HasWhen:        reWhen.MatchString(body),
			HasDescription: reDesc.MatchString(body),
		})
	}
	return out
}

// markDuplicateDeviations buckets deviations by target path and flags every
// node after the document-order-first one sharing its target.
func markDuplicateDeviations(devs []DeviationNode) {
	seen := make(map[string]bool, len(devs))
	for i := range devs {
		if seen[devs[i].Target] {
			devs[i].Duplicate = true
			continue
		}
		seen[devs[i].Target] = true
	}
}

func span(id source.FileID, start, end int) source.Span {
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return source.Span{File: id, Start: uint32(start), End: uint32(end)} // #nosec G115 -- editor documents
}

// keywordStart skips the indentation the anchored match consumed.
func keywordStart(text string, matchStart int) int {
	i := matchStart
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}

// lineAt returns the full line containing off, without the newline.
func lineAt(text string, off int) string {
	if off < 0 || off >= len(text) {
		return ""
	}
	start := strings.LastIndexByte(text[:off], '\n') + 1
	end := strings.IndexByte(text[off:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : off+end]
}

// innerBody returns the text strictly between the braces at open and close.
func innerBody(text string, open, close int) string {
	if close <= open+1 {
		return ""
	}
	if close > len(text) {
		close = len(text)
	}
	return text[open+1 : close]
}

func firstLines(s string, n int) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// linesAfter returns up to n lines following the line that contains off.
func linesAfter(text string, off int, n int) []string {
	if off >= len(text) {
		return nil
	}
	nl := strings.IndexByte(text[off:], '\n')
	if nl < 0 {
		return nil
	}
	rest := text[off+nl+1:]
	if rest == "" {
		return nil
	}
	lines := strings.Split(rest, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
