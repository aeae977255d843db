package fix

import (
	"sort"
	"strings"
	"testing"

	"yangls/internal/diag"
	"yangls/internal/source"
	"yangls/internal/yang"
)

func parseFile(t *testing.T, text string) (*source.File, *yang.Ast) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.yang", []byte(text))
	f := fs.Get(id)
	ast := yang.Parse(f)
	if ast == nil {
		t.Fatal("Parse returned nil")
	}
	return f, ast
}

func deviationSpans(ast *yang.Ast) []source.Span {
	spans := make([]source.Span, 0, len(ast.Deviations))
	for _, d := range ast.Deviations {
		spans = append(spans, d.Span)
	}
	return spans
}

func applyEdits(text string, edits []diag.TextEdit) string {
	sorted := append([]diag.TextEdit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start > sorted[j].Span.Start })
	for _, e := range sorted {
		text = text[:e.Span.Start] + e.NewText + text[e.Span.End:]
	}
	return text
}

func TestMergeDeviationsTwoBlocks(t *testing.T) {
	text := strings.Join([]string{
		"module m {",
		`  deviation "/if:interfaces/if:interface" {`,
		"    deviate add { max-elements 10; }",
		"  }",
		`  deviation "/if:interfaces/if:interface" {`,
		"    deviate add { min-elements 1; }",
		"  }",
		"}",
	}, "\n")
	f, ast := parseFile(t, text)

	fix, ok := MergeDeviations(f, "/if:interfaces/if:interface", deviationSpans(ast))
	if !ok {
		t.Fatal("MergeDeviations declined")
	}
	if len(fix.Edits) != 2 {
		t.Fatalf("edits = %d, want 2", len(fix.Edits))
	}

	wantMerged := strings.Join([]string{
		`deviation "/if:interfaces/if:interface" {`,
		"    deviate add { max-elements 10; }",
		"",
		"    deviate add { min-elements 1; }",
		"  }",
	}, "\n")
	if fix.Edits[0].NewText != wantMerged {
		t.Fatalf("merged block:\n%s\nwant:\n%s", fix.Edits[0].NewText, wantMerged)
	}
	if fix.Edits[1].NewText != "" {
		t.Fatalf("second occurrence edit = %q, want deletion", fix.Edits[1].NewText)
	}

	after := applyEdits(text, fix.Edits)
	if got := strings.Count(after, "deviation "); got != 1 {
		t.Fatalf("deviation statements after merge = %d, want 1", got)
	}
	if !strings.Contains(after, "max-elements 10") || !strings.Contains(after, "min-elements 1") {
		t.Fatalf("merged document lost a body:\n%s", after)
	}
}

func TestMergeDeviationsThreeBlocks(t *testing.T) {
	text := strings.Join([]string{
		"module m {",
		`  deviation "/sys:system" {`,
		"    deviate not-supported;",
		"  }",
		`  deviation "/sys:system" {`,
		"    deviate add { config false; }",
		"  }",
		`  deviation "/sys:system" {`,
		"    deviate delete { units seconds; }",
		"  }",
		"}",
	}, "\n")
	f, ast := parseFile(t, text)

	fix, ok := MergeDeviations(f, "/sys:system", deviationSpans(ast))
	if !ok {
		t.Fatal("MergeDeviations declined")
	}
	if len(fix.Edits) != 3 {
		t.Fatalf("edits = %d, want 3", len(fix.Edits))
	}
	for i, e := range fix.Edits[1:] {
		if e.NewText != "" {
			t.Fatalf("edit %d is not a deletion", i+1)
		}
	}

	after := applyEdits(text, fix.Edits)
	if got := strings.Count(after, "deviation "); got != 1 {
		t.Fatalf("deviation statements after merge = %d, want 1", got)
	}
	wantOrder := []string{"not-supported", "config false", "units seconds"}
	pos := -1
	for _, frag := range wantOrder {
		next := strings.Index(after, frag)
		if next < pos {
			t.Fatalf("bodies out of document order:\n%s", after)
		}
		pos = next
	}
}

func TestMergeDeviationsNormalizesIndentation(t *testing.T) {
	// second block sits deeper; its body must align with the first block's
	text := strings.Join([]string{
		"module m {",
		`  deviation "/x" {`,
		"    deviate not-supported;",
		"  }",
		`      deviation "/x" {`,
		"        deviate add { config false; }",
		"      }",
		"}",
	}, "\n")
	f, ast := parseFile(t, text)

	fix, ok := MergeDeviations(f, "/x", deviationSpans(ast))
	if !ok {
		t.Fatal("MergeDeviations declined")
	}
	wantMerged := strings.Join([]string{
		`deviation "/x" {`,
		"    deviate not-supported;",
		"",
		"    deviate add { config false; }",
		"  }",
	}, "\n")
	if fix.Edits[0].NewText != wantMerged {
		t.Fatalf("merged block:\n%s\nwant:\n%s", fix.Edits[0].NewText, wantMerged)
	}
}

func TestMergeDeviationsSortsOccurrences(t *testing.T) {
	text := strings.Join([]string{
		"module m {",
		`  deviation "/x" { deviate add { config false; } }`,
		`  deviation "/x" { deviate not-supported; }`,
		"}",
	}, "\n")
	f, ast := parseFile(t, text)

	spans := deviationSpans(ast)
	spans[0], spans[1] = spans[1], spans[0]
	fix, ok := MergeDeviations(f, "/x", spans)
	if !ok {
		t.Fatal("MergeDeviations declined")
	}
	if fix.Edits[0].Span.Start > fix.Edits[1].Span.Start {
		t.Fatal("replacement edit is not at the first occurrence")
	}
	if !strings.HasPrefix(fix.Edits[0].NewText, `deviation "/x" {`) {
		t.Fatalf("merged block header: %q", fix.Edits[0].NewText)
	}
}

func TestMergeDeviationsNeedsTwoOccurrences(t *testing.T) {
	text := "module m {\n  deviation \"/x\" { deviate not-supported; }\n}\n"
	f, ast := parseFile(t, text)
	if _, ok := MergeDeviations(f, "/x", deviationSpans(ast)); ok {
		t.Fatal("merge offered for a single occurrence")
	}
	if _, ok := MergeDeviations(f, "/x", nil); ok {
		t.Fatal("merge offered for no occurrences")
	}
}
