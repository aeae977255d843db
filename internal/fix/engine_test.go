package fix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yangls/internal/diag"
	"yangls/internal/source"
	"yangls/internal/yang"
)

func writeModule(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func mergeDiagnostic(f *source.File, ast *yang.Ast, target string) diag.Diagnostic {
	spans := make([]source.Span, 0)
	var primary source.Span
	for _, d := range ast.Deviations {
		if d.Target != target {
			continue
		}
		spans = append(spans, d.Span)
		if d.Duplicate && primary.Empty() {
			primary = d.Span
		}
	}
	fix, _ := MergeDeviations(f, target, spans)
	return diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.RuleViolation,
		RuleID:   "deviation-duplicate-target",
		Message:  "multiple deviation blocks target " + target,
		Primary:  primary,
		GroupID:  target,
		Fixes:    []diag.Fix{fix},
	}
}

func TestApplyWritesMergedFile(t *testing.T) {
	dir := t.TempDir()
	text := strings.Join([]string{
		"module m {",
		`  deviation "/x" {`,
		"    deviate add { max-elements 10; }",
		"  }",
		`  deviation "/x" {`,
		"    deviate add { min-elements 1; }",
		"  }",
		"}",
		"",
	}, "\n")
	path := writeModule(t, dir, "m.yang", text)

	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	ast := yang.Parse(f)

	d := mergeDiagnostic(f, ast, "/x")
	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("applied = %d, want 1 (skipped: %v)", len(res.Applied), res.Skipped)
	}
	if res.Applied[0].EditCount != 2 {
		t.Fatalf("edit count = %d, want 2", res.Applied[0].EditCount)
	}
	if len(res.FileChanges) != 1 {
		t.Fatalf("file changes = %d, want 1", len(res.FileChanges))
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got := strings.Count(string(after), "deviation "); got != 1 {
		t.Fatalf("deviation statements on disk = %d, want 1:\n%s", got, after)
	}
	if !strings.Contains(string(after), "max-elements 10") || !strings.Contains(string(after), "min-elements 1") {
		t.Fatalf("merged file lost a body:\n%s", after)
	}
}

func TestApplySkipsVirtualFiles(t *testing.T) {
	text := strings.Join([]string{
		"module m {",
		`  deviation "/x" { deviate not-supported; }`,
		`  deviation "/x" { deviate add { config false; } }`,
		"}",
	}, "\n")
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.yang", []byte(text))
	f := fs.Get(id)
	ast := yang.Parse(f)

	d := mergeDiagnostic(f, ast, "/x")
	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeAll})
	if err != ErrNoFixes {
		t.Fatalf("err = %v, want ErrNoFixes", err)
	}
	found := false
	for _, s := range res.Skipped {
		if strings.Contains(s.Reason, "virtual") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no virtual-file skip recorded: %v", res.Skipped)
	}
}

func TestApplyByIDNotFound(t *testing.T) {
	dir := t.TempDir()
	text := strings.Join([]string{
		"module m {",
		`  deviation "/x" { deviate not-supported; }`,
		`  deviation "/x" { deviate add { config false; } }`,
		"}",
	}, "\n")
	path := writeModule(t, dir, "m.yang", text)

	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	ast := yang.Parse(f)

	d := mergeDiagnostic(f, ast, "/x")
	res, err := Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeID, TargetID: "nope"})
	if err != ErrNoFixes {
		t.Fatalf("err = %v, want ErrNoFixes", err)
	}
	if len(res.Skipped) == 0 || res.Skipped[0].Reason != "fix id not found" {
		t.Fatalf("skips = %v", res.Skipped)
	}

	// the real id still applies
	res, err = Apply(fs, []diag.Diagnostic{d}, ApplyOptions{Mode: ApplyModeID, TargetID: "merge-deviations:/x"})
	if err != nil {
		t.Fatalf("Apply by id: %v", err)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("applied = %d, want 1", len(res.Applied))
	}
}
