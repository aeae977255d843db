package source

import "testing"

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.yang", []byte("module foo {\n  namespace \"urn:x\";\n}\n"))

	cases := []struct {
		name       string
		span       Span
		wantLine   uint32
		wantCol    uint32
		endLine    uint32
		endCol     uint32
	}{
		{"start of document", Span{File: id, Start: 0, End: 6}, 1, 1, 1, 7},
		{"second line", Span{File: id, Start: 15, End: 24}, 2, 3, 2, 12},
		{"closing brace", Span{File: id, Start: 34, End: 35}, 3, 1, 3, 2},
	}
	for _, tc := range cases {
		start, end := fs.Resolve(tc.span)
		if start.Line != tc.wantLine || start.Col != tc.wantCol {
			t.Errorf("%s: start = %d:%d, want %d:%d", tc.name, start.Line, start.Col, tc.wantLine, tc.wantCol)
		}
		if end.Line != tc.endLine || end.Col != tc.endCol {
			t.Errorf("%s: end = %d:%d, want %d:%d", tc.name, end.Line, end.Col, tc.endLine, tc.endCol)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.yang", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	if got := f.GetLine(1); got != "first" {
		t.Errorf("line 1 = %q", got)
	}
	if got := f.GetLine(2); got != "second" {
		t.Errorf("line 2 = %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Errorf("line 3 = %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("line 4 = %q, want empty", got)
	}
	if got := f.GetLine(0); got != "" {
		t.Errorf("line 0 = %q, want empty", got)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc\n"))
	if !changed {
		t.Fatal("expected change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("got %q", out)
	}
	out, changed = normalizeCRLF([]byte("plain\n"))
	if changed {
		t.Fatal("unexpected change")
	}
	if string(out) != "plain\n" {
		t.Fatalf("got %q", out)
	}
}

func TestAddKeepsLatestInIndex(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("doc.yang", []byte("one"))
	second := fs.AddVirtual("doc.yang", []byte("two"))
	if first == second {
		t.Fatal("expected distinct IDs for re-added path")
	}
	latest, ok := fs.GetLatest("doc.yang")
	if !ok || latest != second {
		t.Fatalf("latest = %d, ok = %v; want %d", latest, ok, second)
	}
}
