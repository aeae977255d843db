package lsp

import (
	"testing"

	"yangls/internal/source"
)

func virtualFile(t *testing.T, content string) *source.File {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.yang", []byte(content))
	f := fs.Get(id)
	if f == nil {
		t.Fatal("AddVirtual returned no file")
	}
	return f
}

func TestPositionOffsetRoundTrip(t *testing.T) {
	// second line mixes one-, two- and four-byte runes
	f := virtualFile(t, "abc\ndéf\U0001F600g\n")

	cases := []struct {
		pos    position
		offset uint32
	}{
		{position{Line: 0, Character: 0}, 0},
		{position{Line: 0, Character: 2}, 2},
		{position{Line: 1, Character: 0}, 4},
		{position{Line: 1, Character: 1}, 5}, // after d
		{position{Line: 1, Character: 2}, 7}, // after é (2 bytes, 1 unit)
		{position{Line: 1, Character: 5}, 12}, // after 😀 (4 bytes, 2 units)
	}
	for _, tc := range cases {
		if got := offsetForPositionInFile(f, tc.pos); got != tc.offset {
			t.Errorf("offsetForPositionInFile(%+v) = %d, want %d", tc.pos, got, tc.offset)
		}
		if got := positionForOffsetInFile(f, tc.offset); got != tc.pos {
			t.Errorf("positionForOffsetInFile(%d) = %+v, want %+v", tc.offset, got, tc.pos)
		}
	}
}

func TestPositionClamping(t *testing.T) {
	f := virtualFile(t, "ab\ncd\n")
	contentLen := uint32(len(f.Content))

	if got := offsetForPositionInFile(f, position{Line: 99, Character: 0}); got != contentLen {
		t.Errorf("past-end line = %d, want %d", got, contentLen)
	}
	if got := offsetForPositionInFile(f, position{Line: 0, Character: 99}); got != 2 {
		t.Errorf("past-end character = %d, want 2 (before newline)", got)
	}
	if got := positionForOffsetInFile(f, contentLen+50); got.Line != 2 {
		t.Errorf("past-end offset line = %d, want 2", got.Line)
	}
}

func TestRangeForSpan(t *testing.T) {
	f := virtualFile(t, "module m {\n  import foo;\n}\n")
	got := rangeForSpan(f, source.Span{File: f.ID, Start: 13, End: 24})
	want := lspRange{
		Start: position{Line: 1, Character: 2},
		End:   position{Line: 1, Character: 13},
	}
	if got != want {
		t.Errorf("rangeForSpan = %+v, want %+v", got, want)
	}
}

func TestRangesOverlap(t *testing.T) {
	rng := func(sl, sc, el, ec int) lspRange {
		return lspRange{Start: position{Line: sl, Character: sc}, End: position{Line: el, Character: ec}}
	}
	cases := []struct {
		a, b lspRange
		want bool
	}{
		{rng(1, 0, 3, 0), rng(2, 0, 2, 5), true},
		{rng(1, 0, 3, 0), rng(3, 0, 4, 0), true},  // touching end
		{rng(1, 0, 3, 0), rng(2, 2, 2, 2), true},  // cursor inside
		{rng(1, 0, 3, 0), rng(4, 0, 4, 0), false}, // cursor after
		{rng(1, 0, 1, 5), rng(0, 0, 0, 9), false}, // earlier line
	}
	for _, tc := range cases {
		if got := rangesOverlap(tc.a, tc.b); got != tc.want {
			t.Errorf("rangesOverlap(%+v, %+v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
