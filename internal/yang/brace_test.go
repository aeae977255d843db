package yang

import (
	"strings"
	"testing"
)

func TestMatchBrace(t *testing.T) {
	cases := []struct {
		name string
		text string
		open int
		want int
	}{
		{"flat", `{ a; b; }`, 0, 8},
		{"nested", `{ a { b; } c; }`, 0, 14},
		{"inner block", `{ a { b; } c; }`, 4, 9},
		{"quoted brace ignored", `{ a "}" b }`, 0, 10},
		{"single quoted brace ignored", `{ a '}' b }`, 0, 10},
		{"escaped quote in string", `{ "a\"}" }`, 0, 9},
		{"line comment", "{ // }\n}", 0, 7},
		{"block comment", `{ /* } */ }`, 0, 10},
		{"brace after comment close", `{ /* x */ } }`, 0, 10},
	}
	for _, tc := range cases {
		if got := MatchBrace(tc.text, tc.open); got != tc.want {
			t.Errorf("%s: MatchBrace = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestMatchBraceExactIndex(t *testing.T) {
	text := `module m { list l { key "k"; leaf k { type string; } } }`
	got := MatchBrace(text, 9)
	if text[got] != '}' || got != len(text)-1 {
		t.Fatalf("module close = %d, want %d", got, len(text)-1)
	}
	inner := strings.Index(text, "list l {") + len("list l ")
	got = MatchBrace(text, inner)
	if text[got] != '}' || got != len(text)-3 {
		t.Fatalf("list close = %d, want %d", got, len(text)-3)
	}
}

func TestMatchBraceUnterminated(t *testing.T) {
	text := "module m {\n  container c {\n"
	if got := MatchBrace(text, 9); got != len(text)-1 {
		t.Fatalf("unterminated close = %d, want last index %d", got, len(text)-1)
	}
	// A string running to EOF swallows the rest of the document.
	text = `{ "never closed }`
	if got := MatchBrace(text, 0); got != len(text)-1 {
		t.Fatalf("unterminated string close = %d, want %d", got, len(text)-1)
	}
}
