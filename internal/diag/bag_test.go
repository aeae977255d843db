package diag

import (
	"testing"

	"yangls/internal/source"
)

func span(file source.FileID, start, end uint32) source.Span {
	return source.Span{File: file, Start: start, End: end}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	if !b.Add(Diagnostic{Message: "one"}) {
		t.Fatal("first add rejected")
	}
	if !b.Add(Diagnostic{Message: "two"}) {
		t.Fatal("second add rejected")
	}
	if b.Add(Diagnostic{Message: "three"}) {
		t.Fatal("expected third add to be dropped")
	}
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	b := NewBag(10)
	b.Add(Diagnostic{RuleID: "b-rule", Severity: SevWarning, Primary: span(0, 10, 12)})
	b.Add(Diagnostic{RuleID: "a-rule", Severity: SevError, Primary: span(0, 10, 12)})
	b.Add(Diagnostic{RuleID: "c-rule", Severity: SevInfo, Primary: span(0, 2, 4)})

	b.Sort()
	items := b.Items()
	if items[0].RuleID != "c-rule" {
		t.Errorf("first = %s, want c-rule", items[0].RuleID)
	}
	// same span: error sorts before warning
	if items[1].RuleID != "a-rule" || items[2].RuleID != "b-rule" {
		t.Errorf("order = %s, %s; want a-rule, b-rule", items[1].RuleID, items[2].RuleID)
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(10)
	d := Diagnostic{RuleID: "dup", Primary: span(0, 0, 5)}
	b.Add(d)
	b.Add(d)
	b.Add(Diagnostic{RuleID: "dup", Primary: span(0, 6, 9)})
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("len after dedup = %d, want 2", b.Len())
	}
}

func TestSourceID(t *testing.T) {
	if got := (Diagnostic{RuleID: "import-unused"}).SourceID(); got != "import-unused" {
		t.Errorf("rule diagnostic source = %q", got)
	}
	if got := (Diagnostic{Code: IOLoadFileError}).SourceID(); got != "YLS4000" {
		t.Errorf("internal diagnostic source = %q", got)
	}
}
