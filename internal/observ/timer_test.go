package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("scan")
	time.Sleep(time.Millisecond)
	timer.End(idx, "2 files")

	idx = timer.Begin("rules")
	timer.End(idx, "")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "scan" || report.Phases[0].Note != "2 files" {
		t.Fatalf("phase 0 = %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Fatal("scan phase has no duration")
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatal("total smaller than a single phase")
	}

	summary := timer.Summary()
	if !strings.Contains(summary, "scan") || !strings.Contains(summary, "total") {
		t.Fatalf("summary missing rows:\n%s", summary)
	}
}

func TestTimerEndOutOfRange(t *testing.T) {
	timer := NewTimer()
	timer.End(5, "ignored") // must not panic
	if len(timer.Report().Phases) != 0 {
		t.Fatal("phantom phase recorded")
	}
}
