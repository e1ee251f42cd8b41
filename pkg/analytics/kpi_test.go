package analytics

import (
	"testing"
	"time"
)

func TestRecordAndCalculateSuccessRate(t *testing.T) {
	e := NewEngine(&Config{FailureThreshold: 50})
	e.Record(Completion{Procedure: "ATT", Result: ResultSuccess, Duration: time.Millisecond})
	e.Record(Completion{Procedure: "ATT", Result: ResultFailure, Cause: 3})

	report := e.Calculate()
	m := report.Procedures["ATT"]
	if m.TotalCount != 2 || m.SuccessCount != 1 || m.FailureCount != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.FailureRate != 50 {
		t.Fatalf("expected 50%% failure rate, got %v", m.FailureRate)
	}
	if m.CauseCodes[3] != 1 {
		t.Fatalf("expected cause 3 recorded once, got %+v", m.CauseCodes)
	}
}

func TestCalculateFlagsHighFailureRate(t *testing.T) {
	e := NewEngine(&Config{FailureThreshold: 10})
	for i := 0; i < 5; i++ {
		e.Record(Completion{Procedure: "TAU", Result: ResultFailure, Cause: 96})
	}
	report := e.Calculate()
	if len(report.Alerts) != 1 || report.Alerts[0].Procedure != "TAU" {
		t.Fatalf("expected a high-failure-rate alert, got %+v", report.Alerts)
	}
}

func TestResetClearsCounters(t *testing.T) {
	e := NewEngine(&Config{})
	e.Record(Completion{Procedure: "ATT", Result: ResultSuccess})
	e.Reset()
	if m := e.GetMetrics("ATT"); m.TotalCount != 0 {
		t.Fatalf("expected counters cleared, got %+v", m)
	}
}
