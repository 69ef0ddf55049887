package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSimulatorFailSoft(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	pipeline := newTestPipeline(provider)
	lg, _ := newTestLedger()
	sim := NewSimulator(pipeline, lg, []string{"AAPL"}, 1, nil)

	report, err := sim.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick must not fail on forecast errors: %v", err)
	}
	if report.Ticker != "AAPL" {
		t.Fatalf("ticker = %s", report.Ticker)
	}
	if !strings.Contains(report.Message, "forecast failed") {
		t.Fatalf("message = %q", report.Message)
	}
	if report.Trade != nil || report.Intent != nil {
		t.Fatalf("no trade expected on failed forecast: %+v", report)
	}
}

func TestSimulatorTickSnapshotsAndReports(t *testing.T) {
	provider := &fakeProvider{bars: syntheticBars("AAPL", 120)}
	pipeline := newTestPipeline(provider)
	lg, _ := newTestLedger()
	sim := NewSimulator(pipeline, lg, []string{"AAPL"}, 1, nil)

	report, err := sim.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Forecast == nil || report.Confidence == nil {
		t.Fatalf("forecast fields missing: %+v", report)
	}
	if report.Intent == nil {
		t.Fatalf("intent missing: %+v", report)
	}
	if report.Message == "" {
		t.Fatalf("empty message")
	}

	// Every tick records a valuation snapshot.
	history, err := lg.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(history))
	}
}

func TestSimulatorNoSymbols(t *testing.T) {
	sim := NewSimulator(nil, nil, nil, 1, nil)
	report, err := sim.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if report.Message != "no symbols configured" {
		t.Fatalf("message = %q", report.Message)
	}
}
