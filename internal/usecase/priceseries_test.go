package usecase

import (
	"context"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/repository"
)

func TestPriceSeriesNormalization(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := []models.Bar{
		{Date: day.AddDate(0, 0, 2), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Date: day, Open: 10, High: 12, Low: 9, Close: 10, Volume: 1},
		{Date: day, Open: 10, High: 12, Low: 9, Close: 99, Volume: 1},          // duplicate date
		{Date: day.AddDate(0, 0, 1), Open: 10, High: 8, Low: 9, Close: 10},     // high < low
		{Date: day.AddDate(0, 0, 3), Open: 10, High: 12, Low: 9, Close: 0},     // bad close
		{Date: day.AddDate(0, 0, 4), Open: 10, High: 12, Low: 9, Close: 12.5, Volume: 2},
	}

	bars := normalizeBars("AAPL", raw)
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Date.Before(bars[i].Date) {
			t.Fatalf("bars not strictly ascending")
		}
	}
	if bars[0].Close != 10 {
		t.Fatalf("first duplicate should win, close = %v", bars[0].Close)
	}
	for _, b := range bars {
		if b.Ticker != "AAPL" {
			t.Fatalf("ticker not normalized: %q", b.Ticker)
		}
	}
}

func TestPriceSeriesWriteThrough(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{bars: syntheticBars("AAPL", 60)}
	store := repository.NewMemoryBarStore()
	ps := NewPriceSeries(provider, store, nil)

	first, err := ps.Fetch(ctx, "AAPL", 365)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d", provider.calls)
	}

	// Fresh cache serves the second read without the provider.
	second, err := ps.Fetch(ctx, "AAPL", 365)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("second fetch hit the provider (%d calls)", provider.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cache returned %d bars, provider returned %d", len(second), len(first))
	}
}

func TestPriceSeriesUnknownTicker(t *testing.T) {
	ps := NewPriceSeries(&fakeProvider{bars: nil}, repository.NewMemoryBarStore(), nil)

	_, err := ps.Fetch(context.Background(), "GHOST", 365)
	if !models.IsKind(err, models.DataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestPriceSeriesEmptyTicker(t *testing.T) {
	ps := NewPriceSeries(&fakeProvider{}, repository.NewMemoryBarStore(), nil)

	_, err := ps.Fetch(context.Background(), "  ", 365)
	if !models.IsKind(err, models.DataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestPriceSeriesDataVersion(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{bars: syntheticBars("AAPL", 60)}
	store := repository.NewMemoryBarStore()
	ps := NewPriceSeries(provider, store, nil)

	if got := ps.DataVersion(ctx, "AAPL"); got != "none" {
		t.Fatalf("version before fetch = %q, want none", got)
	}
	if _, err := ps.Fetch(ctx, "AAPL", 365); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := time.Now().UTC().Format("2006-01-02")
	if got := ps.DataVersion(ctx, "AAPL"); got != want {
		t.Fatalf("version = %q, want %q", got, want)
	}
}
