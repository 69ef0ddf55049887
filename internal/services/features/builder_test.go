package features

import (
	"math"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
)

func makeBars(closes []float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Ticker: "TEST",
			Date:   base.AddDate(0, 0, i),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func TestBuildAlignment(t *testing.T) {
	bars := makeBars(risingCloses(60))
	b := NewBuilder()

	ds, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	wantVectors := 60 - warmUp
	if len(ds.Vectors) != wantVectors {
		t.Fatalf("vectors = %d, want %d", len(ds.Vectors), wantVectors)
	}
	if ds.Pairs() != wantVectors-1 {
		t.Fatalf("pairs = %d, want %d", ds.Pairs(), wantVectors-1)
	}

	// Target of the first vector is the close of the bar after warm-up.
	if got, want := ds.Targets[0], bars[warmUp+1].Close; got != want {
		t.Fatalf("first target = %v, want %v", got, want)
	}
	if !ds.Last().Date.Equal(bars[len(bars)-1].Date) {
		t.Fatalf("last vector date mismatch")
	}
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	if got := sma(closes, 4, 5); got != 3 {
		t.Fatalf("sma = %v, want 3", got)
	}
	if got := sma(closes, 5, 5); got != 4 {
		t.Fatalf("sma = %v, want 4", got)
	}
}

func TestRSISaturatesAt100(t *testing.T) {
	// Strictly rising closes have zero average loss.
	closes := risingCloses(20)
	if got := rsi(closes, 19, 14); got != 100 {
		t.Fatalf("rsi = %v, want 100", got)
	}
}

func TestRSIBalancedMoves(t *testing.T) {
	// Alternating +1/-1 deltas give equal gain and loss, RSI 50.
	closes := make([]float64, 30)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1
		} else {
			closes[i] = closes[i-1] - 1
		}
	}
	got := rsi(closes, 28, 14)
	if math.Abs(got-50) > 1e-9 {
		t.Fatalf("rsi = %v, want 50", got)
	}
}

func TestRSIFalling(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	if got := rsi(closes, 19, 14); got != 0 {
		t.Fatalf("rsi = %v, want 0", got)
	}
}

func TestBuildInsufficientData(t *testing.T) {
	bars := makeBars(risingCloses(10))
	_, err := NewBuilder().Build(bars)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !models.IsKind(err, models.InsufficientData) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestImputeMeanFillsGaps(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30})
	bars[1].Volume = math.NaN()

	cleaned := imputeAndDrop(bars)
	if len(cleaned) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(cleaned))
	}
	if cleaned[1].Volume != 1000 {
		t.Fatalf("imputed volume = %v, want 1000", cleaned[1].Volume)
	}
}

func TestImputeDropsUnrecoverableRows(t *testing.T) {
	bars := makeBars([]float64{10, 20, 30})
	for i := range bars {
		bars[i].Close = math.NaN()
	}
	// Whole close column invalid: mean cannot be computed, rows dropped.
	if got := imputeAndDrop(bars); len(got) != 0 {
		t.Fatalf("expected all rows dropped, got %d", len(got))
	}
}
