package forecast

import (
	"math"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/features"
)

func syntheticDataset(t *testing.T, n int) *features.Dataset {
	t.Helper()
	closes := make([]float64, n)
	for i := range closes {
		// Trend plus a small oscillation so splits have signal.
		closes[i] = 100 + 0.3*float64(i) + 2*math.Sin(float64(i)/3)
	}

	bars := make([]models.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Bar{
			Ticker: "TEST",
			Date:   base.AddDate(0, 0, i),
			Open:   c - 0.4,
			High:   c + 0.8,
			Low:    c - 0.8,
			Close:  c,
			Volume: 1_000_000 + 1000*float64(i%7),
		}
	}

	ds, err := features.NewBuilder().Build(bars)
	if err != nil {
		t.Fatalf("build dataset: %v", err)
	}
	return ds
}

func TestTrainAndPredictDeterministic(t *testing.T) {
	ds := syntheticDataset(t, 120)
	m := NewModel(DefaultForestConfig())

	r1, err := m.TrainAndPredict("TEST", ds)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	r2, err := m.TrainAndPredict("TEST", ds)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if r1.PredictedClose != r2.PredictedClose {
		t.Fatalf("non-deterministic prediction: %v vs %v", r1.PredictedClose, r2.PredictedClose)
	}
	if r1.Confidence != r2.Confidence {
		t.Fatalf("non-deterministic confidence: %v vs %v", r1.Confidence, r2.Confidence)
	}
}

func TestTrainAndPredictResultShape(t *testing.T) {
	ds := syntheticDataset(t, 120)
	m := NewModel(DefaultForestConfig())

	res, err := m.TrainAndPredict("TEST", ds)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if res.PredictedClose <= 0 {
		t.Fatalf("prediction = %v", res.PredictedClose)
	}
	if res.LastClose != ds.Last().Values[models.FeatClose] {
		t.Fatalf("last close mismatch")
	}
	if res.Confidence < 0.1 || res.Confidence > 1.0 {
		t.Fatalf("confidence %v outside [0.1, 1.0]", res.Confidence)
	}
	if len(res.Diagnostics) == 0 || len(res.Diagnostics) > 30 {
		t.Fatalf("diagnostics len = %d", len(res.Diagnostics))
	}
	if res.Metrics.MAE < 0 || res.Metrics.NaiveMAE <= 0 {
		t.Fatalf("bad metrics %+v", res.Metrics)
	}

	var sum float64
	for _, fw := range res.FeatureImportance {
		sum += fw.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances sum to %v, want 1", sum)
	}
	for i := 1; i < len(res.FeatureImportance); i++ {
		if res.FeatureImportance[i].Weight > res.FeatureImportance[i-1].Weight {
			t.Fatalf("importances not sorted descending")
		}
	}
}

func TestConfidenceClamp(t *testing.T) {
	tight := []float64{100, 100.1, 99.9, 100}
	if got := confidenceFromDispersion(tight, 100); got < 0.9 || got > 1.0 {
		t.Fatalf("tight dispersion confidence = %v", got)
	}

	wide := []float64{10, 500, 900, 40}
	if got := confidenceFromDispersion(wide, 100); got != 0.1 {
		t.Fatalf("wide dispersion confidence = %v, want 0.1 floor", got)
	}

	if got := confidenceFromDispersion([]float64{1, 2}, 0); got != 0.1 {
		t.Fatalf("zero prediction confidence = %v, want 0.1 floor", got)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	if got := percentile(values, 0); got != 1 {
		t.Fatalf("p0 = %v", got)
	}
	if got := percentile(values, 1); got != 4 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(values, 0.5); got != 2.5 {
		t.Fatalf("p50 = %v", got)
	}
}

func TestForestConstantTargets(t *testing.T) {
	samples := make([][]float64, 40)
	targets := make([]float64, 40)
	for i := range samples {
		samples[i] = []float64{float64(i), float64(i % 3), 1, 2, 3, 4, 5}
		targets[i] = 42
	}

	f, err := FitForest(samples, targets, DefaultForestConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if got := f.Predict(samples[0]); got != 42 {
		t.Fatalf("prediction = %v, want 42", got)
	}

	// No split was ever useful, importances fall back to uniform.
	var sum float64
	for _, w := range f.Importances() {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances sum = %v", sum)
	}
}

func TestFitForestBadShape(t *testing.T) {
	if _, err := FitForest(nil, nil, DefaultForestConfig()); err == nil {
		t.Fatalf("expected error for empty training set")
	}
}
