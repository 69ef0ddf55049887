package models

import "time"

// FeatureWeight is one entry of the normalized attribution ranking.
type FeatureWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// PredictedPoint pairs an out-of-sample prediction with the realized close,
// used for the diagnostic chart.
type PredictedPoint struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// EvalMetrics compares the held-out prediction against a naive baseline
// (yesterday's close).
type EvalMetrics struct {
	MAE           float64 `json:"mae"`
	RelativeMAE   float64 `json:"relative_mae_percent"`
	NaiveMAE      float64 `json:"naive_mae"`
	Improvement   float64 `json:"improvement"`
	BeatsBaseline bool    `json:"beats_baseline"`
}

// PredictionResult is the forecast pipeline's output for one ticker.
// FeatureImportance is normalized to sum to 1 and sorted descending.
// Confidence is in [0.1, 1.0], derived from the ensemble's per-tree
// prediction interval, not a statistical p-value.
type PredictionResult struct {
	Ticker            string           `json:"ticker"`
	PredictedClose    float64          `json:"predicted_close"`
	LastClose         float64          `json:"last_close"`
	Confidence        float64          `json:"confidence"`
	FeatureImportance []FeatureWeight  `json:"feature_importance"`
	Diagnostics       []PredictedPoint `json:"diagnostics"`
	Metrics           EvalMetrics      `json:"metrics"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// PredictedReturn is (predicted - last) / last, the quantity the decision
// engine thresholds on.
func (p *PredictionResult) PredictedReturn() float64 {
	if p.LastClose == 0 {
		return 0
	}
	return (p.PredictedClose - p.LastClose) / p.LastClose
}
