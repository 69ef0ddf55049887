package models

import "time"

// Bar is one daily OHLCV observation for a ticker. Bars are immutable once
// fetched and are always handed around sorted by date ascending.
type Bar struct {
	Ticker string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FeatureVector maps feature name to value for one aligned time step.
type FeatureVector struct {
	Date   time.Time
	Values map[string]float64
}

// Feature names produced by the feature builder.
const (
	FeatOpen   = "open"
	FeatHigh   = "high"
	FeatLow    = "low"
	FeatClose  = "close"
	FeatVolume = "volume"
	FeatSMA5   = "sma_5"
	FeatRSI14  = "rsi_14"
)

// FeatureNames is the canonical column order for model matrices.
var FeatureNames = []string{FeatOpen, FeatHigh, FeatLow, FeatClose, FeatVolume, FeatSMA5, FeatRSI14}
