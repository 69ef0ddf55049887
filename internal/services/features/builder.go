package features

import (
	"math"

	"TradePilot/internal/domain/models"
)

const (
	smaWindow = 5
	rsiWindow = 14

	// warmUp bars at the head of the series produce no vector because the
	// widest indicator window is not yet filled.
	warmUp = rsiWindow - 1

	// DefaultMinSamples is the minimum number of (vector, target) pairs
	// required for training.
	DefaultMinSamples = 30
)

// Dataset is an aligned feature/target series. Targets[i] is the next-day
// close for Vectors[i]; the final vector has no target and is the production
// prediction input.
type Dataset struct {
	Vectors []models.FeatureVector
	Targets []float64
}

// Pairs returns the number of trainable (vector, target) pairs.
func (d *Dataset) Pairs() int {
	return len(d.Targets)
}

// Last returns the final feature vector, the prediction input.
func (d *Dataset) Last() models.FeatureVector {
	return d.Vectors[len(d.Vectors)-1]
}

// Builder derives per-bar feature vectors from a daily OHLCV series.
type Builder struct {
	MinSamples int
}

func NewBuilder() *Builder {
	return &Builder{MinSamples: DefaultMinSamples}
}

// Build cleans the series, computes indicators, and aligns next-day close
// targets. Fails with InsufficientData when fewer than MinSamples pairs
// survive cleaning and warm-up.
func (b *Builder) Build(bars []models.Bar) (*Dataset, error) {
	minSamples := b.MinSamples
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	cleaned := imputeAndDrop(bars)
	if len(cleaned) < warmUp+minSamples+1 {
		return nil, models.NewFailure(models.InsufficientData,
			"need at least %d clean bars, have %d", warmUp+minSamples+1, len(cleaned))
	}

	closes := make([]float64, len(cleaned))
	for i, bar := range cleaned {
		closes[i] = bar.Close
	}

	vectors := make([]models.FeatureVector, 0, len(cleaned)-warmUp)
	for i := warmUp; i < len(cleaned); i++ {
		vectors = append(vectors, models.FeatureVector{
			Date: cleaned[i].Date,
			Values: map[string]float64{
				models.FeatOpen:   cleaned[i].Open,
				models.FeatHigh:   cleaned[i].High,
				models.FeatLow:    cleaned[i].Low,
				models.FeatClose:  cleaned[i].Close,
				models.FeatVolume: cleaned[i].Volume,
				models.FeatSMA5:   sma(closes, i, smaWindow),
				models.FeatRSI14:  rsi(closes, i, rsiWindow),
			},
		})
	}

	// Target for vector i is the close of the following bar. The last
	// vector stays unlabeled.
	targets := make([]float64, 0, len(vectors)-1)
	for i := warmUp; i < len(cleaned)-1; i++ {
		targets = append(targets, cleaned[i+1].Close)
	}

	ds := &Dataset{Vectors: vectors, Targets: targets}
	if ds.Pairs() < minSamples {
		return nil, models.NewFailure(models.InsufficientData,
			"only %d samples after cleaning, need %d", ds.Pairs(), minSamples)
	}
	return ds, nil
}

// imputeAndDrop replaces non-finite OHLCV values with the column mean and
// drops rows that remain invalid afterwards.
func imputeAndDrop(bars []models.Bar) []models.Bar {
	if len(bars) == 0 {
		return nil
	}

	get := []func(*models.Bar) *float64{
		func(b *models.Bar) *float64 { return &b.Open },
		func(b *models.Bar) *float64 { return &b.High },
		func(b *models.Bar) *float64 { return &b.Low },
		func(b *models.Bar) *float64 { return &b.Close },
		func(b *models.Bar) *float64 { return &b.Volume },
	}

	cleaned := make([]models.Bar, len(bars))
	copy(cleaned, bars)

	for _, field := range get {
		var sum float64
		var n int
		for i := range cleaned {
			v := *field(&cleaned[i])
			if isFinite(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue // whole column invalid, rows dropped below
		}
		mean := sum / float64(n)
		for i := range cleaned {
			p := field(&cleaned[i])
			if !isFinite(*p) {
				*p = mean
			}
		}
	}

	out := cleaned[:0]
	for _, bar := range cleaned {
		if isFinite(bar.Open) && isFinite(bar.High) && isFinite(bar.Low) &&
			isFinite(bar.Close) && isFinite(bar.Volume) && bar.Close > 0 {
			out = append(out, bar)
		}
	}
	return out
}

// sma is the simple moving average of the window closes ending at index i.
func sma(closes []float64, i, window int) float64 {
	var sum float64
	for j := i - window + 1; j <= i; j++ {
		sum += closes[j]
	}
	return sum / float64(window)
}

// rsi computes the Wilder relative strength index from rolling-mean gains
// and losses over the deltas ending at index i. When the average loss is
// zero the index saturates at 100.
func rsi(closes []float64, i, window int) float64 {
	start := i - window + 1
	if start < 1 {
		start = 1
	}

	var gain, loss float64
	var n int
	for j := start; j <= i; j++ {
		delta := closes[j] - closes[j-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
		n++
	}
	if n == 0 {
		return 100
	}

	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
