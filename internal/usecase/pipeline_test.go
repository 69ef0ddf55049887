package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/repository"
	"TradePilot/internal/services/features"
	"TradePilot/internal/services/forecast"
	"TradePilot/pkg/cache"
)

type fakeProvider struct {
	bars  []models.Bar
	err   error
	calls int
}

func (f *fakeProvider) DailyBars(_ context.Context, _ string, _ int) ([]models.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func syntheticBars(ticker string, n int) []models.Bar {
	bars := make([]models.Bar, n)
	end := time.Now().UTC()
	for i := 0; i < n; i++ {
		c := 100 + 0.3*float64(i) + 2*math.Sin(float64(i)/3)
		bars[i] = models.Bar{
			Ticker: ticker,
			Date:   end.AddDate(0, 0, i-n+1),
			Open:   c - 0.4,
			High:   c + 0.8,
			Low:    c - 0.8,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func newTestPipeline(provider *fakeProvider) *ForecastPipeline {
	series := NewPriceSeries(provider, repository.NewMemoryBarStore(), nil)
	return NewForecastPipeline(
		series,
		features.NewBuilder(),
		forecast.NewModel(forecast.DefaultForestConfig()),
		cache.NewMemoryCache(),
		nil,
		nil,
		PipelineConfig{LookbackDays: 365, CacheTTL: time.Minute},
	)
}

func TestPipelineForecast(t *testing.T) {
	provider := &fakeProvider{bars: syntheticBars("AAPL", 120)}
	p := newTestPipeline(provider)

	res, err := p.Forecast(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if res.Ticker != "AAPL" {
		t.Fatalf("ticker = %s", res.Ticker)
	}
	if res.PredictedClose <= 0 || res.Confidence < 0.1 || res.Confidence > 1 {
		t.Fatalf("bad result %+v", res)
	}
}

func TestPipelineCachesByFingerprint(t *testing.T) {
	provider := &fakeProvider{bars: syntheticBars("AAPL", 120)}
	p := newTestPipeline(provider)
	ctx := context.Background()

	r1, err := p.Forecast(ctx, "AAPL")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	callsAfterFirst := provider.calls

	r2, err := p.Forecast(ctx, "AAPL")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if provider.calls != callsAfterFirst {
		t.Fatalf("second forecast hit the provider")
	}
	if r1.PredictedClose != r2.PredictedClose {
		t.Fatalf("cached result differs")
	}
}

func TestPipelineFingerprintUsesStoredDataVersion(t *testing.T) {
	provider := &fakeProvider{bars: syntheticBars("AAPL", 120)}
	p := newTestPipeline(provider)
	ctx := context.Background()

	r1, err := p.Forecast(ctx, "AAPL")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	// The result must be cached under the dated fingerprint, not a
	// pre-fetch "none" version.
	version := time.Now().UTC().Format("2006-01-02")
	key := "forecast:AAPL:365:" + version
	if ok, err := p.cache.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("no cache entry under %q (ok=%v err=%v)", key, ok, err)
	}

	r2, err := p.Forecast(ctx, "AAPL")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if !r2.GeneratedAt.Equal(r1.GeneratedAt) {
		t.Fatalf("second call retrained instead of serving the cached result")
	}
}

func TestPipelineDataUnavailable(t *testing.T) {
	provider := &fakeProvider{err: errors.New("dns failure")}
	p := newTestPipeline(provider)

	_, err := p.Forecast(context.Background(), "NOPE")
	if !models.IsKind(err, models.DataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestPipelineEmptySeries(t *testing.T) {
	provider := &fakeProvider{bars: nil}
	p := newTestPipeline(provider)

	_, err := p.Forecast(context.Background(), "GHOST")
	if !models.IsKind(err, models.DataUnavailable) {
		t.Fatalf("expected DataUnavailable, got %v", err)
	}
}

func TestPipelineInsufficientData(t *testing.T) {
	provider := &fakeProvider{bars: syntheticBars("THIN", 20)}
	p := newTestPipeline(provider)

	_, err := p.Forecast(context.Background(), "THIN")
	if !models.IsKind(err, models.InsufficientData) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestPipelineCollapsesUnknownErrors(t *testing.T) {
	err := collapse(errors.New("boom"))
	if !models.IsKind(err, models.PredictionFailed) {
		t.Fatalf("expected PredictionFailed, got %v", err)
	}
	// Typed failures pass through unchanged.
	orig := models.NewFailure(models.InsufficientData, "thin")
	if got := collapse(orig); !errors.Is(got, orig) && !models.IsKind(got, models.InsufficientData) {
		t.Fatalf("failure kind rewritten: %v", got)
	}
}
