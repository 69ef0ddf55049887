package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	"TradePilot/internal/services/features"
	"TradePilot/internal/services/forecast"
	"TradePilot/pkg/cache"
	applogger "TradePilot/pkg/logger"
)

const (
	trainLockTTL = 60 * time.Second
	lockRetry    = 150 * time.Millisecond
)

// PipelineConfig bounds the forecast pipeline.
type PipelineConfig struct {
	LookbackDays int
	CacheTTL     time.Duration
	TrainTimeout time.Duration
}

// ForecastPipeline runs fetch → features → model for one ticker. Results
// are cached by a fingerprint of (ticker, lookback, data version) and a
// cache lock keeps concurrent fits for the same fingerprint to one.
//
// The pipeline never lets an internal fault escape: every outcome is either
// a PredictionResult or a models.Failure.
type ForecastPipeline struct {
	series  *PriceSeries
	builder *features.Builder
	model   *forecast.Model
	cache   cache.Service
	metrics repository.Metrics
	l       *applogger.Logger
	cfg     PipelineConfig
}

func NewForecastPipeline(
	series *PriceSeries,
	builder *features.Builder,
	model *forecast.Model,
	c cache.Service,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg PipelineConfig,
) *ForecastPipeline {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ForecastPipeline{
		series:  series,
		builder: builder,
		model:   model,
		cache:   c,
		metrics: metrics,
		l:       l,
		cfg:     cfg,
	}
}

// Forecast produces a prediction for the ticker, serving repeats from cache.
func (p *ForecastPipeline) Forecast(ctx context.Context, ticker string) (*models.PredictionResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start := time.Now()

	result, err := p.forecast(ctx, ticker)

	if p.metrics != nil {
		status := "success"
		if err != nil {
			if f := models.FailureOf(err); f != nil {
				status = string(f.Kind)
			} else {
				status = string(models.PredictionFailed)
			}
		} else {
			p.metrics.RecordLastPrediction(ticker, result.PredictedClose)
		}
		p.metrics.RecordForecast(ticker, status)
		p.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	}
	return result, err
}

func (p *ForecastPipeline) forecast(ctx context.Context, ticker string) (*models.PredictionResult, error) {
	// Ensure the series before fingerprinting so the data version reflects
	// the newest stored bar. Fresh repeats are served from the bar store,
	// not the provider.
	bars, err := p.series.Fetch(ctx, ticker, p.cfg.LookbackDays)
	if err != nil {
		return nil, collapse(err)
	}

	key := p.fingerprint(ctx, ticker)

	var cached models.PredictionResult
	if p.cache != nil {
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	// Single-flight per fingerprint: whoever holds the lock trains, late
	// arrivals re-check the cache once before training themselves.
	locked := false
	if p.cache != nil {
		lockKey := "lock:" + key
		ok, err := p.cache.TryLock(ctx, lockKey, trainLockTTL)
		if err == nil && ok {
			locked = true
			defer func() { _ = p.cache.Unlock(ctx, lockKey) }()
		} else if err == nil {
			time.Sleep(lockRetry)
			if gerr := p.cache.Get(ctx, key, &cached); gerr == nil {
				return &cached, nil
			}
		}
	}

	ds, err := p.builder.Build(bars)
	if err != nil {
		return nil, collapse(err)
	}

	result, err := p.trainWithTimeout(ctx, ticker, ds)
	if err != nil {
		return nil, collapse(err)
	}

	if p.cache != nil && locked {
		if err := p.cache.Set(ctx, key, result, p.cfg.CacheTTL); err != nil && p.l != nil {
			p.l.Warn("forecast cache set failed",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
	}

	if p.l != nil {
		p.l.Info("forecast produced",
			applogger.String("ticker", ticker),
			applogger.Float64("predicted_close", result.PredictedClose),
			applogger.Float64("confidence", result.Confidence),
		)
	}
	return result, nil
}

// trainWithTimeout bounds the CPU-bound fit. Training is the only
// unbounded-duration step besides the provider fetch.
func (p *ForecastPipeline) trainWithTimeout(ctx context.Context, ticker string, ds *features.Dataset) (*models.PredictionResult, error) {
	if p.cfg.TrainTimeout <= 0 {
		return p.model.TrainAndPredict(ticker, ds)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TrainTimeout)
	defer cancel()

	type outcome struct {
		result *models.PredictionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := p.model.TrainAndPredict(ticker, ds)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, models.NewFailure(models.PredictionFailed, "training timed out for %s", ticker)
	}
}

func (p *ForecastPipeline) fingerprint(ctx context.Context, ticker string) string {
	return fmt.Sprintf("forecast:%s:%d:%s", ticker, p.cfg.LookbackDays, p.series.DataVersion(ctx, ticker))
}

// collapse guarantees the pipeline's boundary only ever yields typed
// failures.
func collapse(err error) error {
	if f := models.FailureOf(err); f != nil {
		return err
	}
	return models.WrapFailure(models.PredictionFailed, err, "forecast pipeline fault")
}
