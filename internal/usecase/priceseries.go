package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	applogger "TradePilot/pkg/logger"
	"TradePilot/pkg/util"
)

// DefaultMaxStaleDays is how old the newest cached bar may be before the
// provider is consulted again. Three calendar days tolerates weekends.
const DefaultMaxStaleDays = 3

// PriceSeries fetches, normalizes, and caches daily bars. Reads are served
// from the bar store while fresh; misses go to the provider and are written
// through.
type PriceSeries struct {
	provider     repository.MarketData
	store        repository.BarStore
	l            *applogger.Logger
	maxStaleDays int
}

func NewPriceSeries(provider repository.MarketData, store repository.BarStore, l *applogger.Logger) *PriceSeries {
	return &PriceSeries{
		provider:     provider,
		store:        store,
		l:            l,
		maxStaleDays: DefaultMaxStaleDays,
	}
}

// SetMaxStaleDays overrides the freshness window.
func (ps *PriceSeries) SetMaxStaleDays(days int) {
	if days > 0 {
		ps.maxStaleDays = days
	}
}

// Fetch returns ascending normalized bars for the trailing lookback window.
// Fails with DataUnavailable when neither cache nor provider yields rows.
func (ps *PriceSeries) Fetch(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, models.NewFailure(models.DataUnavailable, "empty ticker")
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -lookbackDays)

	if fresh, err := ps.cachedFresh(ctx, ticker, now); err == nil && fresh {
		bars, err := ps.store.GetBars(ctx, ticker, from, now)
		if err == nil && len(bars) > 0 {
			return normalizeBars(ticker, bars), nil
		}
	}

	fetched, err := ps.provider.DailyBars(ctx, ticker, lookbackDays)
	if err != nil {
		// Stale cache beats no data at all.
		if bars, serr := ps.store.GetBars(ctx, ticker, from, now); serr == nil && len(bars) > 0 {
			if ps.l != nil {
				ps.l.Warn("provider fetch failed, serving stale bars",
					applogger.String("ticker", ticker),
					applogger.Error(err),
				)
			}
			return normalizeBars(ticker, bars), nil
		}
		return nil, models.WrapFailure(models.DataUnavailable, err, "no market data for %s", ticker)
	}

	bars := normalizeBars(ticker, fetched)
	if len(bars) == 0 {
		return nil, models.NewFailure(models.DataUnavailable, "provider returned no rows for %s", ticker)
	}

	if err := ps.store.StoreBars(ctx, bars); err != nil && ps.l != nil {
		ps.l.Warn("bar write-through failed",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
	}
	return bars, nil
}

// DataVersion is a cache fingerprint component: the newest known bar date
// for the ticker, or "none".
func (ps *PriceSeries) DataVersion(ctx context.Context, ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	latest, ok, err := ps.store.LatestBarDate(ctx, ticker)
	if err != nil || !ok {
		return "none"
	}
	return latest.Format("2006-01-02")
}

func (ps *PriceSeries) cachedFresh(ctx context.Context, ticker string, now time.Time) (bool, error) {
	latest, ok, err := ps.store.LatestBarDate(ctx, ticker)
	if err != nil || !ok {
		return false, err
	}
	age := util.DateOnly(now).Sub(util.DateOnly(latest))
	return age <= time.Duration(ps.maxStaleDays)*24*time.Hour, nil
}

// normalizeBars uppercases the ticker, sorts ascending, drops duplicate
// dates and rows that fail basic sanity (non-positive close, high < low).
func normalizeBars(ticker string, bars []models.Bar) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	seen := make(map[time.Time]bool, len(bars))

	sorted := make([]models.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for _, b := range sorted {
		date := util.DateOnly(b.Date)
		if seen[date] {
			continue
		}
		if b.Close <= 0 || b.High < b.Low {
			continue
		}
		seen[date] = true
		b.Ticker = ticker
		b.Date = date
		out = append(out, b)
	}
	return out
}
