package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/util"
)

// MemoryBarStore is an in-process BarStore used when ClickHouse is disabled
// and throughout the test suite.
type MemoryBarStore struct {
	mu   sync.RWMutex
	bars map[string]map[time.Time]models.Bar // ticker -> date -> bar
}

func NewMemoryBarStore() *MemoryBarStore {
	return &MemoryBarStore{bars: make(map[string]map[time.Time]models.Bar)}
}

func (s *MemoryBarStore) Init(_ context.Context) error { return nil }

func (s *MemoryBarStore) StoreBars(_ context.Context, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		byDate, ok := s.bars[b.Ticker]
		if !ok {
			byDate = make(map[time.Time]models.Bar)
			s.bars[b.Ticker] = byDate
		}
		byDate[util.DateOnly(b.Date)] = b
	}
	return nil
}

func (s *MemoryBarStore) GetBars(_ context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate, ok := s.bars[ticker]
	if !ok {
		return nil, nil
	}

	from = util.DateOnly(from)
	to = util.DateOnly(to)
	out := make([]models.Bar, 0, len(byDate))
	for date, bar := range byDate {
		if !date.Before(from) && !date.After(to) {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryBarStore) LatestBarDate(_ context.Context, ticker string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate, ok := s.bars[ticker]
	if !ok || len(byDate) == 0 {
		return time.Time{}, false, nil
	}

	var latest time.Time
	for date := range byDate {
		if date.After(latest) {
			latest = date
		}
	}
	return latest, true, nil
}

func (s *MemoryBarStore) Health(_ context.Context) error { return nil }
