package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/util"
)

// MemoryLedgerStore is the in-process LedgerStore used when
// ledger.backend is "memory" and throughout the test suite. It applies the
// same atomicity contract as the Postgres store: ApplyTrade mutates
// everything under one lock.
type MemoryLedgerStore struct {
	mu        sync.RWMutex
	portfolio *models.Portfolio
	holdings  map[string]models.Holding
	txns      []models.Transaction
	snaps     map[time.Time]models.ValuationSnapshot
	nextTxnID uint64
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		holdings:  make(map[string]models.Holding),
		snaps:     make(map[time.Time]models.ValuationSnapshot),
		nextTxnID: 1,
	}
}

func (s *MemoryLedgerStore) LoadPortfolio(_ context.Context, startingCash float64) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.portfolio == nil {
		now := time.Now().UTC()
		s.portfolio = &models.Portfolio{
			ID:          1,
			CashBalance: startingCash,
			TotalValue:  startingCash,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	p := *s.portfolio
	return &p, nil
}

func (s *MemoryLedgerStore) GetHolding(_ context.Context, ticker string) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[ticker]
	if !ok {
		return nil, nil
	}
	out := h
	return &out, nil
}

func (s *MemoryLedgerStore) ListHoldings(_ context.Context) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *MemoryLedgerStore) ListTransactions(_ context.Context, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, len(s.txns))
	copy(out, s.txns)
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryLedgerStore) ListTransactionsByTicker(_ context.Context, ticker string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, t := range s.txns {
		if t.Ticker == ticker {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryLedgerStore) ApplyTrade(_ context.Context, cashBalance float64, holding *models.Holding, deleteHolding bool, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolio.CashBalance = cashBalance
	s.portfolio.UpdatedAt = time.Now().UTC()

	if deleteHolding {
		delete(s.holdings, holding.Ticker)
	} else {
		h := *holding
		h.UpdatedAt = time.Now().UTC()
		s.holdings[h.Ticker] = h
	}

	t := *txn
	t.ID = s.nextTxnID
	s.nextTxnID++
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	s.txns = append(s.txns, t)
	txn.ID = t.ID
	txn.Timestamp = t.Timestamp
	return nil
}

func (s *MemoryLedgerStore) UpsertSnapshot(_ context.Context, snap *models.ValuationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Date = util.DateOnly(snap.Date)
	s.snaps[snap.Date] = *snap
	return nil
}

func (s *MemoryLedgerStore) LatestSnapshotBefore(_ context.Context, date time.Time) (*models.ValuationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := util.DateOnly(date)
	var best *models.ValuationSnapshot
	for d, snap := range s.snaps {
		if d.Before(cutoff) && (best == nil || d.After(best.Date)) {
			out := snap
			best = &out
		}
	}
	return best, nil
}

func (s *MemoryLedgerStore) ListSnapshots(_ context.Context, days int) ([]models.ValuationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ValuationSnapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if days > 0 && len(out) > days {
		out = out[:days]
	}
	return out, nil
}

func (s *MemoryLedgerStore) UpdateTotals(_ context.Context, totalValue float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolio.TotalValue = totalValue
	s.portfolio.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryLedgerStore) Health(_ context.Context) error { return nil }

func (s *MemoryLedgerStore) Close() error { return nil }
