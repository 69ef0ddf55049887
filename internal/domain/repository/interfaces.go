package repository

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"
)

// MarketData is the injected market-data provider. One attempt per call;
// retry policy belongs to the caller.
type MarketData interface {
	// DailyBars returns ascending daily bars for the trailing lookback
	// window. An empty result means the ticker is unknown or delisted.
	DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error)
}

// BarStore caches normalized daily bars in the fixed-schema bars table
// keyed by (ticker, date).
type BarStore interface {
	Init(ctx context.Context) error
	StoreBars(ctx context.Context, bars []models.Bar) error
	GetBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error)
	LatestBarDate(ctx context.Context, ticker string) (time.Time, bool, error)
	Health(ctx context.Context) error
}

// LedgerStore persists the portfolio state machine. ApplyTrade must be
// atomic: the balance/holding mutation and the transaction append either
// both happen or neither does.
type LedgerStore interface {
	// LoadPortfolio returns the single account row, creating it with the
	// given starting cash on first use.
	LoadPortfolio(ctx context.Context, startingCash float64) (*models.Portfolio, error)
	GetHolding(ctx context.Context, ticker string) (*models.Holding, error)
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	ListTransactionsByTicker(ctx context.Context, ticker string) ([]models.Transaction, error)

	// ApplyTrade writes the new cash balance, upserts or deletes the
	// holding, and appends the transaction in one atomic unit.
	ApplyTrade(ctx context.Context, cashBalance float64, holding *models.Holding, deleteHolding bool, txn *models.Transaction) error

	// UpsertSnapshot writes at most one portfolio_history row per date.
	UpsertSnapshot(ctx context.Context, snap *models.ValuationSnapshot) error
	LatestSnapshotBefore(ctx context.Context, date time.Time) (*models.ValuationSnapshot, error)
	ListSnapshots(ctx context.Context, days int) ([]models.ValuationSnapshot, error)
	UpdateTotals(ctx context.Context, totalValue float64) error

	Health(ctx context.Context) error
	Close() error
}

// TradePublisher streams executed transactions to an external audit topic.
type TradePublisher interface {
	PublishTrade(ctx context.Context, txn *models.Transaction) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordForecast(ticker, status string)
	RecordTrade(action string)
	RecordLastPrediction(ticker string, predicted float64)
	RecordPortfolioValue(total float64)
	RecordLatency(op string, seconds float64)
}
