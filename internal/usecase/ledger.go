package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/repository"
	applogger "TradePilot/pkg/logger"
	"TradePilot/pkg/util"
)

// DefaultStartingCash is the initial endowment of a fresh portfolio.
const DefaultStartingCash = 10000.0

const recentTransactionLimit = 10

// Ledger is the authoritative portfolio state machine. Operations are
// serialized with a mutex because BUY/SELL read-then-write the cash balance
// and holding row; store-level atomicity covers each mutation.
type Ledger struct {
	mu           sync.Mutex
	store        repository.LedgerStore
	publisher    repository.TradePublisher
	metrics      repository.Metrics
	l            *applogger.Logger
	startingCash float64
}

func NewLedger(store repository.LedgerStore, publisher repository.TradePublisher, metrics repository.Metrics, l *applogger.Logger, startingCash float64) *Ledger {
	if startingCash <= 0 {
		startingCash = DefaultStartingCash
	}
	return &Ledger{
		store:        store,
		publisher:    publisher,
		metrics:      metrics,
		l:            l,
		startingCash: startingCash,
	}
}

// ExecuteTrade applies one BUY or SELL. Policy violations return a failed
// TradeResult together with the typed failure; the ledger state is left
// untouched. Money arithmetic runs on decimals so repeated trades cannot
// drift the cash balance.
func (lg *Ledger) ExecuteTrade(ctx context.Context, intent models.TradeIntent, prediction, confidence *float64) (*models.TradeResult, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	ticker := strings.ToUpper(strings.TrimSpace(intent.Ticker))
	action := models.TradeAction(strings.ToUpper(string(intent.Action)))

	if ticker == "" || (action != models.ActionBuy && action != models.ActionSell) ||
		!isPositiveFinite(intent.Shares) || !isPositiveFinite(intent.Price) {
		err := models.NewFailure(models.InvalidTradeParameters,
			"invalid trade: ticker=%q action=%q shares=%v price=%v",
			intent.Ticker, intent.Action, intent.Shares, intent.Price)
		return &models.TradeResult{OK: false, Message: "Invalid trade parameters"}, err
	}

	portfolio, err := lg.store.LoadPortfolio(ctx, lg.startingCash)
	if err != nil {
		return nil, err
	}
	holding, err := lg.store.GetHolding(ctx, ticker)
	if err != nil {
		return nil, err
	}

	shares := decimal.NewFromFloat(intent.Shares)
	price := decimal.NewFromFloat(intent.Price)
	amount := shares.Mul(price)
	cash := decimal.NewFromFloat(portfolio.CashBalance)

	var newCash decimal.Decimal
	var newHolding models.Holding
	var deleteHolding bool

	switch action {
	case models.ActionBuy:
		if amount.GreaterThan(cash) {
			err := models.NewFailure(models.InsufficientFunds,
				"buy %s needs %s, cash %s", ticker, amount.StringFixed(2), cash.StringFixed(2))
			return &models.TradeResult{OK: false, Message: "Insufficient funds"}, err
		}
		newCash = cash.Sub(amount)

		if holding == nil {
			newHolding = models.Holding{
				Ticker:       ticker,
				Shares:       intent.Shares,
				AvgCost:      intent.Price,
				CurrentPrice: intent.Price,
			}
		} else {
			oldShares := decimal.NewFromFloat(holding.Shares)
			oldAvg := decimal.NewFromFloat(holding.AvgCost)
			totalShares := oldShares.Add(shares)
			newAvg := oldShares.Mul(oldAvg).Add(amount).Div(totalShares)
			newHolding = models.Holding{
				ID:           holding.ID,
				Ticker:       ticker,
				Shares:       totalShares.InexactFloat64(),
				AvgCost:      newAvg.InexactFloat64(),
				CurrentPrice: intent.Price,
			}
		}

	case models.ActionSell:
		if holding == nil || decimal.NewFromFloat(holding.Shares).LessThan(shares) {
			err := models.NewFailure(models.InsufficientShares,
				"sell %v shares of %s, held %v", intent.Shares, ticker, heldShares(holding))
			return &models.TradeResult{OK: false, Message: "Insufficient shares"}, err
		}
		newCash = cash.Add(amount)

		remaining := decimal.NewFromFloat(holding.Shares).Sub(shares)
		if remaining.IsZero() || remaining.IsNegative() {
			deleteHolding = true
			newHolding = models.Holding{ID: holding.ID, Ticker: ticker}
		} else {
			newHolding = models.Holding{
				ID:           holding.ID,
				Ticker:       ticker,
				Shares:       remaining.InexactFloat64(),
				AvgCost:      holding.AvgCost,
				CurrentPrice: intent.Price,
			}
		}
	}

	txn := &models.Transaction{
		Ticker:      ticker,
		Action:      action,
		Shares:      intent.Shares,
		Price:       intent.Price,
		TotalAmount: amount.InexactFloat64(),
		Prediction:  prediction,
		Confidence:  confidence,
		Timestamp:   time.Now().UTC(),
	}

	if err := lg.store.ApplyTrade(ctx, newCash.InexactFloat64(), &newHolding, deleteHolding, txn); err != nil {
		return nil, fmt.Errorf("apply trade: %w", err)
	}

	if lg.metrics != nil {
		lg.metrics.RecordTrade(string(action))
	}
	if lg.publisher != nil {
		if err := lg.publisher.PublishTrade(ctx, txn); err != nil && lg.l != nil {
			lg.l.Warn("trade publish failed",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
	}

	verb := "bought"
	if action == models.ActionSell {
		verb = "sold"
	}
	msg := fmt.Sprintf("Successfully %s %s shares of %s at $%.2f",
		verb, formatShares(intent.Shares), ticker, intent.Price)

	if lg.l != nil {
		lg.l.Info("trade executed",
			applogger.String("ticker", ticker),
			applogger.String("action", string(action)),
			applogger.Float64("shares", intent.Shares),
			applogger.Float64("price", intent.Price),
		)
	}
	return &models.TradeResult{OK: true, Message: msg}, nil
}

// Summary returns cash, stock value, totals, holdings, and recent
// transactions. Totals are persisted back so I1 holds at rest.
func (lg *Ledger) Summary(ctx context.Context) (*models.PortfolioSummary, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.summaryLocked(ctx)
}

func (lg *Ledger) summaryLocked(ctx context.Context) (*models.PortfolioSummary, error) {
	portfolio, err := lg.store.LoadPortfolio(ctx, lg.startingCash)
	if err != nil {
		return nil, err
	}
	holdings, err := lg.store.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}

	stockValue := decimal.Zero
	views := make([]models.HoldingView, 0, len(holdings))
	for _, h := range holdings {
		mv := h.MarketValue()
		stockValue = stockValue.Add(decimal.NewFromFloat(mv))
		views = append(views, models.HoldingView{
			Ticker:       h.Ticker,
			Shares:       h.Shares,
			AvgCost:      h.AvgCost,
			CurrentPrice: h.CurrentPrice,
			MarketValue:  mv,
		})
	}

	total := decimal.NewFromFloat(portfolio.CashBalance).Add(stockValue).InexactFloat64()
	if err := lg.store.UpdateTotals(ctx, total); err != nil {
		return nil, err
	}
	if lg.metrics != nil {
		lg.metrics.RecordPortfolioValue(total)
	}

	recent, err := lg.store.ListTransactions(ctx, recentTransactionLimit)
	if err != nil {
		return nil, err
	}

	return &models.PortfolioSummary{
		CashBalance:        portfolio.CashBalance,
		StockValue:         stockValue.InexactFloat64(),
		TotalValue:         total,
		Holdings:           views,
		RecentTransactions: recent,
	}, nil
}

// Snapshot upserts today's valuation row. Re-invoking on the same day
// overwrites the row rather than duplicating it. daily_return compares
// against the most recent strictly-earlier snapshot, 0 on the first day.
func (lg *Ledger) Snapshot(ctx context.Context) (*models.ValuationSnapshot, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	summary, err := lg.summaryLocked(ctx)
	if err != nil {
		return nil, err
	}

	today := util.DateOnly(time.Now().UTC())
	prev, err := lg.store.LatestSnapshotBefore(ctx, today)
	if err != nil {
		return nil, err
	}

	dailyReturn := 0.0
	if prev != nil && prev.TotalValue > 0 {
		dailyReturn = (summary.TotalValue - prev.TotalValue) / prev.TotalValue
	}

	snap := &models.ValuationSnapshot{
		Date:        today,
		TotalValue:  summary.TotalValue,
		CashBalance: summary.CashBalance,
		StockValue:  summary.StockValue,
		DailyReturn: dailyReturn,
	}
	if err := lg.store.UpsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// History returns the most recent N valuation snapshots, newest first.
func (lg *Ledger) History(ctx context.Context, days int) ([]models.ValuationSnapshot, error) {
	return lg.store.ListSnapshots(ctx, days)
}

// Transactions returns the most recent transactions, newest first.
func (lg *Ledger) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	return lg.store.ListTransactions(ctx, limit)
}

// Holding returns the open position for a ticker, nil when absent.
func (lg *Ledger) Holding(ctx context.Context, ticker string) (*models.Holding, error) {
	return lg.store.GetHolding(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
}

// CashBalance reads the current cash balance.
func (lg *Ledger) CashBalance(ctx context.Context) (float64, error) {
	p, err := lg.store.LoadPortfolio(ctx, lg.startingCash)
	if err != nil {
		return 0, err
	}
	return p.CashBalance, nil
}

func heldShares(h *models.Holding) float64 {
	if h == nil {
		return 0
	}
	return h.Shares
}

func formatShares(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
