package usecase

import (
	"context"
	"math"
	"testing"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/repository"
)

func newTestLedger() (*Ledger, *repository.MemoryLedgerStore) {
	store := repository.NewMemoryLedgerStore()
	return NewLedger(store, repository.NoopTradePublisher{}, nil, nil, DefaultStartingCash), store
}

func buy(ticker string, shares, price float64) models.TradeIntent {
	return models.TradeIntent{Action: models.ActionBuy, Ticker: ticker, Shares: shares, Price: price}
}

func sell(ticker string, shares, price float64) models.TradeIntent {
	return models.TradeIntent{Action: models.ActionSell, Ticker: ticker, Shares: shares, Price: price}
}

func TestLedgerScenario(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	res, err := lg.ExecuteTrade(ctx, buy("AAPL", 10, 150), nil, nil)
	if err != nil || !res.OK {
		t.Fatalf("buy failed: %v %+v", err, res)
	}
	if res.Message != "Successfully bought 10 shares of AAPL at $150.00" {
		t.Fatalf("unexpected message %q", res.Message)
	}

	if cash, _ := lg.CashBalance(ctx); cash != 8500 {
		t.Fatalf("cash = %v, want 8500", cash)
	}
	h, _ := lg.Holding(ctx, "AAPL")
	if h == nil || h.Shares != 10 || h.AvgCost != 150 {
		t.Fatalf("holding = %+v", h)
	}

	res, err = lg.ExecuteTrade(ctx, sell("aapl", 5, 160), nil, nil)
	if err != nil || !res.OK {
		t.Fatalf("sell failed: %v %+v", err, res)
	}

	if cash, _ := lg.CashBalance(ctx); cash != 9300 {
		t.Fatalf("cash = %v, want 9300", cash)
	}
	h, _ = lg.Holding(ctx, "AAPL")
	if h == nil || h.Shares != 5 || h.AvgCost != 150 || h.CurrentPrice != 160 {
		t.Fatalf("holding after sell = %+v", h)
	}

	summary, err := lg.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalValue != 10100 {
		t.Fatalf("total = %v, want 10100", summary.TotalValue)
	}
	if summary.StockValue != 800 {
		t.Fatalf("stock value = %v, want 800", summary.StockValue)
	}
}

func TestLedgerTransactionActions(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 10, 150))
	mustTrade(t, lg, sell("AAPL", 5, 160))

	txns, err := lg.Transactions(ctx, 10)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	// Newest first.
	if txns[0].Action != models.ActionSell || txns[1].Action != models.ActionBuy {
		t.Fatalf("actions = %v, %v", txns[0].Action, txns[1].Action)
	}
}

func TestLedgerWeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	mustTrade(t, lg, buy("MSFT", 10, 100))
	mustTrade(t, lg, buy("MSFT", 10, 200))

	h, _ := lg.Holding(ctx, "MSFT")
	if h == nil || h.Shares != 20 {
		t.Fatalf("holding = %+v", h)
	}
	// (10*100 + 10*200) / 20 = 150.
	if math.Abs(h.AvgCost-150) > 1e-9 {
		t.Fatalf("avg cost = %v, want 150", h.AvgCost)
	}
}

func TestLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	lg, store := newTestLedger()

	res, err := lg.ExecuteTrade(ctx, buy("AAPL", 1000, 50), nil, nil)
	if err == nil || res.OK {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !models.IsKind(err, models.InsufficientFunds) {
		t.Fatalf("expected InsufficientFunds, got %v", err)
	}
	if res.Message != "Insufficient funds" {
		t.Fatalf("message = %q", res.Message)
	}

	// No partial mutation.
	if cash, _ := lg.CashBalance(ctx); cash != DefaultStartingCash {
		t.Fatalf("cash mutated to %v", cash)
	}
	txns, _ := store.ListTransactions(ctx, 0)
	if len(txns) != 0 {
		t.Fatalf("transaction appended on failure")
	}
}

func TestLedgerInsufficientShares(t *testing.T) {
	ctx := context.Background()
	lg, store := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 5, 100))

	res, err := lg.ExecuteTrade(ctx, sell("AAPL", 10, 100), nil, nil)
	if err == nil || res.OK {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !models.IsKind(err, models.InsufficientShares) {
		t.Fatalf("expected InsufficientShares, got %v", err)
	}

	h, _ := lg.Holding(ctx, "AAPL")
	if h == nil || h.Shares != 5 {
		t.Fatalf("holding mutated: %+v", h)
	}
	txns, _ := store.ListTransactions(ctx, 0)
	if len(txns) != 1 {
		t.Fatalf("expected only the buy transaction, got %d", len(txns))
	}
}

func TestLedgerSellAllDeletesHolding(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 5, 100))
	mustTrade(t, lg, sell("AAPL", 5, 110))

	h, _ := lg.Holding(ctx, "AAPL")
	if h != nil {
		t.Fatalf("expected holding removed at zero shares, got %+v", h)
	}
}

func TestLedgerInvalidParameters(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	cases := []models.TradeIntent{
		{Action: models.ActionBuy, Ticker: "", Shares: 1, Price: 1},
		{Action: "SHORT", Ticker: "AAPL", Shares: 1, Price: 1},
		{Action: models.ActionBuy, Ticker: "AAPL", Shares: 0, Price: 1},
		{Action: models.ActionBuy, Ticker: "AAPL", Shares: -1, Price: 1},
		{Action: models.ActionBuy, Ticker: "AAPL", Shares: 1, Price: 0},
		{Action: models.ActionBuy, Ticker: "AAPL", Shares: math.NaN(), Price: 1},
	}
	for i, intent := range cases {
		_, err := lg.ExecuteTrade(ctx, intent, nil, nil)
		if !models.IsKind(err, models.InvalidTradeParameters) {
			t.Fatalf("case %d: expected InvalidTradeParameters, got %v", i, err)
		}
	}
}

func TestLedgerReconciliation(t *testing.T) {
	ctx := context.Background()
	lg, store := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 10, 100))
	mustTrade(t, lg, buy("AAPL", 4, 110))
	mustTrade(t, lg, sell("AAPL", 6, 120))
	mustTrade(t, lg, buy("AAPL", 2, 105))

	txns, err := store.ListTransactionsByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var net float64
	for _, txn := range txns {
		switch txn.Action {
		case "BUY":
			net += txn.Shares
		case "SELL":
			net -= txn.Shares
		}
	}

	h, _ := lg.Holding(ctx, "AAPL")
	if h == nil || math.Abs(h.Shares-net) > 1e-9 {
		t.Fatalf("reconciliation failed: log net %v vs holding %+v", net, h)
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 10, 100))

	s1, err := lg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	s2, err := lg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if !s1.Date.Equal(s2.Date) || s1.TotalValue != s2.TotalValue {
		t.Fatalf("snapshots differ: %+v vs %+v", s1, s2)
	}
	history, _ := lg.History(ctx, 0)
	if len(history) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(history))
	}
	// First day has no prior snapshot.
	if s1.DailyReturn != 0 {
		t.Fatalf("first-day return = %v, want 0", s1.DailyReturn)
	}
}

func TestSnapshotInvariantI1(t *testing.T) {
	ctx := context.Background()
	lg, _ := newTestLedger()

	mustTrade(t, lg, buy("AAPL", 10, 150))
	mustTrade(t, lg, buy("MSFT", 3, 300))
	mustTrade(t, lg, sell("AAPL", 5, 160))

	snap, err := lg.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if math.Abs(snap.TotalValue-(snap.CashBalance+snap.StockValue)) > 1e-9 {
		t.Fatalf("I1 violated: %+v", snap)
	}
}

func mustTrade(t *testing.T, lg *Ledger, intent models.TradeIntent) {
	t.Helper()
	res, err := lg.ExecuteTrade(context.Background(), intent, nil, nil)
	if err != nil || !res.OK {
		t.Fatalf("trade %+v failed: %v %+v", intent, err, res)
	}
}
