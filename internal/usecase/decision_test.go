package usecase

import (
	"testing"

	"TradePilot/internal/domain/models"
)

func pred(predicted, last, confidence float64) *models.PredictionResult {
	return &models.PredictionResult{
		Ticker:         "AAPL",
		PredictedClose: predicted,
		LastClose:      last,
		Confidence:     confidence,
	}
}

func TestDecideBuy(t *testing.T) {
	intent := Decide(pred(110, 100, 0.7), nil, 10000)
	if intent.Action != models.ActionBuy {
		t.Fatalf("action = %s, want BUY", intent.Action)
	}
	// min(1000, 10000*0.10) / 100 = 10 shares.
	if intent.Shares != 10 {
		t.Fatalf("shares = %v, want 10", intent.Shares)
	}
	if intent.Price != 100 {
		t.Fatalf("price = %v, want 100", intent.Price)
	}
}

func TestDecideBuyBudgetCap(t *testing.T) {
	// 10% of 50,000 exceeds the 1,000 cap.
	intent := Decide(pred(110, 100, 0.9), nil, 50000)
	if intent.Action != models.ActionBuy {
		t.Fatalf("action = %s, want BUY", intent.Action)
	}
	if intent.Shares != 10 {
		t.Fatalf("shares = %v, want 10 (1000/100)", intent.Shares)
	}
}

func TestDecideSellHalvesPosition(t *testing.T) {
	holding := &models.Holding{Ticker: "AAPL", Shares: 200, AvgCost: 90}
	intent := Decide(pred(90, 100, 0.7), holding, 10000)
	if intent.Action != models.ActionSell {
		t.Fatalf("action = %s, want SELL", intent.Action)
	}
	if intent.Shares != 100 {
		t.Fatalf("shares = %v, want 100", intent.Shares)
	}
}

func TestDecideSellNeedsHolding(t *testing.T) {
	intent := Decide(pred(90, 100, 0.7), nil, 10000)
	if intent.Action != models.ActionHold {
		t.Fatalf("action = %s, want HOLD without a position", intent.Action)
	}
}

func TestDecideSellIgnoresConfidence(t *testing.T) {
	holding := &models.Holding{Ticker: "AAPL", Shares: 10, AvgCost: 90}
	intent := Decide(pred(90, 100, 0.1), holding, 10000)
	if intent.Action != models.ActionSell {
		t.Fatalf("action = %s, want SELL (no confidence gate)", intent.Action)
	}
}

func TestDecideHold(t *testing.T) {
	cases := []struct {
		name string
		p    *models.PredictionResult
	}{
		{"small positive return", pred(101, 100, 0.9)},
		{"low confidence buy", pred(110, 100, 0.5)},
		{"boundary return", pred(102, 100, 0.9)},
		{"boundary confidence", pred(110, 100, 0.6)},
		{"small negative return", pred(99, 100, 0.9)},
		{"zero last close", pred(10, 0, 0.9)},
	}
	for _, tc := range cases {
		if intent := Decide(tc.p, nil, 10000); intent.Action != models.ActionHold {
			t.Fatalf("%s: action = %s, want HOLD", tc.name, intent.Action)
		}
	}
}

func TestDecideDeterministic(t *testing.T) {
	p := pred(110, 100, 0.7)
	first := Decide(p, nil, 10000)
	for i := 0; i < 5; i++ {
		if got := Decide(p, nil, 10000); got != first {
			t.Fatalf("decision not deterministic: %+v vs %+v", got, first)
		}
	}
}
