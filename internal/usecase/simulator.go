package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"TradePilot/internal/domain/models"
	applogger "TradePilot/pkg/logger"
)

// Simulator runs one autonomous tick: pick a ticker, forecast, decide,
// execute, snapshot. A failed forecast never fails the tick; it reports the
// reason and trades nothing.
type Simulator struct {
	pipeline *ForecastPipeline
	ledger   *Ledger
	symbols  []string
	l        *applogger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(pipeline *ForecastPipeline, ledger *Ledger, symbols []string, seed int64, l *applogger.Logger) *Simulator {
	return &Simulator{
		pipeline: pipeline,
		ledger:   ledger,
		symbols:  symbols,
		l:        l,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Tick performs one simulation pass and always returns a report; the error
// is reserved for ledger/storage faults.
func (s *Simulator) Tick(ctx context.Context) (*models.TickReport, error) {
	if len(s.symbols) == 0 {
		return &models.TickReport{Message: "no symbols configured"}, nil
	}

	s.mu.Lock()
	ticker := s.symbols[s.rng.Intn(len(s.symbols))]
	s.mu.Unlock()

	report := &models.TickReport{Ticker: ticker}

	pred, err := s.pipeline.Forecast(ctx, ticker)
	if err != nil {
		report.Message = fmt.Sprintf("forecast failed: %v", err)
		if s.l != nil {
			s.l.Warn("simulation tick skipped",
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return report, nil
	}

	predicted := pred.PredictedClose
	confidence := pred.Confidence
	report.Forecast = &predicted
	report.Confidence = &confidence

	holding, err := s.ledger.Holding(ctx, ticker)
	if err != nil {
		return nil, err
	}
	cash, err := s.ledger.CashBalance(ctx)
	if err != nil {
		return nil, err
	}

	intent := Decide(pred, holding, cash)
	report.Intent = &intent

	if intent.Action == models.ActionHold {
		report.Message = "no trade signal"
	} else {
		result, err := s.ledger.ExecuteTrade(ctx, intent, &predicted, &confidence)
		if err != nil && result == nil {
			return nil, err
		}
		report.Trade = result
		report.Message = result.Message
	}

	if _, err := s.ledger.Snapshot(ctx); err != nil {
		return nil, err
	}
	return report, nil
}
