package usecase

import (
	"TradePilot/internal/domain/models"
)

// Decision policy thresholds. Reproduced exactly; the engine must stay a
// pure function of its inputs.
const (
	buyReturnThreshold  = 0.02
	buyConfidenceFloor  = 0.6
	sellReturnThreshold = -0.02
	maxBuyBudget        = 1000.0
	buyCashFraction     = 0.10
	sellFraction        = 0.5
)

// Decide maps a forecast onto a trade intent. BUY sizes a fraction of cash
// (fractional shares); SELL half-liquidates an existing position and has no
// confidence gate. Anything else is HOLD.
func Decide(pred *models.PredictionResult, holding *models.Holding, cashBalance float64) models.TradeIntent {
	r := pred.PredictedReturn()

	if r > buyReturnThreshold && pred.Confidence > buyConfidenceFloor && pred.LastClose > 0 {
		budget := cashBalance * buyCashFraction
		if budget > maxBuyBudget {
			budget = maxBuyBudget
		}
		shares := budget / pred.LastClose
		if shares > 0 {
			return models.TradeIntent{
				Action: models.ActionBuy,
				Ticker: pred.Ticker,
				Shares: shares,
				Price:  pred.LastClose,
			}
		}
	}

	if r < sellReturnThreshold && holding != nil && holding.Shares > 0 {
		return models.TradeIntent{
			Action: models.ActionSell,
			Ticker: pred.Ticker,
			Shares: holding.Shares * sellFraction,
			Price:  pred.LastClose,
		}
	}

	return models.TradeIntent{Action: models.ActionHold, Ticker: pred.Ticker}
}
