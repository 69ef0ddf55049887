package models

import "time"

// TradeAction is the discrete intent produced by the decision engine.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// TradeIntent is the decision engine's output: what to do and how much.
// Shares is fractional in the autonomous path; manual trades carry their
// own caller-supplied count.
type TradeIntent struct {
	Action TradeAction `json:"action"`
	Ticker string      `json:"ticker"`
	Shares float64     `json:"shares"`
	Price  float64     `json:"price"`
}

// Portfolio is the single-row account header: uninvested cash plus the
// last computed total value. Mutated only through ledger operations.
type Portfolio struct {
	ID          uint      `gorm:"primaryKey"`
	CashBalance float64   `gorm:"not null"`
	TotalValue  float64   `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Portfolio) TableName() string { return "portfolios" }

// Holding is one open position. Shares is strictly positive while the row
// exists; a sell that empties the position deletes the row.
type Holding struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Ticker       string    `gorm:"type:varchar(12);not null;uniqueIndex"`
	Shares       float64   `gorm:"not null"`
	AvgCost      float64   `gorm:"not null"`
	CurrentPrice float64   `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Holding) TableName() string { return "holdings" }

// MarketValue is shares times the last seen price, falling back to the
// average cost when no price was ever recorded.
func (h *Holding) MarketValue() float64 {
	price := h.CurrentPrice
	if price == 0 {
		price = h.AvgCost
	}
	return h.Shares * price
}

// Transaction is one immutable row of the append-only audit trail.
// Prediction and Confidence are nil for manual trades.
type Transaction struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement"`
	Ticker      string      `gorm:"type:varchar(12);not null;index"`
	Action      TradeAction `gorm:"type:varchar(4);not null"`
	Shares      float64     `gorm:"not null"`
	Price       float64     `gorm:"not null"`
	TotalAmount float64     `gorm:"not null"`
	Prediction  *float64
	Confidence  *float64
	Timestamp   time.Time `gorm:"autoCreateTime;index"`
}

func (Transaction) TableName() string { return "transactions" }

// ValuationSnapshot is one row of the portfolio_history series, at most one
// per calendar day (UTC). DailyReturn is relative to the latest strictly
// earlier snapshot, 0 when none exists.
type ValuationSnapshot struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Date        time.Time `gorm:"type:date;not null;uniqueIndex"`
	TotalValue  float64   `gorm:"not null"`
	CashBalance float64   `gorm:"not null"`
	StockValue  float64   `gorm:"not null"`
	DailyReturn float64   `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ValuationSnapshot) TableName() string { return "portfolio_history" }

// HoldingView decorates a holding with its computed market value for
// summary responses.
type HoldingView struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
}

// PortfolioSummary is the read-only view handed to the HTTP layer.
type PortfolioSummary struct {
	CashBalance        float64       `json:"cash_balance"`
	StockValue         float64       `json:"stock_value"`
	TotalValue         float64       `json:"total_value"`
	Holdings           []HoldingView `json:"holdings"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

// TradeResult reports the outcome of one executed (or rejected) trade.
type TradeResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// TickReport summarizes one autonomous simulation pass.
type TickReport struct {
	Ticker     string       `json:"ticker"`
	Intent     *TradeIntent `json:"intent,omitempty"`
	Trade      *TradeResult `json:"trade,omitempty"`
	Forecast   *float64     `json:"prediction,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	Message    string       `json:"message"`
}
