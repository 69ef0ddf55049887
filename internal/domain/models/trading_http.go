package models

// Requests for trading HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,min=1,max=12"`
}

type TradeRequest struct {
	Ticker string  `json:"ticker" validate:"required,min=1,max=12"`
	Action string  `json:"action" validate:"required,oneof=BUY SELL buy sell"`
	Shares float64 `json:"shares" validate:"required,gt=0"`
	Price  float64 `json:"price" validate:"required,gt=0"`
}

type HistoryRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=3650"`
}

type TransactionsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
