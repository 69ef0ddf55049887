package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecastsTotal *prometheus.CounterVec
	tradesTotal    *prometheus.CounterVec
	lastPrediction *prometheus.GaugeVec
	portfolioValue prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_forecasts_total",
				Help: "Total number of forecast requests by outcome",
			},
			[]string{"ticker", "status"},
		),
		tradesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_trades_total",
				Help: "Total number of executed trades",
			},
			[]string{"action"},
		),
		lastPrediction: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepilot_last_predicted_close",
				Help: "Last predicted close for a ticker",
			},
			[]string{"ticker"},
		),
		portfolioValue: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradepilot_portfolio_total_value",
				Help: "Last computed total portfolio value",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecast records a forecast attempt and its outcome.
func (r *Recorder) RecordForecast(ticker, status string) {
	r.forecastsTotal.WithLabelValues(ticker, status).Inc()
}

// RecordTrade records one executed trade.
func (r *Recorder) RecordTrade(action string) {
	r.tradesTotal.WithLabelValues(action).Inc()
}

// RecordLastPrediction records the most recent point prediction.
func (r *Recorder) RecordLastPrediction(ticker string, predicted float64) {
	r.lastPrediction.WithLabelValues(ticker).Set(predicted)
}

// RecordPortfolioValue records the portfolio valuation.
func (r *Recorder) RecordPortfolioValue(total float64) {
	r.portfolioValue.Set(total)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
