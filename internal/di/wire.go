//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TradePilot/pkg/config"
	"TradePilot/pkg/server"
)

// InitializeApp wires the application graph from configuration.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideBarStore,
		ProvideLedgerStore,
		ProvideTradePublisher,
		ProvideMarketData,
		ProvidePriceSeries,
		ProvideFeatureBuilder,
		ProvideForecastModel,
		ProvidePipeline,
		ProvideLedger,
		ProvideSimulator,
		ProvideTradingHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
