package di

import (
	"context"
	"io"
	"time"

	"TradePilot/internal/domain/repository"
	"TradePilot/internal/handler/api"
	repoimpl "TradePilot/internal/repository"
	"TradePilot/internal/service/marketdata"
	"TradePilot/internal/services/features"
	"TradePilot/internal/services/forecast"
	"TradePilot/internal/usecase"
	"TradePilot/pkg/cache"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/config"
	"TradePilot/pkg/gormdb"
	xhttp "TradePilot/pkg/http"
	pkgkafka "TradePilot/pkg/kafka"
	applogger "TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"
	"TradePilot/pkg/server"
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  "info",
		Format: format,
		Output: "stdout",
	})
}

func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns a layered redis-backed cache when redis is enabled,
// otherwise an in-process cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("tradepilot"),
	)
	if err != nil {
		return nil, err
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideBarStore builds the ClickHouse-backed bar store and runs its schema
// DDL, or falls back to the in-memory store when ClickHouse is disabled.
func ProvideBarStore(cfg *config.Config, l *applogger.Logger) (repository.BarStore, error) {
	if !cfg.ClickHouse.Enabled {
		return repoimpl.NewMemoryBarStore(), nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, err
	}

	store := repoimpl.NewCHBarStore(client)
	store.SetLogger(l)
	if err := store.Init(context.Background()); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

func ProvideLedgerStore(cfg *config.Config) (repository.LedgerStore, error) {
	if cfg.Ledger.Backend == "memory" {
		return repoimpl.NewMemoryLedgerStore(), nil
	}

	db, err := gormdb.Open(gormdb.Config{
		DSN:             cfg.Ledger.DSN,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}

	store, err := repoimpl.NewGormLedgerStore(db)
	if err != nil {
		_ = gormdb.Close(db)
		return nil, err
	}
	return store, nil
}

func ProvideTradePublisher(cfg *config.Config) (repository.TradePublisher, error) {
	if !cfg.Kafka.Enabled {
		return repoimpl.NoopTradePublisher{}, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, err
	}
	return repoimpl.NewKafkaTradePublisher(producer, cfg.Kafka.Topic), nil
}

func ProvideMarketData(cfg *config.Config, l *applogger.Logger) repository.MarketData {
	return marketdata.NewStooqProvider(cfg.Market.ProviderURL, cfg.Market.FetchTimeout, l)
}

func ProvidePriceSeries(cfg *config.Config, provider repository.MarketData, store repository.BarStore, l *applogger.Logger) *usecase.PriceSeries {
	series := usecase.NewPriceSeries(provider, store, l)
	series.SetMaxStaleDays(cfg.Market.MaxStaleDays)
	return series
}

func ProvideFeatureBuilder(cfg *config.Config) *features.Builder {
	builder := features.NewBuilder()
	builder.MinSamples = cfg.Forecast.MinSamples
	return builder
}

func ProvideForecastModel(cfg *config.Config) *forecast.Model {
	fc := forecast.DefaultForestConfig()
	fc.Trees = cfg.Forecast.Trees
	fc.MaxDepth = cfg.Forecast.MaxDepth
	fc.Seed = cfg.Forecast.Seed
	return forecast.NewModel(fc)
}

func ProvidePipeline(
	cfg *config.Config,
	series *usecase.PriceSeries,
	builder *features.Builder,
	model *forecast.Model,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ForecastPipeline {
	return usecase.NewForecastPipeline(series, builder, model, c, m, l, usecase.PipelineConfig{
		LookbackDays: cfg.Market.LookbackDays,
		CacheTTL:     cfg.Forecast.CacheTTL,
		TrainTimeout: cfg.Forecast.TrainTimeout,
	})
}

func ProvideLedger(
	cfg *config.Config,
	store repository.LedgerStore,
	publisher repository.TradePublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Ledger {
	return usecase.NewLedger(store, publisher, m, l, cfg.Ledger.StartingCash)
}

func ProvideSimulator(cfg *config.Config, pipeline *usecase.ForecastPipeline, ledger *usecase.Ledger, l *applogger.Logger) *usecase.Simulator {
	return usecase.NewSimulator(pipeline, ledger, cfg.Market.Symbols, time.Now().UnixNano(), l)
}

func ProvideTradingHandler(
	l *applogger.Logger,
	pipeline *usecase.ForecastPipeline,
	ledger *usecase.Ledger,
	sim *usecase.Simulator,
	barStore repository.BarStore,
	ledStore repository.LedgerStore,
) xhttp.Handler {
	return api.NewTradingHandler(l, pipeline, ledger, sim, barStore, ledStore)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	ledger *usecase.Ledger,
	barStore repository.BarStore,
	ledStore repository.LedgerStore,
	publisher repository.TradePublisher,
	c cache.Service,
) *server.App {
	var closers []func() error
	if closer, ok := barStore.(io.Closer); ok {
		closers = append(closers, closer.Close)
	}
	closers = append(closers, ledStore.Close, publisher.Close)
	if closer, ok := c.(io.Closer); ok {
		closers = append(closers, closer.Close)
	}
	return server.New(cfg, l, handler, ledger, closers...)
}
