package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Market struct {
		ProviderURL  string        `yaml:"provider_url"`
		Symbols      []string      `yaml:"symbols"`
		LookbackDays int           `yaml:"lookback_days"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		MaxStaleDays int           `yaml:"max_stale_days"`
	} `yaml:"market"`
	Forecast struct {
		Trees        int           `yaml:"trees"`
		MinSamples   int           `yaml:"min_samples"`
		MaxDepth     int           `yaml:"max_depth"`
		Seed         int64         `yaml:"seed"`
		TrainTimeout time.Duration `yaml:"train_timeout"`
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"forecast"`
	Ledger struct {
		Backend      string  `yaml:"backend"` // "postgres" or "memory"
		DSN          string  `yaml:"dsn"`
		StartingCash float64 `yaml:"starting_cash"`
	} `yaml:"ledger"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
	Snapshot struct {
		CronEnabled bool   `yaml:"cron_enabled"`
		CronSpec    string `yaml:"cron_spec"`
	} `yaml:"snapshot"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MARKET_PROVIDER_URL"); v != "" {
		c.Market.ProviderURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Market.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("LEDGER_DSN"); v != "" {
		c.Ledger.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Market.LookbackDays <= 0 {
		c.Market.LookbackDays = 365
	}
	if c.Market.FetchTimeout <= 0 {
		c.Market.FetchTimeout = 15 * time.Second
	}
	if c.Market.MaxStaleDays <= 0 {
		c.Market.MaxStaleDays = 3
	}
	if c.Forecast.Trees <= 0 {
		c.Forecast.Trees = 64
	}
	if c.Forecast.MinSamples <= 0 {
		c.Forecast.MinSamples = 30
	}
	if c.Forecast.MaxDepth <= 0 {
		c.Forecast.MaxDepth = 12
	}
	if c.Forecast.Seed == 0 {
		c.Forecast.Seed = 1
	}
	if c.Forecast.TrainTimeout <= 0 {
		c.Forecast.TrainTimeout = 30 * time.Second
	}
	if c.Forecast.CacheTTL <= 0 {
		c.Forecast.CacheTTL = 15 * time.Minute
	}
	if c.Ledger.StartingCash <= 0 {
		c.Ledger.StartingCash = 10000
	}
	if c.Snapshot.CronSpec == "" {
		c.Snapshot.CronSpec = "5 0 * * *"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Ledger.Backend == "" {
		return fmt.Errorf("ledger.backend is required")
	}
	if c.Ledger.Backend != "postgres" && c.Ledger.Backend != "memory" {
		return fmt.Errorf("ledger.backend must be 'postgres' or 'memory', got '%s'", c.Ledger.Backend)
	}
	if c.Ledger.Backend == "postgres" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn is required for postgres backend")
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	if c.Market.ProviderURL == "" {
		return fmt.Errorf("market.provider_url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
