package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePilot/internal/domain/models"
	pkgch "TradePilot/pkg/clickhouse"
	applogger "TradePilot/pkg/logger"
)

// BarSchema holds the idempotent DDL for the daily bars table. A
// ReplacingMergeTree keyed by (ticker, date) makes write-through fetches
// naturally deduplicating.
var BarSchema = []string{
	`CREATE DATABASE IF NOT EXISTS tradepilot`,
	`CREATE TABLE IF NOT EXISTS tradepilot.daily_bars (
		ticker LowCardinality(String),
		date   Date,
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (ticker, date)`,
}

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client) *CHBarStore {
	return &CHBarStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHBarStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, BarSchema)
}

func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tradepilot.daily_bars (ticker, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bars: %w", err)
	}

	if s.l != nil {
		s.l.Debug("stored daily bars",
			applogger.String("ticker", bars[0].Ticker),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHBarStore) GetBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error) {
	const q = `
        SELECT ticker, date, open, high, low, close, volume
        FROM tradepilot.daily_bars FINAL
        WHERE ticker = ? AND date >= ? AND date <= ?
        ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, q, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 256)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHBarStore) LatestBarDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	const q = `SELECT max(date) FROM tradepilot.daily_bars WHERE ticker = ?`

	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, q, ticker).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("latest bar date: %w", err)
	}
	if !latest.Valid || latest.Time.IsZero() {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}

// Close releases the underlying ClickHouse connection pool.
func (s *CHBarStore) Close() error {
	return s.client.Close()
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}
