package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/gormdb"
	"TradePilot/pkg/util"
)

// GormLedgerStore persists the portfolio state machine in Postgres.
type GormLedgerStore struct {
	db *gormdb.DB
}

func NewGormLedgerStore(db *gormdb.DB) (*GormLedgerStore, error) {
	if err := gormdb.AutoMigrate(db,
		&models.Portfolio{},
		&models.Holding{},
		&models.Transaction{},
		&models.ValuationSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("ledger migrate: %w", err)
	}
	return &GormLedgerStore{db: db}, nil
}

func (s *GormLedgerStore) LoadPortfolio(ctx context.Context, startingCash float64) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.Gorm.WithContext(ctx).
		Where(models.Portfolio{ID: 1}).
		Attrs(models.Portfolio{CashBalance: startingCash, TotalValue: startingCash}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	return &p, nil
}

func (s *GormLedgerStore) GetHolding(ctx context.Context, ticker string) (*models.Holding, error) {
	var h models.Holding
	err := s.db.Gorm.WithContext(ctx).Where("ticker = ?", ticker).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holding: %w", err)
	}
	return &h, nil
}

func (s *GormLedgerStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	var out []models.Holding
	if err := s.db.Gorm.WithContext(ctx).Order("ticker asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return out, nil
}

func (s *GormLedgerStore) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	q := s.db.Gorm.WithContext(ctx).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (s *GormLedgerStore) ListTransactionsByTicker(ctx context.Context, ticker string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.db.Gorm.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("timestamp asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions by ticker: %w", err)
	}
	return out, nil
}

// ApplyTrade commits the cash mutation, the holding upsert or delete, and
// the transaction append in one database transaction.
func (s *GormLedgerStore) ApplyTrade(ctx context.Context, cashBalance float64, holding *models.Holding, deleteHolding bool, txn *models.Transaction) error {
	return s.db.Gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Portfolio{}).
			Where("id = ?", 1).
			Update("cash_balance", cashBalance).Error; err != nil {
			return fmt.Errorf("update cash: %w", err)
		}

		if deleteHolding {
			if err := tx.Where("ticker = ?", holding.Ticker).
				Delete(&models.Holding{}).Error; err != nil {
				return fmt.Errorf("delete holding: %w", err)
			}
		} else {
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "ticker"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"shares", "avg_cost", "current_price", "updated_at",
				}),
			}).Create(holding).Error; err != nil {
				return fmt.Errorf("upsert holding: %w", err)
			}
		}

		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		return nil
	})
}

func (s *GormLedgerStore) UpsertSnapshot(ctx context.Context, snap *models.ValuationSnapshot) error {
	snap.Date = util.DateOnly(snap.Date)
	err := s.db.Gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_value", "cash_balance", "stock_value", "daily_return",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *GormLedgerStore) LatestSnapshotBefore(ctx context.Context, date time.Time) (*models.ValuationSnapshot, error) {
	var snap models.ValuationSnapshot
	err := s.db.Gorm.WithContext(ctx).
		Where("date < ?", util.DateOnly(date)).
		Order("date desc").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &snap, nil
}

func (s *GormLedgerStore) ListSnapshots(ctx context.Context, days int) ([]models.ValuationSnapshot, error) {
	var out []models.ValuationSnapshot
	q := s.db.Gorm.WithContext(ctx).Order("date desc")
	if days > 0 {
		q = q.Limit(days)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

func (s *GormLedgerStore) UpdateTotals(ctx context.Context, totalValue float64) error {
	err := s.db.Gorm.WithContext(ctx).Model(&models.Portfolio{}).
		Where("id = ?", 1).
		Update("total_value", totalValue).Error
	if err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	return nil
}

func (s *GormLedgerStore) Health(_ context.Context) error {
	return gormdb.Ping(s.db)
}

func (s *GormLedgerStore) Close() error {
	return gormdb.Close(s.db)
}
