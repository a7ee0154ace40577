// Package journal persists paper-trade predictions and the per-cycle
// signals CSV. The prediction log survives restarts so accuracy stats keep
// accumulating across sessions.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal wraps the prediction database.
type Journal struct {
	db *gorm.DB
}

// Prediction is one paper-trade entry and its eventual settlement.
type Prediction struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	MarketID    string `gorm:"index"`
	MarketSlug  string `gorm:"index"`
	Direction   string // "UP" or "DOWN"
	PriceToBeat decimal.Decimal `gorm:"type:decimal(20,6)"`
	EntryPrice  decimal.Decimal `gorm:"type:decimal(20,6)"`
	ModelProb   decimal.Decimal `gorm:"type:decimal(10,6)"`
	Settled     bool            `gorm:"index"`
	Correct     bool
	FinalPrice  decimal.Decimal `gorm:"type:decimal(20,6)"`
	EnteredAt   time.Time
	SettledAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stats summarizes settled predictions.
type Stats struct {
	Total          int64
	Correct        int64
	Accuracy       float64
	Last10Accuracy float64
	Pending        int64
}

// Open connects to the database. A postgres:// DSN selects Postgres, any
// other path is a SQLite file whose directory is created if needed.
func Open(dbPath string) (*Journal, error) {
	var db *gorm.DB
	var err error

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), gormCfg)
	} else {
		if dir := filepath.Dir(dbPath); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create database dir: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(dbPath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&Prediction{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("💾 Journal opened")
	return &Journal{db: db}, nil
}

// RecordEntry logs a newly opened paper trade.
func (j *Journal) RecordEntry(marketID, marketSlug, direction string, priceToBeat, entryPrice, modelProb float64, at time.Time) error {
	pred := Prediction{
		MarketID:    marketID,
		MarketSlug:  marketSlug,
		Direction:   direction,
		PriceToBeat: decimal.NewFromFloat(priceToBeat),
		EntryPrice:  decimal.NewFromFloat(entryPrice),
		ModelProb:   decimal.NewFromFloat(modelProb),
		EnteredAt:   at,
	}
	return j.db.Create(&pred).Error
}

// RecordSettlement marks the open prediction for a market settled. Exactly
// one prediction per market can be open, so the first match wins.
func (j *Journal) RecordSettlement(marketID string, finalPrice float64, correct bool, at time.Time) error {
	var pred Prediction
	err := j.db.Where("market_id = ? AND settled = ?", marketID, false).
		Order("entered_at ASC").
		First(&pred).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	pred.Settled = true
	pred.Correct = correct
	pred.FinalPrice = decimal.NewFromFloat(finalPrice)
	pred.SettledAt = &at
	return j.db.Save(&pred).Error
}

// GetStats computes overall and trailing accuracy.
func (j *Journal) GetStats() (Stats, error) {
	var s Stats

	if err := j.db.Model(&Prediction{}).Where("settled = ?", true).Count(&s.Total).Error; err != nil {
		return s, err
	}
	if err := j.db.Model(&Prediction{}).Where("settled = ? AND correct = ?", true, true).Count(&s.Correct).Error; err != nil {
		return s, err
	}
	if err := j.db.Model(&Prediction{}).Where("settled = ?", false).Count(&s.Pending).Error; err != nil {
		return s, err
	}

	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total) * 100
	}

	var last10 []Prediction
	if err := j.db.Where("settled = ?", true).
		Order("settled_at DESC").
		Limit(10).
		Find(&last10).Error; err != nil {
		return s, err
	}
	if len(last10) > 0 {
		correct := 0
		for _, p := range last10 {
			if p.Correct {
				correct++
			}
		}
		s.Last10Accuracy = float64(correct) / float64(len(last10)) * 100
	}

	return s, nil
}
