package repository

import (
	"errors"
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"gorm.io/gorm"
)

const newestFirst = "source_date DESC, id DESC"

// TxFunc receives repositories bound to a single transaction
type TxFunc func(prices GoldPriceRepository, changes GoldPriceChangeRepository) error

// GoldPriceRepository snapshot storage
type GoldPriceRepository interface {
	Create(goldPrice *model.GoldPrice) error
	BulkCreate(goldPrices []model.GoldPrice, batchSize int) error
	FindByID(id uint) (*model.GoldPrice, error)
	FindLatest() (*model.GoldPrice, error)
	FindLatestOnDate(date time.Time) (*model.GoldPrice, error)
	FindPage(page, size int) ([]model.GoldPrice, int64, error)
	FindByDateRange(startDate, endDate time.Time) ([]model.GoldPrice, error)
	FindRecent(limit int) ([]model.GoldPrice, error)
	Count() (int64, error)
	Transaction(fn TxFunc) error
}

type goldPriceRepository struct {
	db *gorm.DB
}

// NewGoldPriceRepository creates a snapshot repository
func NewGoldPriceRepository(db *gorm.DB) GoldPriceRepository {
	return &goldPriceRepository{db: db}
}

func (r *goldPriceRepository) Create(goldPrice *model.GoldPrice) error {
	if err := r.db.Create(goldPrice).Error; err != nil {
		logger.Error("Failed to create gold price", err)
		return err
	}
	return nil
}

// Transaction runs fn inside one database transaction. Any error returned
// by fn rolls back every write made through the repositories it received.
func (r *goldPriceRepository) Transaction(fn TxFunc) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGoldPriceRepository(tx), NewGoldPriceChangeRepository(tx))
	})
}

// BulkCreate inserts snapshots in batches
func (r *goldPriceRepository) BulkCreate(goldPrices []model.GoldPrice, batchSize int) error {
	if len(goldPrices) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(goldPrices, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create gold prices", err, logger.Fields{"count": len(goldPrices)})
		return err
	}
	return nil
}

func (r *goldPriceRepository) FindByID(id uint) (*model.GoldPrice, error) {
	var goldPrice model.GoldPrice
	if err := r.db.First(&goldPrice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find gold price by id", err, logger.Fields{"id": id})
		return nil, err
	}
	return &goldPrice, nil
}

// FindLatest returns the newest snapshot, or nil when none exist
func (r *goldPriceRepository) FindLatest() (*model.GoldPrice, error) {
	var goldPrice model.GoldPrice
	if err := r.db.Order(newestFirst).First(&goldPrice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find latest gold price", err)
		return nil, err
	}
	return &goldPrice, nil
}

// FindLatestOnDate returns the newest snapshot taken on date's calendar day
func (r *goldPriceRepository) FindLatestOnDate(date time.Time) (*model.GoldPrice, error) {
	var goldPrice model.GoldPrice
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	if err := r.db.Where("source_date >= ? AND source_date < ?", startOfDay, endOfDay).
		Order(newestFirst).
		First(&goldPrice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find gold price by date", err)
		return nil, err
	}
	return &goldPrice, nil
}

// FindPage returns a zero-based page of snapshots and the total count
func (r *goldPriceRepository) FindPage(page, size int) ([]model.GoldPrice, int64, error) {
	var (
		goldPrices []model.GoldPrice
		total      int64
	)
	if err := r.db.Model(&model.GoldPrice{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count gold prices", err)
		return nil, 0, err
	}
	if err := r.db.Order(newestFirst).
		Offset(page * size).
		Limit(size).
		Find(&goldPrices).Error; err != nil {
		logger.Error("Failed to find gold price page", err)
		return nil, 0, err
	}
	return goldPrices, total, nil
}

// FindByDateRange returns snapshots with startDate <= source_date < endDate, newest first
func (r *goldPriceRepository) FindByDateRange(startDate, endDate time.Time) ([]model.GoldPrice, error) {
	var goldPrices []model.GoldPrice
	if err := r.db.Where("source_date >= ? AND source_date < ?", startDate, endDate).
		Order(newestFirst).
		Find(&goldPrices).Error; err != nil {
		logger.Error("Failed to find gold prices by date range", err)
		return nil, err
	}
	return goldPrices, nil
}

func (r *goldPriceRepository) FindRecent(limit int) ([]model.GoldPrice, error) {
	var goldPrices []model.GoldPrice
	if err := r.db.Order(newestFirst).Limit(limit).Find(&goldPrices).Error; err != nil {
		logger.Error("Failed to find recent gold prices", err)
		return nil, err
	}
	return goldPrices, nil
}

func (r *goldPriceRepository) Count() (int64, error) {
	var total int64
	if err := r.db.Model(&model.GoldPrice{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count gold prices", err)
		return 0, err
	}
	return total, nil
}
