package repository

import (
	"errors"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"gorm.io/gorm"
)

// GoldPriceChangeRepository append-only change history
type GoldPriceChangeRepository interface {
	CreateBatch(changes []*model.GoldPriceChange) error
	FindRecent(limit int) ([]model.GoldPriceChange, error)
	FindByPurity(purity string) ([]model.GoldPriceChange, error)
	FindLatestByPurity(purity string) (*model.GoldPriceChange, error)
}

type goldPriceChangeRepository struct {
	db *gorm.DB
}

func NewGoldPriceChangeRepository(db *gorm.DB) GoldPriceChangeRepository {
	return &goldPriceChangeRepository{db: db}
}

func (r *goldPriceChangeRepository) CreateBatch(changes []*model.GoldPriceChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := r.db.Create(changes).Error; err != nil {
		logger.Error("Failed to create gold price changes", err, logger.Fields{"count": len(changes)})
		return err
	}
	return nil
}

// FindRecent returns the newest changes across all purities
func (r *goldPriceChangeRepository) FindRecent(limit int) ([]model.GoldPriceChange, error) {
	var changes []model.GoldPriceChange
	if err := r.db.Order("change_date DESC, id DESC").Limit(limit).Find(&changes).Error; err != nil {
		logger.Error("Failed to find recent gold price changes", err)
		return nil, err
	}
	return changes, nil
}

func (r *goldPriceChangeRepository) FindByPurity(purity string) ([]model.GoldPriceChange, error) {
	var changes []model.GoldPriceChange
	if err := r.db.Where("purity = ?", purity).
		Order("change_date DESC, id DESC").
		Find(&changes).Error; err != nil {
		logger.Error("Failed to find gold price changes by purity", err, logger.Fields{"purity": purity})
		return nil, err
	}
	return changes, nil
}

func (r *goldPriceChangeRepository) FindLatestByPurity(purity string) (*model.GoldPriceChange, error) {
	var change model.GoldPriceChange
	if err := r.db.Where("purity = ?", purity).
		Order("change_date DESC, id DESC").
		First(&change).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find latest gold price change", err, logger.Fields{"purity": purity})
		return nil, err
	}
	return &change, nil
}
