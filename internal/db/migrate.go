package db

import (
	"time"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InitialPrice24K is the 24K sell price seeded into an empty database
const InitialPrice24K int64 = 2500000

func models() []interface{} {
	return []interface{}{
		&model.GoldPrice{},
		&model.GoldPriceChange{},
	}
}

// Migrate runs database migrations and seeds the initial snapshot
func Migrate(buyDiscount float64) error {
	logger.Info("Running database migrations...")

	if err := DB.AutoMigrate(models()...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := Seed(DB, buyDiscount); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", logger.Fields{
		"models_count": len(models()),
	})
	return nil
}

// Seed inserts the initial price snapshot when the table is empty
func Seed(db *gorm.DB, buyDiscount float64) error {
	var count int64
	if err := db.Model(&model.GoldPrice{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Debug("Gold prices already seeded, skipping", logger.Fields{"existing_count": count})
		return nil
	}

	sell, err := goldprice.FromBase(goldprice.Purity24K, InitialPrice24K)
	if err != nil {
		return err
	}
	buy := goldprice.Scale(sell, decimal.NewFromInt(1).Sub(decimal.NewFromFloat(buyDiscount)))

	snapshot := &model.GoldPrice{
		Source:      model.SourceSystem,
		SourceDate:  time.Now(),
		Description: "Initial price",
	}
	snapshot.SetPrices(sell, buy)
	if err := db.Create(snapshot).Error; err != nil {
		return err
	}

	logger.Info("Seeded initial gold price", logger.Fields{"sell_24k": sell.Price24K})
	return nil
}
