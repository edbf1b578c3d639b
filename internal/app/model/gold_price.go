package model

import (
	"time"

	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"gorm.io/gorm"
)

// PriceSource labels where a snapshot or change came from
type PriceSource string

const (
	SourceSystem      PriceSource = "SYSTEM"       // scheduled refresh
	SourceAdmin       PriceSource = "ADMIN"        // admin panel
	SourceManual      PriceSource = "MANUAL"       // manual API update
	SourceExternalAPI PriceSource = "EXTERNAL_API" // on-demand external refresh
	SourceImport      PriceSource = "IMPORT"       // spreadsheet import
)

// GoldPrice price snapshot for all purities
type GoldPrice struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Sell24K     int64          `gorm:"not null" json:"sell_24k"`                   // harga jual 24K (Rp/g)
	Buy24K      int64          `gorm:"not null" json:"buy_24k"`                    // harga beli 24K (Rp/g)
	Sell22K     int64          `gorm:"not null" json:"sell_22k"`                   // harga jual 22K
	Buy22K      int64          `gorm:"not null" json:"buy_22k"`                    // harga beli 22K
	Sell18K     int64          `gorm:"not null" json:"sell_18k"`                   // harga jual 18K
	Buy18K      int64          `gorm:"not null" json:"buy_18k"`                    // harga beli 18K
	Source      PriceSource    `gorm:"type:varchar(50);not null" json:"source"`    // origin of the snapshot
	SourceDate  time.Time      `gorm:"index;not null" json:"source_date"`          // when the quote was taken
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (GoldPrice) TableName() string {
	return "gold_prices"
}

// SellSet returns the sell prices as a PriceSet
func (g *GoldPrice) SellSet() goldprice.PriceSet {
	return goldprice.PriceSet{Price24K: g.Sell24K, Price22K: g.Sell22K, Price18K: g.Sell18K}
}

// BuySet returns the buy prices as a PriceSet
func (g *GoldPrice) BuySet() goldprice.PriceSet {
	return goldprice.PriceSet{Price24K: g.Buy24K, Price22K: g.Buy22K, Price18K: g.Buy18K}
}

// SetPrices copies sell and buy sets onto the snapshot
func (g *GoldPrice) SetPrices(sell, buy goldprice.PriceSet) {
	g.Sell24K, g.Sell22K, g.Sell18K = sell.Price24K, sell.Price22K, sell.Price18K
	g.Buy24K, g.Buy22K, g.Buy18K = buy.Price24K, buy.Price22K, buy.Price18K
}

// GoldPriceResponse API view of a snapshot
type GoldPriceResponse struct {
	ID          uint               `json:"id"`
	Sell        goldprice.PriceSet `json:"sell"`
	Buy         goldprice.PriceSet `json:"buy"`
	SellDisplay map[string]string  `json:"sell_display"` // "Rp 2.500.000"
	Source      PriceSource        `json:"source"`
	SourceDate  string             `json:"source_date"`
	UpdatedAgo  string             `json:"updated_ago"`
	Description string             `json:"description,omitempty"`
}

// GoldPriceHistoryPage paged snapshot history
type GoldPriceHistoryPage struct {
	Content       []GoldPriceResponse `json:"content"`
	TotalElements int64               `json:"totalElements"`
	TotalPages    int                 `json:"totalPages"`
	CurrentPage   int                 `json:"currentPage"`
}

// Trend labels used by the comparison endpoint
const (
	TrendUp     = "naik"
	TrendDown   = "turun"
	TrendStable = "stabil"
)

// GoldPriceComparison latest price today against the latest price yesterday
type GoldPriceComparison struct {
	Today            *GoldPriceResponse `json:"today"`
	Yesterday        *GoldPriceResponse `json:"yesterday"`
	Change24K        int64              `json:"change24k"`
	ChangePercent24K *string            `json:"changePercent24k"`
	Trend            string             `json:"trend"`
}

// GoldPriceStatistics aggregate over recent change records
type GoldPriceStatistics struct {
	TotalChanges     int                     `json:"totalChanges"`
	Increases        int                     `json:"increases"`
	Decreases        int                     `json:"decreases"`
	Stable           int                     `json:"stable"`
	AveragePercent   string                  `json:"averageChangePercent"`
	LatestChange     *goldprice.ChangeRecord `json:"latestChange"`
	LatestChangeTime string                  `json:"latestChangeAgo,omitempty"`
}

// GoldPriceUpdateResult outcome of a price update
type GoldPriceUpdateResult struct {
	Price      *GoldPriceResponse          `json:"price"`
	Changes    []goldprice.ChangeRecord    `json:"changes"`
	Validation *goldprice.ValidationResult `json:"validation,omitempty"`
}

// ExternalPricePreview quote from a source that was not persisted
type ExternalPricePreview struct {
	Source    string             `json:"source"`
	FetchedAt time.Time          `json:"fetchedAt"`
	Sell      goldprice.PriceSet `json:"sell"`
	Buy       goldprice.PriceSet `json:"buy"`
}

// ExportArchive stored history workbook
type ExportArchive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Size      int       `json:"size"`
}
