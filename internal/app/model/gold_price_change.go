package model

import (
	"time"

	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/shopspring/decimal"
)

// GoldPriceChange persisted change record, append-only
type GoldPriceChange struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Purity        string    `gorm:"type:varchar(5);index;not null" json:"purity"`
	OldPrice      int64     `gorm:"not null" json:"oldPrice"`
	NewPrice      int64     `gorm:"not null" json:"newPrice"`
	ChangeAmount  int64     `gorm:"not null" json:"changeAmount"`
	ChangePercent *string   `gorm:"type:varchar(20)" json:"changePercent"` // nil when old price was 0
	ChangeType    string    `gorm:"type:varchar(10);not null" json:"changeType"`
	ChangeDate    time.Time `gorm:"index;not null" json:"changeDate"`
	ChangeSource  string    `gorm:"type:varchar(50)" json:"changeSource"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time `json:"-"`
}

func (GoldPriceChange) TableName() string {
	return "gold_price_changes"
}

// NewGoldPriceChange builds a row from a classified record
func NewGoldPriceChange(rec goldprice.ChangeRecord) *GoldPriceChange {
	row := &GoldPriceChange{
		Purity:       string(rec.Purity),
		OldPrice:     rec.OldPrice,
		NewPrice:     rec.NewPrice,
		ChangeAmount: rec.ChangeAmount,
		ChangeType:   string(rec.ChangeType),
		ChangeDate:   rec.ChangeDate,
		ChangeSource: rec.ChangeSource,
		Notes:        rec.Notes,
	}
	if rec.ChangePercent != nil {
		s := rec.PercentString()
		row.ChangePercent = &s
	}
	return row
}

// ToRecord converts the row back into a core change record
func (c *GoldPriceChange) ToRecord() goldprice.ChangeRecord {
	rec := goldprice.ChangeRecord{
		Purity:       goldprice.Purity(c.Purity),
		OldPrice:     c.OldPrice,
		NewPrice:     c.NewPrice,
		ChangeAmount: c.ChangeAmount,
		ChangeType:   goldprice.ChangeType(c.ChangeType),
		ChangeDate:   c.ChangeDate,
		ChangeSource: c.ChangeSource,
		Notes:        c.Notes,
	}
	if c.ChangePercent != nil {
		if d, err := decimal.NewFromString(*c.ChangePercent); err == nil {
			rec.ChangePercent = &d
		}
	}
	return rec
}
