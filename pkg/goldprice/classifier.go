package goldprice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType is the direction of a price transition.
type ChangeType string

const (
	ChangeIncrease ChangeType = "INCREASE"
	ChangeDecrease ChangeType = "DECREASE"
	ChangeNone     ChangeType = "NO_CHANGE"
)

// ChangeRecord describes one observed transition for a single purity.
// ChangePercent is nil when the old price was zero.
type ChangeRecord struct {
	Purity        Purity
	OldPrice      int64
	NewPrice      int64
	ChangeAmount  int64
	ChangePercent *decimal.Decimal
	ChangeType    ChangeType
	ChangeDate    time.Time
	ChangeSource  string
	Notes         string
}

// PercentString returns the percent with two decimals, or "" when undefined.
func (r ChangeRecord) PercentString() string {
	if r.ChangePercent == nil {
		return ""
	}
	return r.ChangePercent.StringFixed(2)
}

type changeRecordJSON struct {
	Purity        Purity     `json:"purity"`
	OldPrice      int64      `json:"oldPrice"`
	NewPrice      int64      `json:"newPrice"`
	ChangeAmount  int64      `json:"changeAmount"`
	ChangePercent *string    `json:"changePercent"`
	ChangeType    ChangeType `json:"changeType"`
	ChangeDate    time.Time  `json:"changeDate"`
	ChangeSource  string     `json:"changeSource"`
	Notes         string     `json:"notes,omitempty"`
}

func (r ChangeRecord) MarshalJSON() ([]byte, error) {
	out := changeRecordJSON{
		Purity:       r.Purity,
		OldPrice:     r.OldPrice,
		NewPrice:     r.NewPrice,
		ChangeAmount: r.ChangeAmount,
		ChangeType:   r.ChangeType,
		ChangeDate:   r.ChangeDate,
		ChangeSource: r.ChangeSource,
		Notes:        r.Notes,
	}
	if r.ChangePercent != nil {
		s := r.PercentString()
		out.ChangePercent = &s
	}
	return json.Marshal(out)
}

func (r *ChangeRecord) UnmarshalJSON(data []byte) error {
	var in changeRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ChangeRecord{
		Purity:       in.Purity,
		OldPrice:     in.OldPrice,
		NewPrice:     in.NewPrice,
		ChangeAmount: in.ChangeAmount,
		ChangeType:   in.ChangeType,
		ChangeDate:   in.ChangeDate,
		ChangeSource: in.ChangeSource,
		Notes:        in.Notes,
	}
	if in.ChangePercent != nil {
		d, err := decimal.NewFromString(*in.ChangePercent)
		if err != nil {
			return fmt.Errorf("changePercent: %w", err)
		}
		r.ChangePercent = &d
	}
	return nil
}

// PercentChange returns (newPrice-oldPrice)/oldPrice*100 rounded to two decimals.
func PercentChange(oldPrice, newPrice int64) (decimal.Decimal, error) {
	if oldPrice == 0 {
		return decimal.Zero, ErrDivisionByZero
	}
	amount := decimal.NewFromInt(newPrice - oldPrice)
	return amount.Mul(hundred).Div(decimal.NewFromInt(oldPrice)).Round(2), nil
}

// Classify turns an old/new pair into a ChangeRecord. It never fails; a zero
// old price leaves ChangePercent nil.
func Classify(p Purity, oldPrice, newPrice int64, source string, at time.Time) ChangeRecord {
	amount := newPrice - oldPrice
	rec := ChangeRecord{
		Purity:       p,
		OldPrice:     oldPrice,
		NewPrice:     newPrice,
		ChangeAmount: amount,
		ChangeType:   typeOf(amount),
		ChangeDate:   at,
		ChangeSource: source,
	}
	if pct, err := PercentChange(oldPrice, newPrice); err == nil {
		rec.ChangePercent = &pct
	}
	return rec
}

func typeOf(amount int64) ChangeType {
	switch {
	case amount > 0:
		return ChangeIncrease
	case amount < 0:
		return ChangeDecrease
	default:
		return ChangeNone
	}
}

// Classifier produces change records for a whole PriceSet transition.
type Classifier interface {
	ClassifyAll(oldSet, newSet PriceSet, source string, at time.Time) []ChangeRecord
}

type classifier struct{}

// NewClassifier returns the stateless classifier.
func NewClassifier() Classifier {
	return classifier{}
}

// ClassifyAll classifies every purity present in both sets, in 24k, 22k, 18k order.
func (classifier) ClassifyAll(oldSet, newSet PriceSet, source string, at time.Time) []ChangeRecord {
	records := make([]ChangeRecord, 0, 3)
	for _, p := range Purities() {
		if !oldSet.Has(p) || !newSet.Has(p) {
			continue
		}
		records = append(records, Classify(p, oldSet.Get(p), newSet.Get(p), source, at))
	}
	return records
}
