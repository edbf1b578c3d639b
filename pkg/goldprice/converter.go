package goldprice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromBase derives a full PriceSet from a single known purity price.
// 22K and 18K inputs are first converted back to 24K, and the remaining
// purity is derived from that recovered base.
func FromBase(p Purity, price int64) (PriceSet, error) {
	if price <= 0 {
		return PriceSet{}, fmt.Errorf("%w: got %d", ErrInvalidPrice, price)
	}
	ratio, err := Ratio(p)
	if err != nil {
		return PriceSet{}, err
	}

	base := price
	if p != Purity24K {
		base = roundToUnit(decimal.NewFromInt(price).Div(ratio))
	}

	set := PriceSet{Price24K: base}
	for _, q := range Purities()[1:] {
		if q == p {
			set = set.Set(q, price)
			continue
		}
		set = set.Set(q, roundToUnit(decimal.NewFromInt(base).Mul(ratios[q])))
	}
	return set, nil
}

// RatioOf formats a/b*100 with two decimals. It is "0.00" when b is zero.
func RatioOf(a, b int64) string {
	if b == 0 {
		return "0.00"
	}
	return decimal.NewFromInt(a).Mul(hundred).Div(decimal.NewFromInt(b)).StringFixed(2)
}

// roundToUnit rounds half away from zero, which for prices is half-up.
func roundToUnit(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Scale multiplies every present price in set by factor, rounding half-up.
// Used to derive buy prices and apply markups.
func Scale(set PriceSet, factor decimal.Decimal) PriceSet {
	var out PriceSet
	for _, p := range Purities() {
		if set.Has(p) {
			out = out.Set(p, roundToUnit(decimal.NewFromInt(set.Get(p)).Mul(factor)))
		}
	}
	return out
}
