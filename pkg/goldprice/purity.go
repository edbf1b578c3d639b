// Package goldprice holds the karat price conversion and change rules used by
// every Fajar Gold price flow. Everything in here is stateless except the
// opt-in DedupClassifier.
package goldprice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice is returned when a base price is zero or negative.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrInvalidInput is returned when a price set is missing a purity.
	ErrInvalidInput = errors.New("price set must contain positive 24k, 22k and 18k prices")
	// ErrDivisionByZero marks a percent change against a zero old price.
	ErrDivisionByZero = errors.New("percent change undefined for zero old price")
	// ErrUnknownPurity is returned for anything other than 24k, 22k or 18k.
	ErrUnknownPurity = errors.New("unknown purity")
)

// Purity is a gold fineness grade.
type Purity string

const (
	Purity24K Purity = "24k"
	Purity22K Purity = "22k"
	Purity18K Purity = "18k"
)

// ratios relative to 24K. Never mutated.
var ratios = map[Purity]decimal.Decimal{
	Purity24K: decimal.NewFromInt(1),
	Purity22K: decimal.RequireFromString("0.9167"),
	Purity18K: decimal.RequireFromString("0.75"),
}

var hundred = decimal.NewFromInt(100)

// Purities returns all supported purities in display order.
func Purities() []Purity {
	return []Purity{Purity24K, Purity22K, Purity18K}
}

// ParsePurity accepts "24k", "24K" or "24" style input.
func ParsePurity(s string) (Purity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasSuffix(v, "k") {
		v += "k"
	}
	p := Purity(v)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPurity, s)
	}
	return p, nil
}

// Valid reports whether p is one of the modeled purities.
func (p Purity) Valid() bool {
	_, ok := ratios[p]
	return ok
}

func (p Purity) String() string {
	return string(p)
}

// Ratio returns the multiplier of p relative to 24K.
func Ratio(p Purity) (decimal.Decimal, error) {
	r, ok := ratios[p]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownPurity, string(p))
	}
	return r, nil
}

// PriceSet is the sell price of each purity at one point in time.
// A zero field means the purity is absent.
type PriceSet struct {
	Price24K int64 `json:"24k,omitempty"`
	Price22K int64 `json:"22k,omitempty"`
	Price18K int64 `json:"18k,omitempty"`
}

// Get returns the price for p, or 0 when p is absent or unknown.
func (s PriceSet) Get(p Purity) int64 {
	switch p {
	case Purity24K:
		return s.Price24K
	case Purity22K:
		return s.Price22K
	case Purity18K:
		return s.Price18K
	}
	return 0
}

// Set returns a copy of s with the price for p replaced.
func (s PriceSet) Set(p Purity, price int64) PriceSet {
	switch p {
	case Purity24K:
		s.Price24K = price
	case Purity22K:
		s.Price22K = price
	case Purity18K:
		s.Price18K = price
	}
	return s
}

// Has reports whether a positive price is present for p.
func (s PriceSet) Has(p Purity) bool {
	return s.Get(p) > 0
}

// Complete reports whether all three purities carry a positive price.
func (s PriceSet) Complete() bool {
	for _, p := range Purities() {
		if !s.Has(p) {
			return false
		}
	}
	return true
}
