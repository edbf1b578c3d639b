package goldprice

import "fmt"

// DefaultTolerance is the allowed absolute drift in Rupiah between a supplied
// 22K/18K price and the value derived from 24K.
const DefaultTolerance int64 = 1000

// PurityCheck is the validation outcome for one derived purity.
type PurityCheck struct {
	Actual       int64  `json:"actual"`
	Expected     int64  `json:"expected"`
	Difference   int64  `json:"difference"`
	Valid        bool   `json:"valid"`
	RatioPercent string `json:"ratioPercent"`
}

// ValidationResult reports whether a PriceSet respects the karat ratios.
// A mismatch is a normal result, not an error.
type ValidationResult struct {
	Valid   bool                   `json:"valid"`
	Details map[Purity]PurityCheck `json:"details"`
}

// Validate checks set against the ratio table. A negative tolerance falls
// back to DefaultTolerance.
func Validate(set PriceSet, tolerance int64) (ValidationResult, error) {
	if !set.Complete() {
		return ValidationResult{}, fmt.Errorf("%w: %+v", ErrInvalidInput, set)
	}
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}

	expected, err := FromBase(Purity24K, set.Price24K)
	if err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{Valid: true, Details: make(map[Purity]PurityCheck, 2)}
	for _, p := range []Purity{Purity22K, Purity18K} {
		actual := set.Get(p)
		diff := actual - expected.Get(p)
		check := PurityCheck{
			Actual:       actual,
			Expected:     expected.Get(p),
			Difference:   diff,
			Valid:        abs(diff) <= tolerance,
			RatioPercent: RatioOf(actual, set.Price24K),
		}
		result.Details[p] = check
		result.Valid = result.Valid && check.Valid
	}
	return result, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
