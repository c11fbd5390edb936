package core

import (
	"errors"
	"fmt"
	"math"
)

// Slab is one band of a progressive tax table. Max may be +Inf.
type Slab struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Rate float64 `json:"rate"`
}

var ErrInvalidSlabs = errors.New("invalid slab table")

var defaultSlabs = []Slab{
	{Min: 0, Max: 400000, Rate: 0},
	{Min: 400001, Max: 800000, Rate: 0.05},
	{Min: 800001, Max: 1200000, Rate: 0.10},
	{Min: 1200001, Max: 1600000, Rate: 0.15},
	{Min: 1600001, Max: 2000000, Rate: 0.20},
	{Min: 2000001, Max: 2400000, Rate: 0.25},
	{Min: 2400001, Max: math.Inf(1), Rate: 0.30},
}

// DefaultSlabs returns a copy of the fixed seven-slab table.
func DefaultSlabs() []Slab {
	return append([]Slab(nil), defaultSlabs...)
}

// ComputeTax applies the progressive slab table to amount.
//
// Every slab whose Min is strictly below amount contributes
// Rate * (min(amount, Max) - Min + 1). The "+1" counts each slab boundary as
// the first unit taxed at that slab's rate; existing reports depend on this
// exact figure, so it is kept as is.
//
// Negative and NaN amounts yield 0. No rounding is applied.
func ComputeTax(amount float64, slabs []Slab) float64 {
	if amount < 0 || math.IsNaN(amount) {
		return 0
	}
	var tax float64
	for _, s := range slabs {
		if s.Min < amount {
			taxable := math.Min(amount, s.Max) - s.Min + 1
			tax += taxable * s.Rate
		}
	}
	return tax
}

// ValidateSlabs checks that slabs start at zero, are contiguous on whole
// currency units and have non-decreasing rates in [0,1].
func ValidateSlabs(slabs []Slab) error {
	if len(slabs) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSlabs)
	}
	if slabs[0].Min != 0 {
		return fmt.Errorf("%w: first slab must start at 0", ErrInvalidSlabs)
	}
	for i, s := range slabs {
		if s.Rate < 0 || s.Rate > 1 {
			return fmt.Errorf("%w: slab %d rate %v out of range", ErrInvalidSlabs, i, s.Rate)
		}
		if s.Max < s.Min {
			return fmt.Errorf("%w: slab %d max below min", ErrInvalidSlabs, i)
		}
		if i == 0 {
			continue
		}
		prev := slabs[i-1]
		if s.Min != prev.Max+1 {
			return fmt.Errorf("%w: gap or overlap between slab %d and %d", ErrInvalidSlabs, i-1, i)
		}
		if s.Rate < prev.Rate {
			return fmt.Errorf("%w: slab %d rate decreases", ErrInvalidSlabs, i)
		}
	}
	if !math.IsInf(slabs[len(slabs)-1].Max, 1) {
		return fmt.Errorf("%w: last slab must be unbounded", ErrInvalidSlabs)
	}
	return nil
}
