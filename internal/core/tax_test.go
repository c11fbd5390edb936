package core

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeTaxBoundaries(t *testing.T) {
	slabs := DefaultSlabs()
	cases := []struct {
		amount float64
		want   float64
	}{
		{0, 0},
		{1, 0},
		{400000, 0},
		// 400001 is the first slab's Min, which is not strictly below the amount.
		{400001, 0},
		{400002, 0.05 * 2},
		{800000, 0.05 * 400000},
		{800001, 0.05 * 400000},
		{1000000, 0.05*400000 + 0.10*200000},
		{1200000, 0.05*400000 + 0.10*400000},
		{2400001, 0.05*400000 + 0.10*400000 + 0.15*400000 + 0.20*400000 + 0.25*400000},
		{3000000, 0.05*400000 + 0.10*400000 + 0.15*400000 + 0.20*400000 + 0.25*400000 + 0.30*600000},
	}
	for _, tc := range cases {
		got := ComputeTax(tc.amount, slabs)
		if !almostEqual(got, tc.want) {
			t.Errorf("ComputeTax(%v) = %v, want %v", tc.amount, got, tc.want)
		}
	}
}

func TestComputeTaxNegativeAndNaN(t *testing.T) {
	if got := ComputeTax(-1, DefaultSlabs()); got != 0 {
		t.Fatalf("negative amount taxed: %v", got)
	}
	if got := ComputeTax(math.NaN(), DefaultSlabs()); got != 0 {
		t.Fatalf("NaN amount taxed: %v", got)
	}
	if got := ComputeTax(500000, nil); got != 0 {
		t.Fatalf("empty table taxed: %v", got)
	}
}

func TestComputeTaxNonDecreasing(t *testing.T) {
	slabs := DefaultSlabs()
	prev := ComputeTax(0, slabs)
	for amount := 0.0; amount <= 3_000_000; amount += 997 {
		got := ComputeTax(amount, slabs)
		if got < prev {
			t.Fatalf("tax decreased at %v: %v < %v", amount, got, prev)
		}
		prev = got
	}
}

func TestDefaultSlabsIsACopy(t *testing.T) {
	a := DefaultSlabs()
	a[1].Rate = 0.9
	if DefaultSlabs()[1].Rate != 0.05 {
		t.Fatalf("DefaultSlabs leaked shared state")
	}
}

func TestValidateSlabs(t *testing.T) {
	if err := ValidateSlabs(DefaultSlabs()); err != nil {
		t.Fatalf("default slabs invalid: %v", err)
	}
	bad := [][]Slab{
		nil,
		{{Min: 1, Max: math.Inf(1), Rate: 0}},
		{{Min: 0, Max: 10, Rate: 0}, {Min: 20, Max: math.Inf(1), Rate: 0.1}},
		{{Min: 0, Max: 10, Rate: 0.2}, {Min: 11, Max: math.Inf(1), Rate: 0.1}},
		{{Min: 0, Max: 10, Rate: 0}, {Min: 11, Max: 20, Rate: 0.1}},
		{{Min: 0, Max: math.Inf(1), Rate: 1.5}},
	}
	for i, s := range bad {
		if err := ValidateSlabs(s); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
