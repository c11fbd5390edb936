// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts out of
// spreadsheet cells and formatting them for display.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPrefixes = []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£"}

// ParseAmount converts a spreadsheet cell string to a number.
//
// Surrounding whitespace, a leading currency marker and thousands separators
// are ignored. A leading minus sign is accepted so callers can report
// negative values precisely instead of as a format error.
//
// Examples:
//
//	ParseAmount("12000")      -> 12000, nil
//	ParseAmount("₹1,20,000")  -> 120000, nil
//	ParseAmount(" 99.5 ")     -> 99.5, nil
//	ParseAmount("-10")        -> -10, nil
//	ParseAmount("abc")        -> 0, ErrInvalidNumber
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidNumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidNumber
	}
	if neg {
		v = -v
	}
	return v, nil
}

// RoundMoney rounds half away from zero to two decimal places. It is meant
// for presentation only; stored figures keep full precision.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders v with the currency symbol, two decimals and
// comma-grouped thousands, e.g. "₹1,234,567.89".
func FormatMoney(symbol string, v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	if neg {
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	out := symbol + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
