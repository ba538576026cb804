// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents everywhere; decimal arithmetic is only
// used at the edges, when parsing user input and when converting foreign
// currency amounts with a caller supplied rate.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The result
// is always positive; negative values, zero and malformed input are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() || !cents.IsInteger() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MaxCents bounds every stored amount, leaving headroom for sums.
const MaxCents int64 = 1 << 62

var maxCents = decimal.NewFromInt(MaxCents)

// ConvertToLocal converts a foreign amount with the given exchange rate into
// local cents, rounding half-up. Both values must be positive.
func ConvertToLocal(foreign, rate decimal.Decimal) (Money, error) {
	if !foreign.IsPositive() {
		return Money{}, Invalid("foreign_amount", "invalid foreign amount: must be greater than zero")
	}
	if !rate.IsPositive() {
		return Money{}, Invalid("rate", "invalid exchange rate: must be greater than zero")
	}
	cents := foreign.Mul(rate).Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	if cents.GreaterThan(maxCents) {
		return Money{}, Invalid("foreign_amount", "invalid foreign amount: converted value is too large")
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Euros returns the value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}
