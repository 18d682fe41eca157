// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed int64 cents. Parsing and formatting go through
// shopspring/decimal so no float64 ever touches a stored value.
package core

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest absolute amount accepted on input, in major units.
// Far more such amounts than a month can hold still sum inside int64 cents.
var MaxAmount = decimal.New(1, 13)

var (
	maxInputCents = MaxAmount.Shift(2)
	maxCents      = decimal.New(math.MaxInt64, 0)
)

// ParseDecimalToCents converts a decimal string to signed cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an optional
// leading sign, and rounds half away from zero on the third decimal place.
// Zero and negative values are accepted as-is; magnitudes above MaxAmount
// are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("-5")     -> -500, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxInputCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MoneyFromDecimal builds a Money value from a decimal amount in major units.
// It fails with ErrAmountOverflow when the amount does not fit in int64 cents.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: %s", ErrAmountOverflow, d.String())
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	cents, err := ParseDecimalToCents(string(data))
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}
