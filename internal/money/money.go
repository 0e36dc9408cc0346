// Package money converts between decimal strings and int64 minor units
// (cents). Balances and amounts are stored and compared as minor units only.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrAmountTooLarge  = errors.New("amount is too large")
)

const scale = 2

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.Exponent() < -scale && !value.Equal(value.Truncate(scale)) {
		return 0, ErrTooManyDecimals
	}
	minor := value.Mul(hundred)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrAmountTooLarge
	}
	return minor.IntPart(), nil
}

func FormatMinor(value int64) string {
	return decimal.New(value, -scale).StringFixed(scale)
}

// Decimal returns the currency-unit value of an amount in minor units.
func Decimal(value int64) decimal.Decimal {
	return decimal.New(value, -scale)
}

// FromUnits converts whole currency units to minor units.
func FromUnits(units int64) int64 {
	return units * 100
}
