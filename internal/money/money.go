package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are int64 kobo. One naira is 100 kobo.
const KoboPerNaira = 100

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

var hundred = decimal.NewFromInt(KoboPerNaira)

// Naira converts whole naira into kobo.
func Naira(n int64) int64 {
	return n * KoboPerNaira
}

// ParseMinor parses a decimal naira string ("1500", "12.50") into kobo.
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.Exponent() < -2 && !value.Equal(value.Truncate(2)) {
		return 0, ErrTooManyDecimals
	}
	return value.Mul(hundred).IntPart(), nil
}

// FromDecimal converts a naira amount to kobo, rounding half away from zero.
func FromDecimal(naira decimal.Decimal) int64 {
	return naira.Mul(hundred).Round(0).IntPart()
}

// FromFloat is for processor payloads that report naira as JSON numbers.
func FromFloat(naira float64) int64 {
	return FromDecimal(decimal.NewFromFloat(naira))
}

func ToDecimal(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

func FormatMinor(kobo int64) string {
	return ToDecimal(kobo).StringFixed(2)
}
