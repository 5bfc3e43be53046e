// Package types provides the value types shared across accounting packages.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when two Money values of different
	// currencies meet in one operation.
	ErrCurrencyMismatch = errors.New("accounting: currency mismatch")

	// ErrInvalidAmount is returned for non-numeric, non-finite or
	// out-of-range amounts.
	ErrInvalidAmount = errors.New("accounting: invalid amount")
)

// MismatchError carries both currencies of a failed operation.
// It matches ErrCurrencyMismatch with errors.Is.
type MismatchError struct {
	Want string
	Got  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("accounting: currency mismatch: want %s, got %s", e.Want, e.Got)
}

// Is reports whether target is ErrCurrencyMismatch.
func (e *MismatchError) Is(target error) bool { return target == ErrCurrencyMismatch }

// Money is an exact amount in the smallest unit of its currency.
// No operation produces a fractional minor unit; rounding happens once,
// when a major-unit decimal is converted in.
//
// Examples:
//   - USD(4900) = $49.00 (4900 cents)
//   - JPY(100) = ¥100
type Money struct {
	Amount   int64  `json:"amount"`   // Minor units (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur"
}

// FromMinorUnits builds a Money from an integral minor-unit amount.
func FromMinorUnits(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// JPY creates a Money value in Japanese Yen (no minor unit).
func JPY(yen int64) Money { return Money{Amount: yen, Currency: "jpy"} }

// Zero returns a zero Money value in the given currency.
func Zero(currency string) Money { return FromMinorUnits(0, currency) }

// NormalizeCurrency lowercases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Exponent returns the number of minor-unit digits for a currency:
// 2 for USD, 0 for JPY, 3 for BHD. Codes unknown to the ISO table use 2.
func Exponent(currency string) int {
	if c := gomoney.GetCurrency(currency); c != nil {
		return c.Fraction
	}
	return 2
}

// IsKnownCurrency reports whether code is in the ISO 4217 table.
func IsKnownCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// ──────────────────────────────────────────────────
// Major-unit conversion
// ──────────────────────────────────────────────────

// FromMajorUnits converts a decimal major-unit amount to Money, rounding to
// the nearest minor unit with ties away from zero: 100.999 USD is 10100
// cents and -100.995 USD is -10100 cents.
func FromMajorUnits(amount decimal.Decimal, currency string) (Money, error) {
	minor := amount.Shift(int32(Exponent(currency))).Round(0)
	if !minor.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %s overflows %s minor units", ErrInvalidAmount, amount, currency)
	}
	return FromMinorUnits(minor.IntPart(), currency), nil
}

// ParseMajorUnits parses a decimal string such as "100.99" and converts it
// with FromMajorUnits.
func ParseMajorUnits(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return FromMajorUnits(d, currency)
}

// FromFloat converts a float64 major-unit amount. The float is read at its
// shortest decimal representation, so 100.999 converts as written.
func FromFloat(amount float64, currency string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return FromMajorUnits(decimal.NewFromFloat(amount), currency)
}

// ToMajorUnits returns the exact decimal major-unit value.
func (m Money) ToMajorUnits() decimal.Decimal {
	return decimal.New(m.Amount, -int32(Exponent(m.Currency)))
}

// ToMinorUnits returns the integral minor-unit amount.
func (m Money) ToMinorUnits() int64 { return m.Amount }

// ──────────────────────────────────────────────────
// Arithmetic
// ──────────────────────────────────────────────────

// Add returns m + other. It fails with ErrCurrencyMismatch when the
// currencies differ and with ErrInvalidAmount on int64 overflow.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d overflows", ErrInvalidAmount, m.Amount, other.Amount)
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if other.Amount == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: cannot negate %d", ErrInvalidAmount, other.Amount)
	}
	return m.Add(other.Negate())
}

// Negate returns the negative of m.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Negate()
	}
	return m
}

// Compare returns -1, 0 or +1 as m is less than, equal to or greater than
// other.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Sum adds values in order starting from zero in currency.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// Formatting
// ──────────────────────────────────────────────────

// FormatMajor returns the major-unit amount without a symbol: "49.00" for
// USD(4900), "100" for JPY(100).
func (m Money) FormatMajor() string {
	return m.ToMajorUnits().StringFixed(int32(Exponent(m.Currency)))
}

// Format renders m with the currency's symbol and separators, such as
// "$1,234.56" or "-$0.99".
func (m Money) Format() string {
	return gomoney.New(m.Amount, strings.ToUpper(m.Currency)).Display()
}

// String returns the major-unit amount followed by the upper-case code.
// Example: "100.00 USD".
func (m Money) String() string {
	return m.FormatMajor() + " " + strings.ToUpper(m.Currency)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.Format(),
	})
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return &MismatchError{Want: m.Currency, Got: other.Currency}
	}
	return nil
}
