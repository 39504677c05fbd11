// Package core holds the domain model: expenses, users, monetary amounts,
// validated input commands and the error taxonomy shared by every layer.
package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest accepted expense amount, in cents.
const MaxAmount = 99999999 // 999999.99

var (
	ErrInvalidAmount   = errors.New("amount must be greater than 0")
	ErrAmountTooLarge  = errors.New("amount must not exceed 999,999.99")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
)

// Money is a monetary amount in cents. Amounts travel on the wire as plain
// decimal numbers with at most two fractional digits.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// ParseAmount converts a decimal amount into cents. It rejects non-positive
// values, values above MaxAmount and values with more than two decimal
// places (trailing zeros are fine).
func ParseAmount(d decimal.Decimal) (Money, error) {
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, ErrAmountPrecision
	}
	// Compare before converting: IntPart overflows int64 for huge decimals.
	if d.GreaterThan(decimal.New(MaxAmount, -2)) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: d.Mul(decimal.New(100, 0)).IntPart()}, nil
}

// Decimal returns the amount as a two-decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON emits a bare JSON number so clients see 12.5 rather than "12.5".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := ParseAmount(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
