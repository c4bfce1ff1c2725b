// Package units converts between display decimal strings and integer amounts
// in the smallest currency unit.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount    = errors.New("amount is empty")
	ErrNegativeAmount = errors.New("amount is negative")
	ErrTooPrecise     = errors.New("amount has more fraction digits than the currency allows")
	ErrAmountTooLarge = errors.New("amount does not fit in 256 bits")
)

const (
	// MaxBits is the width of an EVM value.
	MaxBits = 256

	// maxDigits is the decimal length of 2^256-1.
	maxDigits = 78
)

// ParseUnits turns a decimal string such as "1.5" into 1.5 * 10^decimals.
// The size is checked from the exponent before any big integer is built, so
// inputs like "1e100000000" fail fast with ErrAmountTooLarge.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if d.IsZero() {
		return new(big.Int), nil
	}

	digits := int64(d.NumDigits())
	exp := int64(d.Exponent()) + int64(decimals)
	if digits+exp > maxDigits {
		return nil, ErrAmountTooLarge
	}
	if exp < -digits {
		// below one smallest unit
		return nil, ErrTooPrecise
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooPrecise
	}
	v := scaled.BigInt()
	if v.BitLen() > MaxBits {
		return nil, ErrAmountTooLarge
	}
	return v, nil
}

// FormatUnits renders amount / 10^decimals without trailing zeros.
// A nil amount renders as "0".
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// FormatUnitsTrim is FormatUnits truncated to at most maxFrac fraction digits.
//
//	balance=1234567800000000000, decimals=18, maxFrac=4 -> "1.2345"
//	balance=1000000000000000000, decimals=18, maxFrac=4 -> "1"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if maxFrac < 0 {
		maxFrac = 0
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Truncate(int32(maxFrac)).String()
}

// ParseEther and FormatEther are the 18-decimal shorthands.
func ParseEther(amount string) (*big.Int, error) { return ParseUnits(amount, 18) }

func FormatEther(wei *big.Int) string { return FormatUnits(wei, 18) }
