// Package numeric converts token amounts between decimal bases without
// floating-point error. Every amount that feeds a financial decision stays
// a *big.Int in the token's smallest unit; shopspring/decimal is used only
// on the display boundary (Format/Parse).
package numeric

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Normalize rescales amount from one decimal basis to another. Scaling up
// is exact; scaling down truncates toward zero. Negative amounts are
// rejected (amounts in this domain are always non-negative).
func Normalize(amount *big.Int, fromDecimals, toDecimals int) (*big.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("nil amount")
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %s", amount)
	}
	if fromDecimals < 0 || toDecimals < 0 {
		return nil, fmt.Errorf("negative decimals: from=%d to=%d", fromDecimals, toDecimals)
	}
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount), nil
	}
	if toDecimals > fromDecimals {
		return new(big.Int).Mul(amount, pow10(toDecimals-fromDecimals)), nil
	}
	return new(big.Int).Quo(amount, pow10(fromDecimals-toDecimals)), nil
}

// Format renders a smallest-unit amount as a human-readable decimal string
// with at most precision fractional digits, trailing zeros trimmed. It
// never uses scientific notation.
func Format(amount *big.Int, decimals, precision int) string {
	if amount == nil {
		return "0"
	}
	d := decimal.NewFromBigInt(amount, -int32(decimals))
	if precision >= 0 && precision < decimals {
		d = d.Truncate(int32(precision))
	}
	return d.String()
}

// Parse is the inverse of Format: it converts a decimal string into a
// smallest-unit integer, padding or truncating the fractional part to
// exactly decimals digits. Negative inputs are rejected.
func Parse(s string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// pow10 returns 10^n as a big.Int. n must be non-negative.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
