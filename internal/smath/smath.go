// Package smath provides checked arithmetic for money-like quantities.
// Every balance and price computation in stablecore routes through these
// helpers; a result that would wrap, truncate, or divide by zero fails with
// a protocol error instead of silently producing a bad number.
package smath

import (
	"math"

	"github.com/shopspring/decimal"

	"stablecore/internal/protocol"
)

// Unsigned covers the integer widths used for balances and basis points.
type Unsigned interface {
	~uint16 | ~uint32 | ~uint64
}

// Add returns a + b, failing with MathOverflow if the sum wraps.
func Add[T Unsigned](a, b T) (T, error) {
	sum := a + b
	if sum < a {
		return 0, protocol.ErrMathOverflow
	}
	return sum, nil
}

// Sub returns a - b, failing with MathOverflow if b > a.
func Sub[T Unsigned](a, b T) (T, error) {
	if b > a {
		return 0, protocol.ErrMathOverflow
	}
	return a - b, nil
}

// Mul returns a * b, failing with MathOverflow if the product wraps.
func Mul[T Unsigned](a, b T) (T, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/a != b {
		return 0, protocol.ErrMathOverflow
	}
	return prod, nil
}

// Div returns a / b, failing with DivisionByZero if b == 0.
func Div[T Unsigned](a, b T) (T, error) {
	if b == 0 {
		return 0, protocol.ErrDivisionByZero
	}
	return a / b, nil
}

// DecDiv divides two decimals, failing with DivisionByZero instead of
// panicking the way shopspring/decimal does on a zero divisor.
func DecDiv(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, protocol.ErrDivisionByZero
	}
	return a.Div(b), nil
}

// DecToUint64 converts a decimal to uint64, truncating fractional units.
// Fails with ConversionFailed when the value is negative or does not fit.
func DecToUint64(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() {
		return 0, protocol.ErrConversionFailed
	}
	truncated := d.Truncate(0)
	if truncated.Cmp(maxUint64Dec) > 0 {
		return 0, protocol.ErrConversionFailed
	}
	// BigInt is exact for the truncated value; Uint64 is safe after the
	// range check above.
	return truncated.BigInt().Uint64(), nil
}

var maxUint64Dec = decimal.NewFromUint64(math.MaxUint64)

// BpsToDecimal converts a basis-point parameter into its decimal fraction
// (e.g. 8500 -> 0.85). Conversion is total: ratio bounds above 10000 bps
// are legal operating points, so range enforcement belongs to config
// validation, not here.
func BpsToDecimal(bps uint16) decimal.Decimal {
	return decimal.New(int64(bps), -4)
}

// MaxBasisPoints is the denominator for all percentage-like parameters.
const MaxBasisPoints uint16 = 10_000
