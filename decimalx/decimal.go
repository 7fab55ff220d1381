// Package decimalx provides checked fixed-point arithmetic and the
// transcendental functions the quoting formulas need, on top of
// shopspring/decimal.
//
// Precision policy: every inexact result (division, multiplication that
// grows the scale, sqrt, ln, exp) is rounded half away from zero to
// Precision fractional digits. Intermediate series run with guard digits so
// the final rounding dominates the error. Magnitudes above MaxValue are
// rejected with an overflow error instead of growing without bound.
package decimalx

import (
	"math/big"

	"github.com/shopspring/decimal"

	"asmm-quoter/errs"
)

// Precision is the number of fractional digits kept by inexact operations.
const Precision int32 = 28

const (
	guardDigits   int32 = 12
	workPrecision       = Precision + guardDigits
	maxIterations       = 500
)

var (
	// MaxValue is the largest representable magnitude (2^96 - 1).
	MaxValue = decimal.RequireFromString("79228162514264337593543950335")

	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	Two  = decimal.NewFromInt(2)

	half = decimal.New(5, -1)
)

// Check returns d unchanged, or an overflow error when |d| > MaxValue.
func Check(op string, d decimal.Decimal) (decimal.Decimal, error) {
	if d.Abs().GreaterThan(MaxValue) {
		return decimal.Zero, errs.Overflow(op)
	}
	return d, nil
}

// fit rounds d to Precision only when its scale exceeds it.
func fit(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() < -Precision {
		return d.Round(Precision)
	}
	return d
}

func Add(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Check("add", a.Add(b))
}

func Sub(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Check("sub", a.Sub(b))
}

// Mul multiplies and rounds the product back to Precision.
func Mul(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Check("mul", fit(a.Mul(b)))
}

// Div divides to Precision fractional digits. Division by zero is a domain error.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, errs.Domain("div", "division by zero")
	}
	return Check("div", a.DivRound(b, Precision))
}

// Product multiplies all factors left to right; an empty list yields One.
func Product(xs ...decimal.Decimal) (decimal.Decimal, error) {
	acc := One
	for _, x := range xs {
		var err error
		if acc, err = Mul(acc, x); err != nil {
			return decimal.Zero, err
		}
	}
	return acc, nil
}

// Powi raises x to an integer power by repeated squaring.
func Powi(x decimal.Decimal, n int) (decimal.Decimal, error) {
	if n < 0 {
		p, err := Powi(x, -n)
		if err != nil {
			return decimal.Zero, err
		}
		return Div(One, p)
	}
	result := One
	base := x
	for n > 0 {
		var err error
		if n&1 == 1 {
			if result, err = Mul(result, base); err != nil {
				return decimal.Zero, err
			}
		}
		n >>= 1
		if n > 0 {
			if base, err = Mul(base, base); err != nil {
				return decimal.Zero, err
			}
		}
	}
	return result, nil
}

// Half returns x/2 exactly.
func Half(x decimal.Decimal) decimal.Decimal {
	return x.Mul(half)
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// FromUint64 converts without going through int64.
func FromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// MillisToUnit expresses ms as a fraction of unitMs.
func MillisToUnit(ms, unitMs uint64) (decimal.Decimal, error) {
	if unitMs == 0 {
		return decimal.Zero, errs.Domain("millis_to_unit", "unit must be positive")
	}
	return Div(FromUint64(ms), FromUint64(unitMs))
}

func pow2(k int64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), uint(k)), 0)
}
