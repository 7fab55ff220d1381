package decimalx

import (
	"math"

	"github.com/shopspring/decimal"

	"asmm-quoter/errs"
)

var (
	ln2 = decimal.RequireFromString("0.693147180559945309417232121458176568075500134360255254120680009")

	// exp(x) for x above ln(MaxValue) ~ 66.54 cannot be represented.
	expUpperBound = decimal.RequireFromString("66.5421293337547497")
	// exp(x) below this rounds to zero at Precision.
	expLowerBound = decimal.NewFromInt(-100)

	workEpsilon = decimal.New(1, -workPrecision)
)

// Sqrt computes the square root by Newton-Raphson, seeded from float64 and
// iterated at working precision until successive iterates differ by at most
// one unit in the last working digit. The result is within one unit of the
// Precision-th fractional digit.
func Sqrt(x decimal.Decimal) (decimal.Decimal, error) {
	if x.Sign() < 0 {
		return decimal.Zero, errs.Domain("sqrt", "argument must be non-negative")
	}
	if _, err := Check("sqrt", x); err != nil {
		return decimal.Zero, err
	}
	if x.IsZero() {
		return decimal.Zero, nil
	}

	guess := One
	if f := math.Sqrt(x.InexactFloat64()); f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
		guess = decimal.NewFromFloat(f)
	}
	for i := 0; i < maxIterations; i++ {
		next := Half(guess.Add(x.DivRound(guess, workPrecision))).Round(workPrecision)
		if next.Sub(guess).Abs().LessThanOrEqual(workEpsilon) {
			guess = next
			break
		}
		guess = next
	}
	return guess.Round(Precision), nil
}

// Ln computes the natural logarithm. The argument is reduced by powers of
// two into [1, 2), then ln(y) = 2·atanh((y-1)/(y+1)) is summed until the
// terms vanish at working precision. Absolute error is below 1e-28.
func Ln(x decimal.Decimal) (decimal.Decimal, error) {
	if x.Sign() <= 0 {
		return decimal.Zero, errs.Domain("ln", "argument must be positive")
	}
	if x.Equal(One) {
		return decimal.Zero, nil
	}

	y := x
	var k int64
	for y.LessThan(One) {
		y = y.Mul(Two)
		k--
	}
	for y.GreaterThanOrEqual(Two) {
		y = y.Mul(half)
		k++
	}

	z := y.Sub(One).DivRound(y.Add(One), workPrecision)
	z2 := z.Mul(z).Round(workPrecision)
	sum := z
	term := z
	for n := int64(3); n < 2*maxIterations; n += 2 {
		term = term.Mul(z2).Round(workPrecision)
		if term.IsZero() {
			break
		}
		sum = sum.Add(term.DivRound(decimal.NewFromInt(n), workPrecision))
	}

	result := sum.Mul(Two).Add(ln2.Mul(decimal.NewFromInt(k)))
	return Check("ln", result.Round(Precision))
}

// Exp computes e^x. With x = k·ln2 + r and |r| <= ln2/2 the Taylor series
// on r converges in a few dozen terms; the result is scaled by 2^k.
// Relative error is below 1e-27 before the final rounding to Precision.
func Exp(x decimal.Decimal) (decimal.Decimal, error) {
	if x.GreaterThan(expUpperBound) {
		return decimal.Zero, errs.Overflow("exp")
	}
	if x.LessThan(expLowerBound) {
		return decimal.Zero, nil
	}
	if x.IsZero() {
		return One, nil
	}

	k := x.DivRound(ln2, 0).IntPart()
	r := x.Sub(ln2.Mul(decimal.NewFromInt(k))).Round(workPrecision)

	sum := One
	term := One
	for n := int64(1); n < maxIterations; n++ {
		term = term.Mul(r).DivRound(decimal.NewFromInt(n), workPrecision)
		if term.Abs().LessThan(workEpsilon) {
			break
		}
		sum = sum.Add(term)
	}

	switch {
	case k > 0:
		sum = sum.Mul(pow2(k))
	case k < 0:
		sum = sum.DivRound(pow2(-k), workPrecision)
	}
	return Check("exp", sum.Round(Precision))
}
