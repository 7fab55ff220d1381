package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// Window is the price history an estimator works on. Prices feed the
// return-based estimators; Highs and Lows feed the range-based one.
// Volatility comes out in the units of the sampling interval of the
// series: no annualization happens here, callers scale if they need to.
type Window struct {
	Prices []decimal.Decimal
	Highs  []decimal.Decimal
	Lows   []decimal.Decimal
}

// Estimator turns a window of history into a single volatility figure.
// Implementations hold no state between calls.
type Estimator interface {
	Estimate(w Window) (decimal.Decimal, error)
}

// ReturnKind selects how close-to-close returns are measured.
type ReturnKind int

const (
	LogReturns ReturnKind = iota
	SimpleReturns
)

// SimpleEstimator computes the sample standard deviation of returns over
// the whole series.
type SimpleEstimator struct {
	Returns ReturnKind
}

// Estimate needs at least two prices. A single return has no dispersion
// and yields zero.
func (e SimpleEstimator) Estimate(w Window) (decimal.Decimal, error) {
	rets, err := returns(w.Prices, e.Returns)
	if err != nil {
		return decimal.Zero, err
	}
	n := int64(len(rets))
	if n == 1 {
		return decimal.Zero, nil
	}

	sum := decimal.Zero
	for _, r := range rets {
		sum = sum.Add(r)
	}
	mean, err := decimalx.Div(sum, decimal.NewFromInt(n))
	if err != nil {
		return decimal.Zero, err
	}

	sq := decimal.Zero
	for _, r := range rets {
		dev := r.Sub(mean)
		p, err := decimalx.Mul(dev, dev)
		if err != nil {
			return decimal.Zero, err
		}
		sq = sq.Add(p)
	}
	variance, err := decimalx.Div(sq, decimal.NewFromInt(n-1))
	if err != nil {
		return decimal.Zero, err
	}
	return decimalx.Sqrt(variance)
}

// EWMAEstimator applies var_t = λ·var_{t-1} + (1-λ)·r_t² over log returns,
// seeded with the first squared return.
type EWMAEstimator struct {
	lambda decimal.Decimal
}

// NewEWMAEstimator requires λ strictly inside (0, 1).
func NewEWMAEstimator(lambda decimal.Decimal) (*EWMAEstimator, error) {
	if lambda.Sign() <= 0 || lambda.GreaterThanOrEqual(decimalx.One) {
		return nil, errs.InvalidConfiguration("lambda", "must be in (0, 1)")
	}
	return &EWMAEstimator{lambda: lambda}, nil
}

func (e *EWMAEstimator) Lambda() decimal.Decimal { return e.lambda }

func (e *EWMAEstimator) Estimate(w Window) (decimal.Decimal, error) {
	rets, err := returns(w.Prices, LogReturns)
	if err != nil {
		return decimal.Zero, err
	}
	variance, err := decimalx.Mul(rets[0], rets[0])
	if err != nil {
		return decimal.Zero, err
	}
	weight := decimalx.One.Sub(e.lambda)
	for _, r := range rets[1:] {
		carried, err := decimalx.Mul(e.lambda, variance)
		if err != nil {
			return decimal.Zero, err
		}
		fresh, err := decimalx.Product(weight, r, r)
		if err != nil {
			return decimal.Zero, err
		}
		if variance, err = decimalx.Add(carried, fresh); err != nil {
			return decimal.Zero, err
		}
	}
	return decimalx.Sqrt(variance)
}

// ParkinsonEstimator uses the high/low range of each bar:
// σ² = Σ ln(high_i/low_i)² / (4·n·ln2).
type ParkinsonEstimator struct{}

func (ParkinsonEstimator) Estimate(w Window) (decimal.Decimal, error) {
	if len(w.Highs) != len(w.Lows) {
		return decimal.Zero, errs.InvalidMarketState("highs_lows",
			fmt.Sprintf("series differ in length (%d highs, %d lows)", len(w.Highs), len(w.Lows)))
	}
	n := len(w.Highs)
	if n == 0 {
		return decimal.Zero, errs.InsufficientData("parkinson needs at least one high/low pair")
	}

	sum := decimal.Zero
	for i := 0; i < n; i++ {
		high, low := w.Highs[i], w.Lows[i]
		if low.Sign() <= 0 {
			return decimal.Zero, errs.InvalidMarketState("lows", fmt.Sprintf("low at index %d must be positive", i))
		}
		if high.LessThan(low) {
			return decimal.Zero, errs.InvalidMarketState("highs", fmt.Sprintf("high below low at index %d", i))
		}
		ratio, err := decimalx.Div(high, low)
		if err != nil {
			return decimal.Zero, err
		}
		lr, err := decimalx.Ln(ratio)
		if err != nil {
			return decimal.Zero, err
		}
		sq, err := decimalx.Mul(lr, lr)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(sq)
	}

	ln2, err := decimalx.Ln(decimalx.Two)
	if err != nil {
		return decimal.Zero, err
	}
	denom, err := decimalx.Product(decimal.NewFromInt(4), decimal.NewFromInt(int64(n)), ln2)
	if err != nil {
		return decimal.Zero, err
	}
	variance, err := decimalx.Div(sum, denom)
	if err != nil {
		return decimal.Zero, err
	}
	return decimalx.Sqrt(variance)
}

// returns validates prices and converts them to n-1 returns.
func returns(prices []decimal.Decimal, kind ReturnKind) ([]decimal.Decimal, error) {
	if len(prices) < 2 {
		return nil, errs.InsufficientData(fmt.Sprintf("need at least 2 prices, got %d", len(prices)))
	}
	for i, p := range prices {
		if p.Sign() <= 0 {
			return nil, errs.InvalidMarketState("prices", fmt.Sprintf("price at index %d must be positive", i))
		}
	}

	out := make([]decimal.Decimal, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		ratio, err := decimalx.Div(prices[i], prices[i-1])
		if err != nil {
			return nil, err
		}
		var r decimal.Decimal
		switch kind {
		case SimpleReturns:
			r = ratio.Sub(decimalx.One)
		default:
			if r, err = decimalx.Ln(ratio); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Method names a volatility estimator.
type Method string

const (
	MethodSimple    Method = "simple"
	MethodEWMA      Method = "ewma"
	MethodParkinson Method = "parkinson"
)

// DefaultEWMALambda is the RiskMetrics daily decay factor.
var DefaultEWMALambda = decimal.RequireFromString("0.94")

// ParseMethod accepts the method names case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodSimple, MethodEWMA, MethodParkinson:
		return m, nil
	default:
		return "", errs.InvalidConfiguration("method", fmt.Sprintf("unknown volatility method %q", s))
	}
}

// EstimatorOptions carries per-method parameters. An unset (invalid)
// Lambda selects DefaultEWMALambda; a set one is used as given.
type EstimatorOptions struct {
	Lambda  decimal.NullDecimal
	Returns ReturnKind
}

// NewEstimator builds the estimator for a method.
func NewEstimator(m Method, opts EstimatorOptions) (Estimator, error) {
	switch m {
	case MethodSimple:
		return SimpleEstimator{Returns: opts.Returns}, nil
	case MethodEWMA:
		lambda := DefaultEWMALambda
		if opts.Lambda.Valid {
			lambda = opts.Lambda.Decimal
		}
		return NewEWMAEstimator(lambda)
	case MethodParkinson:
		return ParkinsonEstimator{}, nil
	default:
		return nil, errs.InvalidConfiguration("method", fmt.Sprintf("unknown volatility method %q", m))
	}
}

// EstimateVolatility is the one-shot entry point: pick a method, run it over w.
func EstimateVolatility(m Method, w Window, opts EstimatorOptions) (decimal.Decimal, error) {
	est, err := NewEstimator(m, opts)
	if err != nil {
		return decimal.Zero, err
	}
	return est.Estimate(w)
}
