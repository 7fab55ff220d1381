package asmm

import (
	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// inventoryRisk returns γ·σ²·τ, the part of the spread (and of the
// reservation shift per unit of inventory) that compensates for holding risk.
func inventoryRisk(gamma, vol, tau decimal.Decimal) (decimal.Decimal, error) {
	return decimalx.Product(gamma, vol, vol, tau)
}

// adverseSelection returns (2/γ)·ln(1 + γ/k).
func adverseSelection(gamma, k decimal.Decimal) (decimal.Decimal, error) {
	ratio, err := decimalx.Div(gamma, k)
	if err != nil {
		return decimal.Zero, err
	}
	l, err := decimalx.Ln(decimalx.One.Add(ratio))
	if err != nil {
		return decimal.Zero, err
	}
	inv, err := decimalx.Div(decimalx.Two, gamma)
	if err != nil {
		return decimal.Zero, err
	}
	return decimalx.Mul(inv, l)
}

// spreadFor computes max(minSpread, γσ²τ + (2/γ)ln(1+γ/k)). When the floor
// binds the result is minSpread itself.
func spreadFor(gamma, k, vol, tau, minSpread decimal.Decimal) (decimal.Decimal, error) {
	risk, err := inventoryRisk(gamma, vol, tau)
	if err != nil {
		return decimal.Zero, err
	}
	adverse, err := adverseSelection(gamma, k)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := decimalx.Add(risk, adverse)
	if err != nil {
		return decimal.Zero, err
	}
	if raw.LessThan(minSpread) {
		return minSpread, nil
	}
	return raw, nil
}

// reservationFor computes mid - q·γ·σ²·τ - extra. Flat inventory returns mid untouched.
func reservationFor(mid, q, gamma, vol, tau, extra decimal.Decimal) (decimal.Decimal, error) {
	if q.IsZero() {
		return mid, nil
	}
	shift, err := decimalx.Product(q, gamma, vol, vol, tau)
	if err != nil {
		return decimal.Zero, err
	}
	if shift, err = decimalx.Add(shift, extra); err != nil {
		return decimal.Zero, err
	}
	return decimalx.Sub(mid, shift)
}

// quoteAround places bid/ask symmetrically around r.
func quoteAround(r, spread decimal.Decimal) (Quote, error) {
	half := decimalx.Half(spread)
	bid, err := decimalx.Sub(r, half)
	if err != nil {
		return Quote{}, err
	}
	ask, err := decimalx.Add(r, half)
	if err != nil {
		return Quote{}, err
	}
	if bid.Sign() <= 0 {
		return Quote{}, errs.InvalidQuoteGeneration("bid price must be positive, got " + bid.String())
	}
	if bid.GreaterThanOrEqual(ask) {
		return Quote{}, errs.InvalidQuoteGeneration("bid price must be less than ask price")
	}
	return Quote{Bid: bid, Ask: ask, ReservationPrice: r, Spread: ask.Sub(bid)}, nil
}

func validateMid(mid decimal.Decimal) error {
	if mid.Sign() <= 0 {
		return errs.InvalidMarketState("mid_price", "must be positive")
	}
	return nil
}

func validateVolatility(vol decimal.Decimal) error {
	if vol.Sign() < 0 {
		return errs.InvalidMarketState("volatility", "must be non-negative")
	}
	return nil
}
