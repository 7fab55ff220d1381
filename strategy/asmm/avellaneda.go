// Package asmm implements Avellaneda-Stoikov quoting and its GLFT
// terminal-penalty extension over fixed-point decimals.
//
// All models are stateless: every input arrives as an argument and the
// same inputs always produce the same decimal result, so a model value may
// be shared freely between goroutines.
package asmm

import (
	"github.com/shopspring/decimal"
)

// AvellanedaStoikov is the classic model:
//
//	r = s - q·γ·σ²·τ
//	δ = max(min_spread, γ·σ²·τ + (2/γ)·ln(1 + γ/k))
//	bid, ask = r ∓ δ/2
type AvellanedaStoikov struct{}

// ReservationPrice 根据库存偏移中间价；q 为 0 时原样返回 mid。
func (AvellanedaStoikov) ReservationPrice(mid, q decimal.Decimal, cfg *Config, vol decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	if err := validateMid(mid); err != nil {
		return decimal.Zero, err
	}
	if err := validateVolatility(vol); err != nil {
		return decimal.Zero, err
	}
	tau, err := cfg.timeFraction(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	return reservationFor(mid, q, cfg.riskAversion, vol, tau, decimal.Zero)
}

// OptimalSpread returns the full bid-ask spread δ.
func (AvellanedaStoikov) OptimalSpread(cfg *Config, vol decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	if err := validateVolatility(vol); err != nil {
		return decimal.Zero, err
	}
	tau, err := cfg.timeFraction(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	return spreadFor(cfg.riskAversion, cfg.orderIntensity, vol, tau, cfg.minSpread)
}

// OptimalQuotes combines the reservation price and spread into a quote.
func (m AvellanedaStoikov) OptimalQuotes(mid, q decimal.Decimal, cfg *Config, vol decimal.Decimal, ttlMs uint64) (Quote, error) {
	r, err := m.ReservationPrice(mid, q, cfg, vol, ttlMs)
	if err != nil {
		return Quote{}, err
	}
	spread, err := m.OptimalSpread(cfg, vol, ttlMs)
	if err != nil {
		return Quote{}, err
	}
	return quoteAround(r, spread)
}
