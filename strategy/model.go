// Package strategy exposes the quoting models behind two interchangeable
// entry points: Sync computes on the caller's goroutine, Async first
// acquires missing inputs (volatility, market snapshot) and then runs the
// identical pure computation.
package strategy

import (
	"github.com/shopspring/decimal"

	"asmm-quoter/strategy/asmm"
)

// Model is a stateless quoting model. Implementations must return the same
// decimal result for the same inputs.
type Model interface {
	ReservationPrice(mid, inventory decimal.Decimal, cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (decimal.Decimal, error)
	OptimalSpread(cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (decimal.Decimal, error)
	OptimalQuotes(mid, inventory decimal.Decimal, cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (asmm.Quote, error)
}

var (
	_ Model = asmm.AvellanedaStoikov{}
	_ Model = (*asmm.GLFT)(nil)
)

// Sync 同步入口：直接在调用方 goroutine 上计算。
type Sync struct {
	model Model
}

// NewSync wraps m; a nil model falls back to Avellaneda-Stoikov.
func NewSync(m Model) *Sync {
	if m == nil {
		m = asmm.AvellanedaStoikov{}
	}
	return &Sync{model: m}
}

func (s *Sync) Model() Model { return s.model }

func (s *Sync) ReservationPrice(mid, inventory decimal.Decimal, cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	return s.model.ReservationPrice(mid, inventory, cfg, volatility, ttlMs)
}

func (s *Sync) OptimalSpread(cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	return s.model.OptimalSpread(cfg, volatility, ttlMs)
}

func (s *Sync) OptimalQuotes(mid, inventory decimal.Decimal, cfg *asmm.Config, volatility decimal.Decimal, ttlMs uint64) (asmm.Quote, error) {
	return s.model.OptimalQuotes(mid, inventory, cfg, volatility, ttlMs)
}
