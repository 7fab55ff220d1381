package inventory

import (
	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// PnL splits profit into the part locked in by closing trades and the part
// still floating on the open position.
type PnL struct {
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
}

// AddRealized accumulates x into Realized.
func (p *PnL) AddRealized(x decimal.Decimal) error {
	sum, err := decimalx.Add(p.Realized, x)
	if err != nil {
		return err
	}
	p.Realized = sum
	return nil
}

// SetUnrealized replaces Unrealized.
func (p *PnL) SetUnrealized(x decimal.Decimal) {
	p.Unrealized = x
}

func (p PnL) Total() (decimal.Decimal, error) {
	return decimalx.Add(p.Realized, p.Unrealized)
}

// unrealizedAt 基于给定价格计算未实现盈亏 q·(price − avg)。
func unrealizedAt(pos Position, price decimal.Decimal) (decimal.Decimal, error) {
	if pos.IsFlat() {
		return decimal.Zero, nil
	}
	return decimalx.Mul(pos.Quantity, price.Sub(pos.AvgEntryPrice))
}

// MarkToMarket recomputes unrealized PnL against price and stores it,
// replacing the previous value.
func (t *Tracker) MarkToMarket(price decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		return decimal.Zero, errs.InvalidMarketState("mark_price", "must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	u, err := unrealizedAt(t.pos, price)
	if err != nil {
		return decimal.Zero, err
	}
	t.pnl.SetUnrealized(u)
	return u, nil
}

// Valuation 基于 mid 价计算净仓位与未实现盈亏，不修改存储的 PnL。
func (t *Tracker) Valuation(mid decimal.Decimal) (net, unrealized decimal.Decimal, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, err := unrealizedAt(t.pos, mid)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return t.pos.Quantity, u, nil
}

func (t *Tracker) PnL() PnL {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pnl
}
