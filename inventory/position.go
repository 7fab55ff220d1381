// Package inventory 跟踪单个交易会话的净仓位、平均开仓价与盈亏。
package inventory

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// Position is a signed quantity and its average entry price. A flat
// position always carries a zero average.
type Position struct {
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.Decimal
}

func (p Position) IsFlat() bool { return p.Quantity.IsZero() }

// FillResult describes what one fill did to the position.
type FillResult struct {
	Position Position
	// Realized is the PnL realized by this fill alone.
	Realized decimal.Decimal
	// Closed is the quantity that offset existing exposure.
	Closed decimal.Decimal
	// Opened is the quantity that added to or opened exposure.
	Opened decimal.Decimal
	// Flipped is set when the fill crossed through zero.
	Flipped bool
}

// Tracker 维护净仓位和盈亏。设计上只有一个写入者，内部仍用锁串行化。
type Tracker struct {
	mu    sync.RWMutex
	pos   Position
	pnl   PnL
	stats Stats
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// ApplyFill applies a signed fill (positive buys, negative sells).
//
// Increasing exposure moves the average entry to the size-weighted mean.
// Reducing exposure realizes closed·(price − avg)·sign(q). Any excess that
// flips the sign opens a new basis at price; ending exactly flat resets the
// average to zero. On error nothing is committed.
func (t *Tracker) ApplyFill(delta, price decimal.Decimal, ts time.Time) (FillResult, error) {
	if delta.IsZero() {
		return FillResult{}, errs.InvalidMarketState("quantity_delta", "must be non-zero")
	}
	if price.Sign() <= 0 {
		return FillResult{}, errs.InvalidMarketState("fill_price", "must be positive")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	res, err := nextPosition(t.pos, delta, price)
	if err != nil {
		return FillResult{}, err
	}
	pnl := t.pnl
	if err := pnl.AddRealized(res.Realized); err != nil {
		return FillResult{}, err
	}
	stats, err := t.stats.record(delta, price, ts)
	if err != nil {
		return FillResult{}, err
	}

	t.pos = res.Position
	t.pnl = pnl
	t.stats = stats
	return res, nil
}

// nextPosition is the pure transition behind ApplyFill.
func nextPosition(cur Position, delta, price decimal.Decimal) (FillResult, error) {
	q, avg := cur.Quantity, cur.AvgEntryPrice

	newQ, err := decimalx.Add(q, delta)
	if err != nil {
		return FillResult{}, err
	}

	// 同向加仓或从零开仓
	if q.IsZero() || q.Sign() == delta.Sign() {
		newAvg := price
		if !q.IsZero() {
			oldCost, err := decimalx.Mul(q, avg)
			if err != nil {
				return FillResult{}, err
			}
			addCost, err := decimalx.Mul(delta, price)
			if err != nil {
				return FillResult{}, err
			}
			cost, err := decimalx.Add(oldCost, addCost)
			if err != nil {
				return FillResult{}, err
			}
			if newAvg, err = decimalx.Div(cost, newQ); err != nil {
				return FillResult{}, err
			}
		}
		return FillResult{
			Position: Position{Quantity: newQ, AvgEntryPrice: newAvg},
			Realized: decimal.Zero,
			Closed:   decimal.Zero,
			Opened:   delta.Abs(),
		}, nil
	}

	// 减仓或反手
	closed := decimalx.Min(q.Abs(), delta.Abs())
	realized, err := decimalx.Product(closed, price.Sub(avg), decimal.NewFromInt(int64(q.Sign())))
	if err != nil {
		return FillResult{}, err
	}

	res := FillResult{
		Realized: realized,
		Closed:   closed,
		Opened:   delta.Abs().Sub(closed),
	}
	switch {
	case newQ.IsZero():
		res.Position = Position{Quantity: decimal.Zero, AvgEntryPrice: decimal.Zero}
	case newQ.Sign() == q.Sign():
		res.Position = Position{Quantity: newQ, AvgEntryPrice: avg}
	default:
		res.Position = Position{Quantity: newQ, AvgEntryPrice: price}
		res.Flipped = true
	}
	return res, nil
}

// Position returns a copy of the current position.
func (t *Tracker) Position() Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos
}

func (t *Tracker) NetExposure() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos.Quantity
}

func (t *Tracker) AvgEntryPrice() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos.AvgEntryPrice
}

// Reset 清空仓位、盈亏与统计，用于新会话。
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos = Position{}
	t.pnl = PnL{}
	t.stats = Stats{}
}
