package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
)

// Stats 成交统计。
type Stats struct {
	Fills        int
	BuyVolume    decimal.Decimal
	SellVolume   decimal.Decimal
	BuyNotional  decimal.Decimal
	SellNotional decimal.Decimal
	LastFill     time.Time
}

// record returns s updated with one fill; s itself is untouched.
func (s Stats) record(delta, price decimal.Decimal, ts time.Time) (Stats, error) {
	qty := delta.Abs()
	notional, err := decimalx.Mul(qty, price)
	if err != nil {
		return Stats{}, err
	}
	if delta.Sign() > 0 {
		if s.BuyVolume, err = decimalx.Add(s.BuyVolume, qty); err != nil {
			return Stats{}, err
		}
		if s.BuyNotional, err = decimalx.Add(s.BuyNotional, notional); err != nil {
			return Stats{}, err
		}
	} else {
		if s.SellVolume, err = decimalx.Add(s.SellVolume, qty); err != nil {
			return Stats{}, err
		}
		if s.SellNotional, err = decimalx.Add(s.SellNotional, notional); err != nil {
			return Stats{}, err
		}
	}
	s.Fills++
	s.LastFill = ts
	return s, nil
}

// Snapshot is a consistent copy of everything the tracker holds.
type Snapshot struct {
	Position Position
	PnL      PnL
	Stats    Stats
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{Position: t.pos, PnL: t.pnl, Stats: t.stats}
}
