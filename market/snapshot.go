package market

import (
	"time"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// Snapshot is the market state a quote is evaluated against. It is built
// per call by the caller and never retained.
type Snapshot struct {
	MidPrice         decimal.Decimal
	TimeToTerminalMs uint64
	Timestamp        time.Time
}

// NewSnapshot builds a snapshot from best bid/ask, taking the mid as their average.
func NewSnapshot(bestBid, bestAsk decimal.Decimal, timeToTerminalMs uint64, ts time.Time) (Snapshot, error) {
	if bestBid.Sign() <= 0 || bestAsk.Sign() <= 0 {
		return Snapshot{}, errs.InvalidMarketState("best_bid_ask", "prices must be positive")
	}
	if bestBid.GreaterThan(bestAsk) {
		return Snapshot{}, errs.InvalidMarketState("best_bid_ask", "crossed book")
	}
	s := Snapshot{
		MidPrice:         decimalx.Half(bestBid.Add(bestAsk)),
		TimeToTerminalMs: timeToTerminalMs,
		Timestamp:        ts,
	}
	return s, nil
}

// Validate reports a non-positive mid price.
func (s Snapshot) Validate() error {
	if s.MidPrice.Sign() <= 0 {
		return errs.InvalidMarketState("mid_price", "must be positive")
	}
	return nil
}
