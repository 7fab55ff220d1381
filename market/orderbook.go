package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
)

// Level 一档价格与数量。
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// OrderBook 维护价格->数量映射，key 为价格的规范字符串。
type OrderBook struct {
	mu   sync.RWMutex
	bids map[string]Level
	asks map[string]Level
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: make(map[string]Level),
		asks: make(map[string]Level),
	}
}

// ApplyDelta 应用增量更新，qty 为 0 表示删除该档。
func (ob *OrderBook) ApplyDelta(bids, asks []Level) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	apply(ob.bids, bids)
	apply(ob.asks, asks)
}

func apply(side map[string]Level, delta []Level) {
	for _, l := range delta {
		key := l.Price.String()
		if l.Qty.IsZero() {
			delete(side, key)
		} else {
			side[key] = l
		}
	}
}

// Best 返回最好买/卖价；若不存在则为 0。
func (ob *OrderBook) Best() (bestBid, bestAsk decimal.Decimal) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	for _, l := range ob.bids {
		if l.Price.GreaterThan(bestBid) {
			bestBid = l.Price
		}
	}
	for _, l := range ob.asks {
		if bestAsk.IsZero() || l.Price.LessThan(bestAsk) {
			bestAsk = l.Price
		}
	}
	return bestBid, bestAsk
}

// Mid 返回中间价；若缺失任一侧返回 0。
func (ob *OrderBook) Mid() decimal.Decimal {
	bid, ask := ob.Best()
	if bid.IsZero() || ask.IsZero() {
		return decimal.Zero
	}
	return decimalx.Half(bid.Add(ask))
}

// Snapshot 以盘口最优价构造报价用快照。
func (ob *OrderBook) Snapshot(timeToTerminalMs uint64, ts time.Time) (Snapshot, error) {
	bid, ask := ob.Best()
	return NewSnapshot(bid, ask, timeToTerminalMs, ts)
}
