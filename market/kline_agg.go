package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// KlineAggregator 从成交流生成固定周期的 Kline，周期起点按 Interval 对齐。
type KlineAggregator struct {
	Interval time.Duration
	mu       sync.Mutex
	current  *Kline
}

func NewKlineAggregator(interval time.Duration) *KlineAggregator {
	return &KlineAggregator{Interval: interval}
}

// OnTrade 更新当前 Kline；跨周期时返回已闭合的 Kline，否则返回 nil。
func (a *KlineAggregator) OnTrade(price, qty decimal.Decimal, ts time.Time) *Kline {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := ts.Truncate(a.Interval)
	if a.current == nil || !start.Equal(a.current.Ts) {
		closed := a.current
		a.current = &Kline{
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: qty,
			Ts:     start,
		}
		return closed
	}

	if price.GreaterThan(a.current.High) {
		a.current.High = price
	}
	if price.LessThan(a.current.Low) {
		a.current.Low = price
	}
	a.current.Close = price
	a.current.Volume = a.current.Volume.Add(qty)
	return nil
}

// Current 返回当前未闭合 Kline 的副本。
func (a *KlineAggregator) Current() (Kline, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Kline{}, false
	}
	return *a.current, true
}
