package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a normalized trade tick.
type Trade struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
	Ts    time.Time
}

// BarsFromTrades 按 interval 聚合成交，返回全部 Kline，最后一根可能尚未闭合。
// trades 需按时间排序。
func BarsFromTrades(trades []Trade, interval time.Duration) []Kline {
	agg := NewKlineAggregator(interval)
	var bars []Kline
	for _, tr := range trades {
		if closed := agg.OnTrade(tr.Price, tr.Qty, tr.Ts); closed != nil {
			bars = append(bars, *closed)
		}
	}
	if cur, ok := agg.Current(); ok {
		bars = append(bars, cur)
	}
	return bars
}
