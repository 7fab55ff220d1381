package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kline represents OHLC data.
type Kline struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Ts     time.Time
}

// WindowFromKlines turns closed bars into an estimator window: closes feed
// the return-based estimators, highs and lows feed Parkinson.
func WindowFromKlines(bars []Kline) Window {
	w := Window{
		Prices: make([]decimal.Decimal, 0, len(bars)),
		Highs:  make([]decimal.Decimal, 0, len(bars)),
		Lows:   make([]decimal.Decimal, 0, len(bars)),
	}
	for _, b := range bars {
		w.Prices = append(w.Prices, b.Close)
		w.Highs = append(w.Highs, b.High)
		w.Lows = append(w.Lows, b.Low)
	}
	return w
}
