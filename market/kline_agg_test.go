package market

import (
	"testing"
	"time"
)

func TestKlineAggregator(t *testing.T) {
	agg := NewKlineAggregator(time.Minute)
	ts := time.Unix(0, 0)
	if closed := agg.OnTrade(d("100"), d("1"), ts); closed != nil {
		t.Fatalf("should not close on first trade")
	}
	agg.OnTrade(d("102"), d("1"), ts.Add(10*time.Second))
	agg.OnTrade(d("99"), d("2"), ts.Add(20*time.Second))
	agg.OnTrade(d("101"), d("1"), ts.Add(50*time.Second))
	closed := agg.OnTrade(d("105"), d("1"), ts.Add(70*time.Second))
	if closed == nil {
		t.Fatalf("expected kline close")
	}
	if !closed.Open.Equal(d("100")) || !closed.High.Equal(d("102")) ||
		!closed.Low.Equal(d("99")) || !closed.Close.Equal(d("101")) {
		t.Fatalf("unexpected kline %+v", closed)
	}
	if !closed.Volume.Equal(d("5")) {
		t.Fatalf("unexpected volume %s", closed.Volume)
	}

	cur, ok := agg.Current()
	if !ok || !cur.Open.Equal(d("105")) || !cur.Ts.Equal(ts.Add(time.Minute)) {
		t.Fatalf("unexpected current bar %+v", cur)
	}
}

func TestKlineAggregatorEmpty(t *testing.T) {
	agg := NewKlineAggregator(time.Minute)
	if _, ok := agg.Current(); ok {
		t.Fatalf("expected no current bar")
	}
}
