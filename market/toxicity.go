package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// TradeSide is the aggressor side of a trade.
type TradeSide int

const (
	SideBuy TradeSide = iota
	SideSell
)

func (s TradeSide) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

const DefaultVPINBuckets = 50

// DefaultToxicThreshold VPIN 达到该值视为有毒订单流。
var DefaultToxicThreshold = decimal.RequireFromString("0.7")

var (
	levelLow      = decimal.RequireFromString("0.3")
	levelModerate = decimal.RequireFromString("0.5")
	levelElevated = decimal.RequireFromString("0.7")
)

// VPINConfig sizes the volume buckets and the rolling window.
type VPINConfig struct {
	BucketVolume   decimal.Decimal
	NumBuckets     int
	ToxicThreshold decimal.Decimal
}

// NewVPINConfig validates bucketVolume > 0, numBuckets > 0 and a threshold in [0, 1].
func NewVPINConfig(bucketVolume decimal.Decimal, numBuckets int, threshold decimal.Decimal) (VPINConfig, error) {
	if bucketVolume.Sign() <= 0 {
		return VPINConfig{}, errs.InvalidConfiguration("bucket_volume", "must be positive")
	}
	if numBuckets <= 0 {
		return VPINConfig{}, errs.InvalidConfiguration("num_buckets", "must be greater than 0")
	}
	if threshold.Sign() < 0 || threshold.GreaterThan(decimalx.One) {
		return VPINConfig{}, errs.InvalidConfiguration("toxicity_threshold", "must be in [0, 1]")
	}
	return VPINConfig{BucketVolume: bucketVolume, NumBuckets: numBuckets, ToxicThreshold: threshold}, nil
}

// VolumeBucket represents a volume bucket for VPIN calculation
type VolumeBucket struct {
	BuyVolume   decimal.Decimal
	SellVolume  decimal.Decimal
	TotalVolume decimal.Decimal
	// Imbalance |buy-sell|/total，桶闭合时计算
	Imbalance decimal.Decimal
	Start     time.Time
	End       time.Time
	Trades    int
}

// SignedImbalance (buy-sell)/total; zero for an empty bucket.
func (b VolumeBucket) SignedImbalance() (decimal.Decimal, error) {
	if b.TotalVolume.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return decimalx.Div(b.BuyVolume.Sub(b.SellVolume), b.TotalVolume)
}

// BucketStats summarizes the imbalances of the completed buckets.
type BucketStats struct {
	Count  int
	Mean   decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
	StdDev decimal.Decimal
}

// VPINCalculator calculates Volume-Synchronized Probability of Informed
// Trading over the last NumBuckets completed buckets. A trade is never
// split: the one that fills a bucket closes it with all of its volume.
type VPINCalculator struct {
	mu          sync.RWMutex
	cfg         VPINConfig
	buckets     []VolumeBucket
	current     VolumeBucket
	totalTrades int
	totalVolume decimal.Decimal
}

func NewVPINCalculator(cfg VPINConfig) *VPINCalculator {
	return &VPINCalculator{
		cfg:     cfg,
		buckets: make([]VolumeBucket, 0, cfg.NumBuckets),
	}
}

func (v *VPINCalculator) Config() VPINConfig { return v.cfg }

// AddTrade adds a trade and returns the VPIN once enough buckets have closed.
func (v *VPINCalculator) AddTrade(qty decimal.Decimal, side TradeSide, ts time.Time) (vpin decimal.Decimal, ready bool, err error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, false, errs.InvalidMarketState("qty", "trade volume must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current.Trades == 0 {
		v.current.Start = ts
	}
	v.current.End = ts
	v.current.Trades++
	if side == SideSell {
		v.current.SellVolume = v.current.SellVolume.Add(qty)
	} else {
		v.current.BuyVolume = v.current.BuyVolume.Add(qty)
	}
	v.current.TotalVolume = v.current.TotalVolume.Add(qty)
	v.totalTrades++
	v.totalVolume = v.totalVolume.Add(qty)

	if v.current.TotalVolume.GreaterThanOrEqual(v.cfg.BucketVolume) {
		if err := v.closeBucket(); err != nil {
			return decimal.Zero, false, err
		}
	}
	return v.vpinLocked()
}

func (v *VPINCalculator) closeBucket() error {
	imb, err := decimalx.Div(v.current.BuyVolume.Sub(v.current.SellVolume).Abs(), v.current.TotalVolume)
	if err != nil {
		return err
	}
	v.current.Imbalance = imb
	v.buckets = append(v.buckets, v.current)
	if len(v.buckets) > v.cfg.NumBuckets {
		v.buckets = v.buckets[len(v.buckets)-v.cfg.NumBuckets:]
	}
	v.current = VolumeBucket{}
	return nil
}

func (v *VPINCalculator) vpinLocked() (decimal.Decimal, bool, error) {
	if len(v.buckets) < v.cfg.NumBuckets {
		return decimal.Zero, false, nil
	}
	sum := decimal.Zero
	for _, b := range v.buckets {
		sum = sum.Add(b.Imbalance)
	}
	vpin, err := decimalx.Div(sum, decimal.NewFromInt(int64(v.cfg.NumBuckets)))
	if err != nil {
		return decimal.Zero, false, err
	}
	return vpin, true, nil
}

// VPIN returns the current value; ok is false until NumBuckets buckets closed.
func (v *VPINCalculator) VPIN() (decimal.Decimal, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	vpin, ok, err := v.vpinLocked()
	if err != nil {
		return decimal.Zero, false
	}
	return vpin, ok
}

// IsReady checks if enough buckets have been collected
func (v *VPINCalculator) IsReady() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.buckets) >= v.cfg.NumBuckets
}

// IsToxic checks if the current VPIN indicates toxic flow
func (v *VPINCalculator) IsToxic() bool {
	vpin, ok := v.VPIN()
	return ok && vpin.GreaterThanOrEqual(v.cfg.ToxicThreshold)
}

// ToxicityLevel 分级：unknown / low (<0.3) / moderate (<0.5) / elevated (<0.7) / high。
func (v *VPINCalculator) ToxicityLevel() string {
	vpin, ok := v.VPIN()
	switch {
	case !ok:
		return "unknown"
	case vpin.LessThan(levelLow):
		return "low"
	case vpin.LessThan(levelModerate):
		return "moderate"
	case vpin.LessThan(levelElevated):
		return "elevated"
	default:
		return "high"
	}
}

// Buckets returns a copy of the completed buckets, oldest first.
func (v *VPINCalculator) Buckets() []VolumeBucket {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]VolumeBucket(nil), v.buckets...)
}

// Current returns the bucket still filling.
func (v *VPINCalculator) Current() VolumeBucket {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

func (v *VPINCalculator) TotalTrades() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalTrades
}

func (v *VPINCalculator) TotalVolume() decimal.Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalVolume
}

// Stats 计算已闭合桶的不平衡度统计（总体方差）；没有桶时 ok 为 false。
func (v *VPINCalculator) Stats() (BucketStats, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.buckets) == 0 {
		return BucketStats{}, false, nil
	}
	n := decimal.NewFromInt(int64(len(v.buckets)))
	st := BucketStats{Count: len(v.buckets), Min: v.buckets[0].Imbalance, Max: v.buckets[0].Imbalance}
	sum := decimal.Zero
	for _, b := range v.buckets {
		sum = sum.Add(b.Imbalance)
		st.Min = decimalx.Min(st.Min, b.Imbalance)
		st.Max = decimalx.Max(st.Max, b.Imbalance)
	}
	mean, err := decimalx.Div(sum, n)
	if err != nil {
		return BucketStats{}, false, err
	}
	sq := decimal.Zero
	for _, b := range v.buckets {
		dev := b.Imbalance.Sub(mean)
		p, err := decimalx.Mul(dev, dev)
		if err != nil {
			return BucketStats{}, false, err
		}
		sq = sq.Add(p)
	}
	variance, err := decimalx.Div(sq, n)
	if err != nil {
		return BucketStats{}, false, err
	}
	if st.StdDev, err = decimalx.Sqrt(variance); err != nil {
		return BucketStats{}, false, err
	}
	st.Mean = mean
	return st, true, nil
}

// Reset clears all buckets and totals.
func (v *VPINCalculator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buckets = make([]VolumeBucket, 0, v.cfg.NumBuckets)
	v.current = VolumeBucket{}
	v.totalTrades = 0
	v.totalVolume = decimal.Zero
}

// TradeClassifier infers the aggressor side when the feed does not carry it.
type TradeClassifier struct {
	last    decimal.Decimal
	hasLast bool
}

// ClassifyTick 价格上涨为买，下跌为卖；首笔或价格不变时记为买。
func (c *TradeClassifier) ClassifyTick(price decimal.Decimal) TradeSide {
	side := SideBuy
	if c.hasLast && price.LessThan(c.last) {
		side = SideSell
	}
	c.last, c.hasLast = price, true
	return side
}

// ClassifyQuote compares the price with the bid/ask mid and falls back to
// the tick rule at the mid.
func (c *TradeClassifier) ClassifyQuote(price, bid, ask decimal.Decimal) TradeSide {
	mid := decimalx.Half(bid.Add(ask))
	switch {
	case price.GreaterThan(mid):
		c.last, c.hasLast = price, true
		return SideBuy
	case price.LessThan(mid):
		c.last, c.hasLast = price, true
		return SideSell
	default:
		return c.ClassifyTick(price)
	}
}

func (c *TradeClassifier) Reset() { *c = TradeClassifier{} }

// VPINFromTrades classifies trades with the tick rule and feeds them to a
// new calculator in order.
func VPINFromTrades(trades []Trade, cfg VPINConfig) (*VPINCalculator, error) {
	calc := NewVPINCalculator(cfg)
	var cls TradeClassifier
	for i, tr := range trades {
		if _, _, err := calc.AddTrade(tr.Qty, cls.ClassifyTick(tr.Price), tr.Ts); err != nil {
			return nil, fmt.Errorf("trade %d: %w", i+1, err)
		}
	}
	return calc, nil
}
