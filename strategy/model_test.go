package strategy

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asmm-quoter/errs"
	"asmm-quoter/market"
	"asmm-quoter/strategy/asmm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig(t *testing.T) *asmm.Config {
	t.Helper()
	cfg, err := asmm.NewConfig(d("0.1"), d("1.5"), 3_600_000, d("0.0001"))
	require.NoError(t, err)
	return cfg
}

func models(t *testing.T) map[string]Model {
	glft, err := asmm.NewGLFT(d("0.05"), asmm.WithDynamicGamma(d("0.5")), asmm.WithPenaltyFunction(asmm.PenaltyExponential))
	require.NoError(t, err)
	return map[string]Model{"as": asmm.AvellanedaStoikov{}, "glft": glft}
}

func TestSyncAsyncBitIdentical(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	cases := []struct {
		mid, inv, vol string
		ttl           uint64
	}{
		{"100", "0", "0.2", 3_600_000},
		{"100", "10", "0.2", 1_800_000},
		{"2500.5", "-3.25", "0.85", 60_000},
		{"12.3456789", "1.5", "0.05", 0},
	}
	for name, m := range models(t) {
		s, a := NewSync(m), NewAsync(m)
		for _, c := range cases {
			vol := StaticVolatility{Value: d(c.vol)}

			wantR, err := s.ReservationPrice(d(c.mid), d(c.inv), cfg, d(c.vol), c.ttl)
			require.NoError(t, err)
			gotR, err := a.ReservationPrice(ctx, d(c.mid), d(c.inv), cfg, vol, c.ttl).Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantR.String(), gotR.String(), name)

			wantS, err := s.OptimalSpread(cfg, d(c.vol), c.ttl)
			require.NoError(t, err)
			gotS, err := a.OptimalSpread(ctx, cfg, vol, c.ttl).Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantS.String(), gotS.String(), name)

			wantQ, err := s.OptimalQuotes(d(c.mid), d(c.inv), cfg, d(c.vol), c.ttl)
			require.NoError(t, err)
			gotQ, err := a.OptimalQuotes(ctx, d(c.mid), d(c.inv), cfg, vol, c.ttl).Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantQ.Bid.String(), gotQ.Bid.String(), name)
			assert.Equal(t, wantQ.Ask.String(), gotQ.Ask.String(), name)
			assert.Equal(t, wantQ.Spread.String(), gotQ.Spread.String(), name)
		}
	}
}

func TestSyncAsyncSameErrors(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	s, a := NewSync(nil), NewAsync(nil)

	_, syncErr := s.OptimalQuotes(d("-1"), decimal.Zero, cfg, d("0.2"), 1000)
	_, asyncErr := a.OptimalQuotes(ctx, d("-1"), decimal.Zero, cfg, StaticVolatility{Value: d("0.2")}, 1000).Get(ctx)
	require.ErrorIs(t, syncErr, errs.ErrInvalidMarketState)
	assert.Equal(t, syncErr.Error(), asyncErr.Error())
}

func TestAsyncVolatilityFailure(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	feedDown := errors.New("feed down")
	vol := VolatilityFunc(func(ctx context.Context) (decimal.Decimal, error) {
		return decimal.Zero, feedDown
	})
	_, err := NewAsync(nil).OptimalSpread(ctx, cfg, vol, 1000).Get(ctx)
	assert.ErrorIs(t, err, feedDown)
}

func TestAsyncWaitsForSlowSource(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	vol := VolatilityFunc(func(ctx context.Context) (decimal.Decimal, error) {
		select {
		case <-time.After(20 * time.Millisecond):
			return d("0.2"), nil
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	})
	got, err := NewAsync(nil).OptimalQuotes(ctx, d("100"), decimal.Zero, cfg, vol, 3_600_000).Get(ctx)
	require.NoError(t, err)
	want, err := NewSync(nil).OptimalQuotes(d("100"), decimal.Zero, cfg, d("0.2"), 3_600_000)
	require.NoError(t, err)
	assert.Equal(t, want.Bid.String(), got.Bid.String())
}

func TestAsyncCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAsync(nil).OptimalSpread(ctx, cfg, StaticVolatility{Value: d("0.2")}, 1000).Get(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAsyncStaticVolatilityResolvesImmediately(t *testing.T) {
	cfg := testConfig(t)
	a := NewAsync(nil)
	ctx := context.Background()
	vol := StaticVolatility{Value: d("0.2")}

	f := a.OptimalQuotes(ctx, d("100"), d("2"), cfg, vol, 3_600_000)
	select {
	case <-f.Done():
	default:
		t.Fatal("static volatility should not wait")
	}
	got, err := f.Get(ctx)
	require.NoError(t, err)
	want, err := NewSync(nil).OptimalQuotes(d("100"), d("2"), cfg, d("0.2"), 3_600_000)
	require.NoError(t, err)
	assert.Equal(t, want.String(), got.String())

	r := a.ReservationPrice(ctx, d("100"), d("2"), cfg, vol, 3_600_000)
	select {
	case <-r.Done():
	default:
		t.Fatal("static volatility should not wait")
	}
	rp, err := r.Get(ctx)
	require.NoError(t, err)
	assert.True(t, rp.Equal(want.ReservationPrice))

	_, err = a.OptimalSpread(ctx, cfg, StaticVolatility{Value: d("-1")}, 1000).Get(ctx)
	assert.ErrorIs(t, err, errs.ErrInvalidMarketState)
}

func TestQuotesFrom(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var calls atomic.Int32
	snaps := SnapshotFunc(func(ctx context.Context) (market.Snapshot, error) {
		calls.Add(1)
		return market.NewSnapshot(d("99.5"), d("100.5"), 3_600_000, time.Now())
	})
	vol := VolatilityFunc(func(ctx context.Context) (decimal.Decimal, error) {
		calls.Add(1)
		return d("0.2"), nil
	})

	got, err := NewAsync(nil).QuotesFrom(ctx, snaps, vol, decimal.Zero, cfg).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	want, err := NewSync(nil).OptimalQuotes(d("100"), decimal.Zero, cfg, d("0.2"), 3_600_000)
	require.NoError(t, err)
	assert.Equal(t, want.Bid.String(), got.Bid.String())
	assert.Equal(t, want.Ask.String(), got.Ask.String())
}

func TestQuotesFromSnapshotError(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	stale := errors.New("stale book")
	snaps := SnapshotFunc(func(ctx context.Context) (market.Snapshot, error) {
		return market.Snapshot{}, stale
	})
	vol := VolatilityFunc(func(ctx context.Context) (decimal.Decimal, error) {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	})
	_, err := NewAsync(nil).QuotesFrom(ctx, snaps, vol, decimal.Zero, cfg).Get(ctx)
	assert.ErrorIs(t, err, stale)
}

func TestQuotesFromInvalidSnapshot(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	snaps := SnapshotFunc(func(ctx context.Context) (market.Snapshot, error) {
		return market.Snapshot{TimeToTerminalMs: 1000}, nil
	})
	_, err := NewAsync(nil).QuotesFrom(ctx, snaps, StaticVolatility{Value: d("0.2")}, decimal.Zero, cfg).Get(ctx)
	assert.ErrorIs(t, err, errs.ErrInvalidMarketState)
}

func TestEstimatedVolatility(t *testing.T) {
	w := market.Window{Prices: []decimal.Decimal{d("100"), d("101"), d("99.5"), d("100.5")}}
	est, err := market.NewEWMAEstimator(d("0.94"))
	require.NoError(t, err)
	src := EstimatedVolatility{
		Estimator: est,
		Windows: WindowFunc(func(ctx context.Context) (market.Window, error) {
			return w, nil
		}),
	}
	got, err := src.Volatility(context.Background())
	require.NoError(t, err)
	want, err := est.Estimate(w)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	src.Windows = WindowFunc(func(ctx context.Context) (market.Window, error) {
		return market.Window{}, nil
	})
	_, err = src.Volatility(context.Background())
	assert.ErrorIs(t, err, errs.ErrInsufficientData)
}

func TestConcurrentSharedModel(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	a := NewAsync(nil)
	want, err := NewSync(nil).OptimalQuotes(d("100"), d("2"), cfg, d("0.2"), 3_600_000)
	require.NoError(t, err)

	vol := StaticVolatility{Value: d("0.2")}
	futures := make([]interface {
		Get(context.Context) (asmm.Quote, error)
	}, 64)
	for i := range futures {
		futures[i] = a.OptimalQuotes(ctx, d("100"), d("2"), cfg, vol, 3_600_000)
	}
	for _, f := range futures {
		got, err := f.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.Bid.String(), got.Bid.String())
	}
}
