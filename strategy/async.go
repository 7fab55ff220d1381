package strategy

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"asmm-quoter/internal/async"
	"asmm-quoter/market"
	"asmm-quoter/strategy/asmm"
)

// Async 异步入口：仅在获取输入时挂起，随后执行与 Sync 完全相同的纯计算。
type Async struct {
	sync *Sync
}

// NewAsync wraps m; a nil model falls back to Avellaneda-Stoikov.
func NewAsync(m Model) *Async {
	return &Async{sync: NewSync(m)}
}

func (a *Async) Model() Model { return a.sync.Model() }

// staticValue 固定波动率无需等待，直接在调用方 goroutine 上读取。
func staticValue(ctx context.Context, vol VolatilitySource) (decimal.Decimal, bool, error) {
	s, ok := vol.(StaticVolatility)
	if !ok {
		return decimal.Zero, false, nil
	}
	v, err := s.Volatility(ctx)
	return v, true, err
}

func (a *Async) ReservationPrice(ctx context.Context, mid, inventory decimal.Decimal, cfg *asmm.Config, vol VolatilitySource, ttlMs uint64) *async.Future[decimal.Decimal] {
	if v, ok, err := staticValue(ctx, vol); ok {
		if err != nil {
			return async.Resolved(decimal.Zero, err)
		}
		r, err := a.sync.ReservationPrice(mid, inventory, cfg, v, ttlMs)
		return async.Resolved(r, err)
	}
	return async.Go(ctx, func(ctx context.Context) (decimal.Decimal, error) {
		v, err := vol.Volatility(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return a.sync.ReservationPrice(mid, inventory, cfg, v, ttlMs)
	})
}

func (a *Async) OptimalSpread(ctx context.Context, cfg *asmm.Config, vol VolatilitySource, ttlMs uint64) *async.Future[decimal.Decimal] {
	if v, ok, err := staticValue(ctx, vol); ok {
		if err != nil {
			return async.Resolved(decimal.Zero, err)
		}
		spread, err := a.sync.OptimalSpread(cfg, v, ttlMs)
		return async.Resolved(spread, err)
	}
	return async.Go(ctx, func(ctx context.Context) (decimal.Decimal, error) {
		v, err := vol.Volatility(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return a.sync.OptimalSpread(cfg, v, ttlMs)
	})
}

func (a *Async) OptimalQuotes(ctx context.Context, mid, inventory decimal.Decimal, cfg *asmm.Config, vol VolatilitySource, ttlMs uint64) *async.Future[asmm.Quote] {
	if v, ok, err := staticValue(ctx, vol); ok {
		if err != nil {
			return async.Resolved(asmm.Quote{}, err)
		}
		q, err := a.sync.OptimalQuotes(mid, inventory, cfg, v, ttlMs)
		return async.Resolved(q, err)
	}
	return async.Go(ctx, func(ctx context.Context) (asmm.Quote, error) {
		v, err := vol.Volatility(ctx)
		if err != nil {
			return asmm.Quote{}, err
		}
		return a.sync.OptimalQuotes(mid, inventory, cfg, v, ttlMs)
	})
}

// QuotesFrom fetches the snapshot and the volatility concurrently, then
// quotes against them. The first fetch error cancels the other fetch.
func (a *Async) QuotesFrom(ctx context.Context, snaps SnapshotSource, vol VolatilitySource, inventory decimal.Decimal, cfg *asmm.Config) *async.Future[asmm.Quote] {
	return async.Go(ctx, func(ctx context.Context) (asmm.Quote, error) {
		var (
			snap market.Snapshot
			v    decimal.Decimal
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			snap, err = snaps.Snapshot(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			v, err = vol.Volatility(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return asmm.Quote{}, err
		}
		if err := snap.Validate(); err != nil {
			return asmm.Quote{}, err
		}
		return a.sync.OptimalQuotes(snap.MidPrice, inventory, cfg, v, snap.TimeToTerminalMs)
	})
}
