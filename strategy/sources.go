package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"asmm-quoter/market"
)

// VolatilitySource supplies a volatility figure, possibly from a remote feed.
type VolatilitySource interface {
	Volatility(ctx context.Context) (decimal.Decimal, error)
}

// SnapshotSource supplies the current market snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (market.Snapshot, error)
}

// WindowSource supplies recent price history for estimation.
type WindowSource interface {
	Window(ctx context.Context) (market.Window, error)
}

// VolatilityFunc adapts a function to VolatilitySource.
type VolatilityFunc func(ctx context.Context) (decimal.Decimal, error)

func (f VolatilityFunc) Volatility(ctx context.Context) (decimal.Decimal, error) { return f(ctx) }

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func(ctx context.Context) (market.Snapshot, error)

func (f SnapshotFunc) Snapshot(ctx context.Context) (market.Snapshot, error) { return f(ctx) }

// WindowFunc adapts a function to WindowSource.
type WindowFunc func(ctx context.Context) (market.Window, error)

func (f WindowFunc) Window(ctx context.Context) (market.Window, error) { return f(ctx) }

// StaticVolatility 固定波动率，不做任何 I/O。
type StaticVolatility struct {
	Value decimal.Decimal
}

func (s StaticVolatility) Volatility(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return s.Value, nil
}

// EstimatedVolatility pulls a window from Windows and runs Estimator on it.
type EstimatedVolatility struct {
	Estimator market.Estimator
	Windows   WindowSource
}

func (e EstimatedVolatility) Volatility(ctx context.Context) (decimal.Decimal, error) {
	w, err := e.Windows.Window(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return e.Estimator.Estimate(w)
}
