package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"asmm-quoter/config"
	"asmm-quoter/errs"
	"asmm-quoter/infrastructure/alert"
	"asmm-quoter/infrastructure/logger"
	"asmm-quoter/inventory"
	"asmm-quoter/market"
	"asmm-quoter/metrics"
	"asmm-quoter/monitor/logschema"
	"asmm-quoter/strategy/asmm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedVol 固定波动率估计器
type fixedVol struct {
	value decimal.Decimal
	err   error
}

func (f fixedVol) Estimate(market.Window) (decimal.Decimal, error) { return f.value, f.err }

func testConfig(t *testing.T, gamma string) *asmm.Config {
	t.Helper()
	cfg, err := asmm.NewConfig(d(gamma), d("1.5"), 3_600_000, d("0.0001"))
	require.NoError(t, err)
	return cfg
}

type harness struct {
	session *Session
	logs    *observer.ObservedLogs
	metrics *metrics.Recorder
}

func newHarness(t *testing.T, est market.Estimator) harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	rec := metrics.New(metrics.DefaultConfig())
	s, err := NewSession(testConfig(t, "0.1"), nil, est, logger.Wrap(zap.New(core)), WithMetrics(rec))
	require.NoError(t, err)
	return harness{session: s, logs: logs, metrics: rec}
}

func snapshot(mid string) market.Snapshot {
	return market.Snapshot{MidPrice: d(mid), TimeToTerminalMs: 3_600_000, Timestamp: t0}
}

func TestNewSessionRejectsMissingParts(t *testing.T) {
	_, err := NewSession(nil, nil, fixedVol{}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.Equal(t, "config", errs.FieldOf(err))

	_, err = NewSession(testConfig(t, "0.1"), nil, nil, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.Equal(t, "estimator", errs.FieldOf(err))
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := NewSession(testConfig(t, "0.1"), nil, fixedVol{value: d("0.2")}, nil)
	require.NoError(t, err)
	assert.Equal(t, asmm.AvellanedaStoikov{}, s.Model())
	assert.True(t, s.Snapshot().Position.IsFlat())
	assert.False(t, s.Statistics().StartTime.IsZero())
}

func TestQuoteFlatInventory(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	q, err := h.session.Quote(snapshot("100"), market.Window{})
	require.NoError(t, err)

	want, err := asmm.AvellanedaStoikov{}.OptimalQuotes(d("100"), decimal.Zero, h.session.Config(), d("0.2"), 3_600_000)
	require.NoError(t, err)
	assert.Equal(t, want.String(), q.String())
	assert.True(t, q.ReservationPrice.Equal(d("100")))

	stats := h.session.Statistics()
	assert.Equal(t, int64(1), stats.TotalQuotes)
	assert.Equal(t, t0, stats.LastQuoteTime)
	assert.True(t, stats.LastVolatility.Equal(d("0.2")))
	assert.Equal(t, q.String(), stats.LastQuote.String())

	entries := h.logs.FilterMessage("quote_event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "avellaneda-stoikov", entries[0].ContextMap()["model"])
	assert.NoError(t, logschema.Validate("quote_event", entries[0].ContextMap()))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.QuotesGenerated.WithLabelValues("avellaneda-stoikov")))
	assert.Equal(t, 100.0, testutil.ToFloat64(h.metrics.ReservationPrice))
}

func TestQuoteFollowsInventory(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	_, err := h.session.OnFill(d("2"), d("100"), t0)
	require.NoError(t, err)

	q, err := h.session.Quote(snapshot("100"), market.Window{})
	require.NoError(t, err)
	want, err := asmm.AvellanedaStoikov{}.OptimalQuotes(d("100"), d("2"), h.session.Config(), d("0.2"), 3_600_000)
	require.NoError(t, err)
	assert.Equal(t, want.String(), q.String())
	assert.True(t, q.ReservationPrice.LessThan(d("100")))
}

func TestSharedTracker(t *testing.T) {
	tr := inventory.NewTracker()
	_, err := tr.ApplyFill(d("-3"), d("100"), t0)
	require.NoError(t, err)

	s, err := NewSession(testConfig(t, "0.1"), nil, fixedVol{value: d("0.2")}, nil, WithTracker(tr))
	require.NoError(t, err)
	q, err := s.Quote(snapshot("100"), market.Window{})
	require.NoError(t, err)
	// 空头库存抬高保留价
	assert.True(t, q.ReservationPrice.GreaterThan(d("100")))

	_, err = s.OnFill(d("3"), d("99"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, tr.Position().IsFlat())
	assert.True(t, tr.PnL().Realized.Equal(d("3")))
}

func TestQuoteWithRealEstimator(t *testing.T) {
	h := newHarness(t, market.SimpleEstimator{})
	w := market.Window{Prices: []decimal.Decimal{d("100"), d("101"), d("100.5"), d("102")}}

	q, err := h.session.Quote(snapshot("102"), w)
	require.NoError(t, err)
	vol, err := market.SimpleEstimator{}.Estimate(w)
	require.NoError(t, err)
	assert.True(t, h.session.Statistics().LastVolatility.Equal(vol))
	assert.True(t, q.Bid.LessThan(q.Ask))
}

func TestQuoteErrorsAreReturnedUnchanged(t *testing.T) {
	sentinel := errs.InsufficientData("need more prices")
	h := newHarness(t, fixedVol{err: sentinel})

	_, err := h.session.Quote(snapshot("100"), market.Window{})
	assert.Same(t, sentinel, err)

	_, err = h.session.Quote(snapshot("0"), market.Window{})
	require.ErrorIs(t, err, errs.ErrInvalidMarketState)
	assert.Equal(t, "mid_price", errs.FieldOf(err))

	assert.Equal(t, int64(2), h.session.Statistics().TotalErrors)
	assert.Equal(t, int64(0), h.session.Statistics().TotalQuotes)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("InsufficientData")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("InvalidMarketState")))
	rejects := h.logs.FilterMessage("reject_event").All()
	require.Len(t, rejects, 2)
	for _, e := range rejects {
		assert.NoError(t, logschema.Validate("reject_event", e.ContextMap()))
	}
}

func TestQuoteGenerationFailureLoggedAsError(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	// 价差超过 mid，bid 跌破零
	_, err := h.session.Quote(snapshot("0.5"), market.Window{})
	require.ErrorIs(t, err, errs.ErrInvalidQuoteGeneration)
	errEvents := h.logs.FilterMessage("error_event").All()
	require.Len(t, errEvents, 1)
	assert.NoError(t, logschema.Validate("error_event", errEvents[0].ContextMap()))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("InvalidQuoteGeneration")))
}

func TestAlertsOnlyForGenerationFailures(t *testing.T) {
	ch := alert.NewMemoryChannel("mem")
	s, err := NewSession(testConfig(t, "0.1"), nil, fixedVol{value: d("0.2")}, nil,
		WithAlerts(alert.NewManager(time.Minute, ch)))
	require.NoError(t, err)

	_, err = s.Quote(snapshot("0"), market.Window{})
	require.Error(t, err)
	assert.Empty(t, ch.Alerts())

	for i := 0; i < 3; i++ {
		_, err = s.Quote(snapshot("0.5"), market.Window{})
		require.ErrorIs(t, err, errs.ErrInvalidQuoteGeneration)
	}
	alerts := ch.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.LevelError, alerts[0].Level)
	assert.Equal(t, "quote", alerts[0].Source)
	assert.Equal(t, int64(4), s.Statistics().TotalErrors)
}

func TestOnFillAndMark(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	res, err := h.session.OnFill(d("1"), d("100"), t0)
	require.NoError(t, err)
	assert.True(t, res.Position.Quantity.Equal(d("1")))

	res, err = h.session.OnFill(d("-0.5"), d("104"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, res.Realized.Equal(d("2")))

	u, err := h.session.Mark(d("110"))
	require.NoError(t, err)
	assert.True(t, u.Equal(d("5")))

	snap := h.session.Snapshot()
	assert.True(t, snap.Position.Quantity.Equal(d("0.5")))
	assert.True(t, snap.PnL.Realized.Equal(d("2")))
	assert.True(t, snap.PnL.Unrealized.Equal(d("5")))
	assert.Equal(t, 2, snap.Stats.Fills)

	stats := h.session.Statistics()
	assert.Equal(t, int64(2), stats.TotalFills)
	assert.Equal(t, t0.Add(time.Second), stats.LastFillTime)

	fills := h.logs.FilterMessage("fill_event").All()
	require.Len(t, fills, 2)
	for _, e := range fills {
		assert.NoError(t, logschema.Validate("fill_event", e.ContextMap()))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Fills.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Fills.WithLabelValues("sell")))
	assert.Equal(t, 0.5, testutil.ToFloat64(h.metrics.Inventory))
	assert.Equal(t, 5.0, testutil.ToFloat64(h.metrics.UnrealizedPnL))
}

func TestOnFillRejected(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	_, err := h.session.OnFill(decimal.Zero, d("100"), t0)
	require.ErrorIs(t, err, errs.ErrInvalidMarketState)

	_, err = h.session.Mark(d("-1"))
	require.ErrorIs(t, err, errs.ErrInvalidMarketState)

	assert.True(t, h.session.Snapshot().Position.IsFlat())
	assert.Equal(t, int64(2), h.session.Statistics().TotalErrors)
}

func TestUpdateConfig(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})
	before, err := h.session.Quote(snapshot("100"), market.Window{})
	require.NoError(t, err)

	require.NoError(t, h.session.UpdateConfig(testConfig(t, "0.3")))
	assert.True(t, h.session.Config().RiskAversion().Equal(d("0.3")))

	after, err := h.session.Quote(snapshot("100"), market.Window{})
	require.NoError(t, err)
	assert.NotEqual(t, before.Spread.String(), after.Spread.String())
	assert.Equal(t, int64(1), h.session.Statistics().ConfigUpdates)

	err = h.session.UpdateConfig(nil)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.True(t, h.session.Config().RiskAversion().Equal(d("0.3")))
}

func TestReloadFromAppConfig(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	app := config.Default()
	app.Strategy.RiskAversion = "0.25"
	require.NoError(t, h.session.Reload(app))
	assert.True(t, h.session.Config().RiskAversion().Equal(d("0.25")))

	app.Strategy.RiskAversion = "-1"
	err := h.session.Reload(app)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.True(t, h.session.Config().RiskAversion().Equal(d("0.25")))
}

func TestNewSessionFromConfig(t *testing.T) {
	app := config.Default()
	app.Strategy.Model = "glft"
	app.Strategy.GLFT.TerminalPenalty = "0.05"
	app.Volatility.Method = "simple"

	s, err := NewSessionFromConfig(app, nil)
	require.NoError(t, err)
	g, ok := s.Model().(*asmm.GLFT)
	require.True(t, ok)
	assert.True(t, g.TerminalPenalty().Equal(d("0.05")))

	_, err = s.Quote(snapshot("100"), market.Window{Prices: []decimal.Decimal{d("100"), d("101"), d("100")}})
	require.NoError(t, err)

	app.Volatility.Method = "garch"
	_, err = NewSessionFromConfig(app, nil)
	assert.Error(t, err)
}

func TestConcurrentQuotesAndFills(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.session.Quote(snapshot("100"), market.Window{})
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			delta := d("0.1")
			if i%2 == 1 {
				delta = delta.Neg()
			}
			_, err := h.session.OnFill(delta, d("100"), t0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats := h.session.Statistics()
	assert.Equal(t, int64(8), stats.TotalQuotes)
	assert.Equal(t, int64(8), stats.TotalFills)
	assert.True(t, h.session.Snapshot().Position.IsFlat())
}

func TestFailKeepsErrorChain(t *testing.T) {
	h := newHarness(t, fixedVol{value: d("0.2")})
	cause := errors.New("upstream")
	err := h.session.fail("test", errs.Wrap(errs.KindDomain, "x", cause))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errs.ErrDomain)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("DomainError")))
}
