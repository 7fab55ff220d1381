// Package engine wires model, volatility estimator, inventory tracker,
// logging and metrics into a single quoting session. The session owns no
// goroutines or timers: the caller drives it tick by tick.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"asmm-quoter/config"
	"asmm-quoter/errs"
	"asmm-quoter/infrastructure/alert"
	"asmm-quoter/infrastructure/logger"
	"asmm-quoter/inventory"
	"asmm-quoter/market"
	"asmm-quoter/metrics"
	"asmm-quoter/strategy"
	"asmm-quoter/strategy/asmm"
)

// Statistics 会话统计信息
type Statistics struct {
	StartTime      time.Time
	TotalQuotes    int64
	TotalFills     int64
	TotalErrors    int64
	ConfigUpdates  int64
	LastQuote      asmm.Quote
	LastVolatility decimal.Decimal
	LastQuoteTime  time.Time
	LastFillTime   time.Time
}

// Option 可选组件
type Option func(*Session)

// WithMetrics 挂载 Prometheus 指标；缺省不上报。
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Session) { s.metrics = r }
}

// WithAlerts 报价生成失败与数值错误时发送告警；输入校验类错误只记日志。
func WithAlerts(m *alert.Manager) Option {
	return func(s *Session) { s.alerts = m }
}

// WithTracker 复用外部持仓跟踪器；缺省新建。
func WithTracker(t *inventory.Tracker) Option {
	return func(s *Session) { s.tracker = t }
}

// Session 报价会话
type Session struct {
	cfg       atomic.Pointer[asmm.Config]
	quoter    *strategy.Sync
	modelName string
	estimator market.Estimator
	tracker   *inventory.Tracker
	logger    *logger.Logger
	metrics   *metrics.Recorder
	alerts    *alert.Manager

	mu    sync.RWMutex
	stats Statistics
}

// NewSession 创建会话。log 为 nil 时丢弃日志。
func NewSession(cfg *asmm.Config, model strategy.Model, est market.Estimator, log *logger.Logger, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errs.InvalidConfiguration("config", "must not be nil")
	}
	if est == nil {
		return nil, errs.InvalidConfiguration("estimator", "must not be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	quoter := strategy.NewSync(model)
	s := &Session{
		quoter:    quoter,
		modelName: modelName(quoter.Model()),
		estimator: est,
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = inventory.NewTracker()
	}
	s.cfg.Store(cfg)
	s.stats.StartTime = time.Now()

	s.logger.Info("Quoting session created",
		zap.String("model", s.modelName),
		zap.String("risk_aversion", cfg.RiskAversion().String()),
		zap.String("order_intensity", cfg.OrderIntensity().String()),
		zap.Uint64("terminal_time_ms", cfg.TerminalTimeMs()),
		zap.String("min_spread", cfg.MinSpread().String()))
	return s, nil
}

// NewSessionFromConfig builds model, estimator and session parameters from
// a validated application config.
func NewSessionFromConfig(app config.AppConfig, log *logger.Logger, opts ...Option) (*Session, error) {
	cfg, err := app.Strategy.Build()
	if err != nil {
		return nil, err
	}
	model, err := app.Strategy.BuildModel()
	if err != nil {
		return nil, err
	}
	est, err := app.Volatility.Estimator()
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, model, est, log, opts...)
}

func modelName(m strategy.Model) string {
	switch m.(type) {
	case asmm.AvellanedaStoikov, *asmm.AvellanedaStoikov:
		return string(strategy.AvellanedaStoikovModel)
	case *asmm.GLFT:
		return string(strategy.GLFTModel)
	default:
		return fmt.Sprintf("%T", m)
	}
}

// Config 返回当前生效的参数
func (s *Session) Config() *asmm.Config { return s.cfg.Load() }

// Model 返回报价模型
func (s *Session) Model() strategy.Model { return s.quoter.Model() }

// Quote 估计波动率后按当前持仓报价。
func (s *Session) Quote(snap market.Snapshot, w market.Window) (asmm.Quote, error) {
	if err := snap.Validate(); err != nil {
		return asmm.Quote{}, s.fail("quote", err)
	}
	vol, err := s.estimator.Estimate(w)
	if err != nil {
		return asmm.Quote{}, s.fail("volatility", err)
	}
	return s.QuoteWithVolatility(snap, vol)
}

// QuoteWithVolatility 使用调用方给定的波动率报价。
func (s *Session) QuoteWithVolatility(snap market.Snapshot, vol decimal.Decimal) (asmm.Quote, error) {
	if err := snap.Validate(); err != nil {
		return asmm.Quote{}, s.fail("quote", err)
	}
	cfg := s.cfg.Load()
	q := s.tracker.NetExposure()

	quote, err := s.quoter.OptimalQuotes(snap.MidPrice, q, cfg, vol, snap.TimeToTerminalMs)
	if err != nil {
		return asmm.Quote{}, s.fail("quote", err)
	}

	s.mu.Lock()
	s.stats.TotalQuotes++
	s.stats.LastQuote = quote
	s.stats.LastVolatility = vol
	s.stats.LastQuoteTime = snap.Timestamp
	s.mu.Unlock()

	s.logger.LogQuote(s.modelName, map[string]interface{}{
		"mid":         snap.MidPrice.String(),
		"inventory":   q.String(),
		"volatility":  vol.String(),
		"ttl_ms":      snap.TimeToTerminalMs,
		"reservation": quote.ReservationPrice.String(),
		"spread":      quote.Spread.String(),
		"bid":         quote.Bid.String(),
		"ask":         quote.Ask.String(),
	})
	if s.metrics != nil {
		s.metrics.ObserveQuote(s.modelName, quote.ReservationPrice, quote.Spread, quote.Bid, quote.Ask, vol)
	}
	return quote, nil
}

// OnFill 记录成交并刷新持仓指标
func (s *Session) OnFill(delta, price decimal.Decimal, ts time.Time) (inventory.FillResult, error) {
	res, err := s.tracker.ApplyFill(delta, price, ts)
	if err != nil {
		return inventory.FillResult{}, s.fail("fill", err)
	}

	s.mu.Lock()
	s.stats.TotalFills++
	s.stats.LastFillTime = ts
	s.mu.Unlock()

	s.logger.LogFill(map[string]interface{}{
		"delta":     delta.String(),
		"price":     price.String(),
		"position":  res.Position.Quantity.String(),
		"avg_entry": res.Position.AvgEntryPrice.String(),
		"realized":  res.Realized.String(),
		"flipped":   res.Flipped,
	})
	if s.metrics != nil {
		s.metrics.ObserveFill(delta)
		s.observePosition()
	}
	return res, nil
}

// Mark 按价格重估未实现盈亏
func (s *Session) Mark(price decimal.Decimal) (decimal.Decimal, error) {
	u, err := s.tracker.MarkToMarket(price)
	if err != nil {
		return decimal.Zero, s.fail("mark", err)
	}
	if s.metrics != nil {
		s.observePosition()
	}
	return u, nil
}

func (s *Session) observePosition() {
	snap := s.tracker.Snapshot()
	s.metrics.ObservePosition(snap.Position.Quantity, snap.Position.AvgEntryPrice, snap.PnL.Realized, snap.PnL.Unrealized)
}

// Snapshot 返回持仓、盈亏与成交统计
func (s *Session) Snapshot() inventory.Snapshot { return s.tracker.Snapshot() }

// Statistics 返回会话统计副本
func (s *Session) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// UpdateConfig 原子替换参数；进行中的报价继续使用旧参数。
func (s *Session) UpdateConfig(cfg *asmm.Config) error {
	if cfg == nil {
		return s.fail("config", errs.InvalidConfiguration("config", "must not be nil"))
	}
	old := s.cfg.Swap(cfg)

	s.mu.Lock()
	s.stats.ConfigUpdates++
	s.mu.Unlock()

	s.logger.Info("Session config updated",
		zap.String("risk_aversion_old", old.RiskAversion().String()),
		zap.String("risk_aversion", cfg.RiskAversion().String()),
		zap.String("min_spread", cfg.MinSpread().String()),
		zap.Uint64("terminal_time_ms", cfg.TerminalTimeMs()))
	return nil
}

// Reload 由配置 watcher 回调：只替换 strategy 参数，模型与估计器保持不变。
func (s *Session) Reload(app config.AppConfig) error {
	cfg, err := app.Strategy.Build()
	if err != nil {
		return s.fail("config", err)
	}
	return s.UpdateConfig(cfg)
}

// fail 记录并计数错误，原样返回。
func (s *Session) fail(op string, err error) error {
	kind := errs.KindOf(err)

	s.mu.Lock()
	s.stats.TotalErrors++
	s.mu.Unlock()

	fields := map[string]interface{}{
		"op":   op,
		"kind": kind.String(),
	}
	if f := errs.FieldOf(err); f != "" {
		fields["field"] = f
	}
	switch kind {
	case errs.KindInvalidConfiguration, errs.KindInvalidMarketState, errs.KindInsufficientData:
		s.logger.LogReject(op, err, fields)
	default:
		s.logger.LogError(err, fields)
		if s.alerts != nil {
			if _, aerr := s.alerts.Notify(alert.FromError(op, err)); aerr != nil {
				s.logger.Warn("Alert delivery failed", zap.Error(aerr))
			}
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveError(kind.String())
	}
	return err
}
