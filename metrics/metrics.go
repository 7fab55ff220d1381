// Package metrics exposes quoting and position gauges through Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Config 指标命名空间
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "asmm",
		Subsystem: "quoter",
	}
}

// Recorder Prometheus 指标收集器。Gauges 以 float64 上报，仅用于观测，
// 计算始终使用 decimal。
type Recorder struct {
	gatherer prometheus.Gatherer

	// 报价指标
	ReservationPrice prometheus.Gauge
	Spread           prometheus.Gauge
	BidPrice         prometheus.Gauge
	AskPrice         prometheus.Gauge
	Volatility       prometheus.Gauge
	QuotesGenerated  *prometheus.CounterVec

	// 仓位指标
	Inventory     prometheus.Gauge
	AvgEntryPrice prometheus.Gauge
	RealizedPnL   prometheus.Gauge
	UnrealizedPnL prometheus.Gauge
	Fills         *prometheus.CounterVec

	// 错误
	Errors *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New(cfg Config) *Recorder {
	reg := prometheus.NewRegistry()
	return NewWith(cfg, reg, reg)
}

// NewWith registers on reg and gathers from g; pass the default
// registerer/gatherer to expose alongside process metrics.
func NewWith(cfg Config, reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Recorder{
		gatherer: g,

		ReservationPrice: gauge("reservation_price", "库存调整后的保留价"),
		Spread:           gauge("spread", "最优买卖价差"),
		BidPrice:         gauge("bid_price", "买价"),
		AskPrice:         gauge("ask_price", "卖价"),
		Volatility:       gauge("volatility", "报价使用的波动率"),
		QuotesGenerated:  counter("quotes_generated_total", "生成报价次数", "model"),

		Inventory:     gauge("inventory", "当前净仓位"),
		AvgEntryPrice: gauge("avg_entry_price", "平均开仓价"),
		RealizedPnL:   gauge("realized_pnl", "已实现盈亏"),
		UnrealizedPnL: gauge("unrealized_pnl", "未实现盈亏"),
		Fills:         counter("fills_total", "成交笔数", "side"),

		Errors: counter("errors_total", "按错误类别统计", "kind"),
	}
}

// ObserveQuote 记录一次成功报价。
func (r *Recorder) ObserveQuote(model string, reservation, spread, bid, ask, vol decimal.Decimal) {
	r.ReservationPrice.Set(reservation.InexactFloat64())
	r.Spread.Set(spread.InexactFloat64())
	r.BidPrice.Set(bid.InexactFloat64())
	r.AskPrice.Set(ask.InexactFloat64())
	r.Volatility.Set(vol.InexactFloat64())
	r.QuotesGenerated.WithLabelValues(model).Inc()
}

// ObserveFill 记录成交方向；delta > 0 为买。
func (r *Recorder) ObserveFill(delta decimal.Decimal) {
	side := "sell"
	if delta.Sign() > 0 {
		side = "buy"
	}
	r.Fills.WithLabelValues(side).Inc()
}

// ObservePosition 刷新仓位与盈亏。
func (r *Recorder) ObservePosition(qty, avg, realized, unrealized decimal.Decimal) {
	r.Inventory.Set(qty.InexactFloat64())
	r.AvgEntryPrice.Set(avg.InexactFloat64())
	r.RealizedPnL.Set(realized.InexactFloat64())
	r.UnrealizedPnL.Set(unrealized.InexactFloat64())
}

func (r *Recorder) ObserveError(kind string) {
	r.Errors.WithLabelValues(kind).Inc()
}

// Handler 返回 /metrics 处理器；是否监听端口由调用方决定。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
