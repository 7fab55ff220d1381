package asmm

import (
	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// DefaultVolatilityHorizonMs 一年（365 天）的毫秒数，波动率默认按年化口径给出。
const DefaultVolatilityHorizonMs uint64 = 31_536_000_000

// Config holds the Avellaneda-Stoikov parameters. It can only be obtained
// through NewConfig and is immutable afterwards; reconfiguring means
// building a new Config and swapping the pointer.
type Config struct {
	riskAversion        decimal.Decimal
	orderIntensity      decimal.Decimal
	minSpread           decimal.Decimal
	terminalTimeMs      uint64
	volatilityHorizonMs uint64
}

// Option customizes a Config during construction.
type Option func(*Config)

// WithVolatilityHorizon sets the time unit (in ms) the volatility input is
// quoted in. Time to terminal is divided by this to get τ.
func WithVolatilityHorizon(ms uint64) Option {
	return func(c *Config) {
		c.volatilityHorizonMs = ms
	}
}

// NewConfig validates and builds a Config.
func NewConfig(riskAversion, orderIntensity decimal.Decimal, terminalTimeMs uint64, minSpread decimal.Decimal, opts ...Option) (*Config, error) {
	if riskAversion.Sign() <= 0 {
		return nil, errs.InvalidConfiguration("risk_aversion", "must be positive")
	}
	if orderIntensity.Sign() <= 0 {
		return nil, errs.InvalidConfiguration("order_intensity", "must be positive")
	}
	if terminalTimeMs == 0 {
		return nil, errs.InvalidConfiguration("terminal_time_ms", "must be positive")
	}
	if minSpread.Sign() < 0 {
		return nil, errs.InvalidConfiguration("min_spread", "must be non-negative")
	}

	c := &Config{
		riskAversion:        riskAversion,
		orderIntensity:      orderIntensity,
		minSpread:           minSpread,
		terminalTimeMs:      terminalTimeMs,
		volatilityHorizonMs: DefaultVolatilityHorizonMs,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.volatilityHorizonMs == 0 {
		return nil, errs.InvalidConfiguration("volatility_horizon_ms", "must be positive")
	}
	return c, nil
}

func (c *Config) RiskAversion() decimal.Decimal   { return c.riskAversion }
func (c *Config) OrderIntensity() decimal.Decimal { return c.orderIntensity }
func (c *Config) MinSpread() decimal.Decimal      { return c.minSpread }
func (c *Config) TerminalTimeMs() uint64          { return c.terminalTimeMs }
func (c *Config) VolatilityHorizonMs() uint64     { return c.volatilityHorizonMs }

// timeFraction converts time to terminal into τ, in volatility units.
func (c *Config) timeFraction(ttlMs uint64) (decimal.Decimal, error) {
	if ttlMs > c.terminalTimeMs {
		return decimal.Zero, errs.InvalidMarketState("time_to_terminal_ms", "exceeds terminal time")
	}
	return decimalx.MillisToUnit(ttlMs, c.volatilityHorizonMs)
}

// sessionRatio returns ttl/T, the share of the session still ahead.
func (c *Config) sessionRatio(ttlMs uint64) (decimal.Decimal, error) {
	return decimalx.MillisToUnit(ttlMs, c.terminalTimeMs)
}
