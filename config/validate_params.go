package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asmm-quoter/errs"
	"asmm-quoter/market"
	"asmm-quoter/strategy"
	"asmm-quoter/strategy/asmm"
)

// parseDecimal 解析十进制字符串；空串返回 def。
func parseDecimal(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errs.InvalidConfiguration(field, fmt.Sprintf("not a decimal: %q", s))
	}
	return v, nil
}

// Build turns the strategy section into a validated asmm.Config.
func (c StrategyConfig) Build() (*asmm.Config, error) {
	gamma, err := parseDecimal("risk_aversion", c.RiskAversion, decimal.Zero)
	if err != nil {
		return nil, err
	}
	k, err := parseDecimal("order_intensity", c.OrderIntensity, decimal.Zero)
	if err != nil {
		return nil, err
	}
	minSpread, err := parseDecimal("min_spread", c.MinSpread, decimal.Zero)
	if err != nil {
		return nil, err
	}
	var opts []asmm.Option
	if c.VolatilityHorizonMs > 0 {
		opts = append(opts, asmm.WithVolatilityHorizon(c.VolatilityHorizonMs))
	}
	return asmm.NewConfig(gamma, k, c.TerminalTimeMs, minSpread, opts...)
}

// ModelName 缺省为 avellaneda-stoikov。
func (c StrategyConfig) ModelName() string {
	if c.Model == "" {
		return string(strategy.AvellanedaStoikovModel)
	}
	return c.Model
}

// ModelOptions parses the GLFT section.
func (c StrategyConfig) ModelOptions() (strategy.ModelOptions, error) {
	penalty, err := parseDecimal("terminal_penalty", c.GLFT.TerminalPenalty, decimal.Zero)
	if err != nil {
		return strategy.ModelOptions{}, err
	}
	fn, err := asmm.ParsePenaltyFunction(c.GLFT.PenaltyFunction)
	if err != nil {
		return strategy.ModelOptions{}, err
	}
	scaling, err := parseDecimal("gamma_scaling_factor", c.GLFT.GammaScaling, decimal.Zero)
	if err != nil {
		return strategy.ModelOptions{}, err
	}
	if penalty.Sign() < 0 {
		return strategy.ModelOptions{}, errs.InvalidConfiguration("terminal_penalty", "must be non-negative")
	}
	if scaling.Sign() < 0 {
		return strategy.ModelOptions{}, errs.InvalidConfiguration("gamma_scaling_factor", "must be non-negative")
	}
	return strategy.ModelOptions{
		TerminalPenalty: penalty,
		Penalty:         fn,
		DynamicGamma:    c.GLFT.DynamicGamma,
		GammaScaling:    scaling,
	}, nil
}

// BuildModel builds the configured quoting model.
func (c StrategyConfig) BuildModel() (strategy.Model, error) {
	opts, err := c.ModelOptions()
	if err != nil {
		return nil, err
	}
	return strategy.NewStrategyFactory().CreateModel(c.ModelName(), opts)
}

// EstimatorOptions parses lambda and the return kind.
func (c VolatilityConfig) EstimatorOptions() (market.EstimatorOptions, error) {
	var opts market.EstimatorOptions
	if strings.TrimSpace(c.Lambda) != "" {
		lambda, err := parseDecimal("lambda", c.Lambda, decimal.Zero)
		if err != nil {
			return market.EstimatorOptions{}, err
		}
		opts.Lambda = decimal.NewNullDecimal(lambda)
	}
	if c.Returns == "simple" {
		opts.Returns = market.SimpleReturns
	}
	return opts, nil
}

// Estimator builds the configured estimator; method defaults to ewma.
func (c VolatilityConfig) Estimator() (market.Estimator, error) {
	method := market.MethodEWMA
	if c.Method != "" {
		m, err := market.ParseMethod(c.Method)
		if err != nil {
			return nil, err
		}
		method = m
	}
	opts, err := c.EstimatorOptions()
	if err != nil {
		return nil, err
	}
	return market.NewEstimator(method, opts)
}

// StaticValue reports the fixed volatility, if one is configured.
func (c VolatilityConfig) StaticValue() (decimal.Decimal, bool, error) {
	if strings.TrimSpace(c.Static) == "" {
		return decimal.Zero, false, nil
	}
	v, err := parseDecimal("static", c.Static, decimal.Zero)
	if err != nil {
		return decimal.Zero, false, err
	}
	if v.Sign() < 0 {
		return decimal.Zero, false, errs.InvalidConfiguration("static", "volatility must be non-negative")
	}
	return v, true, nil
}
