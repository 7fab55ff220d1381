package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"

	"asmm-quoter/errs"
)

var (
	validateOnce sync.Once
	structValid  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValid = validator.New()
	})
	return structValid
}

// Validate checks struct tags first, then builds every domain object the
// config describes so parameter errors surface at load time.
func Validate(cfg AppConfig) error {
	if err := structValidator().Struct(cfg); err != nil {
		return errs.Wrap(errs.KindInvalidConfiguration, "config", err)
	}
	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return errs.InvalidConfiguration("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}
	if _, err := cfg.Strategy.Build(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if _, err := cfg.Strategy.ModelOptions(); err != nil {
		return fmt.Errorf("strategy.glft: %w", err)
	}
	if _, err := cfg.Volatility.Estimator(); err != nil {
		return fmt.Errorf("volatility: %w", err)
	}
	if _, _, err := cfg.Volatility.StaticValue(); err != nil {
		return fmt.Errorf("volatility: %w", err)
	}
	return nil
}
