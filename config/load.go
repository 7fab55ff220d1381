package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"asmm-quoter/infrastructure/logger"
)

// AppConfig holds the main runtime configuration. Decimal parameters are
// kept as strings and parsed exactly; floats never touch them.
type AppConfig struct {
	Env        string           `yaml:"env" validate:"required,oneof=dev test prod"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Volatility VolatilityConfig `yaml:"volatility"`
	Logging    logger.Config    `yaml:"logging"`
}

// StrategyConfig 报价模型参数。
type StrategyConfig struct {
	Model               string     `yaml:"model" validate:"omitempty,oneof=avellaneda-stoikov glft"`
	RiskAversion        string     `yaml:"riskAversion" validate:"required"`   // γ
	OrderIntensity      string     `yaml:"orderIntensity" validate:"required"` // k
	TerminalTimeMs      uint64     `yaml:"terminalTimeMs" validate:"required"` // 会话长度 T
	MinSpread           string     `yaml:"minSpread"`                          // 绝对最小价差，缺省 0
	VolatilityHorizonMs uint64     `yaml:"volatilityHorizonMs"`                // 波动率时间单位，缺省一年
	GLFT                GLFTConfig `yaml:"glft"`
}

// GLFTConfig 仅在 model=glft 时生效。
type GLFTConfig struct {
	TerminalPenalty string `yaml:"terminalPenalty"`
	PenaltyFunction string `yaml:"penaltyFunction" validate:"omitempty,oneof=linear exponential quadratic"`
	DynamicGamma    bool   `yaml:"dynamicGamma"`
	GammaScaling    string `yaml:"gammaScaling"`
}

// VolatilityConfig selects how volatility is obtained: a fixed Static
// figure, or an estimator run over price history.
type VolatilityConfig struct {
	Method  string `yaml:"method" validate:"omitempty,oneof=simple ewma parkinson"`
	Lambda  string `yaml:"lambda"`
	Returns string `yaml:"returns" validate:"omitempty,oneof=log simple"`
	Static  string `yaml:"static"`
}

// Default 返回一份可直接使用的开发配置。
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Strategy: StrategyConfig{
			Model:          "avellaneda-stoikov",
			RiskAversion:   "0.1",
			OrderIntensity: "1.5",
			TerminalTimeMs: 3_600_000,
			MinSpread:      "0",
		},
		Volatility: VolatilityConfig{Method: "ewma", Lambda: "0.94", Returns: "log"},
		Logging:    logger.DefaultConfig(),
	}
}

// Load reads YAML config from path and validates it.
func Load(path string) (AppConfig, error) {
	cfg := AppConfig{Logging: logger.DefaultConfig()}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides tunables from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	ApplyEnvOverrides(&cfg)
	return cfg, Validate(cfg)
}

// ApplyEnvOverrides 用 ASMM_* 环境变量覆盖对应字段。
func ApplyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("ASMM_RISK_AVERSION"); v != "" {
		cfg.Strategy.RiskAversion = v
	}
	if v := os.Getenv("ASMM_MIN_SPREAD"); v != "" {
		cfg.Strategy.MinSpread = v
	}
	if v := os.Getenv("ASMM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
