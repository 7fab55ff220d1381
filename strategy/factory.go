package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asmm-quoter/errs"
	"asmm-quoter/strategy/asmm"
)

// ModelType names a quoting model.
type ModelType string

const (
	AvellanedaStoikovModel ModelType = "avellaneda-stoikov"
	GLFTModel              ModelType = "glft"
)

// ModelOptions 仅 GLFT 使用；A-S 忽略这些字段。
type ModelOptions struct {
	TerminalPenalty decimal.Decimal
	Penalty         asmm.PenaltyFunction
	DynamicGamma    bool
	GammaScaling    decimal.Decimal
}

// StrategyFactory creates models by name.
type StrategyFactory struct{}

// NewStrategyFactory creates a new StrategyFactory.
func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{}
}

// CreateModel builds the model registered under name.
func (f *StrategyFactory) CreateModel(name string, opts ModelOptions) (Model, error) {
	switch ModelType(strings.ToLower(strings.TrimSpace(name))) {
	case AvellanedaStoikovModel, "as", "":
		return asmm.AvellanedaStoikov{}, nil
	case GLFTModel:
		glftOpts := []asmm.GLFTOption{asmm.WithPenaltyFunction(opts.Penalty)}
		if opts.DynamicGamma {
			alpha := opts.GammaScaling
			if alpha.IsZero() {
				alpha = decimal.NewFromInt(1)
			}
			glftOpts = append(glftOpts, asmm.WithDynamicGamma(alpha))
		}
		g, err := asmm.NewGLFT(opts.TerminalPenalty, glftOpts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, errs.InvalidConfiguration("model", fmt.Sprintf("unknown model %q", name))
	}
}
