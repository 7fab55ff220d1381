package asmm

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
	"asmm-quoter/errs"
)

// PenaltyFunction shapes how the terminal inventory penalty grows as the
// session end approaches. x is the share of the session still ahead (ttl/T).
type PenaltyFunction int

const (
	// PenaltyLinear f = 1 - x
	PenaltyLinear PenaltyFunction = iota
	// PenaltyExponential f = e^(-x)
	PenaltyExponential
	// PenaltyQuadratic f = (1 - x)²
	PenaltyQuadratic
)

func (p PenaltyFunction) String() string {
	switch p {
	case PenaltyLinear:
		return "linear"
	case PenaltyExponential:
		return "exponential"
	case PenaltyQuadratic:
		return "quadratic"
	default:
		return fmt.Sprintf("PenaltyFunction(%d)", int(p))
	}
}

// ParsePenaltyFunction accepts linear, exponential or quadratic.
func ParsePenaltyFunction(s string) (PenaltyFunction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear":
		return PenaltyLinear, nil
	case "exponential", "exp":
		return PenaltyExponential, nil
	case "quadratic":
		return PenaltyQuadratic, nil
	default:
		return 0, errs.InvalidConfiguration("penalty_function", fmt.Sprintf("unknown penalty function %q", s))
	}
}

func (p PenaltyFunction) eval(x decimal.Decimal) (decimal.Decimal, error) {
	switch p {
	case PenaltyExponential:
		return decimalx.Exp(x.Neg())
	case PenaltyQuadratic:
		f := decimalx.One.Sub(x)
		return decimalx.Mul(f, f)
	default:
		return decimalx.One.Sub(x), nil
	}
}

// GLFT extends Avellaneda-Stoikov with a terminal inventory penalty
// (Guéant, Lehalle, Fernandez-Tapia):
//
//	γ_t = γ·(1 + α·(1 - ttl/T))      when dynamic gamma is on
//	r   = s - q·γ_t·σ²·τ - q·φ·f(ttl/T)
//	δ   = max(min_spread, γ_t·σ²·τ + (2/γ_t)·ln(1 + γ_t/k))
//
// γ, k, T and min_spread come from the Config passed to each call.
type GLFT struct {
	terminalPenalty decimal.Decimal
	penalty         PenaltyFunction
	dynamicGamma    bool
	gammaScaling    decimal.Decimal
}

// GLFTOption customizes a GLFT model.
type GLFTOption func(*GLFT)

// WithPenaltyFunction selects the penalty shape; linear by default.
func WithPenaltyFunction(p PenaltyFunction) GLFTOption {
	return func(g *GLFT) { g.penalty = p }
}

// WithDynamicGamma raises risk aversion toward the session end by
// scaling factor alpha.
func WithDynamicGamma(alpha decimal.Decimal) GLFTOption {
	return func(g *GLFT) {
		g.dynamicGamma = true
		g.gammaScaling = alpha
	}
}

// NewGLFT builds a GLFT model with terminal penalty φ >= 0.
func NewGLFT(terminalPenalty decimal.Decimal, opts ...GLFTOption) (*GLFT, error) {
	if terminalPenalty.Sign() < 0 {
		return nil, errs.InvalidConfiguration("terminal_penalty", "must be non-negative")
	}
	g := &GLFT{
		terminalPenalty: terminalPenalty,
		penalty:         PenaltyLinear,
		gammaScaling:    decimalx.One,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.gammaScaling.Sign() < 0 {
		return nil, errs.InvalidConfiguration("gamma_scaling_factor", "must be non-negative")
	}
	switch g.penalty {
	case PenaltyLinear, PenaltyExponential, PenaltyQuadratic:
	default:
		return nil, errs.InvalidConfiguration("penalty_function", "unknown penalty function")
	}
	return g, nil
}

func (g *GLFT) TerminalPenalty() decimal.Decimal { return g.terminalPenalty }
func (g *GLFT) Penalty() PenaltyFunction         { return g.penalty }
func (g *GLFT) DynamicGamma() bool               { return g.dynamicGamma }
func (g *GLFT) GammaScaling() decimal.Decimal    { return g.gammaScaling }

// EffectiveGamma returns γ_t for the given time to terminal.
func (g *GLFT) EffectiveGamma(cfg *Config, ttlMs uint64) (decimal.Decimal, error) {
	if !g.dynamicGamma {
		return cfg.riskAversion, nil
	}
	x, err := cfg.sessionRatio(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	scaled, err := decimalx.Mul(g.gammaScaling, decimalx.One.Sub(x))
	if err != nil {
		return decimal.Zero, err
	}
	return decimalx.Mul(cfg.riskAversion, decimalx.One.Add(scaled))
}

// terminalAdjustment returns φ·f(ttl/T), the per-unit penalty shift.
func (g *GLFT) terminalAdjustment(cfg *Config, ttlMs uint64) (decimal.Decimal, error) {
	if g.terminalPenalty.IsZero() {
		return decimal.Zero, nil
	}
	x, err := cfg.sessionRatio(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	f, err := g.penalty.eval(x)
	if err != nil {
		return decimal.Zero, err
	}
	return decimalx.Mul(g.terminalPenalty, f)
}

func (g *GLFT) ReservationPrice(mid, q decimal.Decimal, cfg *Config, vol decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	if err := validateMid(mid); err != nil {
		return decimal.Zero, err
	}
	if err := validateVolatility(vol); err != nil {
		return decimal.Zero, err
	}
	tau, err := cfg.timeFraction(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	if q.IsZero() {
		return mid, nil
	}
	gamma, err := g.EffectiveGamma(cfg, ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	adj, err := g.terminalAdjustment(cfg, ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	extra, err := decimalx.Mul(q, adj)
	if err != nil {
		return decimal.Zero, err
	}
	return reservationFor(mid, q, gamma, vol, tau, extra)
}

func (g *GLFT) OptimalSpread(cfg *Config, vol decimal.Decimal, ttlMs uint64) (decimal.Decimal, error) {
	if err := validateVolatility(vol); err != nil {
		return decimal.Zero, err
	}
	tau, err := cfg.timeFraction(ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	gamma, err := g.EffectiveGamma(cfg, ttlMs)
	if err != nil {
		return decimal.Zero, err
	}
	return spreadFor(gamma, cfg.orderIntensity, vol, tau, cfg.minSpread)
}

func (g *GLFT) OptimalQuotes(mid, q decimal.Decimal, cfg *Config, vol decimal.Decimal, ttlMs uint64) (Quote, error) {
	r, err := g.ReservationPrice(mid, q, cfg, vol, ttlMs)
	if err != nil {
		return Quote{}, err
	}
	spread, err := g.OptimalSpread(cfg, vol, ttlMs)
	if err != nil {
		return Quote{}, err
	}
	return quoteAround(r, spread)
}

// CompareWithAvellanedaStoikov returns the GLFT quote next to the plain
// A-S quote for the same inputs (no penalty, static gamma).
func (g *GLFT) CompareWithAvellanedaStoikov(mid, q decimal.Decimal, cfg *Config, vol decimal.Decimal, ttlMs uint64) (glft, as Quote, err error) {
	if glft, err = g.OptimalQuotes(mid, q, cfg, vol, ttlMs); err != nil {
		return Quote{}, Quote{}, err
	}
	if as, err = (AvellanedaStoikov{}).OptimalQuotes(mid, q, cfg, vol, ttlMs); err != nil {
		return Quote{}, Quote{}, err
	}
	return glft, as, nil
}
