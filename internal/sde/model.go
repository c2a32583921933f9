package sde

import "quantrisk/internal/engineerr"

// ModelKind names the stochastic process a Variable follows.
type ModelKind string

const (
	ModelGBM               ModelKind = "gbm"
	ModelOrnsteinUhlenbeck ModelKind = "ornstein_uhlenbeck"
	ModelHeston            ModelKind = "heston"
	ModelMertonJump        ModelKind = "merton_jump"
	ModelDeterministic     ModelKind = "deterministic"
)

// Scheme selects the discretization used for GBM; other models have a
// single, exact or standard, scheme.
type Scheme string

const (
	SchemeEulerLog Scheme = "euler_log"
	SchemeMilstein Scheme = "milstein"
)

// Params is the union of every model's parameters; only the fields
// relevant to Kind need be set. This mirrors a Variable's
// "model-specific parameter record".
type Params struct {
	Kind   ModelKind
	Scheme Scheme // GBM only; defaults to euler_log

	InitialValue float64

	// GBM / Merton jump
	Mu    float64
	Sigma float64

	// Ornstein-Uhlenbeck
	Theta float64
	// Mu doubles as OU's long-run mean.

	// Merton jump
	Lambda    float64
	JumpMu    float64
	JumpSigma float64

	// Heston
	Kappa float64
	// Theta doubles as Heston's long-run variance.
	Xi  float64
	Rho float64
	V0  float64
}

// New builds the Stepper for p.Kind, validating each model's parameter
// invariants.
func New(p Params) (Stepper, error) {
	switch p.Kind {
	case ModelGBM:
		if p.Scheme == SchemeMilstein {
			return NewGBMMilstein(p.Mu, p.Sigma, p.InitialValue)
		}
		return NewGBMEulerLog(p.Mu, p.Sigma, p.InitialValue)
	case ModelOrnsteinUhlenbeck:
		return NewOrnsteinUhlenbeck(p.Theta, p.Mu, p.Sigma, p.InitialValue)
	case ModelHeston:
		return NewHeston(p.Mu, p.Kappa, p.Theta, p.Xi, p.Rho, p.InitialValue, p.V0)
	case ModelMertonJump:
		return NewMertonJump(p.Mu, p.Sigma, p.Lambda, p.JumpMu, p.JumpSigma, p.InitialValue)
	case ModelDeterministic:
		return NewDeterministic(p.Mu, p.InitialValue), nil
	default:
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "unknown sde_model %q", p.Kind)
	}
}
