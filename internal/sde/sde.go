// Package sde implements one-step discretizations of the stochastic
// (and one deterministic) processes a scenario variable can follow:
// geometric Brownian motion, Ornstein-Uhlenbeck, Merton jump-diffusion,
// Heston stochastic variance, and a plain deterministic drift. Every
// integrator advances its own internal state one dt at a time given the
// correlated normal draw the orchestrator hands it for that step; any
// extra randomness an integrator needs beyond that one draw (a jump
// count, a second independent normal for Heston's variance innovation)
// it pulls directly from the Rng it's given.
package sde

import (
	"math"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/rng"
)

// Stepper advances a single scenario variable by one time step. z is the
// (possibly correlated) standard normal draw assigned to this variable
// for this step; r is available for integrators that need independent
// auxiliary randomness beyond z. Step returns the new value and mutates
// the integrator's own internal state in place.
type Stepper interface {
	Step(r rng.Rng, z float64, dt float64) (float64, error)
	Value() float64
}

const floorValue = 1e-10

// GBMEulerLog integrates geometric Brownian motion in log space:
// S <- S*exp((mu-sigma^2/2)dt + sigma*sqrt(dt)*Z).
type GBMEulerLog struct {
	Mu, Sigma float64
	value     float64
}

// NewGBMEulerLog constructs a GBM (Euler-log) stepper at s0.
func NewGBMEulerLog(mu, sigma, s0 float64) (*GBMEulerLog, error) {
	if s0 <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "GBM initial_value must be > 0, got %v", s0)
	}
	if sigma <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "GBM sigma must be > 0, got %v", sigma)
	}
	return &GBMEulerLog{Mu: mu, Sigma: sigma, value: s0}, nil
}

func (g *GBMEulerLog) Value() float64 { return g.value }

func (g *GBMEulerLog) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	drift := (g.Mu - 0.5*g.Sigma*g.Sigma) * dt
	diffusion := g.Sigma * math.Sqrt(dt) * z
	g.value = g.value * math.Exp(drift+diffusion)
	if g.value < floorValue {
		g.value = floorValue
	}
	return g.value, nil
}

// GBMMilstein integrates GBM in level space with the Milstein
// correction term: dW=sqrt(dt)*Z; S <- S + mu*S*dt + sigma*S*dW +
// 0.5*sigma^2*S*(dW^2-dt).
type GBMMilstein struct {
	Mu, Sigma float64
	value     float64
}

// NewGBMMilstein constructs a GBM (Milstein) stepper at s0.
func NewGBMMilstein(mu, sigma, s0 float64) (*GBMMilstein, error) {
	if s0 <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "GBM initial_value must be > 0, got %v", s0)
	}
	if sigma <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "GBM sigma must be > 0, got %v", sigma)
	}
	return &GBMMilstein{Mu: mu, Sigma: sigma, value: s0}, nil
}

func (g *GBMMilstein) Value() float64 { return g.value }

func (g *GBMMilstein) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	dw := math.Sqrt(dt) * z
	s := g.value
	g.value = s + g.Mu*s*dt + g.Sigma*s*dw + 0.5*g.Sigma*g.Sigma*s*(dw*dw-dt)
	if g.value < floorValue {
		g.value = floorValue
	}
	return g.value, nil
}

// OrnsteinUhlenbeck integrates the exact-transition OU process:
// X <- mu + (X-mu)*e^(-theta*dt) + sigma*sqrt((1-e^(-2*theta*dt))/(2*theta))*Z.
type OrnsteinUhlenbeck struct {
	Theta, Mu, Sigma float64
	value            float64
}

// NewOrnsteinUhlenbeck constructs an OU stepper at x0.
func NewOrnsteinUhlenbeck(theta, mu, sigma, x0 float64) (*OrnsteinUhlenbeck, error) {
	if theta <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "OU theta must be > 0, got %v", theta)
	}
	if sigma <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "OU sigma must be > 0, got %v", sigma)
	}
	return &OrnsteinUhlenbeck{Theta: theta, Mu: mu, Sigma: sigma, value: x0}, nil
}

func (o *OrnsteinUhlenbeck) Value() float64 { return o.value }

func (o *OrnsteinUhlenbeck) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	decay := math.Exp(-o.Theta * dt)
	condVar := (1 - math.Exp(-2*o.Theta*dt)) / (2 * o.Theta)
	o.value = o.Mu + (o.value-o.Mu)*decay + o.Sigma*math.Sqrt(condVar)*z
	return o.value, nil
}

// MertonJump integrates GBM-log diffusion plus a compound Poisson
// log-normal jump component: N~Poisson(lambda*dt) jumps, each
// N(jumpMu, jumpSigma^2), summed into the log-return.
type MertonJump struct {
	Mu, Sigma, Lambda, JumpMu, JumpSigma float64
	value                                float64
}

// NewMertonJump constructs a Merton jump-diffusion stepper at s0.
func NewMertonJump(mu, sigma, lambda, jumpMu, jumpSigma, s0 float64) (*MertonJump, error) {
	if s0 <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Merton initial_value must be > 0, got %v", s0)
	}
	if sigma <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Merton sigma must be > 0, got %v", sigma)
	}
	if lambda < 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Merton lambda must be >= 0, got %v", lambda)
	}
	if jumpSigma < 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Merton jump_sigma must be >= 0, got %v", jumpSigma)
	}
	return &MertonJump{Mu: mu, Sigma: sigma, Lambda: lambda, JumpMu: jumpMu, JumpSigma: jumpSigma, value: s0}, nil
}

func (m *MertonJump) Value() float64 { return m.value }

func (m *MertonJump) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	logReturn := (m.Mu-0.5*m.Sigma*m.Sigma)*dt + m.Sigma*math.Sqrt(dt)*z
	n, err := rng.Poisson(r, m.Lambda*dt)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		jump, err := rng.Normal(r, m.JumpMu, math.Max(m.JumpSigma, 1e-12))
		if err != nil {
			return 0, err
		}
		logReturn += jump
	}
	m.value = m.value * math.Exp(logReturn)
	if m.value < floorValue {
		m.value = floorValue
	}
	return m.value, nil
}

// Heston integrates the Heston stochastic-variance model under full
// truncation: v+ = max(0,v), sigma_v = sqrt(v+); dW_S = sqrt(dt)*Z_S,
// dW_v = rho*dW_S + sqrt(1-rho^2)*Z2*sqrt(dt); S <-
// S*exp((mu-0.5*v+)dt + sigma_v*dW_S); v <- v + kappa*(theta-v+)dt +
// xi*sigma_v*dW_v. The internal variance may go negative between
// steps; Variance() always reports max(0,v).
type Heston struct {
	Mu, Kappa, Theta, Xi, Rho float64
	value, variance           float64
}

// NewHeston constructs a Heston stepper at s0 with initial variance v0.
func NewHeston(mu, kappa, theta, xi, rho, s0, v0 float64) (*Heston, error) {
	if s0 <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Heston initial_value must be > 0, got %v", s0)
	}
	if v0 < 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Heston v0 must be >= 0, got %v", v0)
	}
	if kappa <= 0 || theta <= 0 || xi <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Heston kappa, theta, xi must all be > 0")
	}
	if math.Abs(rho) > 1 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "Heston rho must be in [-1,1], got %v", rho)
	}
	return &Heston{Mu: mu, Kappa: kappa, Theta: theta, Xi: xi, Rho: rho, value: s0, variance: v0}, nil
}

func (h *Heston) Value() float64 { return h.value }

// Variance reports the truncated (non-negative) current variance.
func (h *Heston) Variance() float64 { return math.Max(0, h.variance) }

func (h *Heston) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	vPlus := math.Max(0, h.variance)
	sigmaV := math.Sqrt(vPlus)
	z2 := rng.StandardNormal(r)
	sqrtDt := math.Sqrt(dt)
	dwS := sqrtDt * z
	dwV := h.Rho*dwS + math.Sqrt(1-h.Rho*h.Rho)*z2*sqrtDt

	h.value = h.value * math.Exp((h.Mu-0.5*vPlus)*dt+sigmaV*dwS)
	h.variance = h.variance + h.Kappa*(h.Theta-vPlus)*dt + h.Xi*sigmaV*dwV
	return h.value, nil
}

// Deterministic integrates a drift-only process: S <- S*(1+mu*dt). Used
// for variables whose coefficient of variation is negligible (see
// estimate.RecommendProcess).
type Deterministic struct {
	Mu    float64
	value float64
}

// NewDeterministic constructs a deterministic drift stepper at s0.
func NewDeterministic(mu, s0 float64) *Deterministic {
	return &Deterministic{Mu: mu, value: s0}
}

func (d *Deterministic) Value() float64 { return d.value }

func (d *Deterministic) Step(r rng.Rng, z float64, dt float64) (float64, error) {
	d.value = d.value * (1 + d.Mu*dt)
	return d.value, nil
}
