package estimate

import (
	"math"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/stats"
)

// OUEstimate is the result of fitting an Ornstein-Uhlenbeck process via
// AR(1) OLS on consecutive observations spaced dt (years) apart.
type OUEstimate struct {
	Theta, Mu, Sigma float64
	Beta, Alpha      float64 // the underlying AR(1) fit: X_t = Alpha + Beta*X_{t-1} + e
	HalfLife         float64
	NotMeanReverting bool // beta >= 1: theta floored to 1e-3
	ThetaCapped      bool // beta <= 0: theta capped to 10
	N                int
}

// EstimateOU fits theta/mu/sigma by OLS on (X_{t-1}, X_t) pairs, then
// converts the AR(1) coefficients to continuous-time OU parameters. A
// non-mean-reverting fit (beta>=1) floors theta to 1e-3 instead of
// propagating a non-positive or undefined mean-reversion rate; a fit
// with beta<=0 (oscillating, not a valid AR(1) for OU) caps theta at 10.
func EstimateOU(values []float64, dt float64) (OUEstimate, error) {
	if dt <= 0 {
		return OUEstimate{}, engineerr.Wrap(engineerr.InvalidParameter, "dt must be > 0, got %v", dt)
	}
	if len(values) < 6 {
		return OUEstimate{}, engineerr.Wrap(engineerr.InsufficientData, "OU estimation requires at least 6 observations, got %d", len(values))
	}

	xPrev := values[:len(values)-1]
	xNext := values[1:]
	n := len(xPrev)

	beta, alpha := olsSimple(xPrev, xNext)

	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = xNext[i] - (alpha + beta*xPrev[i])
	}

	var theta float64
	notMeanReverting := false
	thetaCapped := false
	switch {
	case beta >= 1:
		notMeanReverting = true
		theta = 1e-3
	case beta <= 0:
		thetaCapped = true
		theta = 10
	default:
		theta = -math.Log(beta) / dt
	}

	var mu float64
	if math.Abs(1-beta) < 1e-9 {
		mu = stats.Mean(values)
	} else {
		mu = alpha / (1 - beta)
	}

	denom := 1 - beta*beta
	if denom <= 1e-6 {
		denom = 1e-6
	}
	sigma := stats.Stdev(residuals) * math.Sqrt(2*theta/denom)

	return OUEstimate{
		Theta:            theta,
		Mu:               mu,
		Sigma:            sigma,
		Beta:             beta,
		Alpha:            alpha,
		HalfLife:         math.Ln2 / theta,
		NotMeanReverting: notMeanReverting,
		ThetaCapped:      thetaCapped,
		N:                n,
	}, nil
}

// olsSimple fits y = alpha + beta*x by ordinary least squares.
func olsSimple(x, y []float64) (beta, alpha float64) {
	meanX := stats.Mean(x)
	meanY := stats.Mean(y)
	var cov, varX float64
	for i := range x {
		dx := x[i] - meanX
		cov += dx * (y[i] - meanY)
		varX += dx * dx
	}
	if varX <= 0 {
		return 0, meanY
	}
	beta = cov / varX
	alpha = meanY - beta*meanX
	return beta, alpha
}
