package bayes

import (
	"math"

	"quantrisk/internal/engineerr"
)

// NormalPosterior is the result of a Normal-Normal update with known
// observation variance: the posterior mean is Gaussian with the given
// mean and variance.
type NormalPosterior struct {
	Mean     float64
	Variance float64
	CI95     [2]float64
}

// UpdateNormal performs the Normal-Normal conjugate update: a
// Normal(mu0, sigma0^2) prior over the mean, observations drawn from
// Normal(mean, sigma^2) with known sigma, combined by precision addition.
func UpdateNormal(mu0, sigma0Sq, sigmaSq float64, n int, xbar float64) (NormalPosterior, error) {
	if sigma0Sq <= 0 || sigmaSq <= 0 {
		return NormalPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "variances must be > 0, got sigma0^2=%v sigma^2=%v", sigma0Sq, sigmaSq)
	}
	if n < 0 {
		return NormalPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "n must be >= 0, got %d", n)
	}
	nf := float64(n)
	denom := sigmaSq + nf*sigma0Sq
	variance := sigma0Sq * sigmaSq / denom
	mean := (sigmaSq*mu0 + nf*sigma0Sq*xbar) / denom
	sd := math.Sqrt(variance)
	return NormalPosterior{
		Mean:     mean,
		Variance: variance,
		CI95:     [2]float64{mean - 1.959964*sd, mean + 1.959964*sd},
	}, nil
}

// NIGPosterior is the joint posterior over (mean, variance) under a
// Normal-Inverse-Gamma prior: mean|variance ~ Normal(muN, variance/lambdaN),
// variance ~ InverseGamma(alphaN, betaN).
type NIGPosterior struct {
	Lambda, Mu, Alpha, Beta float64
}

// UpdateNIG performs the Normal-Inverse-Gamma conjugate update given n
// observations with sample mean xbar and sum of squared deviations from
// xbar (sumSqDev = Sum((x_i-xbar)^2)).
func UpdateNIG(lambda0, mu0, alpha0, beta0 float64, n int, xbar, sumSqDev float64) (NIGPosterior, error) {
	if lambda0 <= 0 || alpha0 <= 0 || beta0 <= 0 {
		return NIGPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "NIG prior requires lambda0,alpha0,beta0 > 0")
	}
	if n < 0 {
		return NIGPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "n must be >= 0, got %d", n)
	}
	nf := float64(n)
	lambdaN := lambda0 + nf
	muN := (lambda0*mu0 + nf*xbar) / lambdaN
	alphaN := alpha0 + nf/2
	betaN := beta0 + 0.5*sumSqDev + lambda0*nf*(xbar-mu0)*(xbar-mu0)/(2*lambdaN)
	return NIGPosterior{Lambda: lambdaN, Mu: muN, Alpha: alphaN, Beta: betaN}, nil
}
