// Package bayes implements the conjugate-prior Bayesian updates, A/B
// lift testing, and Thompson sampling the engine exposes for online
// learning about a Bernoulli rate, a Normal mean, or a Normal mean and
// variance jointly. Credible intervals reuse internal/mathx's
// incomplete-beta/normal-quantile machinery; the Normal-Normal and
// Normal-Inverse-Gamma updates are closed-form precision arithmetic.
package bayes

import (
	"math"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/mathx"
)

// BetaPosterior is a Beta(alpha,beta) distribution together with its
// summary statistics and 95% credible interval.
type BetaPosterior struct {
	Alpha, Beta float64
	Mean        float64
	Mode        float64 // only meaningful when Alpha,Beta > 1; zero otherwise
	HasMode     bool
	Variance    float64
	CI95        [2]float64
}

// UpdateBeta performs the Beta-Bernoulli conjugate update given k
// successes out of n Bernoulli trials against a Beta(alpha0,beta0) prior.
func UpdateBeta(alpha0, beta0 float64, k, n int) (BetaPosterior, error) {
	if alpha0 <= 0 || beta0 <= 0 {
		return BetaPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "Beta prior requires alpha0,beta0 > 0, got (%v,%v)", alpha0, beta0)
	}
	if k < 0 || n < 0 || k > n {
		return BetaPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "invalid trial counts: k=%d, n=%d", k, n)
	}
	alpha := alpha0 + float64(k)
	beta := beta0 + float64(n-k)
	return summarizeBeta(alpha, beta), nil
}

func summarizeBeta(alpha, beta float64) BetaPosterior {
	p := BetaPosterior{
		Alpha: alpha,
		Beta:  beta,
		Mean:  alpha / (alpha + beta),
	}
	if alpha > 1 && beta > 1 {
		p.Mode = (alpha - 1) / (alpha + beta - 2)
		p.HasMode = true
	}
	sum := alpha + beta
	p.Variance = alpha * beta / (sum * sum * (sum + 1))
	lo, hi := betaCredibleInterval(alpha, beta, 0.95)
	p.CI95 = [2]float64{lo, hi}
	return p
}

// betaCredibleInterval returns the equal-tailed interval at the given
// confidence level. For alpha+beta>30 the Beta distribution is close
// enough to normal that a normal approximation to the quantile is both
// faster and numerically steadier than bisecting the incomplete beta
// near its tails; below that it bisects IncompleteBeta directly via
// mathx.BetaQuantile.
func betaCredibleInterval(alpha, beta, confidence float64) (lo, hi float64) {
	tail := (1 - confidence) / 2
	if alpha+beta > 30 {
		mean := alpha / (alpha + beta)
		sum := alpha + beta
		variance := alpha * beta / (sum * sum * (sum + 1))
		sd := math.Sqrt(variance)
		z := mathx.NormalQuantile(1 - tail)
		lo = clamp01(mean - z*sd)
		hi = clamp01(mean + z*sd)
		return lo, hi
	}
	lo = mathx.BetaQuantile(tail, alpha, beta)
	hi = mathx.BetaQuantile(1-tail, alpha, beta)
	return lo, hi
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ElicitPrior maps an expert's modal belief m in (0,1) and confidence c
// in [0,1] to a Beta(alpha,beta) prior via n_eff = 2 + 98c,
// alpha = m(n_eff-2)+1, beta = (1-m)(n_eff-2)+1. A low-confidence expert
// contributes a near-uniform prior (n_eff->2), a high-confidence expert
// one as informative as ~100 pseudo-observations.
func ElicitPrior(mode, confidence float64) (alpha, beta float64, err error) {
	if mode <= 0 || mode >= 1 {
		return 0, 0, engineerr.Wrap(engineerr.InvalidParameter, "expert mode must be in (0,1), got %v", mode)
	}
	if confidence < 0 || confidence > 1 {
		return 0, 0, engineerr.Wrap(engineerr.InvalidParameter, "confidence must be in [0,1], got %v", confidence)
	}
	nEff := 2 + 98*confidence
	alpha = mode*(nEff-2) + 1
	beta = (1-mode)*(nEff-2) + 1
	return alpha, beta, nil
}
