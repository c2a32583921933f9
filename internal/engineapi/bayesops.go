package engineapi

import (
	"time"

	"quantrisk/internal/bayes"
	"quantrisk/internal/engineerr"
	"quantrisk/internal/estimate"
	"quantrisk/internal/rng"
	"quantrisk/internal/stats"
)

// BetaPrior is a Beta(alpha, beta) prior over a Bernoulli rate.
type BetaPrior struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// NormalPrior is a Normal(mu, sigma) prior over a mean.
type NormalPrior struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// NIGPrior is a Normal-Inverse-Gamma prior over a mean and variance
// jointly.
type NIGPrior struct {
	Mu     float64 `json:"mu"`
	Lambda float64 `json:"lambda"`
	Alpha  float64 `json:"alpha"`
	Beta   float64 `json:"beta"`
}

// UpdateBeta performs the Beta-Bernoulli conjugate update with the
// given success/failure counts.
func UpdateBeta(prior BetaPrior, successes, failures int) (bayes.BetaPosterior, error) {
	if successes < 0 || failures < 0 {
		return bayes.BetaPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "counts must be >= 0, got %d/%d", successes, failures)
	}
	return bayes.UpdateBeta(prior.Alpha, prior.Beta, successes, successes+failures)
}

// UpdateNormal performs the Normal-Normal conjugate update of a prior
// over the mean given observations with known observation variance.
func UpdateNormal(prior NormalPrior, obs []float64, knownVar float64) (bayes.NormalPosterior, error) {
	if prior.Sigma <= 0 {
		return bayes.NormalPosterior{}, engineerr.Wrap(engineerr.InvalidParameter, "prior sigma must be > 0, got %v", prior.Sigma)
	}
	return bayes.UpdateNormal(prior.Mu, prior.Sigma*prior.Sigma, knownVar, len(obs), stats.Mean(obs))
}

// UpdateNIG performs the Normal-Inverse-Gamma conjugate update over a
// mean and variance jointly.
func UpdateNIG(prior NIGPrior, obs []float64) (bayes.NIGPosterior, error) {
	xbar := stats.Mean(obs)
	sumSqDev := 0.0
	for _, x := range obs {
		d := x - xbar
		sumSqDev += d * d
	}
	return bayes.UpdateNIG(prior.Lambda, prior.Mu, prior.Alpha, prior.Beta, len(obs), xbar, sumSqDev)
}

// ABTest runs a Bayesian A/B comparison of two Bernoulli arms and
// estimates P(treatment > control) plus the expected relative lift. A
// nil seed yields a non-deterministic estimate.
func ABTest(prior BetaPrior, controlSuccesses, controlFailures, treatmentSuccesses, treatmentFailures int, seed *uint64) (bayes.ABResult, error) {
	r := rng.New(seedOrClock(seed))
	p := bayes.BetaPosterior{Alpha: prior.Alpha, Beta: prior.Beta}
	return bayes.ABTest(r, p,
		controlSuccesses, controlSuccesses+controlFailures,
		treatmentSuccesses, treatmentSuccesses+treatmentFailures)
}

// Thompson draws once from each arm's Beta posterior and returns the
// index of the arm to play.
func Thompson(arms []BetaPrior, seed *uint64) (int, error) {
	r := rng.New(seedOrClock(seed))
	posts := make([]bayes.BetaPosterior, len(arms))
	for i, a := range arms {
		posts[i] = bayes.BetaPosterior{Alpha: a.Alpha, Beta: a.Beta}
	}
	return bayes.ThompsonSelect(r, posts)
}

// ElicitPrior maps an expert's modal belief and confidence to a Beta
// prior.
func ElicitPrior(mode, confidence float64) (BetaPrior, error) {
	alpha, beta, err := bayes.ElicitPrior(mode, confidence)
	if err != nil {
		return BetaPrior{}, err
	}
	return BetaPrior{Alpha: alpha, Beta: beta}, nil
}

// EstimateGBM fits a geometric Brownian motion to a price series.
func EstimateGBM(prices []float64, dt float64) (estimate.GBMEstimate, error) {
	return estimate.EstimateGBM(prices, dt)
}

// EstimateOU fits an Ornstein-Uhlenbeck process to an observation
// series.
func EstimateOU(values []float64, dt float64) (estimate.OUEstimate, error) {
	return estimate.EstimateOU(values, dt)
}

// RecommendProcess suggests a stochastic model for a named series.
func RecommendProcess(values []float64, name, kind string) estimate.Recommendation {
	return estimate.RecommendProcess(values, name, kind)
}

func seedOrClock(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return uint64(time.Now().UnixNano())
}
