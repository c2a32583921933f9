package bayes

import (
	"quantrisk/internal/engineerr"
	"quantrisk/internal/rng"
	"quantrisk/internal/stats"
)

// monteCarloLiftSamples is the Monte Carlo sample count used for the A/B
// lift estimate.
const monteCarloLiftSamples = 10000

// ABResult summarizes a Beta-Bernoulli A/B test: the posterior for each
// arm, the Monte Carlo estimate of P(treatment > control), and the
// expected relative lift with a 95% credible interval.
type ABResult struct {
	Control, Treatment     BetaPosterior
	ProbTreatmentBetter    float64
	ExpectedRelativeLift   float64
	RelativeLiftCI95       [2]float64
}

// ABTest updates independent Beta priors for the control and treatment
// arms against their observed conversions, then draws monteCarloLiftSamples
// paired samples from each posterior to estimate P(treatment > control)
// and the relative lift (treatment-control)/control.
func ABTest(r rng.Rng, prior BetaPosterior, controlK, controlN, treatmentK, treatmentN int) (ABResult, error) {
	control, err := UpdateBeta(priorAlphaOrDefault(prior), priorBetaOrDefault(prior), controlK, controlN)
	if err != nil {
		return ABResult{}, err
	}
	treatment, err := UpdateBeta(priorAlphaOrDefault(prior), priorBetaOrDefault(prior), treatmentK, treatmentN)
	if err != nil {
		return ABResult{}, err
	}

	lifts := make([]float64, 0, monteCarloLiftSamples)
	treatmentWins := 0
	for i := 0; i < monteCarloLiftSamples; i++ {
		c, err := rng.Beta(r, control.Alpha, control.Beta)
		if err != nil {
			return ABResult{}, err
		}
		tr, err := rng.Beta(r, treatment.Alpha, treatment.Beta)
		if err != nil {
			return ABResult{}, err
		}
		if tr > c {
			treatmentWins++
		}
		if c > 0 {
			lifts = append(lifts, (tr-c)/c)
		}
	}

	mean, lo, hi := liftStats(lifts)
	return ABResult{
		Control:              control,
		Treatment:            treatment,
		ProbTreatmentBetter:  float64(treatmentWins) / float64(monteCarloLiftSamples),
		ExpectedRelativeLift: mean,
		RelativeLiftCI95:     [2]float64{lo, hi},
	}, nil
}

func priorAlphaOrDefault(p BetaPosterior) float64 {
	if p.Alpha > 0 {
		return p.Alpha
	}
	return 1
}

func priorBetaOrDefault(p BetaPosterior) float64 {
	if p.Beta > 0 {
		return p.Beta
	}
	return 1
}

// liftStats returns the mean and an equal-tailed 95% interval over the
// empirical lift distribution, via internal/stats's linear-interpolation
// percentile.
func liftStats(lifts []float64) (mean, lo, hi float64) {
	if len(lifts) == 0 {
		return 0, 0, 0
	}
	mean = stats.Mean(lifts)
	lo = stats.Percentile(lifts, 2.5)
	hi = stats.Percentile(lifts, 97.5)
	return mean, lo, hi
}

// ThompsonSelect draws one sample from each arm's Beta posterior and
// returns the index of the argmax, the standard Thompson sampling
// action rule for a multi-armed Bernoulli bandit.
func ThompsonSelect(r rng.Rng, arms []BetaPosterior) (int, error) {
	if len(arms) == 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "ThompsonSelect requires at least one arm")
	}
	best := -1
	bestDraw := -1.0
	for i, arm := range arms {
		draw, err := rng.Beta(r, priorAlphaOrDefault(arm), priorBetaOrDefault(arm))
		if err != nil {
			return 0, err
		}
		if draw > bestDraw {
			bestDraw = draw
			best = i
		}
	}
	return best, nil
}
