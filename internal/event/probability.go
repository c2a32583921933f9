package event

import (
	"quantrisk/internal/engineerr"
	"quantrisk/internal/scenario"
	"quantrisk/internal/stats"
)

// ProbabilityResult is the aggregate-level probability of an event tree
// holding across all scenarios, with Wilson score confidence intervals.
type ProbabilityResult struct {
	Mean       float64    `json:"mean"`
	CI90       [2]float64 `json:"ci_90"`
	CI95       [2]float64 `json:"ci_95"`
	NScenarios int        `json:"n_scenarios"`
}

// Probability evaluates e against every scenario in traj and returns
// the aggregate probability. Conditional{event,given} is handled here,
// not inside Evaluate: the per-scenario callback returns event's truth,
// this function conditions on given's truth across the whole population
// and fails with NoObservations when given never holds. P(A|B) is the
// aggregate ratio P(A and B)/P(B), not per-scenario gating.
func Probability(e *Event, traj *scenario.Trajectories, dtMonths float64) (ProbabilityResult, error) {
	if e.Type == Conditional {
		return conditionalProbability(e, traj, dtMonths)
	}
	count := 0
	for s := 0; s < traj.NScenarios; s++ {
		ok, err := Evaluate(e, traj, s, dtMonths)
		if err != nil {
			return ProbabilityResult{}, err
		}
		if ok {
			count++
		}
	}
	return resultFromCount(count, traj.NScenarios), nil
}

func conditionalProbability(e *Event, traj *scenario.Trajectories, dtMonths float64) (ProbabilityResult, error) {
	given := 0
	both := 0
	for s := 0; s < traj.NScenarios; s++ {
		givenOk, err := Evaluate(e.Given, traj, s, dtMonths)
		if err != nil {
			return ProbabilityResult{}, err
		}
		if !givenOk {
			continue
		}
		given++
		innerOk, err := Evaluate(e.Inner, traj, s, dtMonths)
		if err != nil {
			return ProbabilityResult{}, err
		}
		if innerOk {
			both++
		}
	}
	if given == 0 {
		return ProbabilityResult{}, engineerr.Wrap(engineerr.NoObservations, "conditional probability: given never holds across %d scenarios", traj.NScenarios)
	}
	return resultFromCount(both, given), nil
}

func resultFromCount(count, n int) ProbabilityResult {
	lo90, hi90 := stats.WilsonInterval(count, n, 0.10)
	lo95, hi95 := stats.WilsonInterval(count, n, 0.05)
	return ProbabilityResult{
		Mean:       float64(count) / float64(n),
		CI90:       [2]float64{lo90, hi90},
		CI95:       [2]float64{lo95, hi95},
		NScenarios: n,
	}
}
