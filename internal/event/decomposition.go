package event

import "quantrisk/internal/scenario"

// Decomposition breaks a compound/at-least-k event's joint probability
// into its per-variable marginals, the probability the marginals would
// imply under independence, the actual joint probability observed under
// whatever dependence structure generated the trajectories, and the
// ratio between the two (how much the dependence structure, a copula's
// tail dependence in particular, inflates or deflates the joint risk
// relative to the independent case).
type Decomposition struct {
	PerVariable          map[string]float64 `json:"per_variable"`
	JointIndependent     float64            `json:"joint_independent"`
	JointCopula          float64            `json:"joint_copula"`
	CopulaRiskMultiplier float64            `json:"copula_risk_multiplier"`
}

// Decompose computes the decomposition bundle for e against traj. e
// need not be compound/at_least_k: for a single threshold_breach leaf
// the joint and independent probabilities are identical and the
// multiplier is 1.
func Decompose(e *Event, traj *scenario.Trajectories, dtMonths float64) (Decomposition, error) {
	leaves := collectThresholdLeaves(e)
	perVariable := make(map[string]float64, len(leaves))
	for _, leaf := range leaves {
		if _, ok := perVariable[leaf.Variable]; ok {
			continue
		}
		result, err := Probability(leaf, traj, dtMonths)
		if err != nil {
			return Decomposition{}, err
		}
		perVariable[leaf.Variable] = result.Mean
	}

	jointIndependent := 1.0
	for _, p := range perVariable {
		jointIndependent *= p
	}

	jointResult, err := Probability(e, traj, dtMonths)
	if err != nil {
		return Decomposition{}, err
	}
	jointCopula := jointResult.Mean

	multiplier := 0.0
	if jointIndependent > 0 {
		multiplier = jointCopula / jointIndependent
	}

	return Decomposition{
		PerVariable:          perVariable,
		JointIndependent:      jointIndependent,
		JointCopula:           jointCopula,
		CopulaRiskMultiplier: multiplier,
	}, nil
}

// collectThresholdLeaves walks e (skipping a conditional's given branch,
// which isn't part of the joint event being decomposed) and returns
// every threshold_breach leaf reached.
func collectThresholdLeaves(e *Event) []*Event {
	var leaves []*Event
	var walk func(n *Event)
	walk = func(n *Event) {
		switch n.Type {
		case ThresholdBreach:
			leaves = append(leaves, n)
		case Compound:
			for i := range n.Conditions {
				walk(&n.Conditions[i])
			}
		case Conditional:
			walk(n.Inner)
		case Sequence:
			walk(n.First)
			walk(n.Then)
		case AtLeastK:
			for i := range n.Events {
				walk(&n.Events[i])
			}
		}
	}
	walk(e)
	return leaves
}
