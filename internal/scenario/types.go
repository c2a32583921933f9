// Package scenario drives N scenarios across T time steps for d
// correlated (or copula-coupled) variables, stepping each variable's own
// SDE integrator from correlated noise and optionally tracking covenant
// breaches online. It is the only package that ties rng, correlation,
// copula, and sde together into a runnable request.
package scenario

import (
	"quantrisk/internal/copula"
	"quantrisk/internal/correlation"
	"quantrisk/internal/sde"
)

// Variable is a named stochastic factor: its integrator parameters plus
// the identifier event leaves and covenants reference it by.
type Variable struct {
	Name  string
	Model sde.Params
}

// Dependence is either a correlation matrix (Gaussian noise via
// Cholesky) or a bivariate copula spec, never both.
type Dependence struct {
	Correlation correlation.Matrix
	Copula      *copula.Spec
}

// CompOp is a threshold comparison operator, shared by covenants and the
// event DSL's threshold_breach leaf.
type CompOp string

const (
	OpLT CompOp = "<"
	OpLE CompOp = "<="
	OpGT CompOp = ">"
	OpGE CompOp = ">="
	OpEQ CompOp = "=="
	OpNE CompOp = "!="
)

// Compare evaluates v op threshold.
func (op CompOp) Compare(v, threshold float64) bool {
	switch op {
	case OpLT:
		return v < threshold
	case OpLE:
		return v <= threshold
	case OpGT:
		return v > threshold
	case OpGE:
		return v >= threshold
	case OpEQ:
		return v == threshold
	case OpNE:
		return v != threshold
	default:
		return false
	}
}

// Covenant is a per-period breach check tracked online across all
// scenarios without retaining the full trajectory.
type Covenant struct {
	Variable  string
	Op        CompOp
	Threshold float64
}

// CovenantResult accumulates breach statistics for one Covenant, folded
// online across all scenarios and periods.
type CovenantResult struct {
	PerPeriodBreachProbability []float64 // length Steps+1
	OverallBreachProbability   float64   // P(breach occurs at any period in the scenario)
	MeanBreachMagnitude        float64   // mean |v-threshold| over breached (period,scenario) pairs
}

// Discretization selects the GBM scheme used when stepping gbm
// variables; other models ignore it.
type Discretization string

const (
	DiscretizationEuler    Discretization = "euler"
	DiscretizationMilstein Discretization = "milstein"
)

// Config is the request-scoped simulation configuration (distinct from
// the engine-wide ambient Config in internal/config).
type Config struct {
	NScenarios      int
	HorizonMonths   float64
	DtMonths        float64
	Discretization  Discretization
	RandomSeed      *uint64
	MaxWorkers      int
	Streaming       bool
}

// Trajectories is the result of a Run: either the full n x d x (T+1)
// tensor (Streaming=false) or just the final-period values per variable
// (Streaming=true), plus any covenant accumulations.
type Trajectories struct {
	RunID      string
	Variables  []string
	DtYears    float64
	Steps      int // T
	NScenarios int // effective, after dropping degenerate scenarios

	// Tensor[scenario][variable][step], nil when Streaming was requested.
	Tensor [][][]float64

	// FinalValues[variable][scenario], always populated.
	FinalValues map[string][]float64

	Covenants map[string]CovenantResult

	Degraded        bool
	DegradedReasons []string
}

// Value returns the trajectory of variable name in scenario s, valid
// only when the tensor was retained (Streaming=false at Run time).
func (t *Trajectories) Value(scenario int, name string) []float64 {
	idx := -1
	for i, v := range t.Variables {
		if v == name {
			idx = i
			break
		}
	}
	if idx < 0 || t.Tensor == nil {
		return nil
	}
	return t.Tensor[scenario][idx]
}
