// Package engineapi is the in-process façade over the simulation
// engine: one exported function per public operation, plain value
// records in and out. The HTTP layer in internal/api is a thin JSON
// binding over this package and nothing reaches the core except
// through here.
package engineapi

import (
	"context"
	"math"
	"time"

	"quantrisk/internal/copula"
	"quantrisk/internal/correlation"
	"quantrisk/internal/event"
	"quantrisk/internal/scenario"
	"quantrisk/internal/stats"
	"quantrisk/internal/stress"
)

// percentileGrid is the quantile set every result reports per variable.
var percentileGrid = []float64{5, 25, 50, 75, 95}

// SimulationResult is the outcome of a plain (non-event) simulation:
// final-period distribution statistics per variable, plus any covenant
// breach accumulations.
type SimulationResult struct {
	RunID           string                             `json:"run_id"`
	Percentiles     map[string]map[string]float64      `json:"percentiles"`
	Summaries       map[string]stats.Summary           `json:"summaries"`
	VaR99           map[string]float64                 `json:"var_99,omitempty"`
	ES99            map[string]float64                 `json:"es_99,omitempty"`
	Covenants       map[string]scenario.CovenantResult `json:"covenants,omitempty"`
	NScenarios      int                                `json:"n_scenarios"`
	ComputeTimeMs   float64                            `json:"compute_time_ms"`
	Degraded        bool                               `json:"degraded,omitempty"`
	DegradedReasons []string                           `json:"degraded_reasons,omitempty"`
}

// RunSimulation drives a full simulation of the given variables under
// the given dependence structure and summarizes each variable's
// final-period distribution. Only final values are retained; the
// trajectory tensor is never materialized here.
func RunSimulation(ctx context.Context, cfg scenario.Config, variables []scenario.Variable, dep scenario.Dependence, covenants []scenario.Covenant) (*SimulationResult, error) {
	cfg.Streaming = true
	start := time.Now()
	traj, err := scenario.Run(ctx, cfg, variables, dep, covenants)
	if err != nil {
		return nil, err
	}

	res := &SimulationResult{
		RunID:           traj.RunID,
		Percentiles:     make(map[string]map[string]float64, len(traj.Variables)),
		Summaries:       make(map[string]stats.Summary, len(traj.Variables)),
		VaR99:           make(map[string]float64, len(traj.Variables)),
		ES99:            make(map[string]float64, len(traj.Variables)),
		Covenants:       traj.Covenants,
		NScenarios:      traj.NScenarios,
		Degraded:        traj.Degraded,
		DegradedReasons: traj.DegradedReasons,
	}
	for _, name := range traj.Variables {
		finals := traj.FinalValues[name]
		s, err := stats.Summarize(finals)
		if err != nil {
			return nil, err
		}
		res.Summaries[name] = s
		res.Percentiles[name] = stats.PercentileAt(finals, percentileGrid...)
		res.VaR99[name] = s.VaR99
		res.ES99[name] = s.CVaR99
	}
	res.ComputeTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return res, nil
}

// EventProbabilityResult is the outcome of an event simulation: the
// aggregate probability with confidence intervals, the per-variable
// decomposition, and the final-period percentiles of every variable.
type EventProbabilityResult struct {
	RunID           string                        `json:"run_id"`
	Probability     event.ProbabilityResult       `json:"probability"`
	Decomposition   event.Decomposition           `json:"decomposition"`
	Percentiles     map[string]map[string]float64 `json:"percentiles"`
	NScenarios      int                           `json:"n_scenarios"`
	ComputeTimeMs   float64                       `json:"compute_time_ms"`
	Degraded        bool                          `json:"degraded,omitempty"`
	ModelComparison map[string]float64            `json:"model_comparison,omitempty"`
}

// RunEventSimulation evaluates an event tree against a fresh simulation.
// cop selects the dependence structure; nil means independent variables
// (identity correlation). The full trajectory tensor is retained for
// the evaluation and released before returning.
func RunEventSimulation(ctx context.Context, ev *event.Event, variables []scenario.Variable, cop *copula.Spec, cfg scenario.Config) (*EventProbabilityResult, error) {
	names := make(map[string]bool, len(variables))
	for _, v := range variables {
		names[v.Name] = true
	}
	if err := event.Validate(ev, names); err != nil {
		return nil, err
	}

	dep := scenario.Dependence{}
	if cop != nil {
		dep.Copula = cop
	} else if len(variables) > 1 {
		dep.Correlation = identityMatrix(len(variables))
	}

	cfg.Streaming = false
	start := time.Now()
	traj, err := scenario.Run(ctx, cfg, variables, dep, nil)
	if err != nil {
		return nil, err
	}

	prob, err := event.Probability(ev, traj, cfg.DtMonths)
	if err != nil {
		return nil, err
	}
	decomp, err := event.Decompose(ev, traj, cfg.DtMonths)
	if err != nil {
		return nil, err
	}

	res := &EventProbabilityResult{
		RunID:         traj.RunID,
		Probability:   prob,
		Decomposition: decomp,
		Percentiles:   make(map[string]map[string]float64, len(traj.Variables)),
		NScenarios:    traj.NScenarios,
		Degraded:      traj.Degraded,
	}
	for _, name := range traj.Variables {
		res.Percentiles[name] = stats.PercentileAt(traj.FinalValues[name], percentileGrid...)
	}
	res.ComputeTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return res, nil
}

// comparisonNu is the Student-t degrees of freedom the model-comparison
// run uses; low enough to show tail dependence against the Gaussian.
const comparisonNu = 5

// RunEventSimulationWithComparison runs the event under Gaussian,
// Student-t, Clayton, and Gumbel copulas with an identical seed, all
// fitted to the same rank correlation implied by rho, and returns the
// Clayton result augmented with the per-family probability map.
func RunEventSimulationWithComparison(ctx context.Context, ev *event.Event, variables []scenario.Variable, cfg scenario.Config, rho float64) (*EventProbabilityResult, error) {
	if cfg.RandomSeed == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.RandomSeed = &seed
	}

	// All four families share the Kendall's tau implied by rho, so the
	// comparison isolates the copula shape from dependence strength.
	tau := 2 / math.Pi * math.Asin(rho)

	specs := make(map[string]copula.Spec, 4)
	specs["gaussian"] = copula.Spec{Family: copula.FamilyGaussian, Dim: 2, Rho: rho}
	specs["student_t"] = copula.Spec{Family: copula.FamilyStudentT, Dim: 2, Rho: rho, Nu: comparisonNu}
	for _, family := range []copula.Family{copula.FamilyClayton, copula.FamilyGumbel} {
		theta, err := copula.ThetaFromTau(family, tau)
		if err != nil {
			return nil, err
		}
		specs[string(family)] = copula.Spec{Family: family, Dim: 2, Theta: theta}
	}

	comparison := make(map[string]float64, len(specs))
	var claytonResult *EventProbabilityResult
	for _, name := range []string{"gaussian", "student_t", "clayton", "gumbel"} {
		spec := specs[name]
		res, err := RunEventSimulation(ctx, ev, variables, &spec, cfg)
		if err != nil {
			return nil, err
		}
		comparison[name] = res.Probability.Mean
		if name == "clayton" {
			claytonResult = res
		}
	}
	claytonResult.ModelComparison = comparison
	return claytonResult, nil
}

// RunSensitivity sweeps a multiplier on one variable and reports the
// output variable's response, elasticity, and tornado impacts.
func RunSensitivity(ctx context.Context, cfg scenario.Config, variables []scenario.Variable, dep scenario.Dependence, vary string, lo, hi float64, output string, nSteps int) (*stress.SensitivityResult, error) {
	return stress.RunSensitivity(ctx, cfg, variables, dep, vary, lo, hi, output, nSteps)
}

// RunStress applies a named or caller-supplied shock bundle before
// simulation and reports per-variable final-period statistics.
func RunStress(ctx context.Context, cfg scenario.Config, variables []scenario.Variable, dep scenario.Dependence, sc stress.Scenario) (*stress.Result, error) {
	return stress.Run(ctx, cfg, variables, dep, sc)
}

func identityMatrix(d int) correlation.Matrix {
	m := make(correlation.Matrix, d)
	for i := range m {
		m[i] = make([]float64, d)
		m[i][i] = 1
	}
	return m
}
