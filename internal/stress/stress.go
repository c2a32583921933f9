// Package stress applies named shock bundles to a variable set before
// simulation and reruns the engine under the shocked inputs, and runs
// one-input sensitivity sweeps with elasticity and tornado output.
package stress

import (
	"context"
	"math"
	"time"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/scenario"
	"quantrisk/internal/stats"
)

// Shock perturbs one variable's initial value and/or drift. A zero
// multiplier means "leave unchanged" (multipliers are applied only when
// non-zero, additive shifts always). Variable == "" applies the shock to
// every variable in the request.
type Shock struct {
	Variable        string  `json:"variable"`
	InitialValueAdd float64 `json:"initial_value_add"`
	InitialValueMul float64 `json:"initial_value_mul"`
	MuAdd           float64 `json:"mu_add"`
	MuMul           float64 `json:"mu_mul"`
}

// Scenario is a named bundle of shocks with a derived severity label.
type Scenario struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Shocks      []Shock `json:"shocks"`
}

// Catalog holds the built-in shock bundles, keyed by name. Entries are
// immutable; callers submit their own Scenario values for anything not
// listed here.
var Catalog = map[string]Scenario{
	"mild_downturn": {
		Name:        "mild_downturn",
		Description: "A shallow slowdown: drift drops two points across the board.",
		Shocks:      []Shock{{MuAdd: -0.02}},
	},
	"recession": {
		Name:        "recession",
		Description: "A broad recession: drift down five points, starting levels marked down 5%.",
		Shocks:      []Shock{{MuAdd: -0.05, InitialValueMul: 0.95}},
	},
	"rate_shock": {
		Name:        "rate_shock",
		Description: "A sudden policy tightening: drift down three points, levels down 3%.",
		Shocks:      []Shock{{MuAdd: -0.03, InitialValueMul: 0.97}},
	},
	"inflation_spike": {
		Name:        "inflation_spike",
		Description: "Input costs jump: levels up 8%, drift down two points.",
		Shocks:      []Shock{{InitialValueMul: 1.08, MuAdd: -0.02}},
	},
	"market_crash": {
		Name:        "market_crash",
		Description: "A severe dislocation: levels down 25%, drift down ten points.",
		Shocks:      []Shock{{InitialValueMul: 0.75, MuAdd: -0.10}},
	},
}

func init() {
	for name, sc := range Catalog {
		sc.Severity = severityFor(sc)
		Catalog[name] = sc
	}
}

// severityFor buckets a scenario's aggregate shock magnitude into a
// discrete label: the largest combined drift shift and level move across
// its shocks decides the band.
func severityFor(sc Scenario) string {
	score := 0.0
	for _, sh := range sc.Shocks {
		s := math.Abs(sh.MuAdd)
		if sh.MuMul != 0 {
			s += math.Abs(sh.MuMul - 1)
		}
		s += math.Abs(sh.InitialValueAdd)
		if sh.InitialValueMul != 0 {
			s += math.Abs(sh.InitialValueMul - 1)
		}
		if s > score {
			score = s
		}
	}
	switch {
	case score < 0.05:
		return "mild"
	case score < 0.15:
		return "moderate"
	default:
		return "severe"
	}
}

// Apply returns a copy of variables with sc's shocks folded into their
// initial values and drifts. The originals are untouched.
func Apply(variables []scenario.Variable, sc Scenario) ([]scenario.Variable, error) {
	index := make(map[string]int, len(variables))
	for i, v := range variables {
		index[v.Name] = i
	}
	out := make([]scenario.Variable, len(variables))
	copy(out, variables)

	for _, sh := range sc.Shocks {
		targets := make([]int, 0, len(out))
		if sh.Variable == "" {
			for i := range out {
				targets = append(targets, i)
			}
		} else {
			i, ok := index[sh.Variable]
			if !ok {
				return nil, engineerr.Wrap(engineerr.UnknownVariable, "stress shock references unknown variable %q", sh.Variable)
			}
			targets = append(targets, i)
		}
		for _, i := range targets {
			p := out[i].Model
			if sh.InitialValueMul != 0 {
				p.InitialValue *= sh.InitialValueMul
			}
			p.InitialValue += sh.InitialValueAdd
			if sh.MuMul != 0 {
				p.Mu *= sh.MuMul
			}
			p.Mu += sh.MuAdd
			out[i].Model = p
		}
	}
	return out, nil
}

// Result is the outcome of a stress run: per-variable final-period
// statistics under the shocked inputs.
type Result struct {
	RunID         string
	Scenario      Scenario
	PerVariable   map[string]stats.Summary
	NScenarios    int
	ComputeTimeMs float64
	Degraded      bool
}

// Run applies sc to the variables and reruns the simulation, returning
// final-period statistics per variable. The trajectory tensor is never
// retained; only final values feed the summaries.
func Run(ctx context.Context, cfg scenario.Config, variables []scenario.Variable, dep scenario.Dependence, sc Scenario) (*Result, error) {
	if sc.Severity == "" {
		sc.Severity = severityFor(sc)
	}
	shocked, err := Apply(variables, sc)
	if err != nil {
		return nil, err
	}
	cfg.Streaming = true

	start := time.Now()
	traj, err := scenario.Run(ctx, cfg, shocked, dep, nil)
	if err != nil {
		return nil, err
	}

	perVariable := make(map[string]stats.Summary, len(traj.Variables))
	for _, name := range traj.Variables {
		s, err := stats.Summarize(traj.FinalValues[name])
		if err != nil {
			return nil, err
		}
		perVariable[name] = s
	}
	return &Result{
		RunID:         traj.RunID,
		Scenario:      sc,
		PerVariable:   perVariable,
		NScenarios:    traj.NScenarios,
		ComputeTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		Degraded:      traj.Degraded,
	}, nil
}
