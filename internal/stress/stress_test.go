package stress

import (
	"context"
	"errors"
	"math"
	"testing"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/scenario"
	"quantrisk/internal/sde"
)

func seedPtr(s uint64) *uint64 { return &s }

func gbmVar(name string, mu, sigma, s0 float64) scenario.Variable {
	return scenario.Variable{
		Name: name,
		Model: sde.Params{
			Kind:         sde.ModelGBM,
			Mu:           mu,
			Sigma:        sigma,
			InitialValue: s0,
		},
	}
}

func TestApply_ShocksInitialValueAndMu(t *testing.T) {
	vars := []scenario.Variable{gbmVar("revenue", 0.08, 0.2, 100)}
	sc := Scenario{
		Name:   "custom",
		Shocks: []Shock{{Variable: "revenue", InitialValueMul: 0.9, InitialValueAdd: -5, MuAdd: -0.03}},
	}
	out, err := Apply(vars, sc)
	if err != nil {
		t.Fatal(err)
	}
	if got := out[0].Model.InitialValue; math.Abs(got-85) > 1e-12 {
		t.Errorf("InitialValue = %v, want 85 (100*0.9 - 5)", got)
	}
	if got := out[0].Model.Mu; math.Abs(got-0.05) > 1e-12 {
		t.Errorf("Mu = %v, want 0.05", got)
	}
	if vars[0].Model.InitialValue != 100 {
		t.Error("Apply mutated the input variables")
	}
}

func TestApply_EmptyVariableHitsAll(t *testing.T) {
	vars := []scenario.Variable{
		gbmVar("revenue", 0.08, 0.2, 100),
		gbmVar("costs", 0.03, 0.1, 60),
	}
	out, err := Apply(vars, Scenario{Shocks: []Shock{{MuAdd: -0.02}}})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0].Model.Mu-0.06) > 1e-12 || math.Abs(out[1].Model.Mu-0.01) > 1e-12 {
		t.Errorf("mu after global shock = %v, %v; want 0.06, 0.01", out[0].Model.Mu, out[1].Model.Mu)
	}
}

func TestApply_UnknownVariable(t *testing.T) {
	vars := []scenario.Variable{gbmVar("revenue", 0.08, 0.2, 100)}
	_, err := Apply(vars, Scenario{Shocks: []Shock{{Variable: "ebitda", MuAdd: -0.02}}})
	if !errors.Is(err, engineerr.UnknownVariable) {
		t.Fatalf("err = %v, want UnknownVariable", err)
	}
}

func TestCatalog_SeverityBuckets(t *testing.T) {
	cases := map[string]string{
		"mild_downturn": "mild",
		"recession":     "moderate",
		"market_crash":  "severe",
	}
	for name, want := range cases {
		sc, ok := Catalog[name]
		if !ok {
			t.Fatalf("catalog missing %q", name)
		}
		if sc.Severity != want {
			t.Errorf("%s severity = %q, want %q", name, sc.Severity, want)
		}
	}
}

func TestRun_RecessionLowersMean(t *testing.T) {
	vars := []scenario.Variable{gbmVar("revenue", 0.08, 0.2, 100)}
	cfg := scenario.Config{
		NScenarios:    2000,
		HorizonMonths: 12,
		DtMonths:      1,
		RandomSeed:    seedPtr(42),
	}

	base, err := Run(context.Background(), cfg, vars, scenario.Dependence{}, Scenario{Name: "baseline"})
	if err != nil {
		t.Fatal(err)
	}
	shocked, err := Run(context.Background(), cfg, vars, scenario.Dependence{}, Catalog["recession"])
	if err != nil {
		t.Fatal(err)
	}

	bm := base.PerVariable["revenue"].Mean
	sm := shocked.PerVariable["revenue"].Mean
	if sm >= bm {
		t.Errorf("recession mean %v not below baseline mean %v", sm, bm)
	}
	if shocked.NScenarios != 2000 {
		t.Errorf("NScenarios = %d, want 2000", shocked.NScenarios)
	}
}

func TestRunSensitivity_GBMInitialValueElasticityNearOne(t *testing.T) {
	vars := []scenario.Variable{gbmVar("revenue", 0.05, 0.15, 100)}
	cfg := scenario.Config{
		NScenarios:    5000, // capped to 1000 by the sweep
		HorizonMonths: 12,
		DtMonths:      1,
		RandomSeed:    seedPtr(7),
	}
	res, err := RunSensitivity(context.Background(), cfg, vars, scenario.Dependence{}, "revenue", 0.8, 1.2, "revenue", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.NScenariosPerStep != 1000 {
		t.Errorf("NScenariosPerStep = %d, want capped at 1000", res.NScenariosPerStep)
	}
	for i := 1; i < len(res.Mean); i++ {
		if res.Mean[i] <= res.Mean[i-1] {
			t.Errorf("mean not increasing at step %d: %v -> %v", i, res.Mean[i-1], res.Mean[i])
		}
	}
	// GBM's terminal mean is linear in S0, so the elasticity is 1 exactly
	// when the same seed drives every step.
	if math.Abs(res.Elasticity-1) > 0.05 {
		t.Errorf("elasticity = %v, want ~1", res.Elasticity)
	}
	if res.TornadoLow >= 0 || res.TornadoHigh <= 0 {
		t.Errorf("tornado impacts (%v, %v) have wrong signs", res.TornadoLow, res.TornadoHigh)
	}
}

func TestRunSensitivity_Validation(t *testing.T) {
	vars := []scenario.Variable{gbmVar("revenue", 0.05, 0.15, 100)}
	cfg := scenario.Config{NScenarios: 100, HorizonMonths: 12, DtMonths: 1, RandomSeed: seedPtr(1)}

	cases := []struct {
		name       string
		vary, out  string
		lo, hi     float64
		steps      int
		wantKind   error
	}{
		{"too few steps", "revenue", "revenue", 0.8, 1.2, 1, engineerr.InvalidParameter},
		{"inverted range", "revenue", "revenue", 1.2, 0.8, 5, engineerr.InvalidParameter},
		{"unknown vary", "ebitda", "revenue", 0.8, 1.2, 5, engineerr.UnknownVariable},
		{"unknown output", "revenue", "ebitda", 0.8, 1.2, 5, engineerr.UnknownVariable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RunSensitivity(context.Background(), cfg, vars, scenario.Dependence{}, tc.vary, tc.lo, tc.hi, tc.out, tc.steps)
			if !errors.Is(err, tc.wantKind) {
				t.Fatalf("err = %v, want %v", err, tc.wantKind)
			}
		})
	}
}
