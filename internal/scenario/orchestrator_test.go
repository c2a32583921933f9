package scenario

import (
	"context"
	"math"
	"sort"
	"testing"

	"quantrisk/internal/copula"
	"quantrisk/internal/correlation"
	"quantrisk/internal/sde"
)

func seedPtr(s uint64) *uint64 { return &s }

func TestRun_GBMSingleVariable_MeanInExpectedBand(t *testing.T) {
	seed := seedPtr(42)
	cfg := Config{
		NScenarios:    10000,
		HorizonMonths: 12,
		DtMonths:      12.0 / 252,
		RandomSeed:    seed,
	}
	variables := []Variable{
		{Name: "S", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0.08, Sigma: 0.2, InitialValue: 100}},
	}
	traj, err := Run(context.Background(), cfg, variables, Dependence{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	finals := traj.FinalValues["S"]
	if len(finals) != traj.NScenarios {
		t.Fatalf("final values length %d != NScenarios %d", len(finals), traj.NScenarios)
	}
	mean := meanOf(finals)
	if mean < 100 || mean > 120 {
		t.Errorf("mean(S_T) = %v, want roughly in [100,120]", mean)
	}
}

func TestRun_IsDeterministicForSameSeed(t *testing.T) {
	cfg := Config{
		NScenarios:    500,
		HorizonMonths: 6,
		DtMonths:      1,
		RandomSeed:    seedPtr(7),
		MaxWorkers:    4,
	}
	variables := []Variable{
		{Name: "X", Model: sde.Params{Kind: sde.ModelOrnsteinUhlenbeck, Theta: 1.5, Mu: 0.05, Sigma: 0.02, InitialValue: 0.04}},
	}
	t1, err := Run(context.Background(), cfg, variables, Dependence{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := Run(context.Background(), cfg, variables, Dependence{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f1 := append([]float64{}, t1.FinalValues["X"]...)
	f2 := append([]float64{}, t2.FinalValues["X"]...)
	sort.Float64s(f1)
	sort.Float64s(f2)
	for i := range f1 {
		if f1[i] != f2[i] {
			t.Fatalf("non-deterministic run at index %d: %v != %v", i, f1[i], f2[i])
		}
	}
}

func TestRun_CorrelatedBivariate_GaussianCopulaLikeDependence(t *testing.T) {
	cfg := Config{
		NScenarios:    50000,
		HorizonMonths: 1,
		DtMonths:      1,
		RandomSeed:    seedPtr(1),
	}
	variables := []Variable{
		{Name: "X", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.2, InitialValue: 1}},
		{Name: "Y", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.2, InitialValue: 1}},
	}
	dep := Dependence{Correlation: correlation.Matrix{
		{1, 0.5},
		{0.5, 1},
	}}
	traj, err := Run(context.Background(), cfg, variables, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	x := traj.FinalValues["X"]
	y := traj.FinalValues["Y"]
	both := 0
	for i := range x {
		if x[i] > 1 && y[i] > 1 {
			both++
		}
	}
	p := float64(both) / float64(len(x))
	if math.Abs(p-0.333) > 0.02 {
		t.Errorf("P(X>1 and Y>1) = %v, want ~0.333", p)
	}
}

func TestRun_CopulaNoise_RequiresBivariate(t *testing.T) {
	cfg := Config{NScenarios: 10, HorizonMonths: 1, DtMonths: 1, RandomSeed: seedPtr(1)}
	variables := []Variable{
		{Name: "A", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.1, InitialValue: 1}},
		{Name: "B", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.1, InitialValue: 1}},
		{Name: "C", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.1, InitialValue: 1}},
	}
	dep := Dependence{Copula: &copula.Spec{Family: copula.FamilyClayton, Theta: 2}}
	if _, err := Run(context.Background(), cfg, variables, dep, nil); err == nil {
		t.Fatal("expected error for d=3 with copula noise")
	}
}

func TestRun_UnknownCovenantVariable(t *testing.T) {
	cfg := Config{NScenarios: 10, HorizonMonths: 1, DtMonths: 1, RandomSeed: seedPtr(1)}
	variables := []Variable{
		{Name: "A", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0, Sigma: 0.1, InitialValue: 1}},
	}
	covenants := []Covenant{{Variable: "NOPE", Op: OpLT, Threshold: 0.5}}
	if _, err := Run(context.Background(), cfg, variables, Dependence{}, covenants); err == nil {
		t.Fatal("expected UnknownVariable error")
	}
}

func TestRun_CovenantBreachTracking(t *testing.T) {
	cfg := Config{NScenarios: 2000, HorizonMonths: 12, DtMonths: 1, RandomSeed: seedPtr(5)}
	variables := []Variable{
		{Name: "Ratio", Model: sde.Params{Kind: sde.ModelOrnsteinUhlenbeck, Theta: 1, Mu: 0.5, Sigma: 0.3, InitialValue: 0.5}},
	}
	covenants := []Covenant{{Variable: "Ratio", Op: OpLT, Threshold: 0.2}}
	traj, err := Run(context.Background(), cfg, variables, Dependence{}, covenants)
	if err != nil {
		t.Fatal(err)
	}
	result, ok := traj.Covenants["Ratio"]
	if !ok {
		t.Fatal("missing covenant result for Ratio")
	}
	if result.OverallBreachProbability < 0 || result.OverallBreachProbability > 1 {
		t.Errorf("breach probability out of range: %v", result.OverallBreachProbability)
	}
	if len(result.PerPeriodBreachProbability) != traj.Steps+1 {
		t.Errorf("per-period breach probability length = %d, want %d", len(result.PerPeriodBreachProbability), traj.Steps+1)
	}
}

func TestRun_CancellationReturnsNoPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := Config{NScenarios: 100000, HorizonMonths: 120, DtMonths: 1, RandomSeed: seedPtr(1)}
	variables := []Variable{
		{Name: "S", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0.05, Sigma: 0.2, InitialValue: 100}},
	}
	traj, err := Run(ctx, cfg, variables, Dependence{}, nil)
	if err == nil {
		t.Fatal("expected Cancelled error")
	}
	if traj != nil {
		t.Fatal("expected nil trajectories on cancellation")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	variables := []Variable{{Name: "S", Model: sde.Params{Kind: sde.ModelGBM, Mu: 0.05, Sigma: 0.2, InitialValue: 100}}}
	cases := []Config{
		{NScenarios: 0, HorizonMonths: 1, DtMonths: 1},
		{NScenarios: 10, HorizonMonths: 0, DtMonths: 1},
		{NScenarios: 10, HorizonMonths: 1, DtMonths: 0},
	}
	for _, c := range cases {
		if _, err := Run(context.Background(), c, variables, Dependence{}, nil); err == nil {
			t.Errorf("expected error for config %+v", c)
		}
	}
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
