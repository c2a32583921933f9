package scenario

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quantrisk/internal/copula"
	"quantrisk/internal/correlation"
	"quantrisk/internal/engineerr"
	"quantrisk/internal/mathx"
	"quantrisk/internal/rng"
	"quantrisk/internal/sde"
)

// Run drives cfg.NScenarios independent scenarios of the given variables
// under the given dependence structure, optionally tracking covenants
// online. Scenarios are split across a worker pool; cancellation via ctx
// is observed at each scenario boundary and aborts the whole run with no
// partial result.
func Run(ctx context.Context, cfg Config, variables []Variable, dep Dependence, covenants []Covenant) (*Trajectories, error) {
	if cfg.NScenarios <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "n_scenarios must be > 0, got %d", cfg.NScenarios)
	}
	if cfg.HorizonMonths <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "horizon_months must be > 0, got %v", cfg.HorizonMonths)
	}
	if cfg.DtMonths <= 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "dt_months must be > 0, got %v", cfg.DtMonths)
	}
	if len(variables) == 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "at least one variable is required")
	}

	names := make([]string, len(variables))
	index := make(map[string]int, len(variables))
	for i, v := range variables {
		names[i] = v.Name
		index[v.Name] = i
	}
	for _, c := range covenants {
		if _, ok := index[c.Variable]; !ok {
			return nil, engineerr.Wrap(engineerr.UnknownVariable, "covenant references unknown variable %q", c.Variable)
		}
	}

	d := len(variables)
	draw, err := buildNoiseDrawer(d, dep)
	if err != nil {
		return nil, err
	}

	steps := int(math.Ceil(cfg.HorizonMonths / cfg.DtMonths))
	dtYears := cfg.DtMonths / 12

	scheme := sde.SchemeEulerLog
	if cfg.Discretization == DiscretizationMilstein {
		scheme = sde.SchemeMilstein
	}

	seed := uint64(time.Now().UnixNano())
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.NScenarios {
		workers = cfg.NScenarios
	}
	chunks := splitCount(cfg.NScenarios, workers)

	results := make([]*workerResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for wi, count := range chunks {
		wi, count := wi, count
		g.Go(func() error {
			r := rng.New(rng.Split(seed, wi))
			res, err := runWorker(gctx, r, variables, names, index, draw, scheme, steps, dtYears, covenants, count, !cfg.Streaming)
			if err != nil {
				return err
			}
			results[wi] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if err == context.Canceled || ctx.Err() != nil {
			return nil, engineerr.Wrap(engineerr.Cancelled, "scenario run cancelled")
		}
		return nil, err
	}

	return merge(names, dtYears, steps, cfg.NScenarios, covenants, results, !cfg.Streaming)
}

// buildNoiseDrawer precomputes whatever the dependence structure needs
// (a Cholesky factor, a validated copula spec) and returns a function
// that draws one per-step standard-normal noise vector of length d.
func buildNoiseDrawer(d int, dep Dependence) (func(r rng.Rng) ([]float64, error), error) {
	switch {
	case d == 1:
		return func(r rng.Rng) ([]float64, error) {
			return []float64{rng.StandardNormal(r)}, nil
		}, nil

	case dep.Copula != nil:
		if d != 2 {
			return nil, engineerr.Wrap(engineerr.CopulaDimensionUnsupported, "copula noise is only supported for d=2, got d=%d", d)
		}
		spec := *dep.Copula
		spec.Dim = 2
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		return func(r rng.Rng) ([]float64, error) {
			uv, err := copula.Sample(r, spec, 1)
			if err != nil {
				return nil, err
			}
			return []float64{
				mathx.NormalQuantile(uv[0][0]),
				mathx.NormalQuantile(uv[0][1]),
			}, nil
		}, nil

	case dep.Correlation != nil:
		if len(dep.Correlation) != d {
			return nil, engineerr.Wrap(engineerr.CorrelationIllDefined, "correlation matrix dimension %d does not match %d variables", len(dep.Correlation), d)
		}
		if err := correlation.Validate(dep.Correlation); err != nil {
			return nil, engineerr.Wrap(engineerr.CorrelationIllDefined, "%v", err)
		}
		l, err := correlation.Cholesky(dep.Correlation)
		if err != nil {
			return nil, engineerr.Wrap(engineerr.NumericalInstability, "%v", err)
		}
		return func(r rng.Rng) ([]float64, error) {
			z := make([]float64, d)
			for i := range z {
				z[i] = rng.StandardNormal(r)
			}
			return correlation.MultiplyVector(l, z), nil
		}, nil

	default:
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "d=%d requires a correlation matrix or, for d=2, a copula spec", d)
	}
}

func splitCount(n, workers int) []int {
	if workers <= 0 {
		workers = 1
	}
	chunks := make([]int, workers)
	base := n / workers
	rem := n % workers
	for i := range chunks {
		chunks[i] = base
		if i < rem {
			chunks[i]++
		}
	}
	return chunks
}

type covenantAccum struct {
	periodBreachCount []int
	overallBreaches   int
	magnitudeSum      float64
	magnitudeCount    int
}

type workerResult struct {
	finalValues map[string][]float64
	tensor      [][][]float64
	covenants   map[string]*covenantAccum
	dropped     int
	scenarios   int
}

func runWorker(
	ctx context.Context,
	r rng.Rng,
	variables []Variable,
	names []string,
	index map[string]int,
	draw func(r rng.Rng) ([]float64, error),
	scheme sde.Scheme,
	steps int,
	dtYears float64,
	covenants []Covenant,
	count int,
	keepTensor bool,
) (*workerResult, error) {
	d := len(variables)
	res := &workerResult{
		finalValues: make(map[string][]float64, d),
		covenants:   make(map[string]*covenantAccum, len(covenants)),
	}
	for _, name := range names {
		res.finalValues[name] = make([]float64, 0, count)
	}
	for i, c := range covenants {
		res.covenants[covenantKey(i, c)] = &covenantAccum{periodBreachCount: make([]int, steps+1)}
	}
	if keepTensor {
		res.tensor = make([][][]float64, 0, count)
	}

	for s := 0; s < count; s++ {
		if ctx.Err() != nil {
			return nil, engineerr.Wrap(engineerr.Cancelled, "scenario run cancelled")
		}

		steppers := make([]sde.Stepper, d)
		grid := make([][]float64, d)
		for i, v := range variables {
			p := v.Model
			p.Scheme = scheme
			st, err := sde.New(p)
			if err != nil {
				return nil, err
			}
			steppers[i] = st
			grid[i] = make([]float64, steps+1)
			grid[i][0] = st.Value()
		}

		breached := make([]bool, len(covenants))
		applyCovenants := func(t int) {
			for ci, c := range covenants {
				vi := index[c.Variable]
				v := grid[vi][t]
				if c.Op.Compare(v, c.Threshold) {
					acc := res.covenants[covenantKey(ci, c)]
					acc.periodBreachCount[t]++
					acc.magnitudeSum += math.Abs(v - c.Threshold)
					acc.magnitudeCount++
					breached[ci] = true
				}
			}
		}
		applyCovenants(0)

		finite := true
		for t := 1; t <= steps; t++ {
			z, err := draw(r)
			if err != nil {
				return nil, err
			}
			for i, st := range steppers {
				v, err := st.Step(r, z[i], dtYears)
				if err != nil {
					return nil, err
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					finite = false
				}
				grid[i][t] = v
			}
			applyCovenants(t)
		}

		if !finite {
			res.dropped++
			continue
		}

		for ci, c := range covenants {
			if breached[ci] {
				res.covenants[covenantKey(ci, c)].overallBreaches++
			}
		}
		for i, name := range names {
			res.finalValues[name] = append(res.finalValues[name], grid[i][steps])
		}
		if keepTensor {
			res.tensor = append(res.tensor, grid)
		}
		res.scenarios++
	}
	return res, nil
}

func covenantKey(i int, c Covenant) string {
	return fmt.Sprintf("%d:%s:%s:%v", i, c.Variable, c.Op, c.Threshold)
}

func merge(names []string, dtYears float64, steps int, requested int, covenants []Covenant, results []*workerResult, keepTensor bool) (*Trajectories, error) {
	out := &Trajectories{
		RunID:       uuid.NewString(),
		Variables:   names,
		DtYears:     dtYears,
		Steps:       steps,
		FinalValues: make(map[string][]float64, len(names)),
		Covenants:   make(map[string]CovenantResult, len(covenants)),
	}
	for _, name := range names {
		out.FinalValues[name] = make([]float64, 0, requested)
	}
	if keepTensor {
		out.Tensor = make([][][]float64, 0, requested)
	}

	totalDropped := 0
	totalScenarios := 0
	accum := make(map[string]*covenantAccum, len(covenants))
	for i, c := range covenants {
		accum[covenantKey(i, c)] = &covenantAccum{periodBreachCount: make([]int, steps+1)}
	}

	for _, wr := range results {
		if wr == nil {
			continue
		}
		totalDropped += wr.dropped
		totalScenarios += wr.scenarios
		for _, name := range names {
			out.FinalValues[name] = append(out.FinalValues[name], wr.finalValues[name]...)
		}
		if keepTensor {
			out.Tensor = append(out.Tensor, wr.tensor...)
		}
		for key, acc := range wr.covenants {
			dst := accum[key]
			dst.overallBreaches += acc.overallBreaches
			dst.magnitudeSum += acc.magnitudeSum
			dst.magnitudeCount += acc.magnitudeCount
			for t := range dst.periodBreachCount {
				dst.periodBreachCount[t] += acc.periodBreachCount[t]
			}
		}
	}

	out.NScenarios = totalScenarios
	if totalScenarios == 0 {
		return nil, engineerr.Wrap(engineerr.NumericalInstability, "every scenario produced a non-finite trajectory")
	}
	if float64(totalDropped)/float64(requested) > 0.01 {
		out.Degraded = true
		out.DegradedReasons = append(out.DegradedReasons, fmt.Sprintf("%d of %d scenarios dropped for non-finite values", totalDropped, requested))
	}

	for i, c := range covenants {
		acc := accum[covenantKey(i, c)]
		result := CovenantResult{PerPeriodBreachProbability: make([]float64, steps+1)}
		for t, cnt := range acc.periodBreachCount {
			result.PerPeriodBreachProbability[t] = float64(cnt) / float64(totalScenarios)
		}
		result.OverallBreachProbability = float64(acc.overallBreaches) / float64(totalScenarios)
		if acc.magnitudeCount > 0 {
			result.MeanBreachMagnitude = acc.magnitudeSum / float64(acc.magnitudeCount)
		}
		out.Covenants[c.Variable] = result
	}

	return out, nil
}
