package estimate

import (
	"fmt"
	"strings"

	"quantrisk/internal/sde"
	"quantrisk/internal/stats"
)

// explicitKinds maps a caller-asserted kind hint directly to a model,
// bypassing the positivity/CV/name heuristics below.
var explicitKinds = map[string]sde.ModelKind{
	"gbm":                sde.ModelGBM,
	"geometric_brownian": sde.ModelGBM,
	"ou":                 sde.ModelOrnsteinUhlenbeck,
	"ornstein_uhlenbeck": sde.ModelOrnsteinUhlenbeck,
	"mean_reverting":     sde.ModelOrnsteinUhlenbeck,
	"heston":             sde.ModelHeston,
	"merton_jump":        sde.ModelMertonJump,
	"jump_diffusion":     sde.ModelMertonJump,
	"deterministic":      sde.ModelDeterministic,
}

// meanReversionKeywords and growthKeywords are the name-based fallback
// half: keyword hints for series without an explicit kind.
var meanReversionKeywords = []string{"margin", "ratio", "rate"}
var growthKeywords = []string{"revenue", "price"}

// Recommendation is RecommendProcess's output: a suggested model and the
// rule that produced it.
type Recommendation struct {
	Kind   sde.ModelKind
	Reason string
}

// RecommendProcess suggests which stochastic model a named series should
// follow. kind, when non-empty and recognized, is an explicit override;
// otherwise the function checks, in this order, a coefficient of
// variation below 3% (deterministic), the name keywords, and positivity
// (GBM when every value is positive, OU otherwise).
func RecommendProcess(values []float64, name, kind string) Recommendation {
	if k, ok := explicitKinds[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return Recommendation{Kind: k, Reason: "explicit kind override: " + kind}
	}

	allPositive := len(values) > 0
	for _, v := range values {
		if v <= 0 {
			allPositive = false
			break
		}
	}

	if len(values) > 1 {
		mean := stats.Mean(values)
		if mean != 0 {
			cv := stats.Stdev(values) / mean
			if cv < 0 {
				cv = -cv
			}
			if cv < 0.03 {
				return Recommendation{Kind: sde.ModelDeterministic, Reason: "coefficient of variation below 3%, series is effectively flat"}
			}
		}
	}

	lowerName := strings.ToLower(name)
	for _, kw := range meanReversionKeywords {
		if strings.Contains(lowerName, kw) {
			return Recommendation{Kind: sde.ModelOrnsteinUhlenbeck, Reason: fmt.Sprintf("name suggests a bounded, mean-reverting quantity (matched %q)", kw)}
		}
	}
	for _, kw := range growthKeywords {
		if strings.Contains(lowerName, kw) {
			return Recommendation{Kind: sde.ModelGBM, Reason: fmt.Sprintf("name suggests a compounding growth quantity (matched %q)", kw)}
		}
	}

	if allPositive {
		return Recommendation{Kind: sde.ModelGBM, Reason: "positive-valued series with no stronger signal, defaulting to GBM"}
	}
	return Recommendation{Kind: sde.ModelOrnsteinUhlenbeck, Reason: "series takes non-positive values, GBM is undefined"}
}
