// Package stats aggregates a scenario engine's raw outcome vectors into
// percentile/risk statistics with confidence intervals: percentiles,
// moments, VaR/CVaR, and the Wilson score interval for proportions. It
// operates on plain []float64 outcome vectors so the orchestrator can
// hand it final-period values, event counts, or sweep outputs alike.
package stats

import (
	"math"
	"sort"

	"quantrisk/internal/engineerr"
	"quantrisk/internal/mathx"
)

// Summary is the full statistical description of one outcome vector.
type Summary struct {
	N        int
	Mean     float64
	Median   float64
	Mode     float64
	Variance float64
	Stdev    float64
	IQR      float64
	Skewness float64
	Kurtosis float64 // excess (sample-corrected)

	VaR90, VaR95, VaR99 float64
	CVaR90, CVaR95, CVaR99 float64

	ProbLTZero float64
	Min, Max   float64

	P0_1, P99_9 float64 // only meaningful when N >= 1000; zero otherwise
}

// Percentile returns the p-th percentile (0-100) of x via linear
// interpolation over a sorted copy: idx = p/100*(n-1),
// x[floor(idx)]*(1-w) + x[ceil(idx)]*w.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := sortedCopy(x)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	w := idx - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func sortedCopy(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

// PercentileAt computes percentiles of x at the named quantiles and
// returns them as name->value, matching the aggregator's
// `percentiles{name→{p5,p25,p50,p75,p95}}` result shape.
func PercentileAt(x []float64, quantiles ...float64) map[string]float64 {
	sorted := sortedCopy(x)
	out := make(map[string]float64, len(quantiles))
	for _, q := range quantiles {
		out[percentileLabel(q)] = percentileSorted(sorted, q)
	}
	return out
}

func percentileLabel(p float64) string {
	switch p {
	case 0.1:
		return "p0.1"
	case 99.9:
		return "p99.9"
	default:
		return "p" + trimFloat(p)
	}
}

func trimFloat(p float64) string {
	return itoa(int(p))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Mean returns the arithmetic mean of x.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Variance returns the sample variance (n-1 denominator) of x.
func Variance(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	mu := Mean(x)
	sum := 0.0
	for _, v := range x {
		d := v - mu
		sum += d * d
	}
	return sum / float64(n-1)
}

// Stdev returns the sample standard deviation of x.
func Stdev(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// Median is Percentile(x, 50).
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Mode estimates the mode via a histogram with the given bin count
// (default 50 when bins<=0), returning the midpoint of the most
// populous bin.
func Mode(x []float64, bins int) float64 {
	if len(x) == 0 {
		return 0
	}
	if bins <= 0 {
		bins = 50
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return lo
	}
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range x {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return lo + width*(float64(best)+0.5)
}

// IQR is Percentile(x,75) - Percentile(x,25).
func IQR(x []float64) float64 {
	return Percentile(x, 75) - Percentile(x, 25)
}

// Skewness is the adjusted Fisher-Pearson standardized moment
// coefficient (G1); zero for n<3.
func Skewness(x []float64) float64 {
	n := len(x)
	if n < 3 {
		return 0
	}
	mu := Mean(x)
	s := Stdev(x)
	if s <= 0 {
		return 0
	}
	m3 := 0.0
	for _, v := range x {
		d := (v - mu) / s
		m3 += d * d * d
	}
	return float64(n) / (float64(n-1) * float64(n-2)) * m3
}

// Kurtosis is the sample-corrected excess kurtosis (G2); zero for n<4.
func Kurtosis(x []float64) float64 {
	n := len(x)
	if n < 4 {
		return 0
	}
	mu := Mean(x)
	s := Stdev(x)
	if s <= 0 {
		return 0
	}
	m4 := 0.0
	for _, v := range x {
		d := (v - mu) / s
		m4 += d * d * d * d
	}
	n1 := float64(n)
	return (n1*(n1+1))/((n1-1)*(n1-2)*(n1-3))*m4 - 3*(n1-1)*(n1-1)/((n1-2)*(n1-3))
}

// ProbLessThan returns the fraction of x strictly less than threshold.
func ProbLessThan(x []float64, threshold float64) float64 {
	if len(x) == 0 {
		return 0
	}
	count := 0
	for _, v := range x {
		if v < threshold {
			count++
		}
	}
	return float64(count) / float64(len(x))
}

// MinMax returns the minimum and maximum of x.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Summarize computes the full Summary for x.
func Summarize(x []float64) (Summary, error) {
	if len(x) == 0 {
		return Summary{}, engineerr.Wrap(engineerr.InsufficientData, "cannot summarize an empty outcome vector")
	}
	sorted := sortedCopy(x)
	s := Summary{
		N:        len(x),
		Mean:     Mean(x),
		Median:   percentileSorted(sorted, 50),
		Mode:     Mode(x, 50),
		Variance: Variance(x),
		Stdev:    Stdev(x),
		IQR:      percentileSorted(sorted, 75) - percentileSorted(sorted, 25),
		Skewness: Skewness(x),
		Kurtosis: Kurtosis(x),

		ProbLTZero: ProbLessThan(x, 0),
	}
	s.Min, s.Max = MinMax(x)

	s.VaR90, s.CVaR90 = varCVaR(x, sorted, 0.10)
	s.VaR95, s.CVaR95 = varCVaR(x, sorted, 0.05)
	s.VaR99, s.CVaR99 = varCVaR(x, sorted, 0.01)

	if len(x) >= 1000 {
		s.P0_1 = percentileSorted(sorted, 0.1)
		s.P99_9 = percentileSorted(sorted, 99.9)
	}
	return s, nil
}

// varCVaR returns VaR_alpha = P_{100*alpha}(x), the lower-tail percentile
// (VaR90 uses alpha=0.10, i.e. P_10), and CVaR_alpha, the mean of values
// at or below VaR. For n<20 the raw empirical quantile degenerates, so
// the Cornish-Fisher small-sample correction (CornishFisherVaR) is used
// instead.
func varCVaR(x, sorted []float64, alpha float64) (v, cv float64) {
	if len(x) < 20 {
		return CornishFisherVaR(x, alpha)
	}
	v = percentileSorted(sorted, 100*alpha)
	count := 0
	sum := 0.0
	for _, val := range sorted {
		if val <= v {
			sum += val
			count++
		}
	}
	if count == 0 {
		return v, v
	}
	return v, sum / float64(count)
}

// CornishFisherVaR computes a Cornish-Fisher-adjusted VaR/CVaR pair for
// small samples, where the raw empirical quantile degenerates (e.g.
// floor(0.05*10)=0 collapses VaR90/95/99 to the same worst observation).
func CornishFisherVaR(x []float64, alpha float64) (v, cv float64) {
	mu := Mean(x)
	sigma := Stdev(x)
	if sigma <= 0 {
		return mu, mu
	}
	skew := Skewness(x)
	kurt := Kurtosis(x)
	z := mathx.NormalQuantile(alpha)
	cf := cornishFisherQuantile(z, skew, kurt)
	v = mu + cf*sigma
	cv = mu - sigma*mathx.NormalPDF(cf)/alpha
	return v, cv
}

// cornishFisherQuantile is the 4th-order Cornish-Fisher expansion:
// z_cf = z + (z^2-1)*skew/6 + (z^3-3z)*kurt/24 - (2z^3-5z)*skew^2/36.
func cornishFisherQuantile(z, skew, kurt float64) float64 {
	z2 := z * z
	z3 := z2 * z
	return z +
		(z2-1)*skew/6 +
		(z3-3*z)*kurt/24 -
		(2*z3-5*z)*skew*skew/36
}
