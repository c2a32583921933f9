package stats

import (
	"math"
	"testing"
)

func TestPercentile_LinearInterpolation(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	if p := Percentile(x, 50); p != 30 {
		t.Errorf("median = %v, want 30", p)
	}
	if p := Percentile(x, 0); p != 10 {
		t.Errorf("p0 = %v, want 10", p)
	}
	if p := Percentile(x, 100); p != 50 {
		t.Errorf("p100 = %v, want 50", p)
	}
	// idx = 25/100*4 = 1.0 -> x[1] = 20
	if p := Percentile(x, 25); p != 20 {
		t.Errorf("p25 = %v, want 20", p)
	}
}

func TestPercentileAt_Labels(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	m := PercentileAt(x, 5, 25, 50, 75, 95)
	for _, key := range []string{"p5", "p25", "p50", "p75", "p95"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %v", key, m)
		}
	}
}

func TestMean_Variance_Stdev(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if mean := Mean(x); math.Abs(mean-5) > 1e-9 {
		t.Errorf("mean = %v, want 5", mean)
	}
	// Known sample variance for this dataset is 4.571428...
	if v := Variance(x); math.Abs(v-4.571428571) > 1e-6 {
		t.Errorf("variance = %v, want ~4.5714", v)
	}
}

func TestIQR(t *testing.T) {
	x := make([]float64, 0, 100)
	for i := 1; i <= 100; i++ {
		x = append(x, float64(i))
	}
	iqr := IQR(x)
	if iqr < 48 || iqr > 52 {
		t.Errorf("IQR = %v, want ~50", iqr)
	}
}

func TestProbLessThan(t *testing.T) {
	x := []float64{-2, -1, 0, 1, 2}
	if p := ProbLessThan(x, 0); math.Abs(p-0.4) > 1e-9 {
		t.Errorf("P(X<0) = %v, want 0.4", p)
	}
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{3, -5, 10, 2})
	if lo != -5 || hi != 10 {
		t.Errorf("MinMax = (%v,%v), want (-5,10)", lo, hi)
	}
}

func TestSummarize_EmptyIsError(t *testing.T) {
	if _, err := Summarize(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestSummarize_LargeNormalSample_P01AndP999Populated(t *testing.T) {
	x := make([]float64, 2000)
	for i := range x {
		x[i] = float64(i)
	}
	s, err := Summarize(x)
	if err != nil {
		t.Fatal(err)
	}
	if s.P0_1 == 0 && s.P99_9 == 0 {
		t.Error("expected P0_1/P99_9 to be populated for n>=1000")
	}
	if s.P0_1 >= s.P99_9 {
		t.Errorf("P0_1 (%v) should be < P99_9 (%v)", s.P0_1, s.P99_9)
	}
}

func TestSummarize_SmallSampleUsesCornishFisher(t *testing.T) {
	x := []float64{-50, -10, -5, 0, 1, 2, 3, 4, 5, 100}
	s, err := Summarize(x)
	if err != nil {
		t.Fatal(err)
	}
	// With n<20, VaR90/95/99 should not all collapse to the same
	// floor(alpha*n) empirical observation.
	if s.VaR90 == s.VaR95 && s.VaR95 == s.VaR99 {
		t.Error("expected Cornish-Fisher VaR to differentiate across alpha for small n")
	}
}

func TestVarCVaR_CVaRIsTailMeanBeyondVaR(t *testing.T) {
	x := make([]float64, 5000)
	for i := range x {
		x[i] = float64(i)
	}
	s, err := Summarize(x)
	if err != nil {
		t.Fatal(err)
	}
	if s.CVaR95 > s.VaR95 {
		t.Errorf("CVaR95 (%v) should be <= VaR95 (%v) for this ascending series", s.CVaR95, s.VaR95)
	}
}

func TestMode_FindsDensestBin(t *testing.T) {
	x := append(make([]float64, 0), 1, 1, 1, 1, 1, 1, 10, 20, 30)
	mode := Mode(x, 10)
	if mode < 0 || mode > 5 {
		t.Errorf("mode = %v, expected to land near the cluster of 1s", mode)
	}
}

func TestWilsonInterval_ContainsPoint(t *testing.T) {
	lower, upper := WilsonInterval(30, 100, 0.1)
	if math.Abs(lower-0.227) > 0.005 {
		t.Errorf("lower = %v, want ~0.227", lower)
	}
	if math.Abs(upper-0.382) > 0.005 {
		t.Errorf("upper = %v, want ~0.382", upper)
	}
}

func TestWilsonInterval_AlwaysWithinUnitRange(t *testing.T) {
	cases := []struct{ k, n int }{
		{0, 10}, {10, 10}, {5, 10}, {1, 1000000}, {999999, 1000000},
	}
	for _, c := range cases {
		lo, hi := WilsonInterval(c.k, c.n, 0.05)
		p := float64(c.k) / float64(c.n)
		if lo < 0 || hi > 1 || lo > p+1e-9 || hi < p-1e-9 {
			t.Errorf("WilsonInterval(%d,%d) = [%v,%v], should contain p=%v within [0,1]", c.k, c.n, lo, hi, p)
		}
	}
}

func TestCornishFisherVaR_ConstantSeriesReturnsMean(t *testing.T) {
	x := []float64{5, 5, 5, 5, 5}
	v, cv := CornishFisherVaR(x, 0.05)
	if v != 5 || cv != 5 {
		t.Errorf("CornishFisherVaR on constant series = (%v,%v), want (5,5)", v, cv)
	}
}
