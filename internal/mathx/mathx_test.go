package mathx

import (
	"math"
	"testing"
)

func TestNormalCDF_Symmetry(t *testing.T) {
	if math.Abs(NormalCDF(0)-0.5) > 1e-9 {
		t.Errorf("NormalCDF(0) = %v, want 0.5", NormalCDF(0))
	}
	if math.Abs(NormalCDF(1)+NormalCDF(-1)-1) > 1e-9 {
		t.Errorf("NormalCDF(1)+NormalCDF(-1) != 1")
	}
}

func TestNormalQuantile_RoundTrip(t *testing.T) {
	for _, p := range []float64{0.001, 0.01, 0.1, 0.3, 0.5, 0.7, 0.9, 0.99, 0.999} {
		z := NormalQuantile(p)
		back := NormalCDF(z)
		if math.Abs(back-p) > 1e-4 {
			t.Errorf("quantile(%v)=%v, CDF(that)=%v, want %v", p, z, back, p)
		}
	}
}

func TestNormalQuantile_Median(t *testing.T) {
	if math.Abs(NormalQuantile(0.5)) > 1e-9 {
		t.Errorf("NormalQuantile(0.5) = %v, want 0", NormalQuantile(0.5))
	}
}

func TestIncompleteBeta_Endpoints(t *testing.T) {
	if IncompleteBeta(0, 2, 3) != 0 {
		t.Errorf("I_0(2,3) != 0")
	}
	if IncompleteBeta(1, 2, 3) != 1 {
		t.Errorf("I_1(2,3) != 1")
	}
}

func TestIncompleteBeta_Symmetric(t *testing.T) {
	// I_0.5(a,a) should be 0.5 for symmetric Beta(a,a).
	v := IncompleteBeta(0.5, 3, 3)
	if math.Abs(v-0.5) > 1e-6 {
		t.Errorf("I_0.5(3,3) = %v, want 0.5", v)
	}
}

func TestBetaQuantile_RoundTrip(t *testing.T) {
	alpha, beta := 10.0, 4.0
	for _, p := range []float64{0.05, 0.25, 0.5, 0.75, 0.95} {
		x := BetaQuantile(p, alpha, beta)
		back := IncompleteBeta(x, alpha, beta)
		if math.Abs(back-p) > 1e-3 {
			t.Errorf("BetaQuantile(%v) round-trip: got CDF=%v", p, back)
		}
	}
}

func TestStudentTCDF_ConvergesToNormalForLargeNu(t *testing.T) {
	for _, x := range []float64{-2, -1, 0, 1, 2} {
		tcdf := StudentTCDF(x, 1000)
		ncdf := NormalCDF(x)
		if math.Abs(tcdf-ncdf) > 0.01 {
			t.Errorf("StudentTCDF(%v, nu=1000) = %v, want ~NormalCDF = %v", x, tcdf, ncdf)
		}
	}
}

func TestStudentTCDF_Median(t *testing.T) {
	v := StudentTCDF(0, 5)
	if math.Abs(v-0.5) > 1e-9 {
		t.Errorf("StudentTCDF(0,5) = %v, want 0.5", v)
	}
}

func TestStudentTCDF_Monotone(t *testing.T) {
	prev := StudentTCDF(-5, 4)
	for _, x := range []float64{-4, -3, -2, -1, 0, 1, 2, 3, 4, 5} {
		v := StudentTCDF(x, 4)
		if v < prev {
			t.Errorf("StudentTCDF not monotone at x=%v: %v < %v", x, v, prev)
		}
		prev = v
	}
}
