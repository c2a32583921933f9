package rng

import (
	"errors"
	"math"
	"testing"

	"quantrisk/internal/engineerr"
)

func TestNormal_InvalidStdev(t *testing.T) {
	m := New(1)
	if _, err := Normal(m, 0, 0); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter, got %v", err)
	}
	if _, err := Normal(m, 0, -1); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter, got %v", err)
	}
}

func TestNormal_SampleMoments(t *testing.T) {
	m := New(42)
	const n = 100000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		z, err := Normal(m, 2, 3)
		if err != nil {
			t.Fatal(err)
		}
		sum += z
		sumSq += z * z
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean-2) > 0.05 {
		t.Errorf("mean = %v, want ~2", mean)
	}
	if math.Abs(variance-9) > 0.3 {
		t.Errorf("variance = %v, want ~9", variance)
	}
}

func TestTriangular_Bounds(t *testing.T) {
	m := New(3)
	for i := 0; i < 10000; i++ {
		v, err := Triangular(m, 1, 3, 10)
		if err != nil {
			t.Fatal(err)
		}
		if v < 1 || v > 10 {
			t.Fatalf("Triangular out of bounds: %v", v)
		}
	}
	if _, err := Triangular(m, 5, 3, 1); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter for min>=max")
	}
}

func TestPERT_Bounds(t *testing.T) {
	m := New(4)
	for i := 0; i < 10000; i++ {
		v, err := PERT(m, 1, 4, 10, 4)
		if err != nil {
			t.Fatal(err)
		}
		if v < 1 || v > 10 {
			t.Fatalf("PERT out of bounds: %v", v)
		}
	}
}

func TestGamma_InvalidParams(t *testing.T) {
	m := New(1)
	if _, err := Gamma(m, 0, 1); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter")
	}
	if _, err := Gamma(m, 1, -1); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter")
	}
}

func TestGamma_MeanConverges(t *testing.T) {
	m := New(9)
	const shape, scale = 3.0, 2.0
	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		g, err := Gamma(m, shape, scale)
		if err != nil {
			t.Fatal(err)
		}
		sum += g
	}
	mean := sum / n
	want := shape * scale
	if math.Abs(mean-want) > 0.2 {
		t.Errorf("gamma mean = %v, want ~%v", mean, want)
	}
}

func TestGamma_ShapeLessThanOne(t *testing.T) {
	m := New(11)
	for i := 0; i < 1000; i++ {
		g, err := Gamma(m, 0.3, 1)
		if err != nil {
			t.Fatal(err)
		}
		if g < 0 || math.IsNaN(g) {
			t.Fatalf("gamma(shape<1) produced invalid sample %v", g)
		}
	}
}

func TestChiSquared_MeanConverges(t *testing.T) {
	m := New(13)
	const nu = 5.0
	const n = 50000
	sum := 0.0
	for i := 0; i < n; i++ {
		v, err := ChiSquared(m, nu)
		if err != nil {
			t.Fatal(err)
		}
		sum += v
	}
	mean := sum / n
	if math.Abs(mean-nu) > 0.3 {
		t.Errorf("chi-squared mean = %v, want ~%v", mean, nu)
	}
}

func TestStudentT_HeavierTailsThanNormal(t *testing.T) {
	m := New(21)
	const n = 50000
	extremeT, extremeN := 0, 0
	for i := 0; i < n; i++ {
		t1, err := StudentT(m, 3, 0, 1)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(t1) > 4 {
			extremeT++
		}
		z := StandardNormal(m)
		if math.Abs(z) > 4 {
			extremeN++
		}
	}
	if extremeT <= extremeN {
		t.Errorf("expected Student-t(3) to have heavier tails than normal: extremeT=%d extremeN=%d", extremeT, extremeN)
	}
}

func TestPoisson_NonNegativeAndMeanConverges(t *testing.T) {
	m := New(17)
	const lambda = 4.2
	const n = 50000
	sum := 0
	for i := 0; i < n; i++ {
		k, err := Poisson(m, lambda)
		if err != nil {
			t.Fatal(err)
		}
		if k < 0 {
			t.Fatalf("Poisson produced negative count %d", k)
		}
		sum += k
	}
	mean := float64(sum) / n
	if math.Abs(mean-lambda) > 0.1 {
		t.Errorf("Poisson mean = %v, want ~%v", mean, lambda)
	}
}

func TestPoisson_LargeLambdaApproximation(t *testing.T) {
	m := New(19)
	k, err := Poisson(m, 50)
	if err != nil {
		t.Fatal(err)
	}
	if k < 0 {
		t.Fatalf("Poisson(50) produced negative count")
	}
}

func TestEmpirical_EmptySample(t *testing.T) {
	m := New(1)
	if _, err := Empirical(m, nil); !errors.Is(err, engineerr.InvalidParameter) {
		t.Fatalf("want InvalidParameter for empty sample")
	}
}

func TestEmpirical_DrawsFromSample(t *testing.T) {
	m := New(23)
	sample := []float64{1, 2, 3}
	seen := map[float64]bool{}
	for i := 0; i < 1000; i++ {
		v, err := Empirical(m, sample)
		if err != nil {
			t.Fatal(err)
		}
		seen[v] = true
	}
	for _, s := range sample {
		if !seen[s] {
			t.Errorf("value %v from sample never drawn in 1000 tries", s)
		}
	}
}
