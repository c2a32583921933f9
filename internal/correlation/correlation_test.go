package correlation

import (
	"math"
	"testing"
)

func TestValidate_Identity(t *testing.T) {
	m := Matrix{{1, 0}, {0, 1}}
	if err := Validate(m); err != nil {
		t.Fatalf("identity should be valid: %v", err)
	}
}

func TestValidate_NotSymmetric(t *testing.T) {
	m := Matrix{{1, 0.5}, {0.2, 1}}
	if err := Validate(m); err == nil {
		t.Fatal("expected validation error for asymmetric matrix")
	}
}

func TestValidate_NonUnitDiagonal(t *testing.T) {
	m := Matrix{{2, 0}, {0, 1}}
	if err := Validate(m); err == nil {
		t.Fatal("expected validation error for non-unit diagonal")
	}
}

func TestValidate_NotPositiveDefinite(t *testing.T) {
	// A valid-looking symmetric matrix that is not PD.
	m := Matrix{
		{1, 0.9, -0.9},
		{0.9, 1, 0.9},
		{-0.9, 0.9, 1},
	}
	if err := Validate(m); err == nil {
		t.Fatal("expected validation error for non-PD matrix")
	}
}

func TestCholesky_RoundTrip(t *testing.T) {
	m := Matrix{
		{1.0, 0.5, 0.3},
		{0.5, 1.0, 0.2},
		{0.3, 0.2, 1.0},
	}
	l, err := Cholesky(m)
	if err != nil {
		t.Fatalf("Cholesky failed: %v", err)
	}
	d := len(m)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			sum := 0.0
			for k := 0; k < d; k++ {
				sum += l[i][k] * l[j][k]
			}
			if math.Abs(sum-m[i][j]) > 1e-9 {
				t.Errorf("L*L^T[%d][%d] = %v, want %v", i, j, sum, m[i][j])
			}
		}
	}
}

func TestAdjustToPD_RecoversPD(t *testing.T) {
	m := Matrix{
		{1, 0.95, -0.95},
		{0.95, 1, 0.95},
		{-0.95, 0.95, 1},
	}
	adjusted, err := AdjustToPD(m, 1e-8)
	if err != nil {
		t.Fatalf("AdjustToPD failed: %v", err)
	}
	if _, err := Cholesky(adjusted); err != nil {
		t.Fatalf("adjusted matrix still not PD: %v", err)
	}
}

func TestMultiplyVector(t *testing.T) {
	l := Matrix{{2, 0}, {1, 3}}
	z := []float64{1, 1}
	out := MultiplyVector(l, z)
	if out[0] != 2 || out[1] != 4 {
		t.Fatalf("MultiplyVector = %v, want [2 4]", out)
	}
}

func TestTemplates_AreValidAndFixed(t *testing.T) {
	for name, m := range Templates {
		if err := Validate(m); err != nil {
			t.Errorf("template %q failed validation: %v", name, err)
		}
	}
}
