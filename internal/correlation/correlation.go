// Package correlation validates correlation matrices, factorizes them
// via Cholesky, and adjusts near-invalid matrices toward positive
// definiteness. It also carries the fixed industry correlation
// templates as immutable package-level constants.
package correlation

import (
	"fmt"
	"math"

	"quantrisk/internal/engineerr"
)

const symmetryTolerance = 1e-10

// Matrix is a dense d x d correlation matrix stored row-major.
type Matrix [][]float64

// ValidationError collects every violation found by Validate so callers
// can report them all at once rather than failing fast on the first.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("correlation matrix invalid: %v", e.Reasons)
}

// Validate checks squareness, symmetry (within 1e-10), unit diagonal,
// |M_ij|<=1, and positive definiteness (attempted via Cholesky).
func Validate(m Matrix) error {
	var reasons []string
	d := len(m)
	if d == 0 {
		return engineerr.Wrap(engineerr.CorrelationIllDefined, "empty matrix")
	}
	for i, row := range m {
		if len(row) != d {
			reasons = append(reasons, fmt.Sprintf("row %d has length %d, want %d", i, len(row), d))
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}

	for i := 0; i < d; i++ {
		if math.Abs(m[i][i]-1) > symmetryTolerance {
			reasons = append(reasons, fmt.Sprintf("diagonal[%d]=%v, want 1", i, m[i][i]))
		}
		for j := 0; j < d; j++ {
			if math.Abs(m[i][j]) > 1+symmetryTolerance {
				reasons = append(reasons, fmt.Sprintf("|M[%d][%d]|=%v exceeds 1", i, j, math.Abs(m[i][j])))
			}
			if math.Abs(m[i][j]-m[j][i]) > symmetryTolerance {
				reasons = append(reasons, fmt.Sprintf("M[%d][%d]=%v != M[%d][%d]=%v (not symmetric)", i, j, m[i][j], j, i, m[j][i]))
			}
		}
	}

	if _, err := Cholesky(m); err != nil && len(reasons) == 0 {
		reasons = append(reasons, "not positive definite")
	}

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// Cholesky computes the lower-triangular L such that L*L^T = M, failing
// with NumericalInstability if M is not positive definite.
func Cholesky(m Matrix) (Matrix, error) {
	d := len(m)
	l := make(Matrix, d)
	for i := range l {
		l[i] = make([]float64, d)
	}

	for i := 0; i < d; i++ {
		for j := 0; j <= i; j++ {
			sum := 0.0
			for k := 0; k < j; k++ {
				sum += l[i][k] * l[j][k]
			}
			if i == j {
				diag := m[i][i] - sum
				if diag <= 0 {
					return nil, engineerr.Wrap(engineerr.NumericalInstability, "non-positive diagonal at row %d during Cholesky", i)
				}
				l[i][j] = math.Sqrt(diag)
			} else {
				if l[j][j] == 0 {
					return nil, engineerr.Wrap(engineerr.NumericalInstability, "zero pivot at row %d during Cholesky", j)
				}
				l[i][j] = (m[i][j] - sum) / l[j][j]
			}
		}
	}
	return l, nil
}

// AdjustToPD shrinks off-diagonal entries by a factor that decreases
// from 0.99 to 0.5 until Cholesky succeeds. If no shrink factor in that
// range works, it falls back to identity plus 0.1*original off-diagonals.
func AdjustToPD(m Matrix, eps float64) (Matrix, error) {
	d := len(m)
	for factor := 0.99; factor >= 0.5; factor -= 0.01 {
		candidate := shrink(m, factor)
		if _, err := Cholesky(candidate); err == nil {
			return candidate, nil
		}
	}

	fallback := identity(d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if i != j {
				fallback[i][j] = 0.1 * m[i][j]
			}
		}
	}
	if _, err := Cholesky(fallback); err != nil {
		return nil, engineerr.Wrap(engineerr.NumericalInstability, "adjust-to-PD fallback still not positive definite")
	}
	return fallback, nil
}

func shrink(m Matrix, factor float64) Matrix {
	d := len(m)
	out := make(Matrix, d)
	for i := range out {
		out[i] = make([]float64, d)
		for j := range out[i] {
			if i == j {
				out[i][j] = 1
			} else {
				out[i][j] = m[i][j] * factor
			}
		}
	}
	return out
}

func identity(d int) Matrix {
	out := make(Matrix, d)
	for i := range out {
		out[i] = make([]float64, d)
		out[i][i] = 1
	}
	return out
}

// MultiplyVector returns L*z for a lower-triangular L (or any square
// matrix) and a vector z of matching dimension.
func MultiplyVector(l Matrix, z []float64) []float64 {
	d := len(l)
	out := make([]float64, d)
	for i := 0; i < d; i++ {
		sum := 0.0
		for j := 0; j < d && j < len(z); j++ {
			sum += l[i][j] * z[j]
		}
		out[i] = sum
	}
	return out
}
