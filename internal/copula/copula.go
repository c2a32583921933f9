// Package copula samples [0,1]^d tuples under Gaussian, Student-t, and
// bivariate Archimedean (Clayton, Gumbel, Frank) dependence structures,
// plus their 90/180/270-degree rotations. Non-Gaussian/non-Student-t
// families are defined only for d=2; d>2 requests for those families
// are rejected by the orchestrator before reaching here.
package copula

import (
	"math"

	"quantrisk/internal/correlation"
	"quantrisk/internal/engineerr"
	"quantrisk/internal/mathx"
	"quantrisk/internal/rng"
)

// Family identifies a copula construction.
type Family string

const (
	FamilyGaussian Family = "gaussian"
	FamilyStudentT Family = "student_t"
	FamilyClayton  Family = "clayton"
	FamilyGumbel   Family = "gumbel"
	FamilyFrank    Family = "frank"
)

// Rotation is a 90/180/270-degree rotation of a bivariate Archimedean
// copula sample, used to flip which tail carries dependence.
type Rotation int

const (
	NoRotation Rotation = 0
	Rotate90   Rotation = 90
	Rotate180  Rotation = 180
	Rotate270  Rotation = 270
)

// Spec fully describes a copula sampling request.
type Spec struct {
	Family   Family
	Dim      int
	Rho      float64 // Gaussian/Student-t: correlation, or pairwise rho for d>2
	Corr     correlation.Matrix
	Nu       float64 // Student-t degrees of freedom
	Theta    float64 // Clayton/Gumbel/Frank parameter
	Rotation Rotation
}

// Validate checks the dimension constraint: non-Gaussian/non-t families
// are only defined bivariate.
func (s Spec) Validate() error {
	if s.Dim < 1 {
		return engineerr.Wrap(engineerr.InvalidParameter, "copula dimension must be >= 1, got %d", s.Dim)
	}
	switch s.Family {
	case FamilyGaussian, FamilyStudentT:
		return nil
	case FamilyClayton, FamilyGumbel, FamilyFrank:
		if s.Dim != 2 {
			return engineerr.Wrap(engineerr.CopulaDimensionUnsupported, "%s copula is only defined bivariate, got dim=%d", s.Family, s.Dim)
		}
		return nil
	default:
		return engineerr.Wrap(engineerr.InvalidParameter, "unknown copula family %q", s.Family)
	}
}

// Sample draws n samples of dimension s.Dim in [0,1]^d.
func Sample(r rng.Rng, s Spec, n int) ([][]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := make([][]float64, n)
	switch s.Family {
	case FamilyGaussian:
		l, err := gaussianCholesky(s)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out[i] = sampleGaussian(r, l)
		}
	case FamilyStudentT:
		l, err := gaussianCholesky(s)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			out[i] = sampleStudentT(r, l, s.Nu)
		}
	case FamilyClayton:
		for i := 0; i < n; i++ {
			u, v, err := sampleClayton(r, s.Theta)
			if err != nil {
				return nil, err
			}
			out[i] = applyRotation(u, v, s.Rotation)
		}
	case FamilyGumbel:
		for i := 0; i < n; i++ {
			u, v, err := sampleGumbel(r, s.Theta)
			if err != nil {
				return nil, err
			}
			out[i] = applyRotation(u, v, s.Rotation)
		}
	case FamilyFrank:
		for i := 0; i < n; i++ {
			u, v, err := sampleFrank(r, s.Theta)
			if err != nil {
				return nil, err
			}
			out[i] = applyRotation(u, v, s.Rotation)
		}
	}
	return out, nil
}

func gaussianCholesky(s Spec) (correlation.Matrix, error) {
	if s.Corr != nil {
		return correlation.Cholesky(s.Corr)
	}
	d := s.Dim
	m := make(correlation.Matrix, d)
	for i := range m {
		m[i] = make([]float64, d)
		for j := range m[i] {
			if i == j {
				m[i][j] = 1
			} else {
				m[i][j] = s.Rho
			}
		}
	}
	return correlation.Cholesky(m)
}

func sampleGaussian(r rng.Rng, l correlation.Matrix) []float64 {
	d := len(l)
	z := make([]float64, d)
	for i := range z {
		z[i] = rng.StandardNormal(r)
	}
	x := correlation.MultiplyVector(l, z)
	out := make([]float64, d)
	for i, xi := range x {
		out[i] = mathx.NormalCDF(xi)
	}
	return out
}

func sampleStudentT(r rng.Rng, l correlation.Matrix, nu float64) []float64 {
	d := len(l)
	z := make([]float64, d)
	for i := range z {
		z[i] = rng.StandardNormal(r)
	}
	x := correlation.MultiplyVector(l, z)
	v, _ := rng.ChiSquared(r, nu)
	if v <= 0 {
		v = 1e-12
	}
	scale := math.Sqrt(nu / v)
	out := make([]float64, d)
	for i, xi := range x {
		t := xi * scale
		out[i] = mathx.StudentTCDF(t, nu)
	}
	return out
}

// sampleClayton draws a bivariate Clayton(theta) pair via the
// conditional method: u~U(0,1), w~U(0,1),
// v = (u^-theta*(w^(-theta/(1+theta))-1) + 1)^(-1/theta).
func sampleClayton(r rng.Rng, theta float64) (float64, float64, error) {
	if theta <= 0 {
		return 0, 0, engineerr.Wrap(engineerr.InvalidParameter, "Clayton theta must be > 0, got %v", theta)
	}
	u := uniformOpen(r)
	w := uniformOpen(r)
	v := math.Pow(math.Pow(u, -theta)*(math.Pow(w, -theta/(1+theta))-1)+1, -1/theta)
	return u, v, nil
}

// sampleGumbel draws a bivariate Gumbel(theta) pair via Marshall-Olkin:
// a positive-stable S with index 1/theta, two independent exponentials.
func sampleGumbel(r rng.Rng, theta float64) (float64, float64, error) {
	if theta < 1 {
		return 0, 0, engineerr.Wrap(engineerr.InvalidParameter, "Gumbel theta must be >= 1, got %v", theta)
	}
	alpha := 1 / theta
	s := positiveStable(r, alpha)
	e1 := exponential(r)
	e2 := exponential(r)
	u := math.Exp(-math.Pow(e1/s, alpha))
	v := math.Exp(-math.Pow(e2/s, alpha))
	return u, v, nil
}

// positiveStable draws a positive alpha-stable variate via the
// Chambers-Mallows-Stuck method, specialized for the Gumbel generator
// (beta=1, fully skewed).
func positiveStable(r rng.Rng, alpha float64) float64 {
	u := (uniformOpen(r) - 0.5) * math.Pi
	w := exponential(r)
	if alpha == 1 {
		return w
	}
	num := math.Sin(alpha*(u+math.Pi/2)) / math.Pow(math.Cos(u), 1/alpha)
	den := math.Pow(math.Cos(u-alpha*(u+math.Pi/2))/w, (1-alpha)/alpha)
	return num * den
}

func exponential(r rng.Rng) float64 {
	u := uniformOpen(r)
	return -math.Log(u)
}

// sampleFrank draws a bivariate Frank(theta) pair via the conditional
// method: a = 1-e^-theta, b = e^(-theta*u),
// v = -log(1 - w*a/(w*(1-b) + b))/theta.
func sampleFrank(r rng.Rng, theta float64) (float64, float64, error) {
	if theta == 0 {
		return 0, 0, engineerr.Wrap(engineerr.InvalidParameter, "Frank theta must be != 0")
	}
	u := uniformOpen(r)
	w := uniformOpen(r)
	a := 1 - math.Exp(-theta)
	b := math.Exp(-theta * u)
	v := -math.Log(1-w*a/(w*(1-b)+b)) / theta
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return u, v, nil
}

func uniformOpen(r rng.Rng) float64 {
	u := r.Uniform01()
	for u <= 0 || u >= 1 {
		u = r.Uniform01()
	}
	return u
}

// applyRotation maps a base bivariate sample to its 90/180/270-degree
// rotation, which flips which tail carries the copula's dependence.
func applyRotation(u, v float64, rot Rotation) []float64 {
	switch rot {
	case Rotate90:
		return []float64{1 - v, u}
	case Rotate180:
		return []float64{1 - u, 1 - v}
	case Rotate270:
		return []float64{v, 1 - u}
	default:
		return []float64{u, v}
	}
}
