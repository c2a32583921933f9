package copula

import (
	"math"

	"quantrisk/internal/engineerr"
)

// KendallTau estimates Kendall's rank correlation coefficient between two
// equal-length samples via direct concordant/discordant pair counting.
// O(n^2); fine for the parameter-fitting sample sizes this is used for
// (historical return series, not full scenario populations).
func KendallTau(x, y []float64) (float64, error) {
	n := len(x)
	if n != len(y) {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "KendallTau: x and y must have equal length, got %d and %d", n, len(y))
	}
	if n < 2 {
		return 0, engineerr.Wrap(engineerr.InsufficientData, "KendallTau requires at least 2 observations, got %d", n)
	}
	concordant, discordant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			sign := dx * dy
			switch {
			case sign > 0:
				concordant++
			case sign < 0:
				discordant++
			}
		}
	}
	total := n * (n - 1) / 2
	return float64(concordant-discordant) / float64(total), nil
}

// ThetaFromTau converts a Kendall's tau estimate into the native
// parameter of family via the standard method-of-moments relations.
// Gaussian/Student-t use rho = sin(pi*tau/2); the Archimedean families
// use their closed forms (Clayton, Gumbel) or numerical Debye-function
// inversion (Frank).
func ThetaFromTau(family Family, tau float64) (float64, error) {
	switch family {
	case FamilyGaussian, FamilyStudentT:
		return math.Sin(math.Pi * tau / 2), nil
	case FamilyClayton:
		if tau <= 0 || tau >= 1 {
			return 0, engineerr.Wrap(engineerr.InvalidParameter, "Clayton requires tau in (0,1), got %v", tau)
		}
		return 2 * tau / (1 - tau), nil
	case FamilyGumbel:
		if tau < 0 || tau >= 1 {
			return 0, engineerr.Wrap(engineerr.InvalidParameter, "Gumbel requires tau in [0,1), got %v", tau)
		}
		return 1 / (1 - tau), nil
	case FamilyFrank:
		return frankThetaFromTau(tau)
	default:
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "unknown copula family %q", family)
	}
}

// frankThetaFromTau inverts tau = 1 + 4/theta*(debye1(theta)-1) for theta
// by bisection; debye1 has no closed form. tau and theta share sign, and
// the mapping is monotonic in theta, so bisection on a bracket that grows
// until it contains a sign change is sufficient.
func frankThetaFromTau(tau float64) (float64, error) {
	if math.Abs(tau) < 1e-9 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "Frank theta is undefined at tau=0 (independence)")
	}
	if tau <= -1 || tau >= 1 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "Frank requires tau in (-1,1), got %v", tau)
	}
	f := func(theta float64) float64 { return frankTau(theta) - tau }

	lo, hi := 1e-6, 1.0
	if tau < 0 {
		lo, hi = -1.0, -1e-6
	}
	for i := 0; i < 200 && sameSign(f(lo), f(hi)); i++ {
		if tau > 0 {
			hi *= 2
		} else {
			lo *= 2
		}
	}
	for iter := 0; iter < 200; iter++ {
		mid := (lo + hi) / 2
		fm := f(mid)
		if math.Abs(fm) < 1e-10 {
			return mid, nil
		}
		if sameSign(fm, f(lo)) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// frankTau computes tau(theta) = 1 + 4/theta*(debye1(theta)-1) where
// debye1(theta) = (1/theta) * integral_0^theta t/(e^t-1) dt, evaluated by
// Simpson's rule.
func frankTau(theta float64) float64 {
	if math.Abs(theta) < 1e-9 {
		return 0
	}
	d1 := debye1(theta)
	return 1 + 4/theta*(d1-1)
}

func debye1(theta float64) float64 {
	integrand := func(t float64) float64 {
		if math.Abs(t) < 1e-9 {
			return 1 // limit of t/(e^t-1) as t->0
		}
		return t / (math.Exp(t) - 1)
	}
	const steps = 400
	h := theta / float64(steps)
	sum := integrand(0) + integrand(theta)
	for i := 1; i < steps; i++ {
		t := h * float64(i)
		weight := 4.0
		if i%2 == 0 {
			weight = 2.0
		}
		sum += weight * integrand(t)
	}
	integral := sum * h / 3
	return integral / theta
}
