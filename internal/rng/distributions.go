package rng

import (
	"math"

	"quantrisk/internal/engineerr"
)

// Normal draws a standard-normal-scaled sample via Box-Muller, rejecting
// u1=0 to avoid log(0).
func Normal(r Rng, mean, stdev float64) (float64, error) {
	if stdev <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "stdev must be > 0, got %v", stdev)
	}
	var u1 float64
	for u1 == 0 {
		u1 = r.Uniform01()
	}
	u2 := r.Uniform01()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + stdev*z, nil
}

// StandardNormal is Normal(r, 0, 1) without the error-returning overhead
// for call sites that already validated parameters upstream.
func StandardNormal(r Rng) float64 {
	v, _ := Normal(r, 0, 1)
	return v
}

// Lognormal draws exp(Normal(mu, sigma)).
func Lognormal(r Rng, mu, sigma float64) (float64, error) {
	if sigma <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "sigma must be > 0, got %v", sigma)
	}
	z, err := Normal(r, mu, sigma)
	if err != nil {
		return 0, err
	}
	return math.Exp(z), nil
}

// Triangular draws from Triangular(min, mode, max) via inverse-CDF.
func Triangular(r Rng, min, mode, max float64) (float64, error) {
	if min >= max {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "min must be < max, got min=%v max=%v", min, max)
	}
	if mode < min || mode > max {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "mode must be in [min,max], got %v", mode)
	}
	u := r.Uniform01()
	fc := (mode - min) / (max - min)
	if u < fc {
		return min + math.Sqrt(u*(max-min)*(mode-min)), nil
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode)), nil
}

// PERT draws a PERT(optimistic, mode, pessimistic) sample via a Beta
// construction with shape parameter lambda (default 4).
func PERT(r Rng, optimistic, mode, pessimistic, lambda float64) (float64, error) {
	if optimistic >= pessimistic {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "optimistic must be < pessimistic")
	}
	if mode < optimistic || mode > pessimistic {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "mode must be in [optimistic,pessimistic]")
	}
	if lambda <= 0 {
		lambda = 4
	}
	span := pessimistic - optimistic
	alpha := 1 + lambda*(mode-optimistic)/span
	beta := 1 + lambda*(pessimistic-mode)/span
	b, err := Beta(r, alpha, beta)
	if err != nil {
		return 0, err
	}
	return optimistic + b*span, nil
}

// Beta draws Beta(alpha,beta) via the ratio of two Gammas.
func Beta(r Rng, alpha, beta float64) (float64, error) {
	x, err := Gamma(r, alpha, 1)
	if err != nil {
		return 0, err
	}
	y, err := Gamma(r, beta, 1)
	if err != nil {
		return 0, err
	}
	if x+y == 0 {
		return 0, nil
	}
	return x / (x + y), nil
}

// Gamma draws Gamma(shape, scale) via Marsaglia-Tsang; for shape<1 the
// sample is boosted (shape+1) then scaled down by U^(1/shape).
func Gamma(r Rng, shape, scale float64) (float64, error) {
	if shape <= 0 || scale <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "shape and scale must be > 0, got shape=%v scale=%v", shape, scale)
	}
	if shape < 1 {
		g, err := gammaMarsagliaTsang(r, shape+1)
		if err != nil {
			return 0, err
		}
		u := r.Uniform01()
		for u == 0 {
			u = r.Uniform01()
		}
		return scale * g * math.Pow(u, 1/shape), nil
	}
	g, err := gammaMarsagliaTsang(r, shape)
	if err != nil {
		return 0, err
	}
	return scale * g, nil
}

func gammaMarsagliaTsang(r Rng, shape float64) (float64, error) {
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = StandardNormal(r)
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := r.Uniform01()
		for u == 0 {
			u = r.Uniform01()
		}
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v, nil
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v, nil
		}
	}
}

// ChiSquared draws from chi-squared(nu): sum of nu squared standard
// normals for small nu, a normal approximation otherwise.
func ChiSquared(r Rng, nu float64) (float64, error) {
	if nu <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "nu must be > 0, got %v", nu)
	}
	if nu <= 100 {
		if n := int(nu); float64(n) == nu && n > 0 {
			sum := 0.0
			for i := 0; i < n; i++ {
				z := StandardNormal(r)
				sum += z * z
			}
			return sum, nil
		}
		// Non-integer small nu: Gamma(nu/2, 2) is exact.
		return Gamma(r, nu/2, 2)
	}
	// Normal approximation N(nu, 2*nu), floored at 0, for large nu.
	z := StandardNormal(r)
	mean := nu
	stdev := math.Sqrt(2 * nu)
	v := mean + stdev*z
	if v < 0 {
		v = 0
	}
	return v, nil
}

// StudentT draws from a location-scale Student-t(nu, mu, sigma) via
// mu + sigma*Z/sqrt(V/nu), Z~N(0,1), V~chi-squared(nu).
func StudentT(r Rng, nu, mu, sigma float64) (float64, error) {
	if nu <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "nu must be > 0, got %v", nu)
	}
	if sigma <= 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "sigma must be > 0, got %v", sigma)
	}
	z := StandardNormal(r)
	v, err := ChiSquared(r, nu)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		v = 1e-12
	}
	return mu + sigma*z/math.Sqrt(v/nu), nil
}

// Poisson draws from Poisson(lambda): Knuth's multiplication method for
// lambda<30, a rounded normal approximation otherwise.
func Poisson(r Rng, lambda float64) (int, error) {
	if lambda < 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "lambda must be >= 0, got %v", lambda)
	}
	if lambda == 0 {
		return 0, nil
	}
	if lambda < 30 {
		l := math.Exp(-lambda)
		k := 0
		p := 1.0
		for {
			p *= r.Uniform01()
			if p <= l {
				return k, nil
			}
			k++
		}
	}
	stdev := math.Sqrt(lambda)
	v := lambda + stdev*StandardNormal(r)
	n := int(math.Round(v))
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Empirical draws a uniform random index over sample and returns the
// corresponding value.
func Empirical(r Rng, sample []float64) (float64, error) {
	if len(sample) == 0 {
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "empirical sample must be non-empty")
	}
	idx := int(r.Uniform01() * float64(len(sample)))
	if idx >= len(sample) {
		idx = len(sample) - 1
	}
	return sample[idx], nil
}
