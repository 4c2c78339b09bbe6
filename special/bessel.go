package special

import (
	"fmt"
	"math"

	"github.com/meenmo/latent/function"
)

const (
	besselSeriesLimit     = 12.0
	besselAsymptoteLimit  = 200.0
	besselDecayExponent   = 60.0
	besselQuadratureNodes = 256
)

// BesselJ is the Bessel function of the first kind J_ν(x). Integer orders
// accept any real x; fractional orders need x >= 0.
func BesselJ(nu, x float64) (float64, error) {
	if n, ok := integerOrder(nu); ok {
		return math.Jn(n, x), nil
	}
	if x < 0 {
		return 0, fmt.Errorf("BesselJ: fractional order %g at negative x: %w", nu, function.ErrDomain)
	}
	if x == 0 {
		if nu > 0 {
			return 0, nil
		}
		return zeroArgumentPole(nu), nil
	}
	switch {
	case x <= besselSeriesLimit:
		return besselJSeries(nu, x)
	case x >= besselAsymptoteLimit:
		return BesselJAsymptote(nu, x)
	default:
		return besselJIntegral(nu, x)
	}
}

// BesselY is the Bessel function of the second kind for integer order.
func BesselY(n int, x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("BesselY: x must be positive: %w", function.ErrDomain)
	}
	return math.Yn(n, x), nil
}

// besselJSeries sums (-1)^k (x/2)^(2k+ν) / (k! Γ(k+ν+1)).
func besselJSeries(nu, x float64) (float64, error) {
	s := function.NewSeries(func(k int, x float64) (float64, error) {
		t := besselSeriesTerm(nu, k, x)
		if k%2 == 1 {
			t = -t
		}
		return t, nil
	}, 0)
	return s.Evaluate(x)
}

// besselSeriesTerm is (x/2)^(2k+ν) / (k! Γ(k+ν+1)) computed in log space.
func besselSeriesTerm(nu float64, k int, x float64) float64 {
	arg := float64(k) + nu + 1
	if arg <= 0 && arg == math.Floor(arg) {
		// 1/Γ vanishes at the poles.
		return 0
	}
	lg, sign := math.Lgamma(arg)
	lk, _ := math.Lgamma(float64(k + 1))
	v := math.Exp((2*float64(k)+nu)*math.Log(x/2) - lk - lg)
	return float64(sign) * v
}

// besselJIntegral uses Bessel's integral for real order:
//
//	J_ν(x) = 1/π ∫_0^π cos(νt - x sin t) dt - sin(νπ)/π ∫_0^∞ e^(-x sinh t - νt) dt
func besselJIntegral(nu, x float64) (float64, error) {
	first, err := function.IntegrateN(function.Pure(func(t float64) float64 {
		return math.Cos(nu*t - x*math.Sin(t))
	}), 0, math.Pi, besselQuadratureNodes)
	if err != nil {
		return 0, fmt.Errorf("BesselJ: %w", err)
	}

	upper := 1.0
	for x*math.Sinh(upper)+nu*upper < besselDecayExponent {
		upper *= 2
	}
	second, err := function.IntegrateN(function.Pure(func(t float64) float64 {
		return math.Exp(-x*math.Sinh(t) - nu*t)
	}), 0, upper, besselQuadratureNodes)
	if err != nil {
		return 0, fmt.Errorf("BesselJ: %w", err)
	}
	return first/math.Pi - math.Sin(nu*math.Pi)/math.Pi*second, nil
}

// BesselJAsymptote is the Hankel expansion
//
//	J_ν(x) ≈ sqrt(2/(πx)) (P cos ω - Q sin ω),  ω = x - νπ/2 - π/4
//
// with P and Q summed until their terms stop shrinking.
func BesselJAsymptote(nu, x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("BesselJAsymptote: x must be positive: %w", function.ErrDomain)
	}
	mu := 4 * nu * nu
	p, q := 0.0, 0.0
	term := 1.0
	prev := math.Inf(1)
	for k := 0; k < 60; k++ {
		if k > 0 {
			odd := float64(2*k - 1)
			term *= (mu - odd*odd) / (float64(k) * 8 * x)
		}
		mag := math.Abs(term)
		if mag > prev || term == 0 && k > 0 {
			break
		}
		prev = mag
		switch k % 4 {
		case 0:
			p += term
		case 1:
			q += term
		case 2:
			p -= term
		case 3:
			q -= term
		}
		if mag < 1e-17 {
			break
		}
	}
	omega := x - nu*math.Pi/2 - math.Pi/4
	return math.Sqrt(2/(math.Pi*x)) * (p*math.Cos(omega) - q*math.Sin(omega)), nil
}

// BesselI is the modified Bessel function of the first kind I_ν(x), x >= 0.
func BesselI(nu, x float64) (float64, error) {
	if x < 0 {
		return 0, fmt.Errorf("BesselI: x must be non-negative: %w", function.ErrDomain)
	}
	if n, ok := integerOrder(nu); ok && n < 0 {
		nu = -nu
	}
	if x == 0 {
		switch {
		case nu == 0:
			return 1, nil
		case nu > 0:
			return 0, nil
		default:
			return zeroArgumentPole(nu), nil
		}
	}
	s := function.NewSeries(func(k int, x float64) (float64, error) {
		return besselSeriesTerm(nu, k, x), nil
	}, 0)
	return s.Evaluate(x)
}

// zeroArgumentPole is the limit of (x/2)^ν / Γ(ν+1) as x → 0+ for
// fractional ν < 0, signed by Γ(ν+1).
func zeroArgumentPole(nu float64) float64 {
	_, sign := math.Lgamma(nu + 1)
	return math.Inf(sign)
}

// BesselK is the modified Bessel function of the second kind,
//
//	K_ν(x) = ∫_0^∞ e^(-x cosh t) cosh(νt) dt,  x > 0.
func BesselK(nu, x float64) (float64, error) {
	if x <= 0 || math.IsNaN(x) {
		return 0, fmt.Errorf("BesselK: x must be positive: %w", function.ErrDomain)
	}
	a := math.Abs(nu)
	upper := 1.0
	for x*math.Cosh(upper)-a*upper-x < besselDecayExponent {
		upper *= 2
	}
	// Factor e^-x out of the integrand to keep it O(1) for large x.
	v, err := function.IntegrateN(function.Pure(func(t float64) float64 {
		return math.Exp(-x*(math.Cosh(t)-1)) * math.Cosh(a*t)
	}), 0, upper, besselQuadratureNodes)
	if err != nil {
		return 0, fmt.Errorf("BesselK: %w", err)
	}
	return v * math.Exp(-x), nil
}

func integerOrder(nu float64) (int, bool) {
	if nu == math.Trunc(nu) && math.Abs(nu) < 1e6 {
		return int(nu), true
	}
	return 0, false
}
