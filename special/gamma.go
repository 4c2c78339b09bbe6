// Package special implements the Gamma, incomplete Gamma, Bessel and related
// special functions.
package special

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/meenmo/latent/function"
)

// Gamma is the Euler Gamma function. Non-positive integers give +Inf or NaN
// as math.Gamma does.
func Gamma(x float64) float64 {
	return math.Gamma(x)
}

// LogGamma returns ln|Γ(x)| and the sign of Γ(x).
func LogGamma(x float64) (float64, int) {
	return math.Lgamma(x)
}

// Digamma is ψ(x) = Γ'(x)/Γ(x).
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Beta is B(a, b) = Γ(a)Γ(b)/Γ(a+b).
func Beta(a, b float64) float64 {
	return mathext.Beta(a, b)
}

// LogBeta is ln B(a, b).
func LogBeta(a, b float64) float64 {
	return mathext.Lbeta(a, b)
}

// Factorial returns n! as a float; it overflows to +Inf above 170.
func Factorial(n int) (float64, error) {
	if n < 0 {
		return 0, fmt.Errorf("Factorial: negative argument %d: %w", n, function.ErrDomain)
	}
	if n > 170 {
		return math.Inf(1), nil
	}
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f, nil
}

// BinomialCoefficient returns n choose k, zero outside 0 <= k <= n.
func BinomialCoefficient(n, k int) float64 {
	if k < 0 || k > n || n < 0 {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	if n <= 60 {
		c := 1.0
		for i := 1; i <= k; i++ {
			c = c * float64(n-k+i) / float64(i)
		}
		return math.Round(c)
	}
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return math.Exp(ln - lk - lnk)
}

// bernoulli holds B_2, B_4, ..., B_30.
var bernoulli = []float64{
	1.0 / 6,
	-1.0 / 30,
	1.0 / 42,
	-1.0 / 30,
	5.0 / 66,
	-691.0 / 2730,
	7.0 / 6,
	-3617.0 / 510,
	43867.0 / 798,
	-174611.0 / 330,
	854513.0 / 138,
	-236364091.0 / 2730,
	8553103.0 / 6,
	-23749461029.0 / 870,
	8615841276005.0 / 14322,
}

// StirlingLogGamma is the asymptotic Stirling series for ln Γ(x), x > 0.
// The correction terms stop at the smallest term, and Bounds reports it as
// the truncation envelope.
func StirlingLogGamma(terms int) *function.Series {
	if terms <= 0 || terms > len(bernoulli)+1 {
		terms = len(bernoulli) + 1
	}
	return &function.Series{
		Start:        0,
		MaxTerms:     terms,
		StopOnGrowth: true,
		Term: func(k int, x float64) (float64, error) {
			if x <= 0 {
				return 0, fmt.Errorf("StirlingLogGamma: x must be positive: %w", function.ErrDomain)
			}
			if k == 0 {
				return (x-0.5)*math.Log(x) - x + 0.5*math.Log(2*math.Pi), nil
			}
			n := 2 * k
			return bernoulli[k-1] / (float64(n*(n-1)) * math.Pow(x, float64(n-1))), nil
		},
	}
}
