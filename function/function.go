// Package function defines real-valued functions of one real variable and
// the estimators, derivatives and integrals built on them.
package function

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/meenmo/latent/config"
)

var (
	// ErrNotConverged is returned when an iterative method exhausts its budget.
	ErrNotConverged = errors.New("function: did not converge")
	// ErrBadBracket is returned when a bracket does not straddle a root.
	ErrBadBracket = errors.New("function: interval does not bracket a root")
	// ErrDomain is returned for arguments outside a function's domain.
	ErrDomain = errors.New("function: argument outside domain")
)

// R1ToR1 is a real-valued function of a single real variable.
type R1ToR1 interface {
	Evaluate(x float64) (float64, error)
}

// Func adapts an ordinary function to R1ToR1.
type Func func(x float64) (float64, error)

// Evaluate implements R1ToR1.
func (f Func) Evaluate(x float64) (float64, error) {
	return f(x)
}

// Pure adapts an error-free function.
func Pure(f func(float64) float64) Func {
	return func(x float64) (float64, error) {
		return f(x), nil
	}
}

// Bounds is an envelope around an estimate.
type Bounds struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies inside the envelope (inclusive).
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// Width is Upper - Lower.
func (b Bounds) Width() float64 {
	return b.Upper - b.Lower
}

// Estimator is an R1ToR1 that can also bound its own estimate.
type Estimator interface {
	R1ToR1
	Bounds(x float64) (Bounds, error)
}

// Derivative returns the first or second derivative of f at x using central
// differences.
func Derivative(f R1ToR1, x float64, order int) (float64, error) {
	var formula fd.Formula
	switch order {
	case 1:
		formula = fd.Central
	case 2:
		formula = fd.Central2nd
	default:
		return 0, fmt.Errorf("Derivative: unsupported order %d", order)
	}

	step := config.GetConfig().DerivativeStep
	if order == 2 {
		// Second differences lose precision quadratically in the step.
		step = math.Sqrt(step) * 1e-1
	}
	scaled := step * math.Max(1, math.Abs(x))

	var evalErr error
	g := func(v float64) float64 {
		y, err := f.Evaluate(v)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return y
	}
	d := fd.Derivative(g, x, &fd.Settings{Formula: formula, Step: scaled})
	if evalErr != nil {
		return 0, fmt.Errorf("Derivative: %w", evalErr)
	}
	return d, nil
}

// Integrate returns the integral of f over [a, b] using fixed Gauss-Legendre
// quadrature. Reversed limits negate the result.
func Integrate(f R1ToR1, a, b float64) (float64, error) {
	return IntegrateN(f, a, b, config.GetConfig().QuadratureNodes)
}

// IntegrateN is Integrate with an explicit node count.
func IntegrateN(f R1ToR1, a, b float64, nodes int) (float64, error) {
	if a == b {
		return 0, nil
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) || math.IsNaN(a) || math.IsNaN(b) {
		return 0, fmt.Errorf("Integrate: limits must be finite: %w", ErrDomain)
	}
	if nodes <= 0 {
		return 0, fmt.Errorf("Integrate: node count must be positive, got %d", nodes)
	}
	sign := 1.0
	if a > b {
		a, b = b, a
		sign = -1
	}

	var evalErr error
	g := func(v float64) float64 {
		y, err := f.Evaluate(v)
		if err != nil && evalErr == nil {
			evalErr = err
		}
		return y
	}
	v := quad.Fixed(g, a, b, nodes, quad.Legendre{}, 0)
	if evalErr != nil {
		return 0, fmt.Errorf("Integrate: %w", evalErr)
	}
	return sign * v, nil
}
