// Package solver finds roots of one-dimensional functions.
package solver

import (
	"fmt"
	"math"

	"github.com/meenmo/latent/config"
	"github.com/meenmo/latent/function"
)

// Result is the outcome of a root search.
type Result struct {
	Root          float64
	FunctionValue float64
	Iterations    int
	Converged     bool
}

// Settings bounds a root search. Zero values take the configured defaults.
type Settings struct {
	Tolerance     float64
	MaxIterations int
	// Lower and Upper clamp Newton iterates when Lower < Upper.
	Lower float64
	Upper float64
	// Damping caps a Newton step at Damping * max(1, |x|). Zero takes the
	// configured DampingFactor; negative disables it.
	Damping float64
}

func (s Settings) resolve() Settings {
	c := config.GetConfig()
	if s.Tolerance <= 0 {
		s.Tolerance = c.ConvergenceTolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = c.MaxIterations
	}
	if s.Damping == 0 {
		s.Damping = c.DampingFactor
	}
	return s
}

func (s Settings) damp(delta, x float64) float64 {
	if s.Damping <= 0 {
		return delta
	}
	limit := s.Damping * math.Max(1, math.Abs(x))
	if math.Abs(delta) > limit {
		return math.Copysign(limit, delta)
	}
	return delta
}

func (s Settings) clamp(x float64) float64 {
	if s.Lower < s.Upper {
		if x < s.Lower {
			return s.Lower
		}
		if x > s.Upper {
			return s.Upper
		}
	}
	return x
}

// Newton finds y with f(y) = 0 via Newton-Raphson with analytic derivative.
func Newton(f, df function.R1ToR1, guess float64, s Settings) (Result, error) {
	s = s.resolve()
	threshold := config.GetConfig().DerivativeThreshold

	x := s.clamp(guess)
	for iter := 0; iter < s.MaxIterations; iter++ {
		fx, err := f.Evaluate(x)
		if err != nil {
			return Result{}, fmt.Errorf("Newton: %w", err)
		}
		if math.Abs(fx) < s.Tolerance {
			return Result{Root: x, FunctionValue: fx, Iterations: iter + 1, Converged: true}, nil
		}
		dfx, err := df.Evaluate(x)
		if err != nil {
			return Result{}, fmt.Errorf("Newton: derivative: %w", err)
		}
		if math.Abs(dfx) < threshold || math.IsNaN(dfx) {
			return Result{Root: x, FunctionValue: fx, Iterations: iter + 1},
				fmt.Errorf("Newton: derivative too small at iter %d: %w", iter, function.ErrNotConverged)
		}
		x = s.clamp(x - s.damp(fx/dfx, x))
	}

	fx, _ := f.Evaluate(x)
	return Result{Root: x, FunctionValue: fx, Iterations: s.MaxIterations},
		fmt.Errorf("Newton: no convergence after %d iterations: %w", s.MaxIterations, function.ErrNotConverged)
}

// NewtonNumeric runs Newton with a finite-difference derivative.
func NewtonNumeric(f function.R1ToR1, guess float64, s Settings) (Result, error) {
	df := function.Func(func(x float64) (float64, error) {
		return function.Derivative(f, x, 1)
	})
	return Newton(f, df, guess, s)
}

// Bisection halves [lo, hi] until the bracket or |f| is within tolerance.
func Bisection(f function.R1ToR1, lo, hi float64, s Settings) (Result, error) {
	s = s.resolve()
	flo, _, done, res, err := checkBracket(f, lo, hi)
	if err != nil || done {
		return res, err
	}

	for iter := 0; iter < s.MaxIterations; iter++ {
		mid := 0.5 * (lo + hi)
		fmid, err := f.Evaluate(mid)
		if err != nil {
			return Result{}, fmt.Errorf("Bisection: %w", err)
		}
		if math.Abs(fmid) < s.Tolerance || 0.5*(hi-lo) < s.Tolerance {
			return Result{Root: mid, FunctionValue: fmid, Iterations: iter + 1, Converged: true}, nil
		}
		if math.Signbit(fmid) == math.Signbit(flo) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	mid := 0.5 * (lo + hi)
	fmid, _ := f.Evaluate(mid)
	return Result{Root: mid, FunctionValue: fmid, Iterations: s.MaxIterations},
		fmt.Errorf("Bisection: no convergence after %d iterations: %w", s.MaxIterations, function.ErrNotConverged)
}

// Brent finds a root in [lo, hi] with the Brent-Dekker method.
func Brent(f function.R1ToR1, lo, hi float64, s Settings) (Result, error) {
	s = s.resolve()
	fa, fb, done, res, err := checkBracket(f, lo, hi)
	if err != nil || done {
		return res, err
	}

	a, b := lo, hi
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}
	c, fc := a, fa
	d := b - a
	mflag := true

	for iter := 0; iter < s.MaxIterations; iter++ {
		if math.Abs(fb) < s.Tolerance || math.Abs(b-a) < s.Tolerance {
			return Result{Root: b, FunctionValue: fb, Iterations: iter + 1, Converged: true}, nil
		}

		var x float64
		if fa != fc && fb != fc {
			// Inverse quadratic interpolation.
			x = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			x = b - fb*(b-a)/(fb-fa)
		}

		lowEdge := (3*a + b) / 4
		outside := (x < math.Min(lowEdge, b) || x > math.Max(lowEdge, b))
		if outside ||
			(mflag && math.Abs(x-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(x-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < s.Tolerance) ||
			(!mflag && math.Abs(c-d) < s.Tolerance) {
			x = 0.5 * (a + b)
			mflag = true
		} else {
			mflag = false
		}

		fx, err := f.Evaluate(x)
		if err != nil {
			return Result{}, fmt.Errorf("Brent: %w", err)
		}
		d = c
		c, fc = b, fb
		if math.Signbit(fa) != math.Signbit(fx) {
			b, fb = x, fx
		} else {
			a, fa = x, fx
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}

	return Result{Root: b, FunctionValue: fb, Iterations: s.MaxIterations},
		fmt.Errorf("Brent: no convergence after %d iterations: %w", s.MaxIterations, function.ErrNotConverged)
}

// Bracket expands [guess-step, guess+step] geometrically until f changes sign.
func Bracket(f function.R1ToR1, guess, step float64, maxExpansions int) (float64, float64, error) {
	if step <= 0 {
		return 0, 0, fmt.Errorf("Bracket: step must be positive")
	}
	lo, hi := guess-step, guess+step
	flo, err := f.Evaluate(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("Bracket: %w", err)
	}
	fhi, err := f.Evaluate(hi)
	if err != nil {
		return 0, 0, fmt.Errorf("Bracket: %w", err)
	}
	for i := 0; i < maxExpansions; i++ {
		if flo == 0 || fhi == 0 || math.Signbit(flo) != math.Signbit(fhi) {
			return lo, hi, nil
		}
		step *= 1.6
		if math.Abs(flo) < math.Abs(fhi) {
			lo -= step
			if flo, err = f.Evaluate(lo); err != nil {
				return 0, 0, fmt.Errorf("Bracket: %w", err)
			}
		} else {
			hi += step
			if fhi, err = f.Evaluate(hi); err != nil {
				return 0, 0, fmt.Errorf("Bracket: %w", err)
			}
		}
	}
	if flo == 0 || fhi == 0 || math.Signbit(flo) != math.Signbit(fhi) {
		return lo, hi, nil
	}
	return 0, 0, fmt.Errorf("Bracket: no sign change after %d expansions: %w", maxExpansions, function.ErrBadBracket)
}

// checkBracket evaluates the end points; done is set when an end point is a root.
func checkBracket(f function.R1ToR1, lo, hi float64) (flo, fhi float64, done bool, res Result, err error) {
	if !(lo < hi) {
		return 0, 0, false, Result{}, fmt.Errorf("invalid interval [%g, %g]: %w", lo, hi, function.ErrBadBracket)
	}
	if flo, err = f.Evaluate(lo); err != nil {
		return 0, 0, false, Result{}, err
	}
	if flo == 0 {
		return flo, 0, true, Result{Root: lo, Iterations: 0, Converged: true}, nil
	}
	if fhi, err = f.Evaluate(hi); err != nil {
		return 0, 0, false, Result{}, err
	}
	if fhi == 0 {
		return flo, fhi, true, Result{Root: hi, Iterations: 0, Converged: true}, nil
	}
	if math.Signbit(flo) == math.Signbit(fhi) {
		return 0, 0, false, Result{}, fmt.Errorf("f(%g)=%g, f(%g)=%g: %w", lo, flo, hi, fhi, function.ErrBadBracket)
	}
	return flo, fhi, false, Result{}, nil
}
