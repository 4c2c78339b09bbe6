package stochastic

import (
	"fmt"
	"math"
)

// BrownianBridge is arithmetic Brownian motion with volatility Sigma pinned
// at (T0, X0) and (T1, X1).
type BrownianBridge struct {
	T0, X0 float64
	T1, X1 float64
	Sigma  float64
}

// PathPoint is one (time, value) node of a sampled path.
type PathPoint struct {
	T float64
	X float64
}

// NewBrownianBridge validates the end points and volatility.
func NewBrownianBridge(t0, x0, t1, x1, sigma float64) (*BrownianBridge, error) {
	if !(t1 > t0) {
		return nil, fmt.Errorf("NewBrownianBridge: t1=%g must be after t0=%g: %w", t1, t0, ErrInvalidParameter)
	}
	if !(sigma > 0) {
		return nil, fmt.Errorf("NewBrownianBridge: sigma must be positive: %w", ErrInvalidParameter)
	}
	return &BrownianBridge{T0: t0, X0: x0, T1: t1, X1: x1, Sigma: sigma}, nil
}

func (b *BrownianBridge) check(t float64) error {
	if t < b.T0 || t > b.T1 || math.IsNaN(t) {
		return fmt.Errorf("BrownianBridge: t=%g outside [%g, %g]: %w", t, b.T0, b.T1, ErrInvalidParameter)
	}
	return nil
}

// Mean is the linear interpolant of the pinned end points.
func (b *BrownianBridge) Mean(t float64) (float64, error) {
	if err := b.check(t); err != nil {
		return 0, err
	}
	w := (t - b.T0) / (b.T1 - b.T0)
	return b.X0 + w*(b.X1-b.X0), nil
}

// Variance is σ² (t-T0)(T1-t)/(T1-T0).
func (b *BrownianBridge) Variance(t float64) (float64, error) {
	if err := b.check(t); err != nil {
		return 0, err
	}
	return b.Sigma * b.Sigma * (t - b.T0) * (b.T1 - t) / (b.T1 - b.T0), nil
}

// Sample draws the bridge value at t.
func (b *BrownianBridge) Sample(t float64, rng Source) (float64, error) {
	m, err := b.Mean(t)
	if err != nil {
		return 0, err
	}
	v, _ := b.Variance(t)
	return m + math.Sqrt(v)*rng.NormFloat64(), nil
}

// Path samples 2^levels+1 equally spaced points by dyadic midpoint
// refinement. The end points are the pinned values.
func (b *BrownianBridge) Path(levels int, rng Source) ([]PathPoint, error) {
	if levels < 0 || levels > 24 {
		return nil, fmt.Errorf("BrownianBridge.Path: levels=%d out of range: %w", levels, ErrInvalidParameter)
	}
	n := 1 << levels
	h := (b.T1 - b.T0) / float64(n)
	pts := make([]PathPoint, n+1)
	for i := range pts {
		pts[i].T = b.T0 + float64(i)*h
	}
	pts[0].X = b.X0
	pts[n].X = b.X1
	pts[n].T = b.T1

	for step := n; step > 1; step /= 2 {
		half := step / 2
		// Conditional variance of a midpoint given both neighbours.
		sd := b.Sigma * math.Sqrt(float64(step)*h/4)
		for left := 0; left < n; left += step {
			right := left + step
			pts[left+half].X = 0.5*(pts[left].X+pts[right].X) + sd*rng.NormFloat64()
		}
	}
	return pts, nil
}

// MaxExceedProbability is the probability that the bridge reaches barrier
// somewhere on [T0, T1].
func (b *BrownianBridge) MaxExceedProbability(barrier float64) float64 {
	if barrier <= math.Max(b.X0, b.X1) {
		return 1
	}
	return math.Exp(-2 * (barrier - b.X0) * (barrier - b.X1) / (b.Sigma * b.Sigma * (b.T1 - b.T0)))
}

// MinBelowProbability is the probability that the bridge falls to barrier
// somewhere on [T0, T1].
func (b *BrownianBridge) MinBelowProbability(barrier float64) float64 {
	if barrier >= math.Min(b.X0, b.X1) {
		return 1
	}
	return math.Exp(-2 * (b.X0 - barrier) * (b.X1 - barrier) / (b.Sigma * b.Sigma * (b.T1 - b.T0)))
}
