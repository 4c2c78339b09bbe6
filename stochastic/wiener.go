package stochastic

import (
	"fmt"
	"math"
)

// Wiener is arithmetic Brownian motion dX = Drift dt + Sigma dW.
type Wiener struct {
	Drift float64
	Sigma float64
}

// Increment draws X(t+dt) - X(t).
func (w Wiener) Increment(dt float64, rng Source) (float64, error) {
	if !(dt > 0) {
		return 0, fmt.Errorf("Wiener.Increment: dt must be positive: %w", ErrInvalidParameter)
	}
	return w.Drift*dt + w.Sigma*math.Sqrt(dt)*rng.NormFloat64(), nil
}

// Path returns steps+1 values starting at x0.
func (w Wiener) Path(x0, dt float64, steps int, rng Source) ([]float64, error) {
	if steps < 0 {
		return nil, fmt.Errorf("Wiener.Path: negative steps: %w", ErrInvalidParameter)
	}
	out := make([]float64, steps+1)
	out[0] = x0
	for i := 1; i <= steps; i++ {
		inc, err := w.Increment(dt, rng)
		if err != nil {
			return nil, err
		}
		out[i] = out[i-1] + inc
	}
	return out, nil
}
