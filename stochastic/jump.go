package stochastic

import (
	"fmt"
	"math"
)

// JumpDiffusion is the Merton model: geometric Brownian motion with drift
// Drift and volatility Volatility, plus Poisson(Intensity) jumps whose log
// sizes are Normal(JumpMean, JumpVolatility²). Drift is the total expected
// growth rate, so the jump compensator is removed from the diffusion.
type JumpDiffusion struct {
	Drift          float64
	Volatility     float64
	Intensity      float64
	JumpMean       float64
	JumpVolatility float64
}

// Realization is one evolution step.
type Realization struct {
	Level         float64
	Jumps         int
	Diffusive     float64 // log contribution of the diffusion
	JumpComponent float64 // log contribution of the jumps
}

// Validate checks the parameter domain.
func (j JumpDiffusion) Validate() error {
	switch {
	case j.Volatility < 0 || math.IsNaN(j.Volatility):
		return fmt.Errorf("JumpDiffusion: negative volatility: %w", ErrInvalidParameter)
	case j.Intensity < 0 || math.IsNaN(j.Intensity):
		return fmt.Errorf("JumpDiffusion: negative intensity: %w", ErrInvalidParameter)
	case j.JumpVolatility < 0 || math.IsNaN(j.JumpVolatility):
		return fmt.Errorf("JumpDiffusion: negative jump volatility: %w", ErrInvalidParameter)
	}
	return nil
}

// MeanJumpReturn is k = E[e^Y] - 1.
func (j JumpDiffusion) MeanJumpReturn() float64 {
	return math.Exp(j.JumpMean+0.5*j.JumpVolatility*j.JumpVolatility) - 1
}

// CompensatedDrift is the log drift of the diffusion part,
// Drift - σ²/2 - λk.
func (j JumpDiffusion) CompensatedDrift() float64 {
	return j.Drift - 0.5*j.Volatility*j.Volatility - j.Intensity*j.MeanJumpReturn()
}

// ExpectedValue is E[S_t] = s0 e^(Drift t).
func (j JumpDiffusion) ExpectedValue(s0, t float64) float64 {
	return s0 * math.Exp(j.Drift*t)
}

// Evolve advances level by dt. The transition is exact for any dt.
func (j JumpDiffusion) Evolve(level, dt float64, rng Source) (Realization, error) {
	if !(dt > 0) {
		return Realization{}, fmt.Errorf("JumpDiffusion.Evolve: dt must be positive: %w", ErrInvalidParameter)
	}
	if !(level > 0) {
		return Realization{}, fmt.Errorf("JumpDiffusion.Evolve: level must be positive: %w", ErrInvalidParameter)
	}
	if err := j.Validate(); err != nil {
		return Realization{}, err
	}

	diffusive := j.CompensatedDrift()*dt + j.Volatility*math.Sqrt(dt)*rng.NormFloat64()
	n := poisson(j.Intensity*dt, rng)
	jumps := 0.0
	if n > 0 {
		// Sum of n iid normals.
		fn := float64(n)
		jumps = j.JumpMean*fn + j.JumpVolatility*math.Sqrt(fn)*rng.NormFloat64()
	}
	return Realization{
		Level:         level * math.Exp(diffusive+jumps),
		Jumps:         n,
		Diffusive:     diffusive,
		JumpComponent: jumps,
	}, nil
}

// Path returns steps+1 levels on an even grid over horizon.
func (j JumpDiffusion) Path(s0, horizon float64, steps int, rng Source) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("JumpDiffusion.Path: steps must be positive: %w", ErrInvalidParameter)
	}
	dt := horizon / float64(steps)
	out := make([]float64, steps+1)
	out[0] = s0
	for i := 1; i <= steps; i++ {
		r, err := j.Evolve(out[i-1], dt, rng)
		if err != nil {
			return nil, err
		}
		out[i] = r.Level
	}
	return out, nil
}
