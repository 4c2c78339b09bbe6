package stochastic

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const pathsPerChunk = 4096

// Summary describes a sample of simulated terminal values.
type Summary struct {
	Paths  int     `json:"paths"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	StdErr float64 `json:"std_err"`
	Min    float64 `json:"min"`
	P05    float64 `json:"p05"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// SimulateTerminal draws paths terminal levels in parallel. Chunk i is
// seeded with seed+i, so the output does not depend on scheduling.
func (j JumpDiffusion) SimulateTerminal(ctx context.Context, s0, horizon float64, steps, paths int, seed uint64) ([]float64, error) {
	if paths <= 0 {
		return nil, fmt.Errorf("SimulateTerminal: paths must be positive: %w", ErrInvalidParameter)
	}
	if steps <= 0 || !(horizon > 0) {
		return nil, fmt.Errorf("SimulateTerminal: need positive steps and horizon: %w", ErrInvalidParameter)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}

	out := make([]float64, paths)
	dt := horizon / float64(steps)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for chunk, start := 0, 0; start < paths; chunk, start = chunk+1, start+pathsPerChunk {
		chunk, start := chunk, start
		end := start + pathsPerChunk
		if end > paths {
			end = paths
		}
		g.Go(func() error {
			rng := NewSource(seed + uint64(chunk))
			for p := start; p < end; p++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				level := s0
				for s := 0; s < steps; s++ {
					r, err := j.Evolve(level, dt, rng)
					if err != nil {
						return err
					}
					level = r.Level
				}
				out[p] = level
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("SimulateTerminal: %w", err)
	}
	return out, nil
}

// MonteCarlo simulates terminal levels and summarises them.
func (j JumpDiffusion) MonteCarlo(ctx context.Context, s0, horizon float64, steps, paths int, seed uint64) (Summary, error) {
	values, err := j.SimulateTerminal(ctx, s0, horizon, steps, paths, seed)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(values), nil
}

// Summarize computes moments and empirical quantiles. The input is not modified.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Paths: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P05:   stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
		s.StdErr = s.StdDev / math.Sqrt(float64(len(sorted)))
	}
	return s
}
