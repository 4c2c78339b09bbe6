package stochastic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestBrownianBridge_Moments(t *testing.T) {
	t.Parallel()

	b, err := NewBrownianBridge(0, 1, 2, 3, 0.5)
	require.NoError(t, err)

	m, err := b.Mean(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, m, 1e-15)

	v, err := b.Variance(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.25*0.5*1.5/2, v, 1e-15)

	v, err = b.Variance(2)
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = b.Mean(2.5)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewBrownianBridge(1, 0, 1, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBrownianBridge(0, 0, 1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBrownianBridge_SampleDistribution(t *testing.T) {
	t.Parallel()

	b, err := NewBrownianBridge(0, 0, 1, 1, 1)
	require.NoError(t, err)
	rng := NewSource(7)

	const n = 40000
	xs := make([]float64, n)
	for i := range xs {
		xs[i], err = b.Sample(0.25, rng)
		require.NoError(t, err)
	}
	// Mean 0.25, variance 0.1875.
	assert.InDelta(t, 0.25, stat.Mean(xs, nil), 0.01)
	assert.InDelta(t, 0.1875, stat.Variance(xs, nil), 0.01)
}

func TestBrownianBridge_Path(t *testing.T) {
	t.Parallel()

	b, err := NewBrownianBridge(1, 2, 3, -1, 0.3)
	require.NoError(t, err)

	pts, err := b.Path(5, NewSource(11))
	require.NoError(t, err)
	require.Len(t, pts, 33)
	assert.Equal(t, PathPoint{T: 1, X: 2}, pts[0])
	assert.Equal(t, PathPoint{T: 3, X: -1}, pts[32])
	for i := 1; i < len(pts); i++ {
		assert.Greater(t, pts[i].T, pts[i-1].T)
	}

	_, err = b.Path(-1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBrownianBridge_BarrierProbabilities(t *testing.T) {
	t.Parallel()

	b, err := NewBrownianBridge(0, 0, 1, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, b.MaxExceedProbability(0))
	assert.InDelta(t, math.Exp(-2), b.MaxExceedProbability(1), 1e-15)
	assert.InDelta(t, math.Exp(-2), b.MinBelowProbability(-1), 1e-15)
	assert.Equal(t, 1.0, b.MinBelowProbability(0.5))

	// Empirical check on fine paths: discrete monitoring underestimates, so
	// the analytic value is an upper bound with some slack.
	rng := NewSource(3)
	hits := 0
	const n = 4000
	for i := 0; i < n; i++ {
		pts, err := b.Path(8, rng)
		require.NoError(t, err)
		for _, p := range pts {
			if p.X >= 0.5 {
				hits++
				break
			}
		}
	}
	want := b.MaxExceedProbability(0.5)
	got := float64(hits) / n
	assert.LessOrEqual(t, got, want+0.03)
	assert.Greater(t, got, want-0.12)
}

func TestWiener(t *testing.T) {
	t.Parallel()

	w := Wiener{Drift: 0.1, Sigma: 0.2}
	path, err := w.Path(1, 0.01, 100, NewSource(5))
	require.NoError(t, err)
	require.Len(t, path, 101)
	assert.Equal(t, 1.0, path[0])

	_, err = w.Increment(0, NewSource(5))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestJumpDiffusion_Evolve(t *testing.T) {
	t.Parallel()

	j := JumpDiffusion{Drift: 0.05, Volatility: 0.2, Intensity: 1, JumpMean: -0.1, JumpVolatility: 0.15}
	r, err := j.Evolve(100, 0.5, NewSource(1))
	require.NoError(t, err)
	assert.InDelta(t, 100*math.Exp(r.Diffusive+r.JumpComponent), r.Level, 1e-9)
	if r.Jumps == 0 {
		assert.Zero(t, r.JumpComponent)
	}

	_, err = j.Evolve(100, 0, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = j.Evolve(-1, 1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	bad := j
	bad.Intensity = -1
	_, err = bad.Evolve(100, 1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestJumpDiffusion_NoJumpsIsGBM(t *testing.T) {
	t.Parallel()

	j := JumpDiffusion{Drift: 0.03, Volatility: 0.25}
	assert.InDelta(t, 0.03-0.5*0.0625, j.CompensatedDrift(), 1e-15)
	assert.Zero(t, j.MeanJumpReturn())

	p, err := MertonCall(100, 95, 0.03, 1, j, 10)
	require.NoError(t, err)
	assert.InDelta(t, BlackScholesCall(100, 95, 0.03, 0.25, 1), p, 1e-12)
}

func TestJumpDiffusion_PathLength(t *testing.T) {
	t.Parallel()

	j := JumpDiffusion{Drift: 0.05, Volatility: 0.2, Intensity: 2, JumpMean: 0.02, JumpVolatility: 0.1}
	path, err := j.Path(50, 1, 12, NewSource(9))
	require.NoError(t, err)
	require.Len(t, path, 13)
	for _, v := range path {
		assert.Greater(t, v, 0.0)
	}
	_, err = j.Path(50, 1, 0, NewSource(9))
	assert.Error(t, err)
}

func TestJumpDiffusion_MonteCarloMean(t *testing.T) {
	t.Parallel()

	j := JumpDiffusion{Drift: 0.04, Volatility: 0.2, Intensity: 1, JumpMean: -0.1, JumpVolatility: 0.15}
	sum, err := j.MonteCarlo(context.Background(), 100, 1, 4, 60000, 42)
	require.NoError(t, err)

	assert.Equal(t, 60000, sum.Paths)
	assert.InDelta(t, j.ExpectedValue(100, 1), sum.Mean, 5*sum.StdErr)
	assert.LessOrEqual(t, sum.Min, sum.P05)
	assert.LessOrEqual(t, sum.P05, sum.P50)
	assert.LessOrEqual(t, sum.P50, sum.P95)
	assert.LessOrEqual(t, sum.P95, sum.Max)
}

func TestJumpDiffusion_MonteCarloDeterministic(t *testing.T) {
	t.Parallel()

	j := JumpDiffusion{Drift: 0.01, Volatility: 0.3, Intensity: 0.5, JumpMean: 0, JumpVolatility: 0.2}
	a, err := j.SimulateTerminal(context.Background(), 10, 1, 2, 10000, 5)
	require.NoError(t, err)
	b, err := j.SimulateTerminal(context.Background(), 10, 1, 2, 10000, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestJumpDiffusion_MonteCarloCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j := JumpDiffusion{Volatility: 0.2}
	_, err := j.SimulateTerminal(ctx, 1, 1, 1, 100, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMertonCall_MatchesSimulation(t *testing.T) {
	t.Parallel()

	const rate, strike, horizon = 0.03, 100.0, 1.0
	j := JumpDiffusion{Drift: rate, Volatility: 0.2, Intensity: 0.8, JumpMean: -0.05, JumpVolatility: 0.1}

	closed, err := MertonCall(100, strike, rate, horizon, j, 0)
	require.NoError(t, err)

	terminal, err := j.SimulateTerminal(context.Background(), 100, horizon, 1, 80000, 99)
	require.NoError(t, err)
	payoffs := make([]float64, len(terminal))
	for i, s := range terminal {
		payoffs[i] = math.Exp(-rate*horizon) * math.Max(s-strike, 0)
	}
	s := Summarize(payoffs)
	assert.InDelta(t, closed, s.Mean, 5*s.StdErr)

	_, err = MertonCall(-1, strike, rate, horizon, j, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
	s := Summarize([]float64{3})
	assert.Equal(t, 1, s.Paths)
	assert.Equal(t, 3.0, s.Mean)
	assert.Zero(t, s.StdDev)
}

func TestPoisson_LargeMean(t *testing.T) {
	t.Parallel()

	rng := NewSource(21)
	for _, mean := range []float64{3, 1000, 2000} {
		const n = 400
		sum := 0
		for i := 0; i < n; i++ {
			sum += poisson(mean, rng)
		}
		assert.InDelta(t, mean, float64(sum)/n, 5*math.Sqrt(mean/n)+0.1, "mean %v", mean)
	}
	assert.Zero(t, poisson(0, rng))

	j := JumpDiffusion{Drift: 0.01, Volatility: 0.1, Intensity: 1500, JumpMean: 0, JumpVolatility: 0.001}
	r, err := j.Evolve(100, 1, rng)
	require.NoError(t, err)
	assert.InDelta(t, 1500, r.Jumps, 200)
}
