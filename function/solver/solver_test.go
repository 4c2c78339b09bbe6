package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/latent/function"
)

var cubic = function.Pure(func(x float64) float64 { return x*x*x - 2*x - 5 })

const cubicRoot = 2.0945514815423265

func TestNewton(t *testing.T) {
	t.Parallel()

	df := function.Pure(func(x float64) float64 { return 3*x*x - 2 })
	res, err := Newton(cubic, df, 2, Settings{})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, cubicRoot, res.Root, 1e-10)
}

func TestNewton_Damping(t *testing.T) {
	t.Parallel()

	// Undamped Newton on atan diverges from |x0| > 1.39.
	f := function.Pure(math.Atan)
	df := function.Pure(func(x float64) float64 { return 1 / (1 + x*x) })

	res, err := Newton(f, df, 1.5, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Root, 1e-10)

	_, err = Newton(f, df, 1.5, Settings{Damping: -1})
	assert.ErrorIs(t, err, function.ErrNotConverged)
}

func TestNewton_FlatDerivative(t *testing.T) {
	t.Parallel()

	f := function.Pure(func(x float64) float64 { return 1 })
	df := function.Pure(func(x float64) float64 { return 0 })
	_, err := Newton(f, df, 0, Settings{})
	assert.ErrorIs(t, err, function.ErrNotConverged)
}

func TestNewtonNumeric(t *testing.T) {
	t.Parallel()

	res, err := NewtonNumeric(cubic, 2, Settings{Tolerance: 1e-10})
	require.NoError(t, err)
	assert.InDelta(t, cubicRoot, res.Root, 1e-8)
}

func TestBisection(t *testing.T) {
	t.Parallel()

	res, err := Bisection(cubic, 2, 3, Settings{Tolerance: 1e-12, MaxIterations: 200})
	require.NoError(t, err)
	assert.InDelta(t, cubicRoot, res.Root, 1e-10)

	_, err = Bisection(cubic, 3, 4, Settings{})
	assert.ErrorIs(t, err, function.ErrBadBracket)

	_, err = Bisection(cubic, 4, 3, Settings{})
	assert.ErrorIs(t, err, function.ErrBadBracket)
}

func TestBrent(t *testing.T) {
	t.Parallel()

	res, err := Brent(cubic, 2, 3, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, cubicRoot, res.Root, 1e-10)
	assert.Less(t, res.Iterations, 50)

	cos := function.Pure(math.Cos)
	res, err = Brent(cos, 0, 3, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, res.Root, 1e-10)
}

func TestBrent_EndpointRoot(t *testing.T) {
	t.Parallel()

	f := function.Pure(func(x float64) float64 { return x - 1 })
	res, err := Brent(f, 1, 2, Settings{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Root)
	assert.Equal(t, 0, res.Iterations)
}

func TestBracket(t *testing.T) {
	t.Parallel()

	lo, hi, err := Bracket(cubic, 0, 0.5, 50)
	require.NoError(t, err)
	flo, _ := cubic.Evaluate(lo)
	fhi, _ := cubic.Evaluate(hi)
	assert.NotEqual(t, math.Signbit(flo), math.Signbit(fhi))

	positive := function.Pure(func(x float64) float64 { return x*x + 1 })
	_, _, err = Bracket(positive, 0, 1, 5)
	assert.ErrorIs(t, err, function.ErrBadBracket)
}
