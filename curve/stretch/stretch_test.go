package stretch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrate_LinearReproducesLine(t *testing.T) {
	t.Parallel()

	line := func(x float64) float64 { return 2 + 3*x }
	knots := []float64{0, 0.5, 1.5, 4}
	s, err := New(knots, 1)
	require.NoError(t, err)

	var cons []Constraint
	for _, k := range knots[1:] {
		cons = append(cons, Value(k, line(k)))
	}
	require.NoError(t, s.Calibrate(line(0), cons))

	for _, x := range []float64{0, 0.2, 0.5, 1, 2.7, 4} {
		v, err := s.Response(x)
		require.NoError(t, err)
		assert.InDelta(t, line(x), v, 1e-12, "x=%g", x)

		d, err := s.Derivative(x, 1)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, d, 1e-12, "x=%g", x)
	}

	// ∫_0^4 (2 + 3x) dx = 8 + 24
	integral, err := s.Integral(0, 4)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, integral, 1e-12)
}

func TestCalibrate_FlatExtrapolation(t *testing.T) {
	t.Parallel()

	s, err := New([]float64{1, 2}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Calibrate(1, []Constraint{Value(2, 3)}))

	v, err := s.Response(-5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = s.Response(10)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-14)

	d, err := s.Derivative(10, 1)
	require.NoError(t, err)
	assert.Zero(t, d)

	// ∫_0^3: 1 (flat) + 2 (segment) + 3 (flat)
	integral, err := s.Integral(0, 3)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, integral, 1e-12)
}

func TestCalibrate_CubicContinuity(t *testing.T) {
	t.Parallel()

	knots := []float64{0, 1, 2, 3, 5}
	s, err := New(knots, 3)
	require.NoError(t, err)

	f := func(x float64) float64 { return math.Log1p(x) }
	var cons []Constraint
	for _, k := range knots[1:] {
		cons = append(cons, Value(k, f(k)))
	}
	require.NoError(t, s.Calibrate(f(0), cons))

	segs := s.Segments()
	require.Len(t, segs, 4)
	for i := 1; i < len(segs); i++ {
		x := segs[i].Left
		for m := 0; m < 3; m++ {
			assert.InDelta(t, segs[i-1].Derivative(x, m), segs[i].Derivative(x, m), 1e-9, "knot %d order %d", i, m)
		}
	}
	for _, k := range knots {
		v, err := s.Response(k)
		require.NoError(t, err)
		assert.InDelta(t, f(k), v, 1e-10, "knot %g", k)
	}

	// Natural start.
	d2, err := s.Derivative(0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0, d2, 1e-12)
}

func TestCalibrate_IntegralConstraints(t *testing.T) {
	t.Parallel()

	knots := []float64{0, 1, 3, 6}
	targets := []float64{0.02, 0.05, 0.09}

	s, err := New(knots, 0)
	require.NoError(t, err)
	require.NoError(t, s.Calibrate(0, []Constraint{IntegralOf(0.02), IntegralOf(0.05), IntegralOf(0.09)}))
	v, err := s.Response(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, v, 1e-15)

	s1, err := New(knots, 1)
	require.NoError(t, err)
	require.NoError(t, s1.Calibrate(0.02, []Constraint{IntegralOf(targets[0]), IntegralOf(targets[1]), IntegralOf(targets[2])}))
	for i := range targets {
		got, err := s1.Integral(knots[i], knots[i+1])
		require.NoError(t, err)
		assert.InDelta(t, targets[i], got, 1e-14, "segment %d", i)
	}
}

func TestNewAndCalibrate_Errors(t *testing.T) {
	t.Parallel()

	_, err := New([]float64{1}, 1)
	assert.Error(t, err)
	_, err = New([]float64{1, 1}, 1)
	assert.Error(t, err)
	_, err = New([]float64{0, 1}, -1)
	assert.Error(t, err)

	s, err := New([]float64{0, 1, 2}, 1)
	require.NoError(t, err)

	_, err = s.Response(0.5)
	assert.ErrorIs(t, err, ErrNotCalibrated)

	assert.Error(t, s.Calibrate(0, []Constraint{Value(1, 1)}))
	assert.Error(t, s.Calibrate(0, []Constraint{Value(1.5, 1), Value(2, 1)}))
	assert.Error(t, s.Calibrate(0, []Constraint{Value(1, 1), {Kind: ConstraintKind(9)}}))
	assert.False(t, s.Calibrated())
}
