package special

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/latent/function"
)

func relDelta(t *testing.T, want, got, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	scale := math.Max(1e-300, math.Abs(want))
	assert.LessOrEqual(t, math.Abs(got-want)/scale, tol, msgAndArgs...)
}

func TestGammaFamily(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 24.0, Gamma(5), 1e-12)
	assert.InDelta(t, math.Sqrt(math.Pi), Gamma(0.5), 1e-14)

	lg, sign := LogGamma(-0.5)
	assert.Equal(t, -1, sign)
	assert.InDelta(t, math.Log(2*math.Sqrt(math.Pi)), lg, 1e-13)

	// ψ(1) = -γ
	assert.InDelta(t, -eulerGamma, Digamma(1), 1e-12)
	assert.InDelta(t, 1.0/12, Beta(2, 3), 1e-14)
	assert.InDelta(t, math.Log(1.0/12), LogBeta(2, 3), 1e-13)
}

func TestFactorialAndBinomial(t *testing.T) {
	t.Parallel()

	f, err := Factorial(10)
	require.NoError(t, err)
	assert.Equal(t, 3628800.0, f)

	f, err = Factorial(171)
	require.NoError(t, err)
	assert.True(t, math.IsInf(f, 1))

	_, err = Factorial(-1)
	assert.ErrorIs(t, err, function.ErrDomain)

	assert.Equal(t, 252.0, BinomialCoefficient(10, 5))
	assert.Equal(t, 0.0, BinomialCoefficient(5, 6))
	relDelta(t, 1.0089134454556419e29, BinomialCoefficient(100, 50), 1e-10)
}

func TestStirlingLogGamma(t *testing.T) {
	t.Parallel()

	s := StirlingLogGamma(0)
	for _, x := range []float64{8, 10, 25.5, 100} {
		want, _ := math.Lgamma(x)
		got, err := s.Evaluate(x)
		require.NoError(t, err)
		relDelta(t, want, got, 1e-14, "x=%g", x)
	}

	_, err := s.Evaluate(-1)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestRegularizedIncompleteGamma(t *testing.T) {
	t.Parallel()

	p, err := RegularizedLowerGamma(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1-math.Exp(-2), p, 1e-14)

	q, err := RegularizedUpperGamma(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-2), q, 1e-14)

	x, err := InverseRegularizedLowerGamma(3, 0.4)
	require.NoError(t, err)
	back, err := RegularizedLowerGamma(3, x)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, back, 1e-10)

	_, err = RegularizedLowerGamma(-1, 2)
	assert.ErrorIs(t, err, function.ErrDomain)
	_, err = InverseRegularizedLowerGamma(3, 1.5)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestLowerIncompleteGamma(t *testing.T) {
	t.Parallel()

	// γ(2, x) = 1 - (1+x) e^-x
	g, err := LowerIncompleteGamma(2, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 1-2.5*math.Exp(-1.5), g, 1e-14)
}

func TestUpperIncompleteGamma(t *testing.T) {
	t.Parallel()

	g, err := UpperIncompleteGamma(0.5, 2)
	require.NoError(t, err)
	relDelta(t, math.Sqrt(math.Pi)*math.Erfc(math.Sqrt(2)), g, 1e-13)

	g, err = UpperIncompleteGamma(3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, g, 1e-14)

	g, err = UpperIncompleteGamma(-1, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(g, 1))

	_, err = UpperIncompleteGamma(1, -1)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestUpperIncompleteGamma_NonPositiveOrder(t *testing.T) {
	t.Parallel()

	for _, x := range []float64{0.3, 1, 4.5} {
		e1, err := ExponentialIntegralE1(x)
		require.NoError(t, err)

		g0, err := UpperIncompleteGamma(0, x)
		require.NoError(t, err)
		relDelta(t, e1, g0, 1e-13, "s=0 x=%g", x)

		// Γ(-1, x) = e^-x/x - E1(x)
		gm1, err := UpperIncompleteGamma(-1, x)
		require.NoError(t, err)
		relDelta(t, math.Exp(-x)/x-e1, gm1, 1e-12, "s=-1 x=%g", x)

		// Γ(-1/2, x) = 2 (x^-1/2 e^-x - √π erfc(√x))
		gmh, err := UpperIncompleteGamma(-0.5, x)
		require.NoError(t, err)
		want := 2 * (math.Exp(-x)/math.Sqrt(x) - math.Sqrt(math.Pi)*math.Erfc(math.Sqrt(x)))
		relDelta(t, want, gmh, 1e-12, "s=-0.5 x=%g", x)
	}
}

func TestExponentialIntegralE1(t *testing.T) {
	t.Parallel()

	e1, err := ExponentialIntegralE1(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.21938393439552029, e1, 1e-15)

	e1, err = ExponentialIntegralE1(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.8229239584193906, e1, 1e-14)

	_, err = ExponentialIntegralE1(0)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestUpperIncompleteGammaAsymptote(t *testing.T) {
	t.Parallel()

	for _, s := range []float64{2.5, -2, -3.5} {
		x := 30.0
		exact, err := UpperIncompleteGamma(s, x)
		require.NoError(t, err)

		est, bounds, err := UpperIncompleteGammaAsymptote(s, x, 0)
		require.NoError(t, err)
		relDelta(t, exact, est, 1e-9, "s=%g", s)
		assert.LessOrEqual(t, bounds.Lower, est)
		assert.GreaterOrEqual(t, bounds.Upper, est)
	}

	// An integer s > 0 truncates the series exactly: Γ(2, x) = (1+x) e^-x.
	est, _, err := UpperIncompleteGammaAsymptote(2, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Exp(-3), est, 1e-15)

	_, _, err = UpperIncompleteGammaAsymptote(1, 0, 0)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestBesselJ(t *testing.T) {
	t.Parallel()

	j, err := BesselJ(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.J0(1), j, 1e-15)

	j, err = BesselJ(-3, -2)
	require.NoError(t, err)
	assert.InDelta(t, math.Jn(-3, -2), j, 1e-15)

	// J_1/2(x) = sqrt(2/(πx)) sin x across all three regimes.
	for _, x := range []float64{0.5, 3, 20, 75, 350} {
		want := math.Sqrt(2/(math.Pi*x)) * math.Sin(x)
		got, err := BesselJ(0.5, x)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-10, "x=%g", x)
	}

	// J_-1/2(x) = sqrt(2/(πx)) cos x
	for _, x := range []float64{2, 40} {
		want := math.Sqrt(2/(math.Pi*x)) * math.Cos(x)
		got, err := BesselJ(-0.5, x)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-10, "x=%g", x)
	}

	_, err = BesselJ(0.5, -1)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestBesselJ_IntegralMatchesIntegerOrder(t *testing.T) {
	t.Parallel()

	// The integral representation also holds for integer order.
	for _, x := range []float64{15, 60} {
		got, err := besselJIntegral(2, x)
		require.NoError(t, err)
		assert.InDelta(t, math.Jn(2, x), got, 1e-11, "x=%g", x)
	}
}

func TestBesselJAsymptote(t *testing.T) {
	t.Parallel()

	got, err := BesselJAsymptote(1, 250)
	require.NoError(t, err)
	assert.InDelta(t, math.J1(250), got, 1e-12)
}

func TestBesselY(t *testing.T) {
	t.Parallel()

	y, err := BesselY(1, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Y1(2), y, 1e-15)

	_, err = BesselY(0, 0)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestBesselI(t *testing.T) {
	t.Parallel()

	i0, err := BesselI(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.2660658777520082, i0, 1e-14)

	i1, err := BesselI(-1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5651591039924851, i1, 1e-14)

	for _, x := range []float64{0.7, 5, 20} {
		got, err := BesselI(0.5, x)
		require.NoError(t, err)
		relDelta(t, math.Sqrt(2/(math.Pi*x))*math.Sinh(x), got, 1e-13, "x=%g", x)
	}

	v, err := BesselI(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = BesselI(1, -1)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestBesselK(t *testing.T) {
	t.Parallel()

	k0, err := BesselK(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.42102443824070834, k0, 1e-13)

	k1, err := BesselK(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.6019072301972346, k1, 1e-13)

	for _, x := range []float64{0.5, 2, 30} {
		got, err := BesselK(0.5, x)
		require.NoError(t, err)
		relDelta(t, math.Sqrt(math.Pi/(2*x))*math.Exp(-x), got, 1e-12, "x=%g", x)
	}

	// K is even in its order.
	a, err := BesselK(1.3, 2)
	require.NoError(t, err)
	b, err := BesselK(-1.3, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = BesselK(0, 0)
	assert.ErrorIs(t, err, function.ErrDomain)
}

func TestErf(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Erf(0.7)+Erfc(0.7), 1e-15)
}

func TestBessel_NegativeOrderAtZero(t *testing.T) {
	t.Parallel()

	// Γ(-0.5) < 0 so J_{-1.5} and I_{-1.5} fall to -Inf; Γ(0.5) > 0.
	v, err := BesselJ(-1.5, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))

	v, err = BesselI(-1.5, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))

	v, err = BesselJ(-0.5, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	// The series agrees in sign just above zero.
	v, err = BesselJ(-1.5, 1e-6)
	require.NoError(t, err)
	assert.Less(t, v, 0.0)
}
