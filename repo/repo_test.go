package repo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/latent/bond"
	"github.com/meenmo/latent/utils"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

var (
	settle      = d(2025, 1, 2)
	pillarDates = []time.Time{d(2025, 2, 3), d(2025, 4, 2), d(2025, 7, 2), d(2026, 1, 2)}
	pillarRates = []float64{0.031, 0.0325, 0.034, 0.0335}
)

func tau(t time.Time) float64 {
	return utils.YearFraction(settle, t, utils.Act365F)
}

func TestFlatForward_Pillars(t *testing.T) {
	t.Parallel()

	c, err := NewFlatForwardRepoCurve(settle, pillarDates, pillarRates, utils.Act365F)
	require.NoError(t, err)

	for i, p := range pillarDates {
		assert.InDelta(t, pillarRates[i], c.Rate(p), 1e-14)
		assert.InDelta(t, math.Exp(-pillarRates[i]*tau(p)), c.DF(p), 1e-14)
	}

	// Short end and long end hold the boundary rates.
	assert.InDelta(t, pillarRates[0], c.Rate(d(2025, 1, 10)), 1e-14)
	assert.InDelta(t, pillarRates[0], c.Rate(settle), 1e-14)
	assert.InDelta(t, pillarRates[3], c.Rate(d(2030, 1, 2)), 1e-14)
	assert.Equal(t, 1.0, c.DF(settle))
}

func TestFlatForward_LogLinear(t *testing.T) {
	t.Parallel()

	c, err := NewFlatForwardRepoCurve(settle, pillarDates, pillarRates, utils.Act365F)
	require.NoError(t, err)

	// 2025-07-02 to 2026-01-02 is 184 days; 92 days in is the midpoint.
	mid := pillarDates[2].AddDate(0, 0, 92)
	want := math.Sqrt(c.DF(pillarDates[2]) * c.DF(pillarDates[3]))
	assert.InDelta(t, want, c.DF(mid), 1e-14)

	f := c.ForwardRate(mid)
	assert.InDelta(t, f, c.ForwardRate(pillarDates[2]), 1e-14)
	assert.InDelta(t, math.Log(c.DF(pillarDates[2])/c.DF(pillarDates[3]))/(tau(pillarDates[3])-tau(pillarDates[2])), f, 1e-14)
}

func TestFlatForward_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewFlatForwardRepoCurve(settle, nil, nil, utils.Act365F)
	assert.ErrorIs(t, err, ErrNoInstruments)

	_, err = NewFlatForwardRepoCurve(settle, pillarDates[:2], pillarRates[:1], utils.Act365F)
	assert.Error(t, err)

	_, err = NewFlatForwardRepoCurve(settle, []time.Time{pillarDates[1], pillarDates[0]}, pillarRates[:2], utils.Act365F)
	assert.Error(t, err)

	_, err = NewFlatForwardRepoCurve(settle, []time.Time{settle}, pillarRates[:1], utils.Act365F)
	assert.Error(t, err)

	_, err = NewFlatForwardRepoCurve(settle, pillarDates[:1], []float64{math.NaN()}, utils.Act365F)
	assert.Error(t, err)
}

func quotesFromRates(rates []float64) []RepoInstrument {
	out := make([]RepoInstrument, len(pillarDates))
	for i, p := range pillarDates {
		spot := 101.25
		out[i] = RepoInstrument{Maturity: p, Spot: spot, Forward: spot * math.Exp(rates[i]*tau(p))}
	}
	return out
}

func TestBootstrapFlatForward_NoCoupons(t *testing.T) {
	t.Parallel()

	quotes := quotesFromRates(pillarRates)
	// Unordered input is sorted by maturity.
	quotes[0], quotes[3] = quotes[3], quotes[0]

	c, err := BootstrapFlatForward(settle, quotes, utils.Act365F)
	require.NoError(t, err)
	for i, p := range pillarDates {
		assert.InDelta(t, pillarRates[i], c.Rate(p), 1e-12)
	}
	for _, q := range quotes {
		assert.InDelta(t, q.Forward, q.ForwardOn(c), 1e-9)
	}
}

func TestBootstrapFlatForward_CouponsReprice(t *testing.T) {
	t.Parallel()

	coupons := []bond.Cashflow{
		{Date: d(2025, 3, 15), Coupon: 2.0},
		{Date: d(2025, 9, 15), Coupon: 2.0},
	}
	quotes := []RepoInstrument{
		{Maturity: pillarDates[0], Spot: 101.8, Forward: 102.05, Coupons: coupons},
		{Maturity: pillarDates[1], Spot: 101.8, Forward: 100.33, Coupons: coupons},
		{Maturity: pillarDates[2], Spot: 101.8, Forward: 100.86, Coupons: coupons},
		{Maturity: pillarDates[3], Spot: 101.8, Forward: 99.71, Coupons: coupons},
	}

	c, err := BootstrapFlatForward(settle, quotes, utils.Act365F)
	require.NoError(t, err)
	for _, q := range quotes {
		assert.InDelta(t, q.Forward, q.ForwardOn(c), 1e-9, q.Maturity)
	}
	for _, n := range c.Nodes() {
		assert.Greater(t, n.DF, 0.0)
		assert.Less(t, n.DF, 1.0)
	}
}

func TestBootstrap_Errors(t *testing.T) {
	t.Parallel()

	_, err := BootstrapFlatForward(settle, nil, utils.Act365F)
	assert.ErrorIs(t, err, ErrNoInstruments)

	dup := quotesFromRates(pillarRates)
	dup[1].Maturity = dup[0].Maturity
	_, err = BootstrapFlatForward(settle, dup, utils.Act365F)
	assert.ErrorContains(t, err, "duplicate maturity")

	early := quotesFromRates(pillarRates)
	early[0].Maturity = settle
	_, err = BootstrapBasisSpline(settle, early, utils.Act365F, ClampedBSpline)
	assert.ErrorIs(t, err, ErrInvalidQuote)

	neg := quotesFromRates(pillarRates)
	neg[2].Spot = 0
	_, err = BootstrapStretch(settle, neg, utils.Act365F, 1)
	assert.ErrorIs(t, err, ErrInvalidQuote)
}

func TestImpliedRate_WithCoupon(t *testing.T) {
	t.Parallel()

	q := RepoInstrument{
		Maturity: d(2025, 7, 2),
		Spot:     101.8,
		Forward:  100.2,
		Coupons:  []bond.Cashflow{{Date: d(2025, 3, 15), Coupon: 2.5}, {Date: d(2025, 9, 15), Coupon: 2.5}},
	}
	r, err := q.ImpliedRate(settle, utils.Act365F)
	require.NoError(t, err)

	T := tau(q.Maturity)
	carried := 2.5 * math.Exp(r*utils.YearFraction(d(2025, 3, 15), q.Maturity, utils.Act365F))
	assert.InDelta(t, q.Forward, q.Spot*math.Exp(r*T)-carried, 1e-10)

	plain := RepoInstrument{Maturity: q.Maturity, Spot: 100, Forward: 101}
	r, err = plain.ImpliedRate(settle, utils.Act365F)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.01)/T, r, 1e-15)
}

func TestBasisSpline_ReproducesPillars(t *testing.T) {
	t.Parallel()

	for _, kind := range []SplineKind{ClampedBSpline, NaturalCubic} {
		c, err := NewBasisSplineRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, kind)
		require.NoError(t, err, kind)
		for i, p := range pillarDates {
			assert.InDelta(t, pillarRates[i], c.Rate(p), 1e-12, kind)
		}
		assert.InDelta(t, pillarRates[0], c.Rate(d(2025, 1, 5)), 1e-12, kind)
		assert.InDelta(t, pillarRates[3], c.Rate(d(2027, 1, 5)), 1e-12, kind)
	}
}

func TestBasisSpline_LinearRatesExact(t *testing.T) {
	t.Parallel()

	dates := []time.Time{d(2025, 2, 3), d(2025, 3, 3), d(2025, 5, 2), d(2025, 8, 1), d(2025, 11, 3), d(2026, 1, 2)}
	rates := make([]float64, len(dates))
	for i, p := range dates {
		rates[i] = 0.02 + 0.01*tau(p)
	}

	for _, kind := range []SplineKind{ClampedBSpline, NaturalCubic} {
		c, err := NewBasisSplineRepoCurve(settle, dates, rates, utils.Act365F, kind)
		require.NoError(t, err)
		for _, probe := range []time.Time{d(2025, 2, 17), d(2025, 6, 20), d(2025, 12, 1)} {
			assert.InDelta(t, 0.02+0.01*tau(probe), c.Rate(probe), 1e-12, kind)
		}
	}
}

func TestBasisSpline_FewPillars(t *testing.T) {
	t.Parallel()

	c, err := NewBasisSplineRepoCurve(settle, pillarDates[:1], pillarRates[:1], utils.Act365F, ClampedBSpline)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Degree())
	assert.InDelta(t, pillarRates[0], c.Rate(d(2026, 6, 1)), 1e-15)

	c, err = NewBasisSplineRepoCurve(settle, pillarDates[:2], pillarRates[:2], utils.Act365F, ClampedBSpline)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Degree())
	mid := d(2025, 3, 3)
	w := (tau(mid) - tau(pillarDates[0])) / (tau(pillarDates[1]) - tau(pillarDates[0]))
	assert.InDelta(t, pillarRates[0]+w*(pillarRates[1]-pillarRates[0]), c.Rate(mid), 1e-14)

	_, err = NewBasisSplineRepoCurve(settle, pillarDates[:2], pillarRates[:2], utils.Act365F, NaturalCubic)
	assert.Error(t, err)
}

func TestStretch_RepricesPillars(t *testing.T) {
	t.Parallel()

	for degree := 0; degree <= 3; degree++ {
		c, err := NewStretchRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, degree)
		require.NoError(t, err, degree)
		for i, p := range pillarDates {
			assert.InDelta(t, pillarRates[i], c.Rate(p), 1e-12, degree)
		}
		assert.InDelta(t, pillarRates[0], c.ForwardRate(settle), 1e-12, degree)
	}
}

func TestStretch_DegreeZeroIsFlatForward(t *testing.T) {
	t.Parallel()

	s, err := NewStretchRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, 0)
	require.NoError(t, err)
	f, err := NewFlatForwardRepoCurve(settle, pillarDates, pillarRates, utils.Act365F)
	require.NoError(t, err)

	for _, probe := range []time.Time{d(2025, 1, 20), d(2025, 3, 1), d(2025, 5, 17), d(2025, 10, 30)} {
		assert.InDelta(t, f.DF(probe), s.DF(probe), 1e-13, probe)
		assert.InDelta(t, f.ForwardRate(probe), s.ForwardRate(probe), 1e-12, probe)
	}
}

func TestStretch_ForwardContinuity(t *testing.T) {
	t.Parallel()

	c, err := NewStretchRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, 2)
	require.NoError(t, err)
	segs := c.Segments()
	for i := 1; i < len(segs); i++ {
		assert.InDelta(t, segs[i-1].Response(segs[i-1].Right), segs[i].Response(segs[i].Left), 1e-12)
		assert.InDelta(t, segs[i-1].Derivative(segs[i-1].Right, 1), segs[i].Derivative(segs[i].Left, 1), 1e-10)
	}
}

func TestCurve_ForwardPriceAndImpliedRepo(t *testing.T) {
	t.Parallel()

	ff, err := NewFlatForwardRepoCurve(settle, pillarDates, pillarRates, utils.Act365F)
	require.NoError(t, err)
	bs, err := NewBasisSplineRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, ClampedBSpline)
	require.NoError(t, err)
	st, err := NewStretchRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, DefaultStretchDegree)
	require.NoError(t, err)

	probe := d(2025, 9, 12)
	for _, c := range []RepoCurve{ff, bs, st} {
		fwd := c.ForwardPrice(99.5, probe)
		r, err := c.ImpliedRepo(99.5, fwd, probe)
		require.NoError(t, err, c.Kind())
		assert.InDelta(t, c.Rate(probe), r, 1e-12, c.Kind())

		_, err = c.ImpliedRepo(99.5, fwd, settle)
		assert.ErrorIs(t, err, ErrInvalidQuote)
		_, err = c.ImpliedRepo(-1, fwd, probe)
		assert.ErrorIs(t, err, ErrInvalidQuote)
	}
}

func TestFromSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	ff, err := NewFlatForwardRepoCurve(settle, pillarDates, pillarRates, utils.Act365F)
	require.NoError(t, err)
	bs, err := NewBasisSplineRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, ClampedBSpline)
	require.NoError(t, err)
	nc, err := NewBasisSplineRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, NaturalCubic)
	require.NoError(t, err)
	st, err := NewStretchRepoCurve(settle, pillarDates, pillarRates, utils.Act365F, 3)
	require.NoError(t, err)

	probe := d(2025, 5, 20)
	for _, c := range []RepoCurve{ff, bs, nc, st} {
		rebuilt, err := FromSnapshot(c.Kind(), c.Settlement(), c.DayCount(), c.Nodes())
		require.NoError(t, err, c.Kind())
		assert.Equal(t, c.Kind(), rebuilt.Kind())
		assert.InDelta(t, c.DF(probe), rebuilt.DF(probe), 1e-12, c.Kind())
	}

	_, err = FromSnapshot("hermite", settle, utils.Act365F, ff.Nodes())
	assert.ErrorIs(t, err, ErrUnknownKind)

	degree, ok := parseStretchKind(KindStretch)
	assert.True(t, ok)
	assert.Equal(t, DefaultStretchDegree, degree)
	_, ok = parseStretchKind("stretch/x")
	assert.False(t, ok)
}
