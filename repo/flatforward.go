package repo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/latent/config"
	"github.com/meenmo/latent/function"
	"github.com/meenmo/latent/function/solver"
)

// FlatForwardRepoCurve interpolates discount factors log-linearly between
// pillars, i.e. the instantaneous forward repo rate is flat on each
// interval. Before the first pillar the first pillar's rate applies and
// beyond the last pillar the last pillar's rate is held flat.
type FlatForwardRepoCurve struct {
	base
	dates []time.Time
	times []float64
	dfs   []float64
}

var _ RepoCurve = (*FlatForwardRepoCurve)(nil)

// NewFlatForwardRepoCurve builds the curve from pillar rates (continuously
// compounded, decimal).
func NewFlatForwardRepoCurve(settlement time.Time, dates []time.Time, rates []float64, dayCount string) (*FlatForwardRepoCurve, error) {
	times, err := validatePillars("NewFlatForwardRepoCurve", settlement, dates, rates, dayCount)
	if err != nil {
		return nil, err
	}
	dfs := make([]float64, len(rates))
	for i, r := range rates {
		dfs[i] = math.Exp(-r * times[i])
	}
	return &FlatForwardRepoCurve{
		base:  base{settlement: settlement, dayCount: dayCount},
		dates: append([]time.Time(nil), dates...),
		times: times,
		dfs:   dfs,
	}, nil
}

// BootstrapFlatForward solves pillar discount factors in maturity order so
// that each instrument's forward reprices exactly on the curve. Coupons that
// fall inside the pillar being solved are discounted with the interpolated
// discount factor, which depends on the unknown pillar.
func BootstrapFlatForward(settlement time.Time, instruments []RepoInstrument, dayCount string) (*FlatForwardRepoCurve, error) {
	const fn = "BootstrapFlatForward"
	sorted, err := sortInstruments(fn, settlement, instruments)
	if err != nil {
		return nil, err
	}

	c := &FlatForwardRepoCurve{base: base{settlement: settlement, dayCount: dayCount}}
	for _, q := range sorted {
		df, err := c.solvePillar(q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		c.dates = append(c.dates, q.Maturity)
		c.times = append(c.times, c.tau(q.Maturity))
		c.dfs = append(c.dfs, df)
	}
	return c, nil
}

// solvePillar solves Spot − Σ c_k·D(t_k) − Forward·x = 0 for x = D(maturity).
func (c *FlatForwardRepoCurve) solvePillar(q RepoInstrument) (float64, error) {
	prevT, prevDF := 0.0, 1.0
	if n := len(c.times); n > 0 {
		prevT, prevDF = c.times[n-1], c.dfs[n-1]
	}
	endT := c.tau(q.Maturity)

	known := 0.0
	type open struct{ amount, t float64 }
	var pending []open
	for _, cf := range q.intervening(c.settlement) {
		t := c.tau(cf.Date)
		if t <= prevT {
			known += cf.Amount() * c.dfAt(t)
			continue
		}
		pending = append(pending, open{amount: cf.Amount(), t: t})
	}

	eval := func(x float64) (float64, float64) {
		v := q.Spot - known - q.Forward*x
		d := -q.Forward
		for _, p := range pending {
			df, dx := interpolateUnknownDF(p.t, prevT, prevDF, endT, x)
			v -= p.amount * df
			d -= p.amount * dx
		}
		return v, d
	}
	f := function.Pure(func(x float64) float64 { v, _ := eval(x); return v })
	df := function.Pure(func(x float64) float64 { _, d := eval(x); return d })

	guess := (q.Spot - known) / q.Forward
	for _, p := range pending {
		guess -= p.amount * prevDF / q.Forward
	}
	minDF := config.GetConfig().MinDiscountFactor
	if guess < minDF {
		guess = prevDF
	}

	res, err := solver.Newton(f, df, guess, solver.Settings{Lower: minDF, Upper: 1e3})
	if err != nil {
		return 0, fmt.Errorf("pillar %s: %w", q.Maturity.Format("2006-01-02"), err)
	}
	return res.Root, nil
}

// interpolateUnknownDF interpolates the DF at t where the right end x is
// unknown. Returns D(t) and dD(t)/dx.
func interpolateUnknownDF(t, start, dfStart, end, x float64) (float64, float64) {
	if end == start {
		return dfStart, 0
	}
	ratio := (t - start) / (end - start)
	if x <= 1e-9 {
		x = 1e-9
	}
	dfT := math.Pow(dfStart, 1.0-ratio) * math.Pow(x, ratio)
	return dfT, ratio * dfT / x
}

// dfAt evaluates the log-linear DF at curve time t.
func (c *FlatForwardRepoCurve) dfAt(t float64) float64 {
	n := len(c.times)
	if n == 0 || t <= 0 {
		return 1.0
	}
	if t <= c.times[0] {
		return math.Pow(c.dfs[0], t/c.times[0])
	}
	if t >= c.times[n-1] {
		r := -math.Log(c.dfs[n-1]) / c.times[n-1]
		return math.Exp(-r * t)
	}
	i := sort.SearchFloat64s(c.times, t)
	if c.times[i] == t {
		return c.dfs[i]
	}
	t1, t2 := c.times[i-1], c.times[i]
	df1, df2 := c.dfs[i-1], c.dfs[i]
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(t-t1))
}

func (c *FlatForwardRepoCurve) Kind() Kind { return KindFlatForward }

func (c *FlatForwardRepoCurve) DF(t time.Time) float64 {
	return c.dfAt(c.tau(t))
}

func (c *FlatForwardRepoCurve) Rate(t time.Time) float64 {
	tau := c.tau(t)
	if tau <= 0 {
		return -math.Log(c.dfs[0]) / c.times[0]
	}
	return -math.Log(c.dfAt(tau)) / tau
}

// ForwardRate is the flat instantaneous forward repo rate at t.
func (c *FlatForwardRepoCurve) ForwardRate(t time.Time) float64 {
	tau := c.tau(t)
	n := len(c.times)
	if tau < c.times[0] {
		return -math.Log(c.dfs[0]) / c.times[0]
	}
	if tau >= c.times[n-1] {
		return -math.Log(c.dfs[n-1]) / c.times[n-1]
	}
	i := sort.SearchFloat64s(c.times, tau)
	if c.times[i] == tau {
		i++
	}
	return math.Log(c.dfs[i-1]/c.dfs[i]) / (c.times[i] - c.times[i-1])
}

func (c *FlatForwardRepoCurve) ForwardPrice(spot float64, t time.Time) float64 {
	return spot / c.DF(t)
}

func (c *FlatForwardRepoCurve) Nodes() []Node {
	return nodesFrom(c, c.dates)
}

// PillarDates returns a copy of the pillar dates.
func (c *FlatForwardRepoCurve) PillarDates() []time.Time {
	return append([]time.Time(nil), c.dates...)
}
