package repo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/latent/bond"
	"github.com/meenmo/latent/function"
	"github.com/meenmo/latent/function/solver"
	"github.com/meenmo/latent/utils"
)

// RepoInstrument is a forward (or repo) quote on a bond: the dirty price
// today and the dirty forward price for delivery at Maturity. Coupons paid
// before Maturity are passed through to the holder and carried.
type RepoInstrument struct {
	Maturity time.Time
	Spot     float64
	Forward  float64
	Coupons  []bond.Cashflow
}

func (q RepoInstrument) validate(settlement time.Time) error {
	if !q.Maturity.After(settlement) {
		return fmt.Errorf("maturity %s not after settlement %s: %w",
			utils.FormatDate(q.Maturity), utils.FormatDate(settlement), ErrInvalidQuote)
	}
	if q.Spot <= 0 || q.Forward <= 0 {
		return fmt.Errorf("maturity %s: spot %g forward %g: %w",
			utils.FormatDate(q.Maturity), q.Spot, q.Forward, ErrInvalidQuote)
	}
	return nil
}

// intervening returns the coupons paid in (settlement, maturity].
func (q RepoInstrument) intervening(settlement time.Time) []bond.Cashflow {
	var out []bond.Cashflow
	for _, cf := range q.Coupons {
		if cf.Date.After(settlement) && !cf.Date.After(q.Maturity) {
			out = append(out, cf)
		}
	}
	return out
}

// ImpliedRate is the standalone repo rate r with
//
//	Spot·e^{rτ} = Forward + Σ c_k·e^{r(T−t_k)}
//
// i.e. intervening coupons are reinvested at r itself.
func (q RepoInstrument) ImpliedRate(settlement time.Time, dayCount string) (float64, error) {
	if err := q.validate(settlement); err != nil {
		return 0, fmt.Errorf("ImpliedRate: %w", err)
	}
	tau := utils.YearFraction(settlement, q.Maturity, dayCount)
	cfs := q.intervening(settlement)
	if len(cfs) == 0 {
		return math.Log(q.Forward/q.Spot) / tau, nil
	}

	paid := 0.0
	for _, cf := range cfs {
		paid += cf.Amount()
	}
	if q.Forward+paid <= 0 {
		return 0, fmt.Errorf("ImpliedRate: carried value not positive: %w", ErrInvalidQuote)
	}
	guess := math.Log((q.Forward+paid)/q.Spot) / tau

	f := function.Pure(func(r float64) float64 {
		return q.Spot*math.Exp(r*tau) - bond.CarryValue(cfs, settlement, q.Maturity, r, dayCount) - q.Forward
	})
	df := function.Pure(func(r float64) float64 {
		return q.Spot*tau*math.Exp(r*tau) - bond.CarryDerivative(cfs, settlement, q.Maturity, r, dayCount)
	})
	res, err := solver.Newton(f, df, guess, solver.Settings{})
	if err != nil {
		return 0, fmt.Errorf("ImpliedRate: %w", err)
	}
	return res.Root, nil
}

// ForwardOn is the dirty forward price the curve implies for this bond,
// with intervening coupons discounted on the same curve.
func (q RepoInstrument) ForwardOn(c RepoCurve) float64 {
	pv := q.Spot
	for _, cf := range q.intervening(c.Settlement()) {
		pv -= cf.Amount() * c.DF(cf.Date)
	}
	return pv / c.DF(q.Maturity)
}

// sortInstruments validates and orders quotes by maturity.
func sortInstruments(fn string, settlement time.Time, instruments []RepoInstrument) ([]RepoInstrument, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("%s: %w", fn, ErrNoInstruments)
	}
	out := append([]RepoInstrument(nil), instruments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Maturity.Before(out[j].Maturity) })
	for i, q := range out {
		if err := q.validate(settlement); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		if i > 0 && q.Maturity.Equal(out[i-1].Maturity) {
			return nil, fmt.Errorf("%s: duplicate maturity %s", fn, utils.FormatDate(q.Maturity))
		}
	}
	return out, nil
}

// impliedPillars turns quotes into (date, standalone implied rate) pillars.
func impliedPillars(fn string, settlement time.Time, instruments []RepoInstrument, dayCount string) ([]time.Time, []float64, error) {
	sorted, err := sortInstruments(fn, settlement, instruments)
	if err != nil {
		return nil, nil, err
	}
	dates := make([]time.Time, len(sorted))
	rates := make([]float64, len(sorted))
	for i, q := range sorted {
		r, err := q.ImpliedRate(settlement, dayCount)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", fn, err)
		}
		dates[i] = q.Maturity
		rates[i] = r
	}
	return dates, rates, nil
}
