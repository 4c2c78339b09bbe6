// Package repo builds repo (secured funding) curves from forward and repo
// quotes on bonds. Rates are continuously compounded and annualised on the
// curve day count.
package repo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/latent/utils"
)

var (
	// ErrNoInstruments is returned when a bootstrap has nothing to fit.
	ErrNoInstruments = errors.New("repo: no instruments")
	// ErrInvalidQuote marks a quote that cannot be priced.
	ErrInvalidQuote = errors.New("repo: invalid quote")
	// ErrUnknownKind is returned by FromSnapshot for unrecognised curve kinds.
	ErrUnknownKind = errors.New("repo: unknown curve kind")
)

// Kind names a curve construction so snapshots can be rebuilt.
type Kind string

const (
	KindFlatForward  Kind = "flat_forward"
	KindBasisSpline  Kind = "basis_spline"
	KindNaturalCubic Kind = "natural_cubic"
	KindStretch      Kind = "stretch"
)

// Node is a curve pillar as stored in a snapshot.
type Node struct {
	Date time.Time `json:"date" msgpack:"date"`
	Rate float64   `json:"rate" msgpack:"rate"`
	DF   float64   `json:"df" msgpack:"df"`
}

// RepoCurve is a term structure of repo rates.
type RepoCurve interface {
	Settlement() time.Time
	DayCount() string
	Kind() Kind
	// Rate is the continuously compounded repo rate from settlement to t.
	Rate(t time.Time) float64
	DF(t time.Time) float64
	// ForwardPrice is spot financed to t on the curve.
	ForwardPrice(spot float64, t time.Time) float64
	// ImpliedRepo is the rate that carries spot to forward over (settlement, t].
	ImpliedRepo(spot, forward float64, t time.Time) (float64, error)
	Nodes() []Node
}

type base struct {
	settlement time.Time
	dayCount   string
}

func (b base) Settlement() time.Time { return b.settlement }

func (b base) DayCount() string { return b.dayCount }

func (b base) tau(t time.Time) float64 {
	return utils.YearFraction(b.settlement, t, b.dayCount)
}

func (b base) ImpliedRepo(spot, forward float64, t time.Time) (float64, error) {
	if spot <= 0 || forward <= 0 {
		return 0, fmt.Errorf("ImpliedRepo: spot %g forward %g: %w", spot, forward, ErrInvalidQuote)
	}
	tau := b.tau(t)
	if tau <= 0 {
		return 0, fmt.Errorf("ImpliedRepo: %s not after settlement: %w", utils.FormatDate(t), ErrInvalidQuote)
	}
	return math.Log(forward/spot) / tau, nil
}

// validatePillars checks a pillar set and returns curve times per date.
func validatePillars(fn string, settlement time.Time, dates []time.Time, rates []float64, dayCount string) ([]float64, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%s: %w", fn, ErrNoInstruments)
	}
	if len(dates) != len(rates) {
		return nil, fmt.Errorf("%s: %d dates for %d rates", fn, len(dates), len(rates))
	}
	if !utils.StrictlyIncreasing(dates) {
		return nil, fmt.Errorf("%s: pillar dates must be strictly increasing", fn)
	}
	if !dates[0].After(settlement) {
		return nil, fmt.Errorf("%s: first pillar %s not after settlement %s", fn,
			utils.FormatDate(dates[0]), utils.FormatDate(settlement))
	}
	times := make([]float64, len(dates))
	for i, d := range dates {
		if math.IsNaN(rates[i]) || math.IsInf(rates[i], 0) {
			return nil, fmt.Errorf("%s: rate at %s is not finite", fn, utils.FormatDate(d))
		}
		times[i] = utils.YearFraction(settlement, d, dayCount)
	}
	return times, nil
}

func nodesFrom(c RepoCurve, dates []time.Time) []Node {
	out := make([]Node, len(dates))
	for i, d := range dates {
		out[i] = Node{Date: d, Rate: c.Rate(d), DF: c.DF(d)}
	}
	return out
}

// FromSnapshot rebuilds a curve of the given kind from stored nodes.
func FromSnapshot(kind Kind, settlement time.Time, dayCount string, nodes []Node) (RepoCurve, error) {
	dates := make([]time.Time, len(nodes))
	rates := make([]float64, len(nodes))
	for i, n := range nodes {
		dates[i] = n.Date
		rates[i] = n.Rate
	}
	switch {
	case kind == KindFlatForward:
		return NewFlatForwardRepoCurve(settlement, dates, rates, dayCount)
	case kind == KindBasisSpline:
		return NewBasisSplineRepoCurve(settlement, dates, rates, dayCount, ClampedBSpline)
	case kind == KindNaturalCubic:
		return NewBasisSplineRepoCurve(settlement, dates, rates, dayCount, NaturalCubic)
	default:
		if degree, ok := parseStretchKind(kind); ok {
			return NewStretchRepoCurve(settlement, dates, rates, dayCount, degree)
		}
		return nil, fmt.Errorf("FromSnapshot: %q: %w", kind, ErrUnknownKind)
	}
}
