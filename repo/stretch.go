package repo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/latent/curve/stretch"
)

// DefaultStretchDegree gives continuous, once differentiable forwards.
const DefaultStretchDegree = 2

// StretchRepoCurve represents the instantaneous forward repo rate as a
// stretch of local polynomials on [0, τ1, ..., τn]. Segment i integrates to
// the pillar's log discount factor increment, so pillar rates reprice
// exactly. The forward is held flat beyond the last pillar.
type StretchRepoCurve struct {
	base
	dates   []time.Time
	stretch *stretch.Stretch
}

var _ RepoCurve = (*StretchRepoCurve)(nil)

// StretchKind is the snapshot kind for a stretch curve of the given degree.
func StretchKind(degree int) Kind {
	return Kind(fmt.Sprintf("%s/%d", KindStretch, degree))
}

func parseStretchKind(k Kind) (int, bool) {
	s := string(k)
	if s == string(KindStretch) {
		return DefaultStretchDegree, true
	}
	rest, ok := strings.CutPrefix(s, string(KindStretch)+"/")
	if !ok {
		return 0, false
	}
	d, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return d, true
}

// NewStretchRepoCurve calibrates the forward stretch to pillar rates. The
// forward at settlement starts at the first pillar rate.
func NewStretchRepoCurve(settlement time.Time, dates []time.Time, rates []float64, dayCount string, degree int) (*StretchRepoCurve, error) {
	const fn = "NewStretchRepoCurve"
	times, err := validatePillars(fn, settlement, dates, rates, dayCount)
	if err != nil {
		return nil, err
	}
	knots := append([]float64{0}, times...)
	s, err := stretch.New(knots, degree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	constraints := make([]stretch.Constraint, len(times))
	prev := 0.0
	for i, r := range rates {
		logDF := r * times[i]
		constraints[i] = stretch.IntegralOf(logDF - prev)
		prev = logDF
	}
	if err := s.Calibrate(rates[0], constraints); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &StretchRepoCurve{
		base:    base{settlement: settlement, dayCount: dayCount},
		dates:   append([]time.Time(nil), dates...),
		stretch: s,
	}, nil
}

// BootstrapStretch calibrates through each instrument's implied repo rate.
func BootstrapStretch(settlement time.Time, instruments []RepoInstrument, dayCount string, degree int) (*StretchRepoCurve, error) {
	dates, rates, err := impliedPillars("BootstrapStretch", settlement, instruments, dayCount)
	if err != nil {
		return nil, err
	}
	return NewStretchRepoCurve(settlement, dates, rates, dayCount, degree)
}

func (c *StretchRepoCurve) Kind() Kind { return StretchKind(c.stretch.Degree()) }

// logDF is −ln D(τ), the integrated forward.
func (c *StretchRepoCurve) logDF(tau float64) float64 {
	v, _ := c.stretch.Integral(0, tau)
	return v
}

func (c *StretchRepoCurve) DF(t time.Time) float64 {
	tau := c.tau(t)
	if tau <= 0 {
		return 1.0
	}
	return math.Exp(-c.logDF(tau))
}

func (c *StretchRepoCurve) Rate(t time.Time) float64 {
	tau := c.tau(t)
	if tau <= 0 {
		return c.ForwardRate(t)
	}
	return c.logDF(tau) / tau
}

// ForwardRate is the instantaneous forward repo rate at t.
func (c *StretchRepoCurve) ForwardRate(t time.Time) float64 {
	v, _ := c.stretch.Response(c.tau(t))
	return v
}

func (c *StretchRepoCurve) ForwardPrice(spot float64, t time.Time) float64 {
	return spot / c.DF(t)
}

func (c *StretchRepoCurve) Nodes() []Node {
	return nodesFrom(c, c.dates)
}

// Segments exposes the calibrated forward segments.
func (c *StretchRepoCurve) Segments() []stretch.Segment {
	return c.stretch.Segments()
}
