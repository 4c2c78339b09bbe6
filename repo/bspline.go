package repo

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/latent/utils"
)

// SplineKind selects how BasisSplineRepoCurve interpolates pillar rates.
type SplineKind int

const (
	// ClampedBSpline interpolates with a cubic B-spline on a clamped knot
	// vector whose interior knots are averages of the pillar times.
	ClampedBSpline SplineKind = iota
	// NaturalCubic interpolates with a natural cubic spline.
	NaturalCubic
)

func (k SplineKind) String() string {
	switch k {
	case ClampedBSpline:
		return "clamped_bspline"
	case NaturalCubic:
		return "natural_cubic"
	default:
		return fmt.Sprintf("SplineKind(%d)", int(k))
	}
}

// BasisSplineRepoCurve models the repo zero rate as a spline in curve time
// passing exactly through each pillar rate. Rates are held flat outside the
// pillar range.
type BasisSplineRepoCurve struct {
	base
	kind   SplineKind
	dates  []time.Time
	times  []float64
	rates  []float64
	degree int
	knots  []float64
	coeffs []float64
	cubic  *interp.NaturalCubic
}

var _ RepoCurve = (*BasisSplineRepoCurve)(nil)

// NewBasisSplineRepoCurve fits a spline of the given kind through the
// pillar rates. Fewer than four pillars lower the B-spline degree to
// len(dates)-1; NaturalCubic needs at least three pillars.
func NewBasisSplineRepoCurve(settlement time.Time, dates []time.Time, rates []float64, dayCount string, kind SplineKind) (*BasisSplineRepoCurve, error) {
	const fn = "NewBasisSplineRepoCurve"
	times, err := validatePillars(fn, settlement, dates, rates, dayCount)
	if err != nil {
		return nil, err
	}
	c := &BasisSplineRepoCurve{
		base:  base{settlement: settlement, dayCount: dayCount},
		kind:  kind,
		dates: append([]time.Time(nil), dates...),
		times: times,
		rates: append([]float64(nil), rates...),
	}

	switch kind {
	case ClampedBSpline:
		if err := c.fitBSpline(); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
	case NaturalCubic:
		if len(times) < 3 {
			return nil, fmt.Errorf("%s: natural cubic needs at least 3 pillars, got %d", fn, len(times))
		}
		var nc interp.NaturalCubic
		if err := nc.Fit(times, c.rates); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		c.cubic = &nc
	default:
		return nil, fmt.Errorf("%s: unsupported spline kind %v", fn, kind)
	}
	return c, nil
}

// BootstrapBasisSpline fits the spline through each instrument's implied
// repo rate.
func BootstrapBasisSpline(settlement time.Time, instruments []RepoInstrument, dayCount string, kind SplineKind) (*BasisSplineRepoCurve, error) {
	dates, rates, err := impliedPillars("BootstrapBasisSpline", settlement, instruments, dayCount)
	if err != nil {
		return nil, err
	}
	return NewBasisSplineRepoCurve(settlement, dates, rates, dayCount, kind)
}

// fitBSpline solves the collocation system B·c = r at the pillar times.
func (c *BasisSplineRepoCurve) fitBSpline() error {
	n := len(c.times)
	c.degree = 3
	if n-1 < c.degree {
		c.degree = n - 1
	}
	if c.degree == 0 {
		c.coeffs = []float64{c.rates[0]}
		return nil
	}
	c.knots = clampedKnots(c.times, c.degree)

	a := mat.NewDense(n, n, nil)
	for i, t := range c.times {
		span := findSpan(c.knots, c.degree, n, t)
		basis := basisFuns(c.knots, c.degree, span, t)
		for j, v := range basis {
			a.Set(i, span-c.degree+j, v)
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), c.rates...))); err != nil {
		return fmt.Errorf("collocation solve: %w", err)
	}
	c.coeffs = make([]float64, n)
	for i := range c.coeffs {
		c.coeffs[i] = x.AtVec(i)
	}
	return nil
}

// clampedKnots repeats each end degree+1 times and places interior knots at
// running averages of the data sites, which keeps the collocation matrix
// nonsingular.
func clampedKnots(sites []float64, degree int) []float64 {
	n := len(sites)
	knots := make([]float64, 0, n+degree+1)
	for i := 0; i <= degree; i++ {
		knots = append(knots, sites[0])
	}
	for j := 1; j <= n-degree-1; j++ {
		s := 0.0
		for i := j; i < j+degree; i++ {
			s += sites[i]
		}
		knots = append(knots, s/float64(degree))
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, sites[n-1])
	}
	return knots
}

// findSpan returns the knot span index holding x for n control points.
func findSpan(knots []float64, degree, n int, x float64) int {
	if x >= knots[n] {
		return n - 1
	}
	if x <= knots[degree] {
		return degree
	}
	lo, hi := degree, n
	mid := (lo + hi) / 2
	for x < knots[mid] || x >= knots[mid+1] {
		if x < knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// basisFuns evaluates the degree+1 nonzero B-spline basis functions on span
// by the Cox–de Boor recursion.
func basisFuns(knots []float64, degree, span int, x float64) []float64 {
	n := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)
	n[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = x - knots[span+1-j]
		right[j] = knots[span+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			temp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		n[j] = saved
	}
	return n
}

func (c *BasisSplineRepoCurve) rateAt(tau float64) float64 {
	tau = utils.Clamp(tau, c.times[0], c.times[len(c.times)-1])
	if c.kind == NaturalCubic {
		return c.cubic.Predict(tau)
	}
	if c.degree == 0 {
		return c.coeffs[0]
	}
	n := len(c.coeffs)
	span := findSpan(c.knots, c.degree, n, tau)
	basis := basisFuns(c.knots, c.degree, span, tau)
	r := 0.0
	for j, v := range basis {
		r += v * c.coeffs[span-c.degree+j]
	}
	return r
}

func (c *BasisSplineRepoCurve) Kind() Kind {
	if c.kind == NaturalCubic {
		return KindNaturalCubic
	}
	return KindBasisSpline
}

// SplineKind reports the interpolation scheme.
func (c *BasisSplineRepoCurve) SplineKind() SplineKind { return c.kind }

// Degree is the B-spline degree actually used.
func (c *BasisSplineRepoCurve) Degree() int {
	if c.kind == NaturalCubic {
		return 3
	}
	return c.degree
}

func (c *BasisSplineRepoCurve) Rate(t time.Time) float64 {
	return c.rateAt(c.tau(t))
}

func (c *BasisSplineRepoCurve) DF(t time.Time) float64 {
	tau := c.tau(t)
	if tau <= 0 {
		return 1.0
	}
	return math.Exp(-c.rateAt(tau) * tau)
}

func (c *BasisSplineRepoCurve) ForwardPrice(spot float64, t time.Time) float64 {
	return spot / c.DF(t)
}

func (c *BasisSplineRepoCurve) Nodes() []Node {
	return nodesFrom(c, c.dates)
}
