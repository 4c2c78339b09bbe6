// Package stretch builds a latent-state curve over a sequence of knots by
// calibrating one local polynomial segment at a time.
package stretch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/latent/utils"
)

// ErrNotCalibrated is returned when a stretch is queried before Calibrate.
var ErrNotCalibrated = errors.New("stretch: not calibrated")

// ConstraintKind selects what a segment's calibration constraint pins.
type ConstraintKind int

const (
	// ValueAt pins the response at X inside the segment.
	ValueAt ConstraintKind = iota
	// Integral pins the integral of the response across the segment.
	Integral
)

// Constraint is the calibration target for one segment.
type Constraint struct {
	Kind  ConstraintKind
	X     float64
	Value float64
}

// Value returns a ValueAt constraint.
func Value(x, v float64) Constraint {
	return Constraint{Kind: ValueAt, X: x, Value: v}
}

// IntegralOf returns an Integral constraint.
func IntegralOf(v float64) Constraint {
	return Constraint{Kind: Integral, Value: v}
}

// Segment is p(x) = Σ c_i (x - Left)^i on [Left, Right].
type Segment struct {
	Left         float64
	Right        float64
	Coefficients []float64
}

// Response evaluates the segment polynomial.
func (s Segment) Response(x float64) float64 {
	u := x - s.Left
	v := 0.0
	for i := len(s.Coefficients) - 1; i >= 0; i-- {
		v = v*u + s.Coefficients[i]
	}
	return v
}

// Derivative evaluates the order-th derivative of the segment polynomial.
func (s Segment) Derivative(x float64, order int) float64 {
	u := x - s.Left
	v := 0.0
	for i := len(s.Coefficients) - 1; i >= order; i-- {
		v = v*u + s.Coefficients[i]*fallingFactorial(i, order)
	}
	return v
}

// Integral integrates the polynomial from Left to x.
func (s Segment) Integral(x float64) float64 {
	u := x - s.Left
	v := 0.0
	for i := len(s.Coefficients) - 1; i >= 0; i-- {
		v = v*u + s.Coefficients[i]/float64(i+1)
	}
	return v * u
}

// Stretch is a sequence of polynomial segments of a common degree. Segments
// after the first are C^(degree-1) continuous with their predecessor.
type Stretch struct {
	knots    []float64
	degree   int
	segments []Segment
}

// New prepares a stretch over strictly increasing knots.
func New(knots []float64, degree int) (*Stretch, error) {
	if len(knots) < 2 {
		return nil, fmt.Errorf("stretch.New: need at least 2 knots, got %d", len(knots))
	}
	for i := 1; i < len(knots); i++ {
		if !(knots[i] > knots[i-1]) {
			return nil, fmt.Errorf("stretch.New: knots must be strictly increasing at index %d", i)
		}
	}
	if degree < 0 || degree > 8 {
		return nil, fmt.Errorf("stretch.New: degree %d out of range [0, 8]", degree)
	}
	return &Stretch{knots: append([]float64(nil), knots...), degree: degree}, nil
}

// Calibrate fits every segment in order. The first segment starts at left
// with vanishing derivatives of order two and above; each later segment
// inherits value and derivatives up to degree-1 from its predecessor and
// spends its last degree of freedom on its constraint. Degree zero segments
// carry no continuity, only their constraint.
func (s *Stretch) Calibrate(left float64, constraints []Constraint) error {
	n := len(s.knots) - 1
	if len(constraints) != n {
		return fmt.Errorf("stretch.Calibrate: %d constraints for %d segments", len(constraints), n)
	}

	segments := make([]Segment, n)
	size := s.degree + 1
	for i := 0; i < n; i++ {
		seg := Segment{Left: s.knots[i], Right: s.knots[i+1]}
		h := seg.Right - seg.Left

		a := mat.NewDense(size, size, nil)
		b := mat.NewVecDense(size, nil)
		row := 0

		if s.degree > 0 {
			if i == 0 {
				// value pin and natural start
				a.Set(row, 0, 1)
				b.SetVec(row, left)
				row++
				for m := 2; m <= s.degree; m++ {
					a.Set(row, m, 1)
					row++
				}
			} else {
				prev := segments[i-1]
				for m := 0; m < s.degree; m++ {
					a.Set(row, m, fallingFactorial(m, m))
					b.SetVec(row, prev.Derivative(prev.Right, m))
					row++
				}
			}
		}

		c := constraints[i]
		switch c.Kind {
		case ValueAt:
			if !(c.X > seg.Left && c.X <= seg.Right) {
				return fmt.Errorf("stretch.Calibrate: segment %d constraint x=%g outside (%g, %g]", i, c.X, seg.Left, seg.Right)
			}
			u := c.X - seg.Left
			for j := 0; j < size; j++ {
				a.Set(row, j, math.Pow(u, float64(j)))
			}
		case Integral:
			for j := 0; j < size; j++ {
				a.Set(row, j, math.Pow(h, float64(j+1))/float64(j+1))
			}
		default:
			return fmt.Errorf("stretch.Calibrate: segment %d unknown constraint kind %d", i, c.Kind)
		}
		b.SetVec(row, c.Value)

		var x mat.VecDense
		if err := x.SolveVec(a, b); err != nil {
			return fmt.Errorf("stretch.Calibrate: segment %d: %w", i, err)
		}
		seg.Coefficients = make([]float64, size)
		for j := range seg.Coefficients {
			seg.Coefficients[j] = x.AtVec(j)
		}
		segments[i] = seg
	}
	s.segments = segments
	return nil
}

// Calibrated reports whether Calibrate has succeeded.
func (s *Stretch) Calibrated() bool {
	return len(s.segments) > 0
}

// Span returns the first and last knots.
func (s *Stretch) Span() (float64, float64) {
	return s.knots[0], s.knots[len(s.knots)-1]
}

// Degree is the segment polynomial degree.
func (s *Stretch) Degree() int {
	return s.degree
}

// Knots returns a copy of the knot vector.
func (s *Stretch) Knots() []float64 {
	return append([]float64(nil), s.knots...)
}

// Segments returns copies of the calibrated segments.
func (s *Stretch) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		seg.Coefficients = append([]float64(nil), seg.Coefficients...)
		out[i] = seg
	}
	return out
}

func (s *Stretch) segmentAt(x float64) Segment {
	return s.segments[utils.BracketIndex(s.knots, x)]
}

// Response evaluates the stretch, extrapolating flat beyond the end knots.
func (s *Stretch) Response(x float64) (float64, error) {
	if !s.Calibrated() {
		return 0, ErrNotCalibrated
	}
	lo, hi := s.Span()
	x = utils.Clamp(x, lo, hi)
	return s.segmentAt(x).Response(x), nil
}

// Derivative evaluates the order-th derivative; it is zero in the flat
// extrapolation regions.
func (s *Stretch) Derivative(x float64, order int) (float64, error) {
	if !s.Calibrated() {
		return 0, ErrNotCalibrated
	}
	if order < 0 {
		return 0, fmt.Errorf("stretch.Derivative: negative order %d", order)
	}
	if order == 0 {
		return s.Response(x)
	}
	lo, hi := s.Span()
	if x < lo || x > hi {
		return 0, nil
	}
	return s.segmentAt(x).Derivative(x, order), nil
}

// Integral integrates the response from a to b.
func (s *Stretch) Integral(a, b float64) (float64, error) {
	if !s.Calibrated() {
		return 0, ErrNotCalibrated
	}
	return s.cumulative(b) - s.cumulative(a), nil
}

// cumulative is ∫ from the first knot to x, including flat extrapolation.
func (s *Stretch) cumulative(x float64) float64 {
	lo, hi := s.Span()
	if x <= lo {
		return (x - lo) * s.segments[0].Response(lo)
	}
	total := 0.0
	for _, seg := range s.segments {
		if x <= seg.Right {
			return total + seg.Integral(x)
		}
		total += seg.Integral(seg.Right)
	}
	last := s.segments[len(s.segments)-1]
	return total + (x-hi)*last.Response(hi)
}

// fallingFactorial is i (i-1) ... (i-m+1).
func fallingFactorial(i, m int) float64 {
	f := 1.0
	for k := 0; k < m; k++ {
		f *= float64(i - k)
	}
	return f
}
