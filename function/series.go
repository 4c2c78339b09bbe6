package function

import (
	"fmt"
	"math"

	"github.com/meenmo/latent/config"
)

// SeriesTerm returns the term of the given order at x.
type SeriesTerm func(order int, x float64) (float64, error)

// Series estimates a function as the partial sum of a series. It stops when
// a term falls below Tolerance relative to the running sum, or after
// MaxTerms terms. The magnitude of the last term used bounds the tail.
//
// Asymptotic series set StopOnGrowth so that summation halts at the
// smallest term instead of diverging.
type Series struct {
	Term         SeriesTerm
	Start        int
	MaxTerms     int
	Tolerance    float64
	StopOnGrowth bool
}

// NewSeries builds a Series with the configured term cap and tolerance.
func NewSeries(term SeriesTerm, start int) *Series {
	c := config.GetConfig()
	return &Series{
		Term:      term,
		Start:     start,
		MaxTerms:  c.MaxSeriesTerms,
		Tolerance: c.SeriesTolerance,
	}
}

type seriesSum struct {
	sum  float64
	last float64
	used int
}

func (s *Series) sum(x float64) (seriesSum, error) {
	if s.Term == nil {
		return seriesSum{}, fmt.Errorf("Series: nil term")
	}
	if s.MaxTerms <= 0 {
		return seriesSum{}, fmt.Errorf("Series: MaxTerms must be positive")
	}

	var out seriesSum
	prevMag := math.Inf(1)
	for k := 0; k < s.MaxTerms; k++ {
		t, err := s.Term(s.Start+k, x)
		if err != nil {
			return seriesSum{}, fmt.Errorf("Series: term %d: %w", s.Start+k, err)
		}
		mag := math.Abs(t)
		if s.StopOnGrowth && mag > prevMag {
			break
		}
		out.sum += t
		out.last = t
		out.used++
		prevMag = mag
		if mag <= s.Tolerance*math.Abs(out.sum) || t == 0 {
			break
		}
	}
	return out, nil
}

// Evaluate implements R1ToR1.
func (s *Series) Evaluate(x float64) (float64, error) {
	r, err := s.sum(x)
	if err != nil {
		return 0, err
	}
	return r.sum, nil
}

// Bounds implements Estimator using the last term as the tail estimate.
func (s *Series) Bounds(x float64) (Bounds, error) {
	r, err := s.sum(x)
	if err != nil {
		return Bounds{}, err
	}
	tail := math.Abs(r.last)
	return Bounds{Lower: r.sum - tail, Upper: r.sum + tail}, nil
}

// Terms reports how many terms Evaluate uses at x.
func (s *Series) Terms(x float64) (int, error) {
	r, err := s.sum(x)
	if err != nil {
		return 0, err
	}
	return r.used, nil
}
