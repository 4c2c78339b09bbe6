package stochastic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesCall prices a European call on a lognormal underlying.
func BlackScholesCall(spot, strike, rate, vol, t float64) float64 {
	if t <= 0 || vol <= 0 {
		return math.Max(spot-strike*math.Exp(-rate*math.Max(t, 0)), 0)
	}
	sq := vol * math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*t) / sq
	d2 := d1 - sq
	return spot*distuv.UnitNormal.CDF(d1) - strike*math.Exp(-rate*t)*distuv.UnitNormal.CDF(d2)
}

// MertonCall is the Poisson mixture of Black-Scholes prices for a call under
// the jump diffusion with risk-neutral Drift = rate. The mixture is cut after
// terms Poisson weights, or earlier once the weights are negligible.
func MertonCall(spot, strike, rate, t float64, j JumpDiffusion, terms int) (float64, error) {
	if spot <= 0 || strike <= 0 || t <= 0 {
		return 0, fmt.Errorf("MertonCall: spot, strike and t must be positive: %w", ErrInvalidParameter)
	}
	if err := j.Validate(); err != nil {
		return 0, err
	}
	if terms <= 0 {
		terms = 100
	}

	k := j.MeanJumpReturn()
	lam := j.Intensity * (1 + k) * t
	price := 0.0
	weight := math.Exp(-lam)
	cumulative := 0.0
	for n := 0; n < terms; n++ {
		if n > 0 {
			weight *= lam / float64(n)
		}
		fn := float64(n)
		vol := math.Sqrt(j.Volatility*j.Volatility + fn*j.JumpVolatility*j.JumpVolatility/t)
		r := rate - j.Intensity*k + fn*math.Log(1+k)/t
		price += weight * BlackScholesCall(spot, strike, r, vol, t)
		cumulative += weight
		if 1-cumulative < 1e-16 && float64(n) > lam {
			break
		}
	}
	return price, nil
}
