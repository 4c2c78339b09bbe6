package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/latent/utils"
)

// CarryValue is the value at `to` of the cashflows paid in (from, to],
// each reinvested at the continuously compounded rate until `to`.
func CarryValue(cfs []Cashflow, from, to time.Time, rate float64, dayCount string) float64 {
	v := 0.0
	for _, cf := range cfs {
		if !cf.Date.After(from) || cf.Date.After(to) {
			continue
		}
		tau := utils.YearFraction(cf.Date, to, dayCount)
		v += cf.Amount() * math.Exp(rate*tau)
	}
	return v
}

// CarryDerivative is d CarryValue / d rate.
func CarryDerivative(cfs []Cashflow, from, to time.Time, rate float64, dayCount string) float64 {
	v := 0.0
	for _, cf := range cfs {
		if !cf.Date.After(from) || cf.Date.After(to) {
			continue
		}
		tau := utils.YearFraction(cf.Date, to, dayCount)
		v += tau * cf.Amount() * math.Exp(rate*tau)
	}
	return v
}

// ForwardPriceFromRepo is the dirty forward price for delivery: the spot
// dirty price financed at the repo rate, less intervening cashflows carried
// to delivery at the same rate.
func ForwardPriceFromRepo(spot float64, cfs []Cashflow, settlement, delivery time.Time, rate float64, dayCount string) (float64, error) {
	if !delivery.After(settlement) {
		return 0, fmt.Errorf("ForwardPriceFromRepo: delivery %s not after settlement %s",
			utils.FormatDate(delivery), utils.FormatDate(settlement))
	}
	if spot <= 0 {
		return 0, fmt.Errorf("ForwardPriceFromRepo: spot must be positive")
	}
	tau := utils.YearFraction(settlement, delivery, dayCount)
	return spot*math.Exp(rate*tau) - CarryValue(cfs, settlement, delivery, rate, dayCount), nil
}
