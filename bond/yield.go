package bond

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/latent/function"
	"github.com/meenmo/latent/function/solver"
	"github.com/meenmo/latent/utils"
)

// ForwardYieldInput holds the parameters needed to compute the yield of a
// bond for forward delivery. The clean forward price is either given
// directly or implied by a futures price and the bond's conversion factor.
type ForwardYieldInput struct {
	// SettlementDate is the forward delivery date.
	SettlementDate time.Time
	// ForwardPrice is the clean forward price per 100.
	ForwardPrice float64
	// FuturesPrice is the bond futures price; used with ConversionFactor
	// when ForwardPrice is zero.
	FuturesPrice float64
	// ConversionFactor is the exchange-published conversion factor of the
	// delivered bond.
	ConversionFactor float64
	// CouponRate is the annual coupon in percent (e.g. 2.5 for 2.5%).
	CouponRate float64
	// CouponFrequency is coupons per year (1 = annual, 2 = semi-annual).
	CouponFrequency int
	// Cashflows are the remaining cash flows *after* delivery, per 100.
	Cashflows []Cashflow
}

// ForwardYieldResult is the output of ComputeForwardYield.
type ForwardYieldResult struct {
	// ForwardYield is the annualised yield in percent (e.g. 2.83),
	// compounded CouponFrequency times a year.
	ForwardYield float64
	// ForwardPrice is the clean forward price used (per-100).
	ForwardPrice float64
	// InvoicePrice is the clean forward price plus accrued interest (per-100).
	InvoicePrice float64
	// AccruedInterest is the accrued coupon at delivery (per-100).
	AccruedInterest float64
	// Iterations is the number of Newton-Raphson steps taken.
	Iterations int
}

const (
	yieldTolerance = 1e-12
	yieldMaxIter   = 100
	yieldFloor     = -0.05
	yieldCeiling   = 0.50
)

// ComputeForwardYield solves for the yield y such that the dirty-price
// function (ACT/ACT ICMA discounting) equals the invoice price at delivery.
//
// The solver uses Newton-Raphson with analytic first derivative.
func ComputeForwardYield(in ForwardYieldInput) (ForwardYieldResult, error) {
	if in.SettlementDate.IsZero() {
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: SettlementDate is required")
	}
	if len(in.Cashflows) == 0 {
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: Cashflows are required")
	}
	if in.CouponFrequency <= 0 {
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: CouponFrequency must be positive")
	}

	cleanPrice, err := forwardCleanPrice(in)
	if err != nil {
		return ForwardYieldResult{}, err
	}

	freq := float64(in.CouponFrequency)
	prevCoupon := previousCoupon(in.Cashflows[0].Date, in.CouponFrequency)
	daysPeriod := daysBetween(prevCoupon, in.Cashflows[0].Date)
	accruedInterest := AccruedInterest(in.SettlementDate, in.Cashflows[0].Date, in.CouponRate, in.CouponFrequency)
	invoicePrice := cleanPrice + accruedInterest

	t1 := float64(daysBetween(in.SettlementDate, in.Cashflows[0].Date)) / float64(daysPeriod)
	f := function.Pure(func(y float64) float64 {
		p, _ := dirtyPriceAndDeriv(y, freq, t1, in.Cashflows)
		return p - invoicePrice
	})
	df := function.Pure(func(y float64) float64 {
		_, d := dirtyPriceAndDeriv(y, freq, t1, in.Cashflows)
		return d
	})

	res, err := solver.Newton(f, df, 0.025, solver.Settings{
		Tolerance:     yieldTolerance,
		MaxIterations: yieldMaxIter,
		Lower:         yieldFloor,
		Upper:         yieldCeiling,
	})
	if err != nil {
		if errors.Is(err, function.ErrNotConverged) {
			return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: did not converge after %d iterations: %w", res.Iterations, err)
		}
		return ForwardYieldResult{}, fmt.Errorf("ComputeForwardYield: %w", err)
	}

	return ForwardYieldResult{
		ForwardYield:    res.Root * 100.0, // decimal → percent
		ForwardPrice:    cleanPrice,
		InvoicePrice:    invoicePrice,
		AccruedInterest: accruedInterest,
		Iterations:      res.Iterations,
	}, nil
}

// forwardCleanPrice returns ForwardPrice, or FuturesPrice × ConversionFactor
// for a futures delivery.
func forwardCleanPrice(in ForwardYieldInput) (float64, error) {
	switch {
	case in.ForwardPrice != 0 && in.FuturesPrice != 0:
		return 0, fmt.Errorf("ComputeForwardYield: set either ForwardPrice or FuturesPrice, not both")
	case in.FuturesPrice != 0:
		if in.ConversionFactor <= 0 {
			return 0, fmt.Errorf("ComputeForwardYield: ConversionFactor must be positive with FuturesPrice")
		}
		return in.FuturesPrice * in.ConversionFactor, nil
	case in.ForwardPrice != 0:
		return in.ForwardPrice, nil
	default:
		return 0, fmt.Errorf("ComputeForwardYield: ForwardPrice or FuturesPrice is required")
	}
}

// AccruedInterest is the ACT/ACT ICMA accrued coupon per 100 at settlement,
// given the next coupon date. The previous coupon date is one period earlier.
func AccruedInterest(settlement, nextCoupon time.Time, couponRate float64, frequency int) float64 {
	if frequency <= 0 {
		return 0
	}
	prev := previousCoupon(nextCoupon, frequency)
	period := daysBetween(prev, nextCoupon)
	if period <= 0 {
		return 0
	}
	return couponRate / float64(frequency) * float64(daysBetween(prev, settlement)) / float64(period)
}

func previousCoupon(next time.Time, frequency int) time.Time {
	return utils.AddMonth(next, -12/frequency)
}

// dirtyPriceAndDeriv returns (price, dPrice/dy) using ACT/ACT ICMA, with y
// the annual yield compounded f times a year and t_k counted in periods.
//
//	t_k  = t_1 + (k − 1)
//	price = Σ CF_k / (1+y/f)^t_k
//	dP/dy = Σ −(t_k/f) · CF_k / (1+y/f)^(t_k+1)
func dirtyPriceAndDeriv(y, f, t1 float64, cfs []Cashflow) (float64, float64) {
	var price, deriv float64
	base := 1.0 + y/f
	for i, cf := range cfs {
		t := t1 + float64(i)
		amt := cf.Amount()
		price += amt / math.Pow(base, t)
		deriv += -t / f * amt / math.Pow(base, t+1)
	}
	return price, deriv
}

// daysBetween returns the number of calendar days from start to end (ACT).
func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
