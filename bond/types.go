package bond

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Cashflow is a single dated cash payment for a bond.
//
// Amounts are per-100 of face unless a caller states otherwise.
type Cashflow struct {
	Date      time.Time
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// CashflowsFromMinorUnits converts integer minor-unit feeds (for example
// coupons stored in 1/10000 of a price point) into Cashflows. scale is the
// power of ten the integers are expressed in, so 4 divides by 10 000.
func CashflowsFromMinorUnits(dates []time.Time, coupons, principals []int64, scale int32) ([]Cashflow, error) {
	if len(dates) != len(coupons) || len(dates) != len(principals) {
		return nil, fmt.Errorf("CashflowsFromMinorUnits: length mismatch dates=%d coupons=%d principals=%d",
			len(dates), len(coupons), len(principals))
	}
	out := make([]Cashflow, len(dates))
	for i, d := range dates {
		out[i] = Cashflow{
			Date:      d,
			Coupon:    decimal.New(coupons[i], -scale).InexactFloat64(),
			Principal: decimal.New(principals[i], -scale).InexactFloat64(),
		}
	}
	return out, nil
}
