// Package quotes decodes repo curve quote sets and builds curves from them.
//
// Rates are quoted in percent, bond amounts in 1/10000 of a price point,
// matching the cashflow feeds the tools consume.
package quotes

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/meenmo/latent/bond"
	"github.com/meenmo/latent/calendar"
	"github.com/meenmo/latent/repo"
	"github.com/meenmo/latent/utils"
)

// Curve methods.
const (
	MethodFlatForward  = "flat_forward"
	MethodBasisSpline  = "basis_spline"
	MethodNaturalCubic = "natural_cubic"
	MethodStretch      = "stretch"
)

// minorUnitScale is the power of ten of cashflow amounts.
const minorUnitScale = 4

// CurveQuotes describes one curve to build.
type CurveQuotes struct {
	TaskID     string `json:"task_id,omitempty"`
	Name       string `json:"name"`
	Settlement string `json:"settlement_date,omitempty"`
	// TradeDate with SpotLagDays gives the settlement date when
	// settlement_date is omitted.
	TradeDate   string           `json:"trade_date,omitempty"`
	SpotLagDays int              `json:"spot_lag_days,omitempty"`
	DayCount    string           `json:"day_count"`
	Method      string           `json:"method"`
	Degree      *int             `json:"degree,omitempty"`
	Calendar    string           `json:"calendar,omitempty"`
	Pillars     []PillarJSON     `json:"pillars,omitempty"`
	Instruments []InstrumentJSON `json:"instruments,omitempty"`
}

// PillarJSON is a repo rate (percent) at a date or tenor.
type PillarJSON struct {
	Date  string  `json:"date,omitempty"`
	Tenor string  `json:"tenor,omitempty"`
	Rate  float64 `json:"rate"`
}

// InstrumentJSON is a spot/forward quote on a bond.
type InstrumentJSON struct {
	Maturity string         `json:"maturity,omitempty"`
	Tenor    string         `json:"tenor,omitempty"`
	Spot     float64        `json:"spot"`
	Forward  float64        `json:"forward"`
	Coupons  []CashflowJSON `json:"coupons,omitempty"`
}

// CashflowJSON carries amounts in minor units.
type CashflowJSON struct {
	Date      string `json:"date"`
	Coupon    int64  `json:"coupon"`
	Principal int64  `json:"principal"`
}

// LoadFile reads a quotes file holding one CurveQuotes or an array.
func LoadFile(path string) ([]CurveQuotes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quotes.LoadFile: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var out []CurveQuotes
		if err := sonnet.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("quotes.LoadFile: %w", err)
		}
		return out, nil
	}
	var one CurveQuotes
	if err := sonnet.Unmarshal([]byte(trimmed), &one); err != nil {
		return nil, fmt.Errorf("quotes.LoadFile: %w", err)
	}
	return []CurveQuotes{one}, nil
}

// CalendarID is the holiday calendar the quotes roll dates on.
func (q CurveQuotes) CalendarID() calendar.CalendarID {
	cal := calendar.CalendarID(strings.ToUpper(strings.TrimSpace(q.Calendar)))
	if cal == "" {
		return calendar.WeekendsOnly
	}
	return cal
}

// SettlementDate is settlement_date when given, else trade_date moved
// spot_lag_days business days forward (or rolled to the next business day
// for a zero lag).
func (q CurveQuotes) SettlementDate() (time.Time, error) {
	if q.Settlement != "" {
		d, err := utils.ParseDate(q.Settlement)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid settlement_date: %w", err)
		}
		return d, nil
	}
	if q.TradeDate == "" {
		return time.Time{}, fmt.Errorf("settlement_date or trade_date is required")
	}
	trade, err := utils.ParseDate(q.TradeDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trade_date: %w", err)
	}
	if q.SpotLagDays < 0 {
		return time.Time{}, fmt.Errorf("spot_lag_days must not be negative")
	}
	cal := q.CalendarID()
	if q.SpotLagDays == 0 {
		return calendar.AdjustFollowing(cal, trade), nil
	}
	return calendar.AddBusinessDays(cal, trade, q.SpotLagDays), nil
}

// Build constructs the curve the quotes describe.
func Build(q CurveQuotes) (repo.RepoCurve, error) {
	settlement, err := q.SettlementDate()
	if err != nil {
		return nil, err
	}
	dayCount, err := utils.ValidateDayCount(q.DayCount)
	if err != nil {
		return nil, err
	}
	cal := q.CalendarID()
	method := strings.ToLower(strings.TrimSpace(q.Method))
	if method == "" {
		method = MethodFlatForward
	}
	degree := repo.DefaultStretchDegree
	if q.Degree != nil {
		degree = *q.Degree
	}

	switch {
	case len(q.Pillars) > 0 && len(q.Instruments) > 0:
		return nil, fmt.Errorf("%s: give pillars or instruments, not both", q.Name)
	case len(q.Pillars) > 0:
		dates := make([]time.Time, len(q.Pillars))
		rates := make([]float64, len(q.Pillars))
		for i, p := range q.Pillars {
			d, err := resolveDate(settlement, cal, p.Date, p.Tenor)
			if err != nil {
				return nil, fmt.Errorf("pillar %d: %w", i, err)
			}
			dates[i] = d
			rates[i] = p.Rate / 100.0
		}
		switch method {
		case MethodFlatForward:
			return repo.NewFlatForwardRepoCurve(settlement, dates, rates, dayCount)
		case MethodBasisSpline:
			return repo.NewBasisSplineRepoCurve(settlement, dates, rates, dayCount, repo.ClampedBSpline)
		case MethodNaturalCubic:
			return repo.NewBasisSplineRepoCurve(settlement, dates, rates, dayCount, repo.NaturalCubic)
		case MethodStretch:
			return repo.NewStretchRepoCurve(settlement, dates, rates, dayCount, degree)
		}
	case len(q.Instruments) > 0:
		instruments, err := toInstruments(settlement, cal, q.Instruments)
		if err != nil {
			return nil, err
		}
		switch method {
		case MethodFlatForward:
			return repo.BootstrapFlatForward(settlement, instruments, dayCount)
		case MethodBasisSpline:
			return repo.BootstrapBasisSpline(settlement, instruments, dayCount, repo.ClampedBSpline)
		case MethodNaturalCubic:
			return repo.BootstrapBasisSpline(settlement, instruments, dayCount, repo.NaturalCubic)
		case MethodStretch:
			return repo.BootstrapStretch(settlement, instruments, dayCount, degree)
		}
	default:
		return nil, fmt.Errorf("%s: %w", q.Name, repo.ErrNoInstruments)
	}
	return nil, fmt.Errorf("unknown method %q", q.Method)
}

func toInstruments(settlement time.Time, cal calendar.CalendarID, in []InstrumentJSON) ([]repo.RepoInstrument, error) {
	out := make([]repo.RepoInstrument, len(in))
	for i, q := range in {
		maturity, err := resolveDate(settlement, cal, q.Maturity, q.Tenor)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: %w", i, err)
		}
		coupons, err := ToCashflows(q.Coupons)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: %w", i, err)
		}
		out[i] = repo.RepoInstrument{Maturity: maturity, Spot: q.Spot, Forward: q.Forward, Coupons: coupons}
	}
	return out, nil
}

// ToCashflows converts minor-unit cashflows.
func ToCashflows(in []CashflowJSON) ([]bond.Cashflow, error) {
	if len(in) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, len(in))
	coupons := make([]int64, len(in))
	principals := make([]int64, len(in))
	for i, cf := range in {
		d, err := utils.ParseDate(cf.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid cashflow date %s: %w", cf.Date, err)
		}
		dates[i], coupons[i], principals[i] = d, cf.Coupon, cf.Principal
	}
	return bond.CashflowsFromMinorUnits(dates, coupons, principals, minorUnitScale)
}

// resolveDate takes an explicit date, or settlement plus tenor. Day and week
// tenors roll Following, month and year tenors Modified Following.
func resolveDate(settlement time.Time, cal calendar.CalendarID, date, tenor string) (time.Time, error) {
	if date != "" {
		return utils.ParseDate(date)
	}
	if tenor == "" {
		return time.Time{}, fmt.Errorf("date or tenor is required")
	}
	d, err := utils.AddTenor(settlement, tenor)
	if err != nil {
		return time.Time{}, err
	}
	unit := strings.ToUpper(strings.TrimSpace(tenor))
	switch unit[len(unit)-1:] {
	case "D", "W":
		return calendar.AdjustFollowing(cal, d), nil
	}
	return calendar.Adjust(cal, d), nil
}
