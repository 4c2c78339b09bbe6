package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/meenmo/latent/bond"
	"github.com/meenmo/latent/internal/cliio"
	"github.com/meenmo/latent/internal/quotes"
	"github.com/meenmo/latent/utils"
)

// yieldInput prices a bond for forward delivery from a quoted clean forward
// price, a futures price with conversion factor, or a dirty spot price
// financed at a repo rate.
type yieldInput struct {
	TaskID           string                `json:"task_id,omitempty"`
	TradeDate        string                `json:"trade_date,omitempty"`
	SettlementDate   string                `json:"settlement_date"`
	ForwardPrice     float64               `json:"forward_price,omitempty"`
	FuturesPrice     float64               `json:"futures_price,omitempty"`
	ConversionFactor float64               `json:"conversion_factor,omitempty"`
	Spot             float64               `json:"spot,omitempty"`
	RepoRate         float64               `json:"repo_rate,omitempty"` // percent
	RepoDayCount     string                `json:"repo_day_count,omitempty"`
	CouponRate       float64               `json:"coupon_rate"`
	DayCount         string                `json:"day_count"`
	CouponFrequency  int                   `json:"coupon_frequency"`
	Cashflows        []quotes.CashflowJSON `json:"cashflows"`
}

type yieldOutput struct {
	TaskID          string  `json:"task_id,omitempty"`
	SettlementDate  string  `json:"settlement_date,omitempty"`
	FuturesPrice    float64 `json:"futures_price,omitempty"`
	ForwardPrice    float64 `json:"forward_price,omitempty"`
	InvoicePrice    float64 `json:"invoice_price,omitempty"`
	AccruedInterest float64 `json:"accrued_interest,omitempty"`
	ForwardYield    float64 `json:"forward_yield,omitempty"`
	Iterations      int     `json:"iterations,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	configPath := flag.String("config", "", "YAML config with solver numerics")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: fwdyield -input <path> [-config <path>]")
		fmt.Fprintln(os.Stderr, "Compute the yield of a bond for forward delivery from a forward price, a futures price and conversion factor, or a spot price and repo rate.")
		return
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" && cliio.StdinIsTerminal() {
		fmt.Fprintln(os.Stderr, "Usage: fwdyield -input <path>")
		os.Exit(2)
	}
	if err := cliio.LoadNumerics(*configPath); err != nil {
		cliio.ExitError(fmt.Sprintf("load config: %v", err))
	}

	raw, err := cliio.ReadInput(path)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("read input: %v", err))
	}

	inputs, isArray, err := cliio.ParseInputs[yieldInput](raw)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("parse JSON: %v", err))
	}

	hadError := false
	outputs := make([]yieldOutput, 0, len(inputs))
	for _, in := range inputs {
		out, err := process(in)
		if err != nil {
			hadError = true
			outputs = append(outputs, yieldOutput{TaskID: in.TaskID, Error: err.Error()})
			continue
		}
		outputs = append(outputs, *out)
	}

	if err := cliio.Write(os.Stdout, outputs, isArray); err != nil {
		cliio.ExitError(fmt.Sprintf("encode output: %v", err))
	}
	if hadError {
		os.Exit(1)
	}
}

func process(in yieldInput) (*yieldOutput, error) {
	settlement, err := utils.ParseDate(in.SettlementDate)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement_date: %v", err)
	}
	if in.DayCount != "" && !strings.EqualFold(in.DayCount, utils.ActAct) {
		return nil, fmt.Errorf("unsupported day_count %q (only ACT/ACT)", in.DayCount)
	}

	cfs, err := quotes.ToCashflows(in.Cashflows)
	if err != nil {
		return nil, err
	}
	// Cashflows paid on or before delivery belong to the repo leg.
	var carried, remaining []bond.Cashflow
	for _, cf := range cfs {
		if cf.Date.After(settlement) {
			remaining = append(remaining, cf)
		} else {
			carried = append(carried, cf)
		}
	}
	if len(remaining) == 0 {
		return nil, fmt.Errorf("no cashflows after settlement_date")
	}

	forward := in.ForwardPrice
	if forward == 0 && in.FuturesPrice == 0 {
		forward, err = forwardFromRepo(in, settlement, carried, remaining[0].Date)
		if err != nil {
			return nil, err
		}
	}

	res, err := bond.ComputeForwardYield(bond.ForwardYieldInput{
		SettlementDate:   settlement,
		ForwardPrice:     forward,
		FuturesPrice:     in.FuturesPrice,
		ConversionFactor: in.ConversionFactor,
		CouponRate:       in.CouponRate,
		CouponFrequency:  in.CouponFrequency,
		Cashflows:        remaining,
	})
	if err != nil {
		return nil, err
	}

	return &yieldOutput{
		TaskID:          in.TaskID,
		SettlementDate:  in.SettlementDate,
		FuturesPrice:    in.FuturesPrice,
		ForwardPrice:    utils.RoundTo(res.ForwardPrice, 10),
		InvoicePrice:    utils.RoundTo(res.InvoicePrice, 10),
		AccruedInterest: utils.RoundTo(res.AccruedInterest, 10),
		ForwardYield:    utils.RoundTo(res.ForwardYield, 10),
		Iterations:      res.Iterations,
	}, nil
}

// forwardFromRepo returns the clean forward price implied by a dirty spot
// price at trade_date financed at repo_rate until settlement_date.
func forwardFromRepo(in yieldInput, settlement time.Time, carried []bond.Cashflow, nextCoupon time.Time) (float64, error) {
	if in.Spot <= 0 || in.TradeDate == "" {
		return 0, fmt.Errorf("forward_price, futures_price, or spot with trade_date and repo_rate, is required")
	}
	trade, err := utils.ParseDate(in.TradeDate)
	if err != nil {
		return 0, fmt.Errorf("invalid trade_date: %v", err)
	}
	dc := in.RepoDayCount
	if dc == "" {
		dc = utils.Act360
	}
	if dc, err = utils.ValidateDayCount(dc); err != nil {
		return 0, err
	}
	dirty, err := bond.ForwardPriceFromRepo(in.Spot, carried, trade, settlement, in.RepoRate/100, dc)
	if err != nil {
		return 0, err
	}
	return dirty - bond.AccruedInterest(settlement, nextCoupon, in.CouponRate, in.CouponFrequency), nil
}
