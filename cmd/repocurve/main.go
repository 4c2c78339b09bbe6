package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/meenmo/latent/calendar"
	"github.com/meenmo/latent/internal/cliio"
	"github.com/meenmo/latent/internal/quotes"
	"github.com/meenmo/latent/repo"
	"github.com/meenmo/latent/utils"
)

type curveInput struct {
	quotes.CurveQuotes
	// Dates to evaluate; pillar nodes are always reported.
	Dates []string `json:"dates,omitempty"`
	// Spot, when set, adds forward prices at each date.
	Spot float64 `json:"spot,omitempty"`
}

type pointOutput struct {
	Date         string  `json:"date"`
	BusinessDays int     `json:"business_days"`
	Rate         float64 `json:"rate"`
	DF           float64 `json:"df"`
	ForwardPrice float64 `json:"forward_price,omitempty"`
}

type curveOutput struct {
	TaskID         string        `json:"task_id,omitempty"`
	Name           string        `json:"name,omitempty"`
	Kind           string        `json:"kind,omitempty"`
	SettlementDate string        `json:"settlement_date,omitempty"`
	DayCount       string        `json:"day_count,omitempty"`
	Nodes          []pointOutput `json:"nodes,omitempty"`
	Points         []pointOutput `json:"points,omitempty"`
	Error          string        `json:"error,omitempty"`
}

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	configPath := flag.String("config", "", "YAML config with solver numerics")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: repocurve -input <path> [-config <path>]")
		fmt.Fprintln(os.Stderr, "Build repo curves from pillar rates or bond forward quotes and evaluate rates (percent) and DFs.")
		return
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" && cliio.StdinIsTerminal() {
		fmt.Fprintln(os.Stderr, "Usage: repocurve -input <path>")
		os.Exit(2)
	}
	if err := cliio.LoadNumerics(*configPath); err != nil {
		cliio.ExitError(fmt.Sprintf("load config: %v", err))
	}

	raw, err := cliio.ReadInput(path)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("read input: %v", err))
	}
	inputs, isArray, err := cliio.ParseInputs[curveInput](raw)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("parse JSON: %v", err))
	}

	hadError := false
	outputs := make([]curveOutput, 0, len(inputs))
	for _, in := range inputs {
		out, err := process(in)
		if err != nil {
			hadError = true
			outputs = append(outputs, curveOutput{TaskID: in.TaskID, Name: in.Name, Error: err.Error()})
			continue
		}
		outputs = append(outputs, out)
	}

	if err := cliio.Write(os.Stdout, outputs, isArray); err != nil {
		cliio.ExitError(fmt.Sprintf("encode output: %v", err))
	}
	if hadError {
		os.Exit(1)
	}
}

func process(in curveInput) (curveOutput, error) {
	c, err := quotes.Build(in.CurveQuotes)
	if err != nil {
		return curveOutput{}, err
	}

	out := curveOutput{
		TaskID:         in.TaskID,
		Name:           in.Name,
		Kind:           string(c.Kind()),
		SettlementDate: utils.FormatDate(c.Settlement()),
		DayCount:       c.DayCount(),
	}
	cal := in.CalendarID()
	for _, n := range c.Nodes() {
		out.Nodes = append(out.Nodes, pointOutput{
			Date:         utils.FormatDate(n.Date),
			BusinessDays: calendar.BusinessDaysBetween(cal, c.Settlement(), n.Date),
			Rate:         utils.RoundTo(n.Rate*100, 10),
			DF:           utils.RoundTo(n.DF, 12),
		})
	}
	dates := make([]time.Time, 0, len(in.Dates))
	for _, s := range in.Dates {
		d, err := utils.ParseDate(s)
		if err != nil {
			return curveOutput{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	// Points come back in date order.
	utils.SortDates(dates)
	for _, d := range dates {
		out.Points = append(out.Points, evaluate(c, cal, d, in.Spot))
	}
	return out, nil
}

func evaluate(c repo.RepoCurve, cal calendar.CalendarID, d time.Time, spot float64) pointOutput {
	p := pointOutput{
		Date:         utils.FormatDate(d),
		BusinessDays: calendar.BusinessDaysBetween(cal, c.Settlement(), d),
		Rate:         utils.RoundTo(c.Rate(d)*100, 10),
		DF:           utils.RoundTo(c.DF(d), 12),
	}
	if spot > 0 {
		p.ForwardPrice = utils.RoundTo(c.ForwardPrice(spot, d), 10)
	}
	return p
}
