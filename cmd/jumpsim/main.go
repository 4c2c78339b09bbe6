package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/meenmo/latent/internal/cliio"
	"github.com/meenmo/latent/logger"
	"github.com/meenmo/latent/stochastic"
)

type simInput struct {
	TaskID         string  `json:"task_id,omitempty"`
	Spot           float64 `json:"spot"`
	Horizon        float64 `json:"horizon"`
	Steps          int     `json:"steps"`
	Paths          int     `json:"paths"`
	Seed           uint64  `json:"seed"`
	Drift          float64 `json:"drift"`
	Volatility     float64 `json:"volatility"`
	Intensity      float64 `json:"intensity"`
	JumpMean       float64 `json:"jump_mean"`
	JumpVolatility float64 `json:"jump_volatility"`
	// Strike and Rate, when Strike > 0, add a European call priced both by
	// simulation under Drift = Rate and by the Merton series.
	Strike float64 `json:"strike,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
}

type callOutput struct {
	MonteCarlo float64 `json:"monte_carlo"`
	StdErr     float64 `json:"std_err"`
	Merton     float64 `json:"merton"`
}

type simOutput struct {
	TaskID        string              `json:"task_id,omitempty"`
	Summary       *stochastic.Summary `json:"summary,omitempty"`
	ExpectedValue float64             `json:"expected_value,omitempty"`
	Call          *callOutput         `json:"call,omitempty"`
	Error         string              `json:"error,omitempty"`
}

const mertonTerms = 100

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	configPath := flag.String("config", "", "YAML config with solver numerics")
	verbose := flag.Bool("v", false, "Log progress to stderr")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: jumpsim -input <path> [-config <path>] [-v]")
		fmt.Fprintln(os.Stderr, "Monte Carlo summary of a Merton jump diffusion, with optional call pricing.")
		return
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" && cliio.StdinIsTerminal() {
		fmt.Fprintln(os.Stderr, "Usage: jumpsim -input <path>")
		os.Exit(2)
	}
	level := "disabled"
	if *verbose {
		level = "debug"
	}
	log := logger.Component(logger.New(logger.Config{Level: level}), "jumpsim")

	if err := cliio.LoadNumerics(*configPath); err != nil {
		cliio.ExitError(fmt.Sprintf("load config: %v", err))
	}
	raw, err := cliio.ReadInput(path)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("read input: %v", err))
	}
	inputs, isArray, err := cliio.ParseInputs[simInput](raw)
	if err != nil {
		cliio.ExitError(fmt.Sprintf("parse JSON: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hadError := false
	outputs := make([]simOutput, 0, len(inputs))
	for _, in := range inputs {
		start := time.Now()
		out, err := process(ctx, in)
		if err != nil {
			hadError = true
			log.Debug().Err(err).Str("task_id", in.TaskID).Msg("Simulation failed")
			outputs = append(outputs, simOutput{TaskID: in.TaskID, Error: err.Error()})
			continue
		}
		log.Debug().
			Str("task_id", in.TaskID).
			Int("paths", in.Paths).
			Dur("elapsed", time.Since(start)).
			Msg("Simulation completed")
		outputs = append(outputs, out)
	}

	if err := cliio.Write(os.Stdout, outputs, isArray); err != nil {
		cliio.ExitError(fmt.Sprintf("encode output: %v", err))
	}
	if hadError {
		os.Exit(1)
	}
}

func model(in simInput) stochastic.JumpDiffusion {
	return stochastic.JumpDiffusion{
		Drift:          in.Drift,
		Volatility:     in.Volatility,
		Intensity:      in.Intensity,
		JumpMean:       in.JumpMean,
		JumpVolatility: in.JumpVolatility,
	}
}

func process(ctx context.Context, in simInput) (simOutput, error) {
	if in.Spot <= 0 {
		return simOutput{}, fmt.Errorf("spot must be positive")
	}
	j := model(in)
	if err := j.Validate(); err != nil {
		return simOutput{}, err
	}

	summary, err := j.MonteCarlo(ctx, in.Spot, in.Horizon, in.Steps, in.Paths, in.Seed)
	if err != nil {
		return simOutput{}, err
	}
	out := simOutput{
		TaskID:        in.TaskID,
		Summary:       &summary,
		ExpectedValue: j.ExpectedValue(in.Spot, in.Horizon),
	}
	if in.Strike > 0 {
		call, err := priceCall(ctx, in)
		if err != nil {
			return simOutput{}, err
		}
		out.Call = call
	}
	return out, nil
}

func priceCall(ctx context.Context, in simInput) (*callOutput, error) {
	rn := model(in)
	rn.Drift = in.Rate

	terminal, err := rn.SimulateTerminal(ctx, in.Spot, in.Horizon, in.Steps, in.Paths, in.Seed)
	if err != nil {
		return nil, err
	}
	disc := math.Exp(-in.Rate * in.Horizon)
	payoffs := make([]float64, len(terminal))
	for i, s := range terminal {
		payoffs[i] = disc * math.Max(s-in.Strike, 0)
	}
	ps := stochastic.Summarize(payoffs)

	merton, err := stochastic.MertonCall(in.Spot, in.Strike, in.Rate, in.Horizon, rn, mertonTerms)
	if err != nil {
		return nil, err
	}
	return &callOutput{MonteCarlo: ps.Mean, StdErr: ps.StdErr, Merton: merton}, nil
}
