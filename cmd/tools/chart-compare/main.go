// Package main provides a chart comparison tool. It simulates a process
// stream with a known change point, runs a set of chart configurations
// (Shewhart individuals, CUSUM, EWMA over a lambda grid) through the
// detection comparator, and reports first-signal indices and detection
// delays per configuration.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/process.control/internal/config"
	"github.com/banshee-data/process.control/internal/simulate"
	"github.com/banshee-data/process.control/internal/spc"
)

// Config holds configuration for the comparison run.
type Config struct {
	Mean         float64
	Sigma        float64
	Points       int
	ChangePoint  int
	ShiftSigma   float64
	DriftSigma   float64
	Seed         uint64
	Lambdas      []float64
	LimitWidth   float64
	CusumK       float64
	CusumH       float64
	MaxFalseRate float64
	OutputJSON   string
	TuningFile   string
}

// Report is the JSON-serializable output of one comparison run.
type Report struct {
	Mean        float64               `json:"mean"`
	Sigma       float64               `json:"sigma"`
	Points      int                   `json:"points"`
	ChangePoint int                   `json:"change_point"`
	ShiftSigma  float64               `json:"shift_sigma"`
	DriftSigma  float64               `json:"drift_sigma_per_step"`
	Seed        uint64                `json:"seed"`
	Results     []spc.DetectionReport `json:"results"`
	Recommended string                `json:"recommended,omitempty"`
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalf("chart-compare: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("chart-compare: %v", err)
	}
}

func parseFlags() (Config, error) {
	var cfg Config
	var lambdas string

	flag.Float64Var(&cfg.Mean, "mean", 7.20, "in-control process mean")
	flag.Float64Var(&cfg.Sigma, "sigma", 0.08, "in-control process sigma")
	flag.IntVar(&cfg.Points, "points", 200, "total observations to simulate")
	flag.IntVar(&cfg.ChangePoint, "change-point", 100, "index where the disturbance begins")
	flag.Float64Var(&cfg.ShiftSigma, "shift", 0, "one-time step shift in sigma units")
	flag.Float64Var(&cfg.DriftSigma, "drift", 0.0375, "linear drift per step in sigma units")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.StringVar(&lambdas, "lambdas", "", "comma-separated EWMA lambda grid (default from tuning file)")
	flag.StringVar(&cfg.TuningFile, "tuning", "", "tuning JSON file (default "+config.DefaultConfigPath+")")
	flag.StringVar(&cfg.OutputJSON, "json", "", "write full report JSON to this file")
	flag.Parse()

	tuning := config.EmptyTuningConfig()
	path := cfg.TuningFile
	if path == "" {
		path = config.DefaultConfigPath
	}
	if loaded, err := config.LoadTuningConfig(path); err == nil {
		tuning = loaded
	} else if cfg.TuningFile != "" {
		// An explicitly requested tuning file must load.
		return Config{}, err
	}

	cfg.LimitWidth = tuning.GetLimitWidth()
	cfg.CusumK = tuning.GetCusumK()
	cfg.CusumH = tuning.GetCusumH()
	cfg.MaxFalseRate = tuning.GetMaxFalseSignalRate()
	cfg.Lambdas = tuning.GetEWMALambdaGrid()
	if lambdas != "" {
		parsed, err := parseLambdas(lambdas)
		if err != nil {
			return Config{}, err
		}
		cfg.Lambdas = parsed
	}

	if cfg.ChangePoint <= 0 || cfg.ChangePoint >= cfg.Points {
		return Config{}, fmt.Errorf("change point %d must lie inside the stream of %d points", cfg.ChangePoint, cfg.Points)
	}
	return cfg, nil
}

func parseLambdas(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad lambda %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func run(cfg Config) error {
	process := simulate.Process{
		Mean:              cfg.Mean,
		Sigma:             cfg.Sigma,
		N:                 cfg.Points,
		ChangePoint:       cfg.ChangePoint,
		ShiftSigma:        cfg.ShiftSigma,
		DriftSigmaPerStep: cfg.DriftSigma,
		Seed:              cfg.Seed,
	}
	stream := process.Individuals()

	specs := []spc.ChartSpec{
		{Family: spc.FamilyIMR, L: cfg.LimitWidth, Sigma: cfg.Sigma},
		{Family: spc.FamilyCUSUM, K: cfg.CusumK * cfg.Sigma, H: cfg.CusumH * cfg.Sigma, Target: cfg.Mean, TargetSet: true, Sigma: cfg.Sigma},
	}
	for _, lambda := range cfg.Lambdas {
		specs = append(specs, spc.ChartSpec{
			Family: spc.FamilyEWMA, Lambda: lambda, L: cfg.LimitWidth,
			Target: cfg.Mean, TargetSet: true, Sigma: cfg.Sigma,
		})
	}

	reports, err := spc.Compare(stream, specs, cfg.ChangePoint)
	if err != nil {
		return err
	}
	ranked := spc.RankByDelay(reports)

	fmt.Printf("%-28s %12s %8s %8s %8s\n", "chart", "first signal", "delay", "signals", "false")
	for _, r := range ranked {
		if r.Err != nil {
			fmt.Printf("%-28s evaluation failed: %v\n", r.SpecName, r.Err)
			continue
		}
		fmt.Printf("%-28s %12s %8s %8d %8d\n",
			r.SpecName, fmtIndex(r.FirstSignalIndex), fmtIndex(r.DetectionDelay), r.SignalCount, r.FalseSignals)
	}

	report := Report{
		Mean:        cfg.Mean,
		Sigma:       cfg.Sigma,
		Points:      cfg.Points,
		ChangePoint: cfg.ChangePoint,
		ShiftSigma:  cfg.ShiftSigma,
		DriftSigma:  cfg.DriftSigma,
		Seed:        cfg.Seed,
		Results:     ranked,
	}
	if best, _, err := spc.RecommendEWMA(stream, cfg.ChangePoint, cfg.Lambdas, cfg.LimitWidth, cfg.MaxFalseRate); err == nil {
		report.Recommended = best.Name()
		fmt.Printf("\nrecommended: %s\n", best.Name())
	}

	if cfg.OutputJSON != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		if err := os.WriteFile(cfg.OutputJSON, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("report written to %s\n", cfg.OutputJSON)
	}
	return nil
}

func fmtIndex(i int) string {
	if i == spc.NoSignal {
		return "-"
	}
	return strconv.Itoa(i)
}
