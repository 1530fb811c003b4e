// Package main runs a bank-reserves parameter sweep and writes the
// aggregated result table.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/calvey/bankgrid/batch"
	"github.com/calvey/bankgrid/config"
	"github.com/calvey/bankgrid/metrics"
)

// formatDuration formats a duration as XhYYmZZs or XmYYs for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Experiment config YAML file (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for results")
	workers := flag.Int("workers", -1, "Parallel trial workers (-1 = use config, 0 = GOMAXPROCS)")
	seed := flag.Int64("seed", 0, "Base RNG seed override (0 = use config)")
	quiet := flag.Bool("quiet", false, "Suppress per-trial progress lines")
	flag.Parse()

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *workers >= 0 {
		cfg.Run.Workers = *workers
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	// Validate before any output or simulation work.
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	om, err := metrics.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	runner := batch.NewRunner(cfg)

	startTime := time.Now()
	if !*quiet {
		runner.Progress = func(done, total int) {
			elapsed := time.Since(startTime)
			avgPerTrial := elapsed / time.Duration(done)
			remaining := time.Duration(total-done) * avgPerTrial
			fmt.Printf("Trial %d/%d | elapsed: %s, ETA: %s\n",
				done, total, formatDuration(elapsed), formatDuration(remaining))
		}
	}

	result, err := runner.Run()
	if err != nil {
		slog.Error("batch failed", "error", err)
		os.Exit(1)
	}

	if err := om.WriteRows(result.Rows); err != nil {
		slog.Error("failed to write results", "error", err)
		os.Exit(1)
	}
	if err := om.WriteAgentRows(result.AgentRows); err != nil {
		slog.Error("failed to write agent rows", "error", err)
		os.Exit(1)
	}

	// One Gini series per (init_people, trade_threshold) group for
	// downstream histogram plotting.
	groups := batch.GiniByGroup(result.Rows)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := om.WriteSeries(name, groups[name]); err != nil {
			slog.Error("failed to write series", "name", name, "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("\nSweep complete: %d combinations, %d trials, %d rows in %s\n",
		result.Combinations, result.Trials, len(result.Rows), formatDuration(result.Elapsed))
	if len(result.Failed) > 0 {
		fmt.Printf("Missing trials after retry: %d (see log)\n", len(result.Failed))
	}
	fmt.Printf("Results written to: %s\n", om.Dir())
}
