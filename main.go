package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/sim"
	"github.com/seanmcall/veldt/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	workers := flag.Int("workers", 0, "Worker thread count (0 = use config)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	speed := flag.Float64("speed", 1, "Simulation speed multiplier")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Sim.Workers = *workers
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *logStats {
		cfg.Telemetry.LogStats = true
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	engine, err := sim.New(cfg, rngSeed)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	engine.Start()
	defer engine.Stop()
	if *speed != 1 {
		engine.SetSpeedMultiplier(float32(*speed))
	}

	windowTicks := engine.StatsWindowTicks()
	nextFlush := windowTicks

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case sig := <-sigs:
			slog.Info("shutting down", "signal", sig.String())
			flushWindow(engine, output, cfg)
			return
		case <-poll.C:
		}

		tick := engine.Tick()

		if tick >= nextFlush {
			flushWindow(engine, output, cfg)
			nextFlush += windowTicks
		}

		if *maxTicks > 0 && tick >= *maxTicks {
			slog.Info("max ticks reached", "tick", tick)
			flushWindow(engine, output, cfg)
			return
		}

		if engine.Population() == 0 {
			slog.Info("population extinct", "tick", tick)
			flushWindow(engine, output, cfg)
			return
		}
	}
}

// flushWindow gathers worker tallies, writes the window's CSV rows and
// optionally logs them.
func flushWindow(engine *sim.Engine, output *telemetry.OutputManager, cfg *config.Config) {
	stats := engine.Stats()
	perf := engine.Perf()

	if err := output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := output.WritePerf(perf, engine.Tick()); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	if cfg.Telemetry.LogStats {
		for _, row := range stats {
			slog.Info("window", "stats", row)
		}
		perf.LogStats()
	}
}
