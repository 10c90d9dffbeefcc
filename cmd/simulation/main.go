package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"v2x-sim/internal/config"
	"v2x-sim/internal/export"
	"v2x-sim/internal/influx"
	"v2x-sim/internal/logging"
	"v2x-sim/internal/report"
	"v2x-sim/internal/runner"
	"v2x-sim/internal/simulation"
	"v2x-sim/internal/storage"
	"v2x-sim/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(out io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("simulation", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.StringP("config", "c", "", "scenario file (json, yaml or toml)")
	flags.Int("steps", 0, "number of simulation steps")
	flags.Float64("dt", 0, "time step in seconds")
	flags.Int("workers", 0, "goroutines filling the rate matrix")
	flags.String("log-level", "", "trace, debug, info, warn or error")
	return flags
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := newFlagSet(out)
	if err := flags.Parse(args); err != nil {
		return err
	}
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: out,
	})
	log.Info().Str("config", path).Str("optimizer", cfg.Optimizer.Type).Msg("Configuration loaded")

	vehicles, stations, err := cfg.Entities()
	if err != nil {
		return err
	}

	sim, err := simulation.NewSimulation(vehicles, stations,
		simulation.WithChannelModel(cfg.ChannelModel()),
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithLogger(log.With().Str("component", "simulation").Logger()),
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}

	r := runner.New(sim, cfg.NewOptimizer())
	r.Logger = log.With().Str("component", "runner").Logger()

	if err := attachSinks(ctx, r, cfg, len(vehicles), len(stations), log); err != nil {
		_ = r.Close()
		return err
	}

	runErr := r.Run(ctx, cfg.Simulation.Steps, cfg.Simulation.TimeStep)
	closeErr := r.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// attachSinks opens every enabled output and registers it with the runner.
// Sinks opened before a failure are registered so the caller can close them.
func attachSinks(ctx context.Context, r *runner.Runner, cfg *config.Config, numVehicles, numStations int, log zerolog.Logger) error {
	out := cfg.Output
	runID := ""

	if out.Storage.Enabled {
		db, err := storage.Open(out.Storage.Driver, out.Storage.Path, out.Storage.DSN, log)
		if err != nil {
			return err
		}
		rec, err := storage.NewRecorder(db, storage.RunInfo{
			Optimizer:    cfg.Optimizer.Type,
			TimeStep:     cfg.Simulation.TimeStep,
			Vehicles:     numVehicles,
			BaseStations: numStations,
		}, log.With().Str("component", "storage").Logger())
		if err != nil {
			return err
		}
		runID = rec.RunID()
		r.Sinks = append(r.Sinks, rec)
	}

	if out.JSON.Enabled {
		r.Sinks = append(r.Sinks, export.NewJSONLog(out.JSON.Path, out.JSON.Compress, log))
	}

	if out.Report.Enabled {
		wb, err := report.New(out.Report.Path, log)
		if err != nil {
			return err
		}
		r.Sinks = append(r.Sinks, wb)
	}

	if out.Influx.Enabled {
		if runID == "" {
			runID = storage.NewRunID()
		}
		sink, err := influx.Connect(ctx, influx.Config{
			URL:    out.Influx.URL,
			Token:  out.Influx.Token,
			Org:    out.Influx.Org,
			Bucket: out.Influx.Bucket,
		}, runID, log.With().Str("component", "influx").Logger())
		if err != nil {
			return err
		}
		r.Sinks = append(r.Sinks, sink)
	}

	if out.Telemetry.Enabled {
		sink, err := telemetry.NewLocal(cfg.Optimizer.Type, log.With().Str("component", "telemetry").Logger())
		if err != nil {
			return err
		}
		r.Sinks = append(r.Sinks, sink)
	}

	log.Debug().Int("sinks", len(r.Sinks)).Msg("Outputs attached")
	return nil
}
