// Package runner drives a simulation step by step, feeds every snapshot
// through the assignment optimizer and fans the result out to sinks.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/metrics"
	"v2x-sim/internal/simulation"
)

// StepResult is everything known about one step once the assignment has
// been decided.
type StepResult struct {
	Index      int
	State      simulation.State
	Assignment assignment.Assignment
	Summary    metrics.Summary
}

// Sink consumes step results. Record is called once per step in order,
// Close once after the last step.
type Sink interface {
	Record(ctx context.Context, result StepResult) error
	Close() error
}

// Runner ties a simulation to an optimizer and a set of sinks.
type Runner struct {
	Simulation *simulation.Simulation
	Optimizer  assignment.Optimizer
	Sinks      []Sink
	Logger     zerolog.Logger
}

// New creates a runner with a discarding logger.
func New(sim *simulation.Simulation, opt assignment.Optimizer, sinks ...Sink) *Runner {
	return &Runner{
		Simulation: sim,
		Optimizer:  opt,
		Sinks:      sinks,
		Logger:     zerolog.Nop(),
	}
}

// Run records the initial configuration as step 0, then advances the
// simulation steps times by dt. It stops at the first error or when ctx is
// cancelled. Sinks are not closed; see Close.
func (r *Runner) Run(ctx context.Context, steps int, dt float64) error {
	if r.Simulation == nil || r.Optimizer == nil {
		return errors.New("runner needs a simulation and an optimizer")
	}

	r.Logger.Info().
		Int("steps", steps).
		Float64("dt", dt).
		Int("sinks", len(r.Sinks)).
		Msg("Starting simulation run")

	if err := r.record(ctx, 0); err != nil {
		return err
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			r.Logger.Warn().Int("step", i).Msg("Run cancelled")
			return fmt.Errorf("step %d: %w", i, err)
		}
		if err := r.Simulation.Step(dt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if err := r.record(ctx, i); err != nil {
			return err
		}
	}

	r.Logger.Info().
		Int("steps", steps).
		Float64("time", r.Simulation.Time()).
		Msg("Simulation run finished")
	return nil
}

// Close closes every sink and joins their errors.
func (r *Runner) Close() error {
	var errs []error
	for _, s := range r.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) record(ctx context.Context, index int) error {
	state := r.Simulation.State()
	decided, err := r.Optimizer.Decide(state.Vehicles, state.BaseStations, state.Rates)
	if err != nil {
		return fmt.Errorf("step %d: deciding assignment: %w", index, err)
	}

	result := StepResult{
		Index:      index,
		State:      state,
		Assignment: decided,
		Summary:    metrics.Summarize(state, decided),
	}

	r.Logger.Debug().
		Int("step", index).
		Float64("time", state.Time).
		Int("assigned", result.Summary.Assigned).
		Int("unassigned", result.Summary.Unassigned).
		Float64("totalRate", result.Summary.TotalRate).
		Msg("Step decided")

	for _, s := range r.Sinks {
		if err := s.Record(ctx, result); err != nil {
			return fmt.Errorf("step %d: recording result: %w", index, err)
		}
	}
	return nil
}
