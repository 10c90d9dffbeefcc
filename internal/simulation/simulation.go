package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"v2x-sim/internal/channel"
	"v2x-sim/internal/entity"
)

// ErrInvalidTimeStep is returned by Step for negative or non-finite deltas.
var ErrInvalidTimeStep = errors.New("time step must be finite and non-negative")

// Simulation owns the vehicles, base stations and the data rate matrix of a
// single run. It is not safe for concurrent use; steps must be sequential.
type Simulation struct {
	vehicles       []entity.Vehicle
	stations       []entity.BaseStation
	model          channel.Model
	rates          *RateMatrix
	simulationTime float64
	steps          int
	workers        int
	logger         zerolog.Logger
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithChannelModel replaces the default path loss law.
func WithChannelModel(m channel.Model) Option {
	return func(s *Simulation) {
		if m != nil {
			s.model = m
		}
	}
}

// WithWorkers sets how many goroutines fill the rate matrix. Values below 2
// keep the fill sequential.
func WithWorkers(n int) Option {
	return func(s *Simulation) {
		s.workers = n
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulation) {
		s.logger = l
	}
}

// NewSimulation creates a simulation over the given entities and computes the
// initial data rate matrix. The slices are copied.
func NewSimulation(vehicles []entity.Vehicle, stations []entity.BaseStation, opts ...Option) (*Simulation, error) {
	seenVehicles := make(map[int]struct{}, len(vehicles))
	for _, v := range vehicles {
		if _, exists := seenVehicles[v.ID()]; exists {
			return nil, fmt.Errorf("vehicle with ID %d already exists", v.ID())
		}
		seenVehicles[v.ID()] = struct{}{}
	}
	seenStations := make(map[int]struct{}, len(stations))
	for _, bs := range stations {
		if _, exists := seenStations[bs.ID()]; exists {
			return nil, fmt.Errorf("base station with ID %d already exists", bs.ID())
		}
		seenStations[bs.ID()] = struct{}{}
	}

	s := &Simulation{
		vehicles: append([]entity.Vehicle(nil), vehicles...),
		stations: append([]entity.BaseStation(nil), stations...),
		model:    channel.DefaultPathLoss(),
		workers:  1,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	rates, err := s.computeRates()
	if err != nil {
		return nil, fmt.Errorf("computing initial rate matrix: %w", err)
	}
	s.rates = rates

	s.logger.Debug().
		Int("vehicles", len(s.vehicles)).
		Int("baseStations", len(s.stations)).
		Int("workers", s.workers).
		Msg("simulation created")
	return s, nil
}

// Step advances the simulation by dt seconds: every vehicle moves, the full
// rate matrix is recomputed and the clock advances.
func (s *Simulation) Step(dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeStep, dt)
	}

	// 1. Move vehicles
	for i := range s.vehicles {
		s.vehicles[i].UpdatePosition(dt)
	}

	// 2. Recompute the rate matrix
	rates, err := s.computeRates()
	if err != nil {
		return fmt.Errorf("step %d: %w", s.steps+1, err)
	}
	s.rates = rates

	// 3. Advance time
	s.simulationTime += dt
	s.steps++

	s.logger.Trace().
		Int("step", s.steps).
		Float64("time", s.simulationTime).
		Msg("simulation stepped")
	return nil
}

// State returns a snapshot of the current time, entities and rate matrix.
func (s *Simulation) State() State {
	return State{
		Step:         s.steps,
		Time:         s.simulationTime,
		Vehicles:     append([]entity.Vehicle(nil), s.vehicles...),
		BaseStations: append([]entity.BaseStation(nil), s.stations...),
		Rates:        s.rates.Clone(),
	}
}

// Time returns the elapsed simulation time in seconds.
func (s *Simulation) Time() float64 {
	return s.simulationTime
}

// StepCount returns how many steps have been applied.
func (s *Simulation) StepCount() int {
	return s.steps
}

// computeRates fills a fresh matrix. Every cell is independent, so rows can be
// spread over workers; Wait is the barrier before the matrix is published.
func (s *Simulation) computeRates() (*RateMatrix, error) {
	rates := NewRateMatrix(len(s.vehicles), len(s.stations))

	fillRow := func(i int) {
		for j := range s.stations {
			rates.set(i, j, s.model.DataRate(s.vehicles[i], s.stations[j]))
		}
	}

	if s.workers < 2 || len(s.vehicles) < 2 {
		for i := range s.vehicles {
			fillRow(i)
		}
		return rates, nil
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range s.vehicles {
		i := i
		g.Go(func() error {
			fillRow(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rates, nil
}
