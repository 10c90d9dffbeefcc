package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/common"
	"v2x-sim/internal/entity"
	"v2x-sim/internal/simulation"
)

type fakeSink struct {
	results []StepResult
	failAt  int
	closed  bool
	onStep  func(StepResult)
}

func (f *fakeSink) Record(_ context.Context, result StepResult) error {
	if f.failAt > 0 && result.Index == f.failAt {
		return errors.New("disk full")
	}
	f.results = append(f.results, result)
	if f.onStep != nil {
		f.onStep(result)
	}
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func newReferenceSimulation(t *testing.T) *simulation.Simulation {
	t.Helper()
	bs0, err := entity.NewBaseStation(0, common.NewVector(500, 500), 2)
	require.NoError(t, err)
	bs1, err := entity.NewBaseStation(1, common.NewVector(1500, 500), 2)
	require.NoError(t, err)
	vehicles := []entity.Vehicle{
		entity.NewVehicle(0, common.NewVector(100, 450), common.NewVector(80, 0)),
		entity.NewVehicle(1, common.NewVector(200, 550), common.NewVector(80, 0)),
		entity.NewVehicle(2, common.NewVector(800, 480), common.NewVector(80, 0)),
		entity.NewVehicle(3, common.NewVector(1800, 520), common.NewVector(-80, 0)),
	}
	sim, err := simulation.NewSimulation(vehicles, []entity.BaseStation{bs0, bs1})
	require.NoError(t, err)
	return sim
}

func TestRun_RecordsEveryStep(t *testing.T) {
	sink := &fakeSink{}
	r := New(newReferenceSimulation(t), assignment.Greedy{}, sink)

	require.NoError(t, r.Run(context.Background(), 10, 0.5))
	require.Len(t, sink.results, 11)

	first := sink.results[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 0.0, first.State.Time)
	assert.Equal(t, assignment.Assignment{0: 1, 1: 0, 2: 0, 3: 1}, first.Assignment)
	assert.Equal(t, 4, first.Summary.Assigned)

	last := sink.results[10]
	assert.Equal(t, 10, last.Index)
	assert.Equal(t, 10, last.Summary.Step)
	assert.InDelta(t, 5.0, last.State.Time, 1e-12)
	assert.Equal(t, assignment.Assignment{0: 0, 1: 0, 2: 1, 3: 1}, last.Assignment)

	for i, res := range sink.results {
		assert.Equal(t, i, res.Index)
		require.NoError(t, res.Assignment.Validate(res.State.BaseStations))
	}

	require.NoError(t, r.Close())
	assert.True(t, sink.closed)
}

func TestRun_ZeroSteps(t *testing.T) {
	sink := &fakeSink{}
	r := New(newReferenceSimulation(t), assignment.Greedy{}, sink)

	require.NoError(t, r.Run(context.Background(), 0, 0.5))
	assert.Len(t, sink.results, 1)
}

func TestRun_SinkErrorStops(t *testing.T) {
	sink := &fakeSink{failAt: 3}
	other := &fakeSink{}
	r := New(newReferenceSimulation(t), assignment.Greedy{}, sink, other)

	err := r.Run(context.Background(), 10, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 3")
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, sink.results, 3)
	assert.Len(t, other.results, 3)
}

func TestRun_InvalidTimeStep(t *testing.T) {
	r := New(newReferenceSimulation(t), assignment.Greedy{})
	err := r.Run(context.Background(), 3, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, simulation.ErrInvalidTimeStep)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &fakeSink{}
	sink.onStep = func(res StepResult) {
		if res.Index == 2 {
			cancel()
		}
	}
	r := New(newReferenceSimulation(t), assignment.Greedy{}, sink)

	err := r.Run(ctx, 10, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.results, 3)
}

func TestRun_RequiresSimulationAndOptimizer(t *testing.T) {
	err := (&Runner{}).Run(context.Background(), 1, 1)
	require.Error(t, err)
}

func TestRun_DecideIsDeterministic(t *testing.T) {
	a := &fakeSink{}
	b := &fakeSink{}
	require.NoError(t, New(newReferenceSimulation(t), assignment.Greedy{}, a).Run(context.Background(), 20, 0.25))
	require.NoError(t, New(newReferenceSimulation(t), assignment.Greedy{}, b).Run(context.Background(), 20, 0.25))

	require.Len(t, b.results, len(a.results))
	for i := range a.results {
		assert.Equal(t, a.results[i].Assignment, b.results[i].Assignment)
	}
}
