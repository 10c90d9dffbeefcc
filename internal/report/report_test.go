package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/common"
	"v2x-sim/internal/entity"
	"v2x-sim/internal/runner"
	"v2x-sim/internal/simulation"
)

// Compile-time interface check
var _ runner.Sink = (*Workbook)(nil)

func TestWorkbook_Saves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "run.xlsx")
	wb, err := New(path, zerolog.Nop())
	require.NoError(t, err)

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

	r := runner.New(sim, assignment.Greedy{}, wb)
	require.NoError(t, r.Run(context.Background(), 2, 0.5))
	require.NoError(t, r.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{StepsSheet, AssignmentsSheet, StationsSheet}, f.GetSheetList())

	steps, err := f.GetRows(StepsSheet)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, "Step", steps[0][0])
	assert.Equal(t, []string{"2", "1", "4", "4", "0"}, steps[3][:5])

	pairs, err := f.GetRows(AssignmentsSheet)
	require.NoError(t, err)
	require.Len(t, pairs, 1+3*4)
	assert.Equal(t, []string{"0", "0", "0", "1"}, pairs[1][:4])

	stations, err := f.GetRows(StationsSheet)
	require.NoError(t, err)
	require.Len(t, stations, 1+3*2)
	assert.Equal(t, []string{"0", "0", "1", "2", "2", "1"}, stations[2])
}

func TestWorkbook_InfiniteRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inf.xlsx")
	wb, err := New(path, zerolog.Nop())
	require.NoError(t, err)

	bs, err := entity.NewBaseStation(3, common.NewVector(10, 10), 1)
	require.NoError(t, err)
	sim, err := simulation.NewSimulation(
		[]entity.Vehicle{entity.NewVehicle(8, common.NewVector(10, 10), common.Vector{})},
		[]entity.BaseStation{bs},
	)
	require.NoError(t, err)

	r := runner.New(sim, assignment.Greedy{}, wb)
	require.NoError(t, r.Run(context.Background(), 0, 1))
	require.NoError(t, r.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	pairs, err := f.GetRows(AssignmentsSheet)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, []string{"0", "0", "8", "3", "inf"}, pairs[1])
}
