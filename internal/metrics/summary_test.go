package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/channel"
	"v2x-sim/internal/common"
	"v2x-sim/internal/entity"
	"v2x-sim/internal/simulation"
)

func newState(t *testing.T, vehicles []entity.Vehicle, capacities ...int) simulation.State {
	t.Helper()
	stations := make([]entity.BaseStation, len(capacities))
	for j, c := range capacities {
		bs, err := entity.NewBaseStation(j, common.NewVector(float64(j)*1000, 0), c)
		require.NoError(t, err)
		stations[j] = bs
	}
	sim, err := simulation.NewSimulation(vehicles, stations)
	require.NoError(t, err)
	return sim.State()
}

func TestSummarize(t *testing.T) {
	p := channel.DefaultPathLoss()
	vehicles := []entity.Vehicle{
		entity.NewVehicle(0, common.NewVector(100, 0), common.Vector{}),
		entity.NewVehicle(1, common.NewVector(0, 1000), common.Vector{}),
		entity.NewVehicle(2, common.NewVector(1000, 0), common.Vector{}),
		entity.NewVehicle(3, common.NewVector(500, 500), common.Vector{}),
	}
	state := newState(t, vehicles, 2, 1, 0)

	a := assignment.Assignment{0: 0, 1: 0, 2: 1}
	s := Summarize(state, a)

	assert.Equal(t, 4, s.Vehicles)
	assert.Equal(t, 3, s.Assigned)
	assert.Equal(t, 1, s.Unassigned)
	assert.Equal(t, 1, s.UnboundedLinks)

	// Vehicle 2 sits on station 1: +Inf is excluded from the totals.
	r0, r1 := p.RateAt(100), p.RateAt(1000)
	assert.InDelta(t, r0+r1, s.TotalRate, 1e-9)
	assert.InDelta(t, (r0+r1)/2, s.MeanRate, 1e-9)
	assert.Greater(t, s.StdDevRate, 0.0)
	assert.False(t, math.IsInf(s.TotalRate, 0))

	require.Len(t, s.Stations, 3)
	assert.Equal(t, StationLoad{BaseStationID: 0, Load: 2, Capacity: 2, Utilization: 1}, s.Stations[0])
	assert.Equal(t, StationLoad{BaseStationID: 1, Load: 1, Capacity: 1, Utilization: 1}, s.Stations[1])
	assert.Equal(t, StationLoad{BaseStationID: 2, Load: 0, Capacity: 0, Utilization: 0}, s.Stations[2])
}

func TestSummarize_Empty(t *testing.T) {
	state := newState(t, nil, 1)
	s := Summarize(state, assignment.Assignment{})
	assert.Equal(t, 0, s.Vehicles)
	assert.Equal(t, 0.0, s.TotalRate)
	assert.Equal(t, 0.0, s.MeanRate)
	assert.Equal(t, 0.0, s.StdDevRate)
}

func TestLinkRate(t *testing.T) {
	vehicles := []entity.Vehicle{entity.NewVehicle(7, common.NewVector(100, 0), common.Vector{})}
	state := newState(t, vehicles, 1)

	rate, ok := LinkRate(state, assignment.Assignment{7: 0}, 7)
	require.True(t, ok)
	assert.InDelta(t, channel.DefaultPathLoss().RateAt(100), rate, 1e-9)

	_, ok = LinkRate(state, assignment.Assignment{}, 7)
	assert.False(t, ok)
	_, ok = LinkRate(state, assignment.Assignment{7: 9}, 7)
	assert.False(t, ok)
}
