// Package metrics condenses a simulation step and its assignment into
// throughput statistics consumed by the output sinks.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/simulation"
)

// StationLoad describes how full a base station is after an assignment.
type StationLoad struct {
	BaseStationID int     `json:"base_station_id"`
	Load          int     `json:"load"`
	Capacity      int     `json:"capacity"`
	Utilization   float64 `json:"utilization"` // load / capacity, 0 when capacity is 0
}

// Summary holds the aggregate statistics of one step.
type Summary struct {
	Step       int     `json:"step"`
	Time       float64 `json:"time"`
	Vehicles   int     `json:"vehicles"`
	Assigned   int     `json:"assigned"`
	Unassigned int     `json:"unassigned"`

	// Rates cover assigned finite links only; unbounded (+Inf) links are
	// counted separately so totals stay finite.
	TotalRate      float64 `json:"total_rate"`
	MeanRate       float64 `json:"mean_rate"`
	StdDevRate     float64 `json:"stddev_rate"`
	UnboundedLinks int     `json:"unbounded_links"`

	Stations []StationLoad `json:"stations"`
}

// LinkRate returns the rate of the link a vehicle is assigned to, and whether
// the vehicle is assigned at all.
func LinkRate(state simulation.State, a assignment.Assignment, vehicleID int) (float64, bool) {
	bsID, ok := a[vehicleID]
	if !ok {
		return 0, false
	}
	i, ok := state.VehicleIndex(vehicleID)
	if !ok {
		return 0, false
	}
	j, ok := state.StationIndex(bsID)
	if !ok {
		return 0, false
	}
	return state.Rates.At(i, j), true
}

// Summarize computes the statistics of a step.
func Summarize(state simulation.State, a assignment.Assignment) Summary {
	s := Summary{
		Step:     state.Step,
		Time:     state.Time,
		Vehicles: len(state.Vehicles),
	}

	var finite []float64
	for _, v := range state.Vehicles {
		rate, ok := LinkRate(state, a, v.ID())
		if !ok {
			continue
		}
		s.Assigned++
		if math.IsInf(rate, 1) {
			s.UnboundedLinks++
			continue
		}
		finite = append(finite, rate)
	}
	s.Unassigned = s.Vehicles - s.Assigned

	if len(finite) > 0 {
		s.TotalRate = floats.Sum(finite)
		s.MeanRate = stat.Mean(finite, nil)
	}
	if len(finite) > 1 {
		s.StdDevRate = stat.StdDev(finite, nil)
	}

	loads := a.Loads()
	s.Stations = make([]StationLoad, 0, len(state.BaseStations))
	for _, bs := range state.BaseStations {
		sl := StationLoad{
			BaseStationID: bs.ID(),
			Load:          loads[bs.ID()],
			Capacity:      bs.Capacity(),
		}
		if sl.Capacity > 0 {
			sl.Utilization = float64(sl.Load) / float64(sl.Capacity)
		}
		s.Stations = append(s.Stations, sl)
	}
	sort.Slice(s.Stations, func(i, j int) bool {
		return s.Stations[i].BaseStationID < s.Stations[j].BaseStationID
	})
	return s
}
