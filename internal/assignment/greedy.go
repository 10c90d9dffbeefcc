package assignment

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/mat"

	"v2x-sim/internal/entity"
)

// Greedy is the default optimizer: a greedy heuristic for weighted bipartite
// b-matching. It commits to the best remaining link first and never revisits
// a decision, so it may miss the throughput optimum when an early pick blocks
// a better pairing.
type Greedy struct {
	// SkipUnusableLinks leaves a vehicle unassigned rather than attaching it
	// over a zero-rate link.
	SkipUnusableLinks bool
}

type edge struct {
	vehicle int // slot in the vehicles slice
	station int // slot in the stations slice
	weight  float64
}

// compareEdges orders by weight descending (+Inf first), then vehicle slot
// ascending, then station slot ascending.
func compareEdges(a, b edge) int {
	if c := cmp.Compare(b.weight, a.weight); c != 0 {
		return c
	}
	if c := cmp.Compare(a.vehicle, b.vehicle); c != 0 {
		return c
	}
	return cmp.Compare(a.station, b.station)
}

// Decide implements Optimizer.
func (g Greedy) Decide(vehicles []entity.Vehicle, stations []entity.BaseStation, rates mat.Matrix) (Assignment, error) {
	if err := checkShape(vehicles, stations, rates); err != nil {
		return nil, err
	}
	assignments := make(Assignment)
	if len(vehicles) == 0 || len(stations) == 0 {
		return assignments, nil
	}

	edges := make([]edge, 0, len(vehicles)*len(stations))
	for i := range vehicles {
		for j := range stations {
			edges = append(edges, edge{vehicle: i, station: j, weight: rates.At(i, j)})
		}
	}
	slices.SortFunc(edges, compareEdges)

	load := make([]int, len(stations))
	for _, e := range edges {
		if g.SkipUnusableLinks && e.weight <= 0 {
			// Sorted descending: everything after is unusable too.
			break
		}
		vehicleID := vehicles[e.vehicle].ID()
		if _, assigned := assignments[vehicleID]; assigned {
			continue
		}
		if load[e.station] >= stations[e.station].Capacity() {
			continue
		}
		assignments[vehicleID] = stations[e.station].ID()
		load[e.station]++
	}
	return assignments, nil
}
