// Package assignment decides which base station serves each vehicle.
//
// An Assignment is recomputed from scratch every step from a rate matrix
// snapshot; nothing is carried between steps.
package assignment

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"v2x-sim/internal/entity"
)

// ErrShapeMismatch is returned when the rate matrix does not have one row per
// vehicle and one column per base station.
var ErrShapeMismatch = errors.New("rate matrix shape does not match entities")

// Optimizer turns a rate matrix into a capacity-respecting assignment.
// rates.At(i, j) is the data rate of vehicles[i] on stations[j].
type Optimizer interface {
	Decide(vehicles []entity.Vehicle, stations []entity.BaseStation, rates mat.Matrix) (Assignment, error)
}

// Assignment maps vehicle ids to base station ids. Vehicles that could not be
// served are absent.
type Assignment map[int]int

// Pair is a single vehicle to base station link.
type Pair struct {
	VehicleID     int `json:"vehicle_id"`
	BaseStationID int `json:"base_station_id"`
}

// Pairs returns the assignment ordered by vehicle id.
func (a Assignment) Pairs() []Pair {
	pairs := make([]Pair, 0, len(a))
	for v, bs := range a {
		pairs = append(pairs, Pair{VehicleID: v, BaseStationID: bs})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].VehicleID < pairs[j].VehicleID
	})
	return pairs
}

// Loads counts the vehicles attached to each base station.
func (a Assignment) Loads() map[int]int {
	loads := make(map[int]int)
	for _, bs := range a {
		loads[bs]++
	}
	return loads
}

// Validate checks that every referenced station exists and that no station
// exceeds its capacity. Injectivity holds by construction of the map.
func (a Assignment) Validate(stations []entity.BaseStation) error {
	capacity := make(map[int]int, len(stations))
	for _, bs := range stations {
		capacity[bs.ID()] = bs.Capacity()
	}
	for bsID, load := range a.Loads() {
		limit, ok := capacity[bsID]
		if !ok {
			return fmt.Errorf("assignment references unknown base station %d", bsID)
		}
		if load > limit {
			return fmt.Errorf("base station %d over capacity: %d > %d", bsID, load, limit)
		}
	}
	return nil
}

func checkShape(vehicles []entity.Vehicle, stations []entity.BaseStation, rates mat.Matrix) error {
	if len(vehicles) == 0 || len(stations) == 0 {
		return nil
	}
	if rates == nil {
		return fmt.Errorf("%w: nil matrix for %d×%d", ErrShapeMismatch, len(vehicles), len(stations))
	}
	r, c := rates.Dims()
	if r != len(vehicles) || c != len(stations) {
		return fmt.Errorf("%w: got %d×%d, want %d×%d", ErrShapeMismatch, r, c, len(vehicles), len(stations))
	}
	return nil
}
