package simulation

import "v2x-sim/internal/entity"

// State is an immutable snapshot of the simulation after a step.
// Every field is a copy; mutating it never affects the engine or other
// snapshots.
type State struct {
	Step         int
	Time         float64
	Vehicles     []entity.Vehicle
	BaseStations []entity.BaseStation
	Rates        *RateMatrix
}

// VehicleIndex returns the slot of the vehicle with the given id.
func (s State) VehicleIndex(id int) (int, bool) {
	for i, v := range s.Vehicles {
		if v.ID() == id {
			return i, true
		}
	}
	return -1, false
}

// StationIndex returns the slot of the base station with the given id.
func (s State) StationIndex(id int) (int, bool) {
	for j, bs := range s.BaseStations {
		if bs.ID() == id {
			return j, true
		}
	}
	return -1, false
}
