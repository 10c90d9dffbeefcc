package entity

import (
	"errors"
	"fmt"

	"v2x-sim/internal/common"
)

// ErrNegativeCapacity is returned when a base station is configured with a
// capacity below zero.
var ErrNegativeCapacity = errors.New("base station capacity must be non-negative")

// BaseStation represents a fixed access point with a limited number of
// simultaneous vehicle connections.
type BaseStation struct {
	id       int
	position common.Vector
	capacity int
}

// NewBaseStation creates a base station. A capacity of zero is valid and
// means the station never accepts a vehicle.
func NewBaseStation(id int, position common.Vector, capacity int) (BaseStation, error) {
	if capacity < 0 {
		return BaseStation{}, fmt.Errorf("base station %d: %w (got %d)", id, ErrNegativeCapacity, capacity)
	}
	return BaseStation{
		id:       id,
		position: position,
		capacity: capacity,
	}, nil
}

// ID returns the unique identifier of the base station.
func (b BaseStation) ID() int {
	return b.id
}

// Position returns the fixed position of the base station.
func (b BaseStation) Position() common.Vector {
	return b.position
}

// Capacity returns the maximum number of simultaneous connections.
func (b BaseStation) Capacity() int {
	return b.capacity
}

// String representation for logging
func (b BaseStation) String() string {
	return fmt.Sprintf("BaseStation[%d] Pos: %s Cap: %d", b.id, b.position, b.capacity)
}
