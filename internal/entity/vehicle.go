package entity

import (
	"fmt"

	"v2x-sim/internal/common"
)

// Vehicle represents a mobile client node moving in a straight line.
type Vehicle struct {
	id       int
	position common.Vector
	velocity common.Vector // meters per second
}

// NewVehicle creates a vehicle at a given position with a constant velocity.
func NewVehicle(id int, position, velocity common.Vector) Vehicle {
	return Vehicle{
		id:       id,
		position: position,
		velocity: velocity,
	}
}

// ID returns the unique identifier of the vehicle.
func (v Vehicle) ID() int {
	return v.id
}

// Position returns the current position of the vehicle.
func (v Vehicle) Position() common.Vector {
	return v.position
}

// Velocity returns the velocity of the vehicle.
func (v Vehicle) Velocity() common.Vector {
	return v.velocity
}

// UpdatePosition advances the vehicle along its velocity for dt seconds.
// There is no bounds clamping; vehicles may leave any notional world area.
func (v *Vehicle) UpdatePosition(dt float64) {
	v.position = v.position.Add(v.velocity.Scale(dt))
}

// String representation for logging
func (v Vehicle) String() string {
	return fmt.Sprintf("Vehicle[%d] Pos: %s Vel: %s", v.id, v.position, v.velocity)
}
