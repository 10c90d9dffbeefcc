package entity

import "v2x-sim/internal/common"

// Object defines the identity shared by every entity in the simulation.
type Object interface {
	// ID returns the unique identifier of the object within its kind.
	ID() int
	// Position returns the current position of the object.
	Position() common.Vector
}
