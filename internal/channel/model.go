// Package channel estimates the achievable data rate of a vehicle to base
// station link.
//
// The simulation engine depends only on the Model capability, so an analytic
// law, a measured table or an external propagation engine can be swapped in
// without touching the engine or the assignment optimizer.
package channel

import "v2x-sim/internal/entity"

// Model maps a (vehicle, base station) pair to a data rate in Mbps.
// Implementations must be safe for concurrent use, return values >= 0, and
// may return +Inf to signal an unboundedly good link.
type Model interface {
	DataRate(v entity.Vehicle, bs entity.BaseStation) float64
}

// ModelFunc adapts an ordinary function to the Model interface.
type ModelFunc func(v entity.Vehicle, bs entity.BaseStation) float64

// DataRate calls f(v, bs).
func (f ModelFunc) DataRate(v entity.Vehicle, bs entity.BaseStation) float64 {
	return f(v, bs)
}
