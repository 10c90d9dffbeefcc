package common

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vector represents a point or displacement in the 2D simulation plane.
// Positions are in meters, velocities in meters per second.
type Vector r2.Vec

// NewVector creates a vector from its two components.
func NewVector(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// FromSlice builds a vector from a two-element slice such as a decoded
// configuration entry.
func FromSlice(values []float64) (Vector, error) {
	if len(values) != 2 {
		return Vector{}, fmt.Errorf("vector must have 2 components, got %d", len(values))
	}
	return Vector{X: values[0], Y: values[1]}, nil
}

// NewRandomVector creates a vector with random coordinates within given bounds.
// bounds must have 4 elements: [minX, maxX, minY, maxY].
func NewRandomVector(rng *rand.Rand, bounds []float64) (Vector, error) {
	if len(bounds) != 4 {
		return Vector{}, fmt.Errorf("bounds length must be 4, got %d", len(bounds))
	}
	if bounds[0] > bounds[1] || bounds[2] > bounds[3] {
		return Vector{}, fmt.Errorf("bounds must be ordered as [minX, maxX, minY, maxY], got %v", bounds)
	}
	return Vector{
		X: bounds[0] + rng.Float64()*(bounds[1]-bounds[0]),
		Y: bounds[2] + rng.Float64()*(bounds[3]-bounds[2]),
	}, nil
}

// Add returns v + other.
func (v Vector) Add(other Vector) Vector {
	return Vector(r2.Add(r2.Vec(v), r2.Vec(other)))
}

// Subtract returns v - other.
func (v Vector) Subtract(other Vector) Vector {
	return Vector(r2.Sub(r2.Vec(v), r2.Vec(other)))
}

// Scale multiplies the vector by a scalar value.
func (v Vector) Scale(f float64) Vector {
	return Vector(r2.Scale(f, r2.Vec(v)))
}

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	return r2.Norm(r2.Vec(v))
}

// Distance calculates the Euclidean distance between two points.
func (v Vector) Distance(other Vector) float64 {
	return v.Subtract(other).Norm()
}

// Slice returns the components as [x, y].
func (v Vector) Slice() []float64 {
	return []float64{v.X, v.Y}
}

// String returns a string representation of the vector.
func (v Vector) String() string {
	return fmt.Sprintf("[%.3f, %.3f]", v.X, v.Y)
}

// MarshalJSON encodes the vector as a two-element array.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

// UnmarshalJSON decodes a two-element array.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decoding vector: %w", err)
	}
	decoded, err := FromSlice(values)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
