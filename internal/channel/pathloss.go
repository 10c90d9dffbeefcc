package channel

import (
	"math"

	"v2x-sim/internal/entity"
)

// MinDistance is the separation (meters) below which a link is treated as
// coincident and reported as +Inf.
const MinDistance = 1e-6

// PathLoss is a log-distance path loss law with a linear mapping from the
// received power margin above the noise floor to a data rate.
type PathLoss struct {
	P0         float64 `json:"p0"`         // received power at 1 m, dBm
	Alpha      float64 `json:"alpha"`      // path loss exponent
	NoiseFloor float64 `json:"noiseFloor"` // dBm
	Scale      float64 `json:"scale"`      // Mbps per dB of margin
}

// DefaultPathLoss returns the reference parameters: -30 dBm at 1 m, free
// space exponent 2, -95 dBm noise floor and 2 Mbps per dB.
func DefaultPathLoss() PathLoss {
	return PathLoss{
		P0:         -30,
		Alpha:      2.0,
		NoiseFloor: -95,
		Scale:      2.0,
	}
}

// DataRate implements Model.
func (p PathLoss) DataRate(v entity.Vehicle, bs entity.BaseStation) float64 {
	return p.RateAt(v.Position().Distance(bs.Position()))
}

// RateAt returns the data rate at a given link distance in meters.
func (p PathLoss) RateAt(distance float64) float64 {
	if distance < MinDistance {
		return math.Inf(1)
	}

	pathLossDB := -10 * p.Alpha * math.Log10(distance)
	receivedDBm := p.P0 + pathLossDB
	if receivedDBm < p.NoiseFloor {
		return 0
	}
	return math.Max(0, (receivedDBm-p.NoiseFloor)*p.Scale)
}

// Range returns the distance at which the received power reaches the noise
// floor, i.e. the largest distance with a usable link. A non-positive
// exponent never attenuates and yields +Inf.
func (p PathLoss) Range() float64 {
	if p.Alpha <= 0 {
		return math.Inf(1)
	}
	return math.Pow(10, (p.P0-p.NoiseFloor)/(10*p.Alpha))
}
