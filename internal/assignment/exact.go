package assignment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"v2x-sim/internal/entity"
)

// defaultTolerance is the reduced-cost tolerance handed to the simplex solver.
const defaultTolerance = 1e-10

// Exact solves the capacity-constrained assignment as a linear program and
// returns a throughput-maximizing assignment. The bipartite b-matching
// polytope is integral, so the simplex vertex is a valid assignment.
//
// Exact is an alternate implementation of the Optimizer contract; Greedy
// remains the default.
type Exact struct {
	// Tolerance overrides the simplex reduced-cost tolerance when positive.
	Tolerance float64
	// SkipUnusableLinks drops zero-rate links from the solution.
	SkipUnusableLinks bool
}

// Decide implements Optimizer.
//
// Variables are laid out as x[i*B+j] (vehicle i on open station j), then one slack
// per vehicle and one slack per station:
//
//	Σ_j x_ij + s_i = 1        for every vehicle
//	Σ_i x_ij + t_j = cap_j    for every station
//
// and the objective minimizes -Σ w_ij x_ij.
func (e Exact) Decide(vehicles []entity.Vehicle, stations []entity.BaseStation, rates mat.Matrix) (Assignment, error) {
	if err := checkShape(vehicles, stations, rates); err != nil {
		return nil, err
	}
	assignments := make(Assignment)

	// Zero-capacity stations can never be used; leaving them out keeps the
	// program small and avoids degenerate pivots.
	var open []int
	for j, bs := range stations {
		if bs.Capacity() > 0 {
			open = append(open, j)
		}
	}
	nv, nb := len(vehicles), len(open)
	if nv == 0 || nb == 0 {
		return assignments, nil
	}

	weights := finiteWeights(rates, nv, open)

	numEdges := nv * nb
	numVars := numEdges + nv + nb
	numRows := nv + nb

	c := make([]float64, numVars)
	a := mat.NewDense(numRows, numVars, nil)
	b := make([]float64, numRows)
	basic := make([]int, numRows)

	for i := 0; i < nv; i++ {
		for k := 0; k < nb; k++ {
			col := i*nb + k
			c[col] = -weights[col]
			a.Set(i, col, 1)
			a.Set(nv+k, col, 1)
		}
	}
	for i := 0; i < nv; i++ {
		slack := numEdges + i
		a.Set(i, slack, 1)
		b[i] = 1
		basic[i] = slack
	}
	for k, j := range open {
		slack := numEdges + nv + k
		a.Set(nv+k, slack, 1)
		b[nv+k] = float64(min(stations[j].Capacity(), nv))
		basic[nv+k] = slack
	}

	tol := e.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	_, x, err := lp.Simplex(c, a, b, tol, basic)
	if err != nil {
		return nil, fmt.Errorf("linear program solve failed: %w", err)
	}

	load := make([]int, nb)
	for i := 0; i < nv; i++ {
		for k, j := range open {
			if x[i*nb+k] < 0.5 {
				continue
			}
			if e.SkipUnusableLinks && rates.At(i, j) <= 0 {
				continue
			}
			if load[k] >= stations[j].Capacity() {
				continue
			}
			assignments[vehicles[i].ID()] = stations[j].ID()
			load[k]++
			break
		}
	}
	return assignments, nil
}

// finiteWeights copies the open columns of the matrix into a flat slice,
// replacing +Inf with a weight larger than the sum of every finite weight so
// that unbounded links still dominate any combination of finite ones.
func finiteWeights(rates mat.Matrix, nv int, open []int) []float64 {
	nb := len(open)
	weights := make([]float64, nv*nb)
	finiteSum := 0.0
	for i := 0; i < nv; i++ {
		for _, j := range open {
			w := rates.At(i, j)
			if !math.IsInf(w, 1) && w > 0 {
				finiteSum += w
			}
		}
	}
	unbounded := finiteSum + 1
	for i := 0; i < nv; i++ {
		for k, j := range open {
			w := rates.At(i, j)
			switch {
			case math.IsInf(w, 1):
				w = unbounded
			case w < 0 || math.IsNaN(w):
				w = 0
			}
			weights[i*nb+k] = w
		}
	}
	return weights
}
