package compute

import (
	"math"
	"runtime"
	"sync"
)

// parallelThreshold is the body count below which forces are summed
// serially.
const parallelThreshold = 16

type CPU struct {
	workers int
}

func NewCPU() *CPU {
	return &CPU{workers: runtime.NumCPU()}
}

func (c *CPU) Name() string    { return "cpu" }
func (c *CPU) Available() bool { return true }
func (c *CPU) Cleanup()        {}

// NBodyForces returns the softened gravitational acceleration of every body.
// positions holds interleaved (x, y) pairs.
func (c *CPU) NBodyForces(positions []float64, masses []float64, g, softening float64) ([]float64, []float64) {
	n := len(masses)
	ax := make([]float64, n)
	ay := make([]float64, n)

	if n < parallelThreshold || c.workers <= 1 {
		pairwise(positions, masses, g, softening*softening, ax, ay)
		return ax, ay
	}

	chunk := (n + c.workers - 1) / c.workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			rows(positions, masses, g, softening*softening, start, end, ax, ay)
		}(start, end)
	}
	wg.Wait()
	return ax, ay
}

// pairwise uses Newton's third law to visit each pair once.
func pairwise(pos, masses []float64, g, eps2 float64, ax, ay []float64) {
	n := len(masses)
	for i := 0; i < n; i++ {
		xi, yi := pos[i*2], pos[i*2+1]
		for j := i + 1; j < n; j++ {
			rx := pos[j*2] - xi
			ry := pos[j*2+1] - yi
			rInv := 1.0 / math.Sqrt(rx*rx+ry*ry+eps2)
			r3Inv := rInv * rInv * rInv

			ax[i] += g * masses[j] * r3Inv * rx
			ay[i] += g * masses[j] * r3Inv * ry
			ax[j] -= g * masses[i] * r3Inv * rx
			ay[j] -= g * masses[i] * r3Inv * ry
		}
	}
}

// rows fills ax, ay for bodies [start, end); each worker owns its rows.
func rows(pos, masses []float64, g, eps2 float64, start, end int, ax, ay []float64) {
	n := len(masses)
	for i := start; i < end; i++ {
		xi, yi := pos[i*2], pos[i*2+1]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			rx := pos[j*2] - xi
			ry := pos[j*2+1] - yi
			rInv := 1.0 / math.Sqrt(rx*rx+ry*ry+eps2)
			f := g * masses[j] * rInv * rInv * rInv
			ax[i] += f * rx
			ay[i] += f * ry
		}
	}
}
