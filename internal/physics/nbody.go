package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/dynbind/internal/compute"
	"github.com/san-kum/dynbind/internal/dynamo"
)

// gpuThreshold is the body count from which forces go to the device.
const gpuThreshold = 32

// NBody is a softened 2-D gravitational system. State is
// [x_0, y_0, ..., x_n-1, y_n-1, vx_0, vy_0, ..., vx_n-1, vy_n-1].
type NBody struct {
	Masses    []float64
	G         float64
	Softening float64

	device compute.Device
	cpu    compute.Device
	n      int
}

// NewNBody creates n unit-mass bodies. Force evaluation for large n is
// delegated to dev; a nil dev always uses the CPU path.
func NewNBody(n int, dev compute.Device) *NBody {
	masses := make([]float64, n)
	for i := range masses {
		masses[i] = 1.0
	}
	return &NBody{
		Masses:    masses,
		G:         1.0,
		Softening: 0.01,
		device:    dev,
		cpu:       compute.NewCPU(),
		n:         n,
	}
}

// Ring places the bodies on a unit circle with tangential velocities.
func (nb *NBody) Ring() dynamo.State {
	n := nb.n
	x := make(dynamo.State, 4*n)
	for i := 0; i < n; i++ {
		angle := float64(i) * 2.0 * math.Pi / float64(n)
		x[2*i] = math.Cos(angle)
		x[2*i+1] = math.Sin(angle)
		x[2*n+2*i] = -math.Sin(angle) * 0.5
		x[2*n+2*i+1] = math.Cos(angle) * 0.5
	}
	return x
}

func (nb *NBody) StateDim() int         { return 4 * nb.n }
func (nb *NBody) DegreesOfFreedom() int { return 2 * nb.n }

func (nb *NBody) Derive(x dynamo.State, t float64) dynamo.State {
	n := nb.n
	pos := x[:2*n]

	dev := nb.device
	if dev == nil || n < gpuThreshold {
		dev = nb.cpu
	}
	ax, ay := dev.NBodyForces(pos, nb.Masses, nb.G, nb.Softening)

	dx := make(dynamo.State, 4*n)
	copy(dx[:2*n], x[2*n:])
	for i := 0; i < n; i++ {
		dx[2*n+2*i] = ax[i]
		dx[2*n+2*i+1] = ay[i]
	}
	return dx
}

func (nb *NBody) KineticEnergy(x dynamo.State) float64 {
	n := nb.n
	ke := 0.0
	for i := 0; i < n; i++ {
		vx, vy := x[2*n+2*i], x[2*n+2*i+1]
		ke += 0.5 * nb.Masses[i] * (vx*vx + vy*vy)
	}
	return ke
}

func (nb *NBody) Energy(x dynamo.State) float64 {
	n := nb.n
	eps2 := nb.Softening * nb.Softening
	pe := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rx := x[2*j] - x[2*i]
			ry := x[2*j+1] - x[2*i+1]
			pe -= nb.G * nb.Masses[i] * nb.Masses[j] / math.Sqrt(rx*rx+ry*ry+eps2)
		}
	}
	return nb.KineticEnergy(x) + pe
}

func (nb *NBody) Params() map[string]float64 {
	return map[string]float64{
		"g":         nb.G,
		"softening": nb.Softening,
	}
}

func (nb *NBody) SetParam(name string, value float64) error {
	switch name {
	case "g":
		nb.G = value
	case "softening":
		if value < 0 {
			return fmt.Errorf("softening %v: %w", value, dynamo.ErrParameterBounds)
		}
		nb.Softening = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
