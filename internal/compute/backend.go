package compute

import "fmt"

// Device is an execution device for force kernels. A simulation context
// owns one device; nothing in this package keeps a process-wide default.
type Device interface {
	Name() string
	Available() bool
	NBodyForces(positions []float64, masses []float64, g, softening float64) (ax, ay []float64)
	Cleanup()
}

// Select returns the device called name: "cpu", "cuda", or "auto" (CUDA
// when available, else CPU). Asking for CUDA on a machine without it is an
// error.
func Select(name string) (Device, error) {
	switch name {
	case "", "auto":
		return AutoSelect(), nil
	case "cpu":
		return NewCPU(), nil
	case "cuda", "gpu":
		cuda := NewCUDA()
		if !cuda.Available() {
			return nil, fmt.Errorf("compute: %w", ErrNoGPU)
		}
		return cuda, nil
	default:
		return nil, fmt.Errorf("compute: unknown device %q", name)
	}
}

func AutoSelect() Device {
	cuda := NewCUDA()
	if cuda.Available() {
		return cuda
	}
	return NewCPU()
}
