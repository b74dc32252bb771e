// Package compute provides execution devices for force kernels.
//
//   - CPU: goroutine-parallel force evaluation
//   - CUDA: placeholder for a GPU device; never available in this build
//
// A device is chosen once per simulation context with [Select] and passed
// to the state definition that needs it:
//
//	dev, err := compute.Select("auto")
//	ax, ay := dev.NBodyForces(positions, masses, g, softening)
package compute
