// Package dynamo provides the state and system primitives shared by the
// reference engine:
//
//   - [State]: phase-space vector, coordinates then velocities
//   - [System]: ODE right-hand side dX/dt = f(X, t)
//   - [Integrator]: one numerical step of a System
//   - [Hamiltonian], [Kinetic], [Rotational]: optional capabilities
//
// # Thread Safety
//
// Systems and integrators keep scratch buffers and are NOT thread-safe.
// Each rank of a process group owns its own instances.
package dynamo
