// Package physics provides the state definitions the reference engine can
// integrate:
//
//   - [Pendulum]: damped rigid pendulum (purely rotational)
//   - [SpringChain]: masses joined by springs between two walls
//   - [NBody]: softened gravitational bodies, forces on a compute device
//
// Every model implements [dynamo.System], [dynamo.Hamiltonian],
// [dynamo.Kinetic] and [dynamo.Configurable]. Use [New] to build one by
// name from a simulation description.
package physics
