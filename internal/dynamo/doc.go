// Package dynamo provides the numeric primitives shared by the plant models,
// the integrators and the co-simulation loop.
//
// The package defines:
//
//   - [State]: real-valued state vector (complex quantities are stored as
//     consecutive real/imaginary pairs)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - the error taxonomy used across the module ([ErrConfiguration],
//     [ErrNumerical], [ErrMisuse]) and [SimulationError]
//
// # Example
//
//	plant, _ := model.NewDCBusAndLFilterModel(filter, grid, bus, conv)
//	x := plant.InitialState()
//	x, err := integrators.Integrate(plant, integrators.NewRK45(), x, u, 0, 1e-4, opts)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
package dynamo
