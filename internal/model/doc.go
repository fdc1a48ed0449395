// Package model provides the continuous-time plant models of a grid-connected
// converter.
//
// Sub-models describe one physical component each:
//
//   - [LFilter]: converter-side inductor plus grid impedance
//   - [StiffSource]: constant-frequency grid voltage source
//   - [DCBus]: DC-bus capacitor fed by an external current
//   - [Inverter]: ideal three-phase two-level converter
//
// Composites implement [Plant] and own the state vector:
//
//   - [StiffSourceAndLFilterModel]: fixed DC voltage, states {i_c, θ_g}
//   - [DCBusAndLFilterModel]: dynamic DC bus, states {i_c, θ_g, u_dc}
//
// All quantities are peak-value scaled space vectors in SI units.
package model
