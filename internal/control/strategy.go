package control

import "github.com/san-kum/gritsim/internal/model"

// Strategy is a discrete-time controller sampled at a fixed period.
type Strategy interface {
	SamplingPeriod() float64
	// Step computes the command valid on [t, t+T_s). It mutates the
	// controller's integrator and PLL state.
	Step(t float64, meas model.Measurement) (Command, error)
	Reset()
	DCBusControlEnabled() bool
}

// Command is one controller output. Synchronous-frame quantities are
// expressed in the PLL frame of the sampling instant.
type Command struct {
	T    float64
	DABC [3]float64 // phase duty ratios
	Q    complex128 // averaged switching vector realized by DABC

	IcRef complex128 // current reference, synchronous frame
	Ic    complex128 // measured current, synchronous frame
	Ug    complex128 // measured PCC voltage, synchronous frame
	UcRef complex128 // unlimited converter voltage reference, synchronous frame

	Theta float64 // PLL angle
	W     float64 // PLL angular frequency

	PgRef  float64
	QgRef  float64
	UdcRef float64
	Udc    float64

	CurrentLimited bool
	VoltageLimited bool
}
