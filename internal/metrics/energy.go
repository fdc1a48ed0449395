package metrics

import (
	"math"

	"github.com/san-kum/gritsim/internal/sim"
)

// DCEnergy is the mean energy stored in the DC-bus capacitor.
type DCEnergy struct {
	name    string
	cdc     float64
	samples int
	total   float64
}

func NewDCEnergy(cdc float64) *DCEnergy {
	return &DCEnergy{
		name: "dc_energy",
		cdc:  cdc,
	}
}

func (e *DCEnergy) Name() string { return e.name }

func (e *DCEnergy) Observe(r sim.Record) {
	u := r.Meas.Udc
	e.total += 0.5 * e.cdc * u * u
	e.samples++
}

func (e *DCEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *DCEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// DefaultSettle is the time allowed for the dc bus to follow a reference
// change before its error counts.
const DefaultSettle = 0.04

// DCVoltageError is the largest |u_dc − u_dc_ref| observed at least settle
// after the most recent reference change. Records without a DC voltage
// reference are ignored.
type DCVoltageError struct {
	name     string
	settle   float64
	maxError float64

	started   bool
	lastRef   float64
	changedAt float64
}

func NewDCVoltageError(settle float64) *DCVoltageError {
	return &DCVoltageError{
		name:   "dc_voltage_error",
		settle: settle,
	}
}

func (e *DCVoltageError) Name() string { return e.name }

func (e *DCVoltageError) Observe(r sim.Record) {
	ref := r.Cmd.UdcRef
	if ref == 0 {
		return
	}
	if !e.started || ref != e.lastRef {
		e.started, e.lastRef, e.changedAt = true, ref, r.T
	}
	if r.T-e.changedAt < e.settle {
		return
	}
	e.maxError = math.Max(e.maxError, math.Abs(r.Meas.Udc-ref))
}

func (e *DCVoltageError) Value() float64 {
	return e.maxError
}

func (e *DCVoltageError) Reset() {
	e.maxError = 0
	e.started = false
	e.lastRef = 0
	e.changedAt = 0
}
