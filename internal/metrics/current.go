package metrics

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/gritsim/internal/sim"
)

// CurrentTracking is the RMS magnitude of the synchronous-frame current
// error i_ref − i.
type CurrentTracking struct {
	name    string
	sumSq   float64
	samples int
}

func NewCurrentTracking() *CurrentTracking {
	return &CurrentTracking{name: "current_tracking_rms"}
}

func (c *CurrentTracking) Name() string { return c.name }

func (c *CurrentTracking) Observe(r sim.Record) {
	e := cmplx.Abs(r.Cmd.IcRef - r.Cmd.Ic)
	c.sumSq += e * e
	c.samples++
}

func (c *CurrentTracking) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *CurrentTracking) Reset() {
	c.sumSq = 0
	c.samples = 0
}

// PeakCurrent is the largest measured phase current magnitude.
type PeakCurrent struct {
	name string
	peak float64
}

func NewPeakCurrent() *PeakCurrent {
	return &PeakCurrent{name: "peak_current"}
}

func (p *PeakCurrent) Name() string { return p.name }

func (p *PeakCurrent) Observe(r sim.Record) {
	abc := r.Meas.IcABC
	p.peak = math.Max(p.peak, floats.Norm(abc[:], math.Inf(1)))
}

func (p *PeakCurrent) Value() float64 { return p.peak }

func (p *PeakCurrent) Reset() {
	p.peak = 0
}

// Default returns the metric set attached by the CLI.
func Default(cdc float64) []sim.Metric {
	m := []sim.Metric{
		NewModulationIndex(),
		NewHeadroom(),
		NewSwitchingFrequency(),
		NewCurrentTracking(),
		NewPeakCurrent(),
		NewDCVoltageError(DefaultSettle),
	}
	if cdc > 0 {
		m = append(m, NewDCEnergy(cdc))
	}
	return m
}
