package metrics

import (
	"math/cmplx"

	"github.com/san-kum/gritsim/internal/sim"
)

// ModulationIndex is the mean magnitude of the commanded switching vector.
type ModulationIndex struct {
	name    string
	sum     float64
	samples int
}

func NewModulationIndex() *ModulationIndex {
	return &ModulationIndex{
		name: "modulation_index",
	}
}

func (m *ModulationIndex) Name() string {
	return m.name
}

func (m *ModulationIndex) Observe(r sim.Record) {
	m.sum += cmplx.Abs(r.Cmd.Q)
	m.samples++
}

func (m *ModulationIndex) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *ModulationIndex) Reset() {
	m.sum = 0
	m.samples = 0
}

// Headroom is the fraction of sampling periods in which neither the
// current limit nor the modulation limit was active.
type Headroom struct {
	name    string
	limited int
	samples int
}

func NewHeadroom() *Headroom {
	return &Headroom{
		name: "headroom",
	}
}

func (h *Headroom) Name() string {
	return h.name
}

func (h *Headroom) Observe(r sim.Record) {
	h.samples++
	if r.Cmd.CurrentLimited || r.Cmd.VoltageLimited {
		h.limited++
	}
}

func (h *Headroom) Value() float64 {
	if h.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(h.limited)/float64(h.samples)
}

func (h *Headroom) Reset() {
	h.limited = 0
	h.samples = 0
}

// SwitchingFrequency is the mean switching frequency of one converter leg,
// from the commutations logged per sampling period. It is zero for the
// averaged converter.
type SwitchingFrequency struct {
	name         string
	commutations int
	first, last  float64
	samples      int
}

func NewSwitchingFrequency() *SwitchingFrequency {
	return &SwitchingFrequency{name: "switching_frequency"}
}

func (f *SwitchingFrequency) Name() string { return f.name }

func (f *SwitchingFrequency) Observe(r sim.Record) {
	if f.samples == 0 {
		f.first = r.T
	}
	f.last = r.T
	f.samples++
	f.commutations += r.Commutations
}

// Value counts two commutations per switching period on each of the
// three legs.
func (f *SwitchingFrequency) Value() float64 {
	span := f.last - f.first
	if span <= 0 {
		return 0
	}
	return float64(f.commutations) / (6 * span)
}

func (f *SwitchingFrequency) Reset() {
	f.commutations = 0
	f.samples = 0
	f.first, f.last = 0, 0
}
