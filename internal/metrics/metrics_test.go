package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/sim"
)

func record(t float64, cmd control.Command, meas model.Measurement) sim.Record {
	return sim.Record{T: t, Cmd: cmd, Meas: meas}
}

func TestModulationIndex(t *testing.T) {
	m := NewModulationIndex()
	m.Observe(record(0, control.Command{Q: complex(0.3, 0.4)}, model.Measurement{}))
	m.Observe(record(1, control.Command{Q: 0}, model.Measurement{}))

	if math.Abs(m.Value()-0.25) > 1e-12 {
		t.Errorf("expected 0.25, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestHeadroom(t *testing.T) {
	h := NewHeadroom()
	if h.Value() != 1 {
		t.Errorf("empty headroom = %f, want 1", h.Value())
	}

	h.Observe(record(0, control.Command{}, model.Measurement{}))
	h.Observe(record(1, control.Command{CurrentLimited: true}, model.Measurement{}))
	h.Observe(record(2, control.Command{VoltageLimited: true}, model.Measurement{}))
	h.Observe(record(3, control.Command{}, model.Measurement{}))

	if h.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", h.Value())
	}
}

func TestDCEnergy(t *testing.T) {
	e := NewDCEnergy(1e-3)
	e.Observe(record(0, control.Command{}, model.Measurement{Udc: 600}))

	if math.Abs(e.Value()-180) > 1e-9 {
		t.Errorf("expected 180 J, got %f", e.Value())
	}
}

func TestDCVoltageError(t *testing.T) {
	e := NewDCVoltageError(0.04)
	steps := []struct {
		t, ref, udc float64
	}{
		{0, 600, 600},
		{0.02, 650, 600}, // reference step
		{0.05, 650, 630}, // still settling
		{0.07, 650, 648},
		{0.08, 0, 100}, // no reference
		{0.09, 650, 649},
	}
	for _, s := range steps {
		e.Observe(record(s.t, control.Command{UdcRef: s.ref}, model.Measurement{Udc: s.udc}))
	}
	if e.Value() != 2 {
		t.Errorf("expected 2 V, got %f", e.Value())
	}

	e.Reset()
	e.Observe(record(0.5, control.Command{UdcRef: 650}, model.Measurement{Udc: 600}))
	if e.Value() != 0 {
		t.Errorf("error counted inside the settling window after reset: %f", e.Value())
	}
}

func TestSwitchingFrequency(t *testing.T) {
	f := NewSwitchingFrequency()
	// One commutation per leg every 1/16 ms is an 8 kHz carrier.
	for k := 0; k < 16; k++ {
		r := record(float64(k)/16e3, control.Command{}, model.Measurement{})
		r.Commutations = 3
		f.Observe(r)
	}
	f.Observe(record(1e-3, control.Command{}, model.Measurement{}))
	if v := f.Value(); math.Abs(v-8e3) > 1e-6 {
		t.Errorf("switching frequency = %v, want 8000", v)
	}

	f.Reset()
	if f.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestCurrentMetrics(t *testing.T) {
	c := NewCurrentTracking()
	p := NewPeakCurrent()

	r := record(0, control.Command{IcRef: complex(10, 0), Ic: complex(7, 4)},
		model.Measurement{IcABC: [3]float64{3, -12, 9}})
	c.Observe(r)
	p.Observe(r)

	if math.Abs(c.Value()-5) > 1e-12 {
		t.Errorf("tracking = %f, want 5", c.Value())
	}
	if p.Value() != 12 {
		t.Errorf("peak = %f, want 12", p.Value())
	}

	p.Observe(record(0.001, control.Command{}, model.Measurement{IcABC: [3]float64{-5, 2, 3}}))
	if p.Value() != 12 {
		t.Errorf("peak dropped to %f", p.Value())
	}

	p.Reset()
	if p.Value() != 0 {
		t.Error("expected zero peak after reset")
	}
}

func TestDefault(t *testing.T) {
	if n := len(Default(0)); n != 6 {
		t.Errorf("expected 6 metrics without a dc bus, got %d", n)
	}
	if n := len(Default(1e-3)); n != 7 {
		t.Errorf("expected 7 metrics with a dc bus, got %d", n)
	}
}
