package model

import (
	"math"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/spacevec"
)

// LFilter is an L filter in series with an inductive-resistive grid
// impedance.
type LFilter struct {
	Lf  float64    `yaml:"L_f"`
	Rf  float64    `yaml:"R_f"`
	Lg  float64    `yaml:"L_g"`
	Rg  float64    `yaml:"R_g"`
	Ic0 complex128 `yaml:"-"`
}

func NewLFilter(lf, lg, rg float64) *LFilter {
	return &LFilter{Lf: lf, Lg: lg, Rg: rg}
}

func (f *LFilter) validate() error {
	if f == nil {
		return dynamo.Configf("grid filter is required")
	}
	if f.Lf+f.Lg <= 0 {
		return dynamo.Configf("total filter inductance must be positive, got %g", f.Lf+f.Lg)
	}
	if f.Rf < 0 || f.Rg < 0 || f.Lf < 0 || f.Lg < 0 {
		return dynamo.Configf("filter parameters must be non-negative")
	}
	return nil
}

func (f *LFilter) part() part {
	return part{name: "filter", states: []string{"i_c.re", "i_c.im"}, initial: []float64{real(f.Ic0), imag(f.Ic0)}}
}

// Derive returns di_c/dt for converter voltage uc and grid voltage eg.
func (f *LFilter) Derive(ic, uc, eg complex128) complex128 {
	lt := f.Lf + f.Lg
	rt := f.Rf + f.Rg
	return (uc - eg - complex(rt, 0)*ic) / complex(lt, 0)
}

// PCCVoltage is the voltage at the point of common coupling between the
// filter and the grid impedance.
func (f *LFilter) PCCVoltage(ic, uc, eg complex128) complex128 {
	lt := f.Lf + f.Lg
	return (complex(f.Lg, 0)*uc + complex(f.Lf, 0)*eg + complex(f.Lf*f.Rg-f.Lg*f.Rf, 0)*ic) / complex(lt, 0)
}

func (f *LFilter) GetParams() map[string]float64 {
	return map[string]float64{"L_f": f.Lf, "R_f": f.Rf, "L_g": f.Lg, "R_g": f.Rg}
}

// StiffSource is an ideal grid voltage source with constant angular
// frequency and a time-varying magnitude.
type StiffSource struct {
	WN     float64     `yaml:"w_N"`
	EgAbs  signal.Func `yaml:"-"`
	Theta0 float64     `yaml:"theta0"`
}

// NewStiffSource returns a 400 V (line-to-line rms) source at angular
// frequency wN.
func NewStiffSource(wN float64) *StiffSource {
	return &StiffSource{
		WN:    wN,
		EgAbs: signal.Const(math.Sqrt(2.0/3.0) * 400),
	}
}

func (g *StiffSource) validate() error {
	if g == nil {
		return dynamo.Configf("grid model is required")
	}
	if g.WN <= 0 {
		return dynamo.Configf("grid angular frequency must be positive, got %g", g.WN)
	}
	return nil
}

func (g *StiffSource) part() part {
	return part{name: "grid", states: []string{"theta_g"}, initial: []float64{g.Theta0}}
}

// Voltage returns the grid voltage space vector.
func (g *StiffSource) Voltage(t, theta float64) complex128 {
	return complex(signal.OrZero(g.EgAbs).At(t), 0) * spacevec.Rotate(1, theta)
}

func (g *StiffSource) GetParams() map[string]float64 {
	return map[string]float64{"w_N": g.WN}
}

// DCBus models the DC-bus capacitance fed by an external current source.
type DCBus struct {
	Cdc  float64     `yaml:"C_dc"`
	Gdc  float64     `yaml:"G_dc"`
	IExt signal.Func `yaml:"-"`
	Udc0 float64     `yaml:"u_dc0"`

	// Umax bounds the physically plausible bus voltage; zero means 5·Udc0.
	Umax float64 `yaml:"u_max"`
}

func NewDCBus(cdc, gdc, udc0 float64) *DCBus {
	return &DCBus{Cdc: cdc, Gdc: gdc, Udc0: udc0, IExt: signal.Zero}
}

func (b *DCBus) validate() error {
	if b == nil {
		return dynamo.Configf("dc-bus model is required")
	}
	if b.Cdc <= 0 {
		return dynamo.Configf("dc-bus capacitance must be positive, got %g", b.Cdc)
	}
	if b.Gdc < 0 {
		return dynamo.Configf("dc-bus conductance must be non-negative, got %g", b.Gdc)
	}
	if b.Udc0 <= 0 {
		return dynamo.Configf("initial dc-bus voltage must be positive, got %g", b.Udc0)
	}
	return nil
}

func (b *DCBus) part() part {
	return part{name: "dc_bus", states: []string{"u_dc"}, initial: []float64{b.Udc0}}
}

func (b *DCBus) limit() float64 {
	if b.Umax > 0 {
		return b.Umax
	}
	return 5 * b.Udc0
}

// DCCurrent is the converter current drawn from the bus for switching
// vector q and phase currents icABC.
func DCCurrent(icABC [3]float64, q complex128) float64 {
	return spacevec.Dot(spacevec.ComplexToABC(q), icABC)
}

// Derive returns du_dc/dt.
func (b *DCBus) Derive(t, udc float64, icABC [3]float64, q complex128) float64 {
	iDC := DCCurrent(icABC, q)
	return (signal.OrZero(b.IExt).At(t) - iDC - b.Gdc*udc) / b.Cdc
}

func (b *DCBus) GetParams() map[string]float64 {
	return map[string]float64{"C_dc": b.Cdc, "G_dc": b.Gdc, "u_dc0": b.Udc0}
}

// Inverter is a lossless two-level converter.
type Inverter struct {
	// Udc is used when no DC-bus model is composed.
	Udc float64 `yaml:"u_dc"`
}

func NewInverter(udc float64) *Inverter {
	return &Inverter{Udc: udc}
}

// ACVoltage returns the converter output voltage for switching vector q.
func (c *Inverter) ACVoltage(q complex128, udc float64) complex128 {
	return q * complex(udc, 0)
}
