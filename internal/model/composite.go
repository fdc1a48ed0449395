package model

import (
	"fmt"
	"maps"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/spacevec"
)

// StiffSourceAndLFilterModel is an L-filtered converter on a stiff grid
// with a constant DC voltage taken from the Inverter.
type StiffSourceAndLFilterModel struct {
	Filter    *LFilter
	Grid      *StiffSource
	Converter *Inverter
	Sensors   *Sensors

	layout
	iIc, iTheta int
}

func NewStiffSourceAndLFilterModel(filter *LFilter, grid *StiffSource, conv *Inverter) (*StiffSourceAndLFilterModel, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if conv == nil || conv.Udc <= 0 {
		return nil, dynamo.Configf("converter with a positive dc voltage is required when no dc-bus model is used")
	}
	l, err := compose(filter.part(), grid.part())
	if err != nil {
		return nil, err
	}
	return &StiffSourceAndLFilterModel{
		Filter:    filter,
		Grid:      grid,
		Converter: conv,
		layout:    l,
		iIc:       l.offsets["filter"],
		iTheta:    l.offsets["grid"],
	}, nil
}

func (m *StiffSourceAndLFilterModel) StateNames() []string       { return m.names }
func (m *StiffSourceAndLFilterModel) InitialState() dynamo.State { return m.initial.Clone() }
func (m *StiffSourceAndLFilterModel) StateDim() int              { return len(m.names) }
func (m *StiffSourceAndLFilterModel) ControlDim() int            { return 2 }
func (m *StiffSourceAndLFilterModel) HasDCBus() bool             { return false }

func (m *StiffSourceAndLFilterModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	ic := x.Complex(m.iIc)
	uc := m.Converter.ACVoltage(u.Q(), m.Converter.Udc)
	eg := m.Grid.Voltage(t, x[m.iTheta])

	dx := make(dynamo.State, len(x))
	dx.SetComplex(m.iIc, m.Filter.Derive(ic, uc, eg))
	dx[m.iTheta] = m.Grid.WN
	return dx
}

// MeasCurrents returns the converter phase currents.
func (m *StiffSourceAndLFilterModel) MeasCurrents(x dynamo.State) [3]float64 {
	return m.Sensors.current(spacevec.ComplexToABC(x.Complex(m.iIc)))
}

// MeasPCCVoltage returns the PCC phase voltages.
func (m *StiffSourceAndLFilterModel) MeasPCCVoltage(t float64, x dynamo.State, u dynamo.Control) [3]float64 {
	uc := m.Converter.ACVoltage(u.Q(), m.Converter.Udc)
	ug := m.Filter.PCCVoltage(x.Complex(m.iIc), uc, m.Grid.Voltage(t, x[m.iTheta]))
	return m.Sensors.voltage(spacevec.ComplexToABC(ug))
}

// MeasDCVoltage returns the configured converter DC voltage.
func (m *StiffSourceAndLFilterModel) MeasDCVoltage() float64 {
	return m.Sensors.dc(m.Converter.Udc)
}

func (m *StiffSourceAndLFilterModel) Measure(t float64, x dynamo.State, u dynamo.Control) Measurement {
	return Measurement{
		T:     t,
		IcABC: m.MeasCurrents(x),
		UgABC: m.MeasPCCVoltage(t, x, u),
		Udc:   m.MeasDCVoltage(),
	}
}

func (m *StiffSourceAndLFilterModel) Signals() map[string]signal.Func {
	return map[string]signal.Func{"e_g_abs": m.Grid.EgAbs}
}

func (m *StiffSourceAndLFilterModel) CheckState(x dynamo.State) error { return nil }

func (m *StiffSourceAndLFilterModel) GetParams() map[string]float64 {
	params := m.Filter.GetParams()
	maps.Copy(params, m.Grid.GetParams())
	params["u_dc"] = m.Converter.Udc
	return params
}

// DCBusAndLFilterModel adds DC-bus capacitor dynamics to the L-filtered
// converter. The converter DC current couples the AC side to the bus.
type DCBusAndLFilterModel struct {
	Filter    *LFilter
	Grid      *StiffSource
	DC        *DCBus
	Converter *Inverter
	Sensors   *Sensors

	layout
	iIc, iTheta, iUdc int
}

func NewDCBusAndLFilterModel(filter *LFilter, grid *StiffSource, dc *DCBus, conv *Inverter) (*DCBusAndLFilterModel, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	if err := grid.validate(); err != nil {
		return nil, err
	}
	if err := dc.validate(); err != nil {
		return nil, err
	}
	if conv == nil {
		conv = NewInverter(dc.Udc0)
	}
	l, err := compose(filter.part(), grid.part(), dc.part())
	if err != nil {
		return nil, err
	}
	return &DCBusAndLFilterModel{
		Filter:    filter,
		Grid:      grid,
		DC:        dc,
		Converter: conv,
		layout:    l,
		iIc:       l.offsets["filter"],
		iTheta:    l.offsets["grid"],
		iUdc:      l.offsets["dc_bus"],
	}, nil
}

func (m *DCBusAndLFilterModel) StateNames() []string       { return m.names }
func (m *DCBusAndLFilterModel) InitialState() dynamo.State { return m.initial.Clone() }
func (m *DCBusAndLFilterModel) StateDim() int              { return len(m.names) }
func (m *DCBusAndLFilterModel) ControlDim() int            { return 2 }
func (m *DCBusAndLFilterModel) HasDCBus() bool             { return true }

func (m *DCBusAndLFilterModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	q := u.Q()
	ic := x.Complex(m.iIc)
	udc := x[m.iUdc]
	uc := m.Converter.ACVoltage(q, udc)
	eg := m.Grid.Voltage(t, x[m.iTheta])

	dx := make(dynamo.State, len(x))
	dx.SetComplex(m.iIc, m.Filter.Derive(ic, uc, eg))
	dx[m.iTheta] = m.Grid.WN
	dx[m.iUdc] = m.DC.Derive(t, udc, spacevec.ComplexToABC(ic), q)
	return dx
}

func (m *DCBusAndLFilterModel) MeasCurrents(x dynamo.State) [3]float64 {
	return m.Sensors.current(spacevec.ComplexToABC(x.Complex(m.iIc)))
}

func (m *DCBusAndLFilterModel) MeasPCCVoltage(t float64, x dynamo.State, u dynamo.Control) [3]float64 {
	uc := m.Converter.ACVoltage(u.Q(), x[m.iUdc])
	ug := m.Filter.PCCVoltage(x.Complex(m.iIc), uc, m.Grid.Voltage(t, x[m.iTheta]))
	return m.Sensors.voltage(spacevec.ComplexToABC(ug))
}

// MeasDCVoltage returns the DC-bus voltage at the sampling instant.
func (m *DCBusAndLFilterModel) MeasDCVoltage(x dynamo.State) float64 {
	return m.Sensors.dc(x[m.iUdc])
}

func (m *DCBusAndLFilterModel) Measure(t float64, x dynamo.State, u dynamo.Control) Measurement {
	return Measurement{
		T:     t,
		IcABC: m.MeasCurrents(x),
		UgABC: m.MeasPCCVoltage(t, x, u),
		Udc:   m.MeasDCVoltage(x),
	}
}

func (m *DCBusAndLFilterModel) Signals() map[string]signal.Func {
	return map[string]signal.Func{"e_g_abs": m.Grid.EgAbs, "i_ext": signal.OrZero(m.DC.IExt)}
}

func (m *DCBusAndLFilterModel) CheckState(x dynamo.State) error {
	udc := x[m.iUdc]
	if limit := m.DC.limit(); udc < 0 || udc > limit {
		return fmt.Errorf("%w: u_dc=%g outside [0, %g]", dynamo.ErrOutOfRange, udc, limit)
	}
	return nil
}

func (m *DCBusAndLFilterModel) GetParams() map[string]float64 {
	params := m.Filter.GetParams()
	maps.Copy(params, m.Grid.GetParams())
	maps.Copy(params, m.DC.GetParams())
	return params
}
