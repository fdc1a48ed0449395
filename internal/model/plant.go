package model

import (
	"fmt"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/signal"
)

// Plant is a composed continuous-time system driven by the converter
// switching vector carried in dynamo.Control. Derive, Measure and
// CheckState expect a state of StateDim entries laid out as StateNames.
type Plant interface {
	dynamo.System
	StateNames() []string
	InitialState() dynamo.State
	// Measure samples the sensors at time t; u is the switching vector
	// applied just before t. It is called once per sampling instant.
	Measure(t float64, x dynamo.State, u dynamo.Control) Measurement
	// Signals lists the exogenous time functions the plant evaluates.
	Signals() map[string]signal.Func
	// CheckState reports physically implausible states.
	CheckState(x dynamo.State) error
	HasDCBus() bool
}

// Measurement is the snapshot handed to the controller.
type Measurement struct {
	T     float64
	IcABC [3]float64 // converter phase currents
	UgABC [3]float64 // PCC phase voltages
	Udc   float64
}

// part is one sub-model's slice of the composed state vector.
type part struct {
	name    string
	states  []string
	initial []float64
}

// layout maps composed state indices to sub-model states.
type layout struct {
	names   []string
	initial dynamo.State
	offsets map[string]int
}

func compose(parts ...part) (layout, error) {
	l := layout{offsets: make(map[string]int)}
	for _, p := range parts {
		if len(p.states) != len(p.initial) {
			return layout{}, fmt.Errorf("%w: %s declares %d states but %d initial values",
				dynamo.ErrDimensionMismatch, p.name, len(p.states), len(p.initial))
		}
		l.offsets[p.name] = len(l.names)
		l.names = append(l.names, p.states...)
		l.initial = append(l.initial, p.initial...)
	}
	return l, nil
}
