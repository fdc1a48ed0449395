package sim

import (
	"github.com/san-kum/gritsim/internal/control"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
)

// Phase is the lifecycle state of a Simulation.
type Phase int

const (
	Configured Phase = iota
	Running
	Completed
)

func (p Phase) String() string {
	switch p {
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Record is the log entry of one sampling instant. State and Meas are taken
// at T; Cmd is the command held from T to the next instant. The final
// record, at t_stop, repeats the last command.
type Record struct {
	Step  int
	T     float64
	State dynamo.State
	Meas  model.Measurement
	Cmd   control.Command

	// Commutations is the number of leg transitions in the period starting
	// at T; always zero for the averaged converter.
	Commutations int
}

// Metric accumulates a scalar over the records of a run.
type Metric interface {
	Name() string
	Observe(r Record)
	Value() float64
	Reset()
}

// Observer is notified of each record as it is appended.
type Observer interface {
	OnRecord(r Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r Record)

func (f ObserverFunc) OnRecord(r Record) { f(r) }

// Trace holds every accepted integrator step when dense output is enabled.
type Trace struct {
	T      []float64
	States []dynamo.State
}
