package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/gritsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

// rlCircuit is di/dt = (u - R·i)/L driven by the real part of the control input.
type rlCircuit struct {
	R, L float64
}

func (c *rlCircuit) StateDim() int   { return 1 }
func (c *rlCircuit) ControlDim() int { return 2 }

func (c *rlCircuit) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{(real(u.Q()) - c.R*x[0]) / c.L}
}

type blowUp struct{}

func (b *blowUp) StateDim() int   { return 1 }
func (b *blowUp) ControlDim() int { return 0 }
func (b *blowUp) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.Inf(1)}
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK45Attempt(t *testing.T) {
	integ := NewRK45()
	dyn := &harmonicOscillator{}

	_, small := integ.Attempt(dyn, dynamo.State{1, 0}, nil, 0, 1e-3)
	_, large := integ.Attempt(dyn, dynamo.State{1, 0}, nil, 0, 1.0)

	if small > 1 {
		t.Errorf("small step rejected, error ratio %g", small)
	}
	if large <= small {
		t.Errorf("error ratio should grow with step: %g <= %g", large, small)
	}
	if next := integ.Resize(1.0, large); next >= 1.0 && large > 1 {
		t.Errorf("rejected step not shrunk: %g", next)
	}
}

func TestIntegrateLandsOnEndpoint(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
		tol   float64
	}{
		{"euler", NewEuler(), 1e-3},
		{"rk4", NewRK4(), 1e-9},
		{"rk45", NewRK45(), 1e-6},
	}

	dyn := &rlCircuit{R: 1, L: 10e-3}
	u := dynamo.SwitchingVector(10)
	t1 := 3.3e-3
	want := 10 * (1 - math.Exp(-t1*dyn.R/dyn.L))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastT float64
			opts := DefaultOptions()
			opts.OnStep = func(tt float64, _ dynamo.State) { lastT = tt }

			x, err := Integrate(dyn, tt.integ, dynamo.State{0}, u, 0, t1, opts)
			if err != nil {
				t.Fatalf("integrate: %v", err)
			}
			if lastT != t1 {
				t.Errorf("last step at %v, want exactly %v", lastT, t1)
			}
			if math.Abs(x[0]-want) > tt.tol*10 {
				t.Errorf("i(t1) = %.9f, want %.9f", x[0], want)
			}
		})
	}
}

func TestSegmentKeepsHint(t *testing.T) {
	dyn := &rlCircuit{R: 1, L: 10e-3}
	seg := NewSegment(NewRK45(), Options{MaxStep: 1e-3, MinStep: 1e-12})
	x := dynamo.State{0}
	var err error
	for k := 0; k < 10; k++ {
		t0 := float64(k) * 1e-4
		x, err = seg.Advance(dyn, x, dynamo.SwitchingVector(5), t0, t0+1e-4)
		if err != nil {
			t.Fatalf("segment %d: %v", k, err)
		}
	}
	want := 5 * (1 - math.Exp(-1e-3*dyn.R/dyn.L))
	if math.Abs(x[0]-want) > 1e-5 {
		t.Errorf("i = %.8f, want %.8f", x[0], want)
	}
}

func TestIntegrateEmptySpan(t *testing.T) {
	x, err := Integrate(&harmonicOscillator{}, NewRK4(), dynamo.State{1, 0}, nil, 1, 1, DefaultOptions())
	if err != nil || x[0] != 1 || x[1] != 0 {
		t.Errorf("empty span changed the state: %v, %v", x, err)
	}
}

func TestIntegrateInvalidState(t *testing.T) {
	for _, integ := range []dynamo.Integrator{NewRK4(), NewRK45()} {
		_, err := Integrate(&blowUp{}, integ, dynamo.State{0}, nil, 0, 1e-3, DefaultOptions())
		if !errors.Is(err, dynamo.ErrNumerical) {
			t.Errorf("%T: expected numerical error, got %v", integ, err)
		}
		var simErr *dynamo.SimulationError
		if !errors.As(err, &simErr) {
			t.Errorf("%T: expected SimulationError, got %T", integ, err)
		}
	}
}
