package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Complex reads the complex quantity stored at index i (real part) and i+1
// (imaginary part).
func (s State) Complex(i int) complex128 {
	return complex(s[i], s[i+1])
}

// SetComplex stores z at index i and i+1.
func (s State) SetComplex(i int, z complex128) {
	s[i] = real(z)
	s[i+1] = imag(z)
}

// Control is the exogenous input held constant across one integration
// segment. For the converter plants it carries the switching space vector
// as {Re q, Im q}.
type Control []float64

// SwitchingVector builds the control input for switching space vector q.
func SwitchingVector(q complex128) Control {
	return Control{real(q), imag(q)}
}

// Q returns the switching space vector carried by u, zero if u is empty.
func (u Control) Q() complex128 {
	if len(u) < 2 {
		return 0
	}
	return complex(u[0], u[1])
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Configurable exposes named parameters for display.
type Configurable interface {
	GetParams() map[string]float64
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	// Attempt takes a trial step and returns the candidate state with its
	// scaled error estimate; ratios <= 1 are acceptable.
	Attempt(dyn System, x State, u Control, t, dt float64) (State, float64)
	// Resize proposes the next step size from the error ratio.
	Resize(dt, errRatio float64) float64
}
