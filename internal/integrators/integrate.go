package integrators

import (
	"math"

	"github.com/san-kum/gritsim/internal/dynamo"
)

// Options control how a segment [t0, t1] is integrated.
type Options struct {
	// MaxStep bounds the step size. Fixed-step integrators divide each
	// segment into the fewest equal steps not exceeding MaxStep.
	MaxStep float64
	// MinStep is the smallest step an adaptive integrator may take.
	MinStep float64
	// OnStep, if set, is called after every accepted step.
	OnStep func(t float64, x dynamo.State)
}

func DefaultOptions() Options {
	return Options{
		MaxStep: 1e-5,
		MinStep: 1e-12,
	}
}

// Segment integrates a system piecewise with a persistent step-size hint,
// so consecutive segments of an adaptive run do not restart from MaxStep.
type Segment struct {
	integ dynamo.Integrator
	opts  Options
	hint  float64
}

func NewSegment(integ dynamo.Integrator, opts Options) *Segment {
	return &Segment{integ: integ, opts: opts, hint: opts.MaxStep}
}

// Advance integrates x from t0 to exactly t1 with u held constant.
func (s *Segment) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	span := t1 - t0
	if span <= 0 {
		return x, nil
	}
	if adaptive, ok := s.integ.(dynamo.AdaptiveIntegrator); ok {
		return s.advanceAdaptive(adaptive, dyn, x, u, t0, t1)
	}

	steps := int(math.Ceil(span/s.opts.MaxStep - 1e-9))
	if steps < 1 {
		steps = 1
	}
	h := span / float64(steps)
	for i := 0; i < steps; i++ {
		t := t0 + float64(i)*h
		next := t0 + float64(i+1)*h
		if i == steps-1 {
			next = t1
		}
		x = s.integ.Step(dyn, x, u, t, next-t)
		if !x.IsValid() {
			return x, &dynamo.SimulationError{Time: next, State: x, Wrapped: dynamo.ErrInvalidState}
		}
		if s.opts.OnStep != nil {
			s.opts.OnStep(next, x)
		}
	}
	return x, nil
}

func (s *Segment) advanceAdaptive(integ dynamo.AdaptiveIntegrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	t := t0
	h := math.Min(s.hint, s.opts.MaxStep)
	eps := 1e-12 * math.Max(1, math.Abs(t1))

	for t1-t > eps {
		last := false
		if t+h >= t1-eps {
			h = t1 - t
			last = true
		}

		xNew, ratio := integ.Attempt(dyn, x, u, t, h)
		if ratio > 1 {
			h = integ.Resize(h, ratio)
			if h < s.opts.MinStep {
				return x, &dynamo.SimulationError{Time: t, State: x, Wrapped: dynamo.ErrStepTooSmall}
			}
			continue
		}
		if !xNew.IsValid() {
			return xNew, &dynamo.SimulationError{Time: t + h, State: xNew, Wrapped: dynamo.ErrInvalidState}
		}

		if last {
			t = t1
		} else {
			t += h
			s.hint = math.Min(integ.Resize(h, ratio), s.opts.MaxStep)
		}
		x = xNew
		if s.opts.OnStep != nil {
			s.opts.OnStep(t, x)
		}
		h = s.hint
	}
	return x, nil
}

// Integrate is a one-shot Advance.
func Integrate(dyn dynamo.System, integ dynamo.Integrator, x dynamo.State, u dynamo.Control, t0, t1 float64, opts Options) (dynamo.State, error) {
	return NewSegment(integ, opts).Advance(dyn, x, u, t0, t1)
}
