// Package signal provides time-varying references and disturbances as
// composable pure functions of time.
//
// Signals are built from adapters rather than ad hoc closures:
//
//	u_dc_ref := signal.Step(0.02, 600, 650)
//	q_g_ref := signal.Sum(signal.Step(0.04, 0, 4e3), signal.Ramp(0.08, 0.09, 0, -1e3))
package signal

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/gritsim/internal/dynamo"
)

// Func is a time-varying scalar. Implementations must be free of side
// effects and return a finite value for every t of the run.
type Func interface {
	At(t float64) float64
}

// FuncOf adapts a plain function.
type FuncOf func(t float64) float64

func (f FuncOf) At(t float64) float64 { return f(t) }

type constant float64

func (c constant) At(float64) float64 { return float64(c) }

// Const returns a signal with the fixed value v.
func Const(v float64) Func { return constant(v) }

// Zero is the constant zero signal.
var Zero = Const(0)

type step struct {
	t0, before, after float64
}

func (s step) At(t float64) float64 {
	if t > s.t0 {
		return s.after
	}
	return s.before
}

// Step switches from before to after once t exceeds t0.
func Step(t0, before, after float64) Func {
	return step{t0: t0, before: before, after: after}
}

type ramp struct {
	t0, t1, from, to float64
}

func (r ramp) At(t float64) float64 {
	switch {
	case t <= r.t0:
		return r.from
	case t >= r.t1:
		return r.to
	default:
		return r.from + (r.to-r.from)*(t-r.t0)/(r.t1-r.t0)
	}
}

// Ramp moves linearly from `from` to `to` between t0 and t1.
func Ramp(t0, t1, from, to float64) Func {
	if t1 <= t0 {
		return Step(t0, from, to)
	}
	return ramp{t0: t0, t1: t1, from: from, to: to}
}

type sum []Func

func (s sum) At(t float64) float64 {
	v := 0.0
	for _, f := range s {
		v += f.At(t)
	}
	return v
}

// Sum adds the given signals.
func Sum(fs ...Func) Func {
	return sum(fs)
}

type scaled struct {
	k float64
	f Func
}

func (s scaled) At(t float64) float64 { return s.k * s.f.At(t) }

// Scale multiplies f by k.
func Scale(k float64, f Func) Func {
	return scaled{k: k, f: f}
}

type sine struct {
	amplitude, freq, phase float64
}

func (s sine) At(t float64) float64 {
	return s.amplitude * math.Sin(2*math.Pi*s.freq*t+s.phase)
}

// Sine returns amplitude·sin(2π·freq·t + phase).
func Sine(amplitude, freq, phase float64) Func {
	return sine{amplitude: amplitude, freq: freq, phase: phase}
}

// Segment replaces the active signal from time From onwards.
type Segment struct {
	From float64
	F    Func
}

type piecewise struct {
	base     Func
	segments []Segment
}

func (p piecewise) At(t float64) float64 {
	f := p.base
	for _, s := range p.segments {
		if t < s.From {
			break
		}
		f = s.F
	}
	return f.At(t)
}

// Piecewise evaluates base until the first segment starts, then the latest
// segment whose From is <= t.
func Piecewise(base Func, segments ...Segment) Func {
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	return piecewise{base: base, segments: sorted}
}

// Eval evaluates f at t and reports a misuse error for nil or non-finite
// values.
func Eval(name string, f Func, t float64) (float64, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: %s is not set", dynamo.ErrUndefinedSignal, name)
	}
	v := f.At(t)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s(%g) = %v", dynamo.ErrUndefinedSignal, name, t, v)
	}
	return v, nil
}

// OrZero returns f, or the zero signal when f is nil.
func OrZero(f Func) Func {
	if f == nil {
		return Zero
	}
	return f
}
