// Package pwm converts averaged switching commands into discrete switching
// sequences of a two-level three-phase converter.
package pwm

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/gritsim/internal/spacevec"
)

// MaxModulation is the largest |q| reachable in the linear range (the
// circle inscribed in the switching-vector hexagon).
const MaxModulation = 1 / 1.7320508075688772

// Duties maps an averaged switching vector to phase duty ratios using
// min-max zero-sequence injection. |q| is limited to MaxModulation first,
// so every duty lies in [0, 1].
func Duties(q complex128) [3]float64 {
	q = spacevec.ClampMagnitude(q, MaxModulation)
	abc := spacevec.ComplexToABC(q)
	hi := math.Max(abc[0], math.Max(abc[1], abc[2]))
	lo := math.Min(abc[0], math.Min(abc[1], abc[2]))
	offset := 0.5 - 0.5*(hi+lo)
	var d [3]float64
	for i := range abc {
		d[i] = spacevec.Clamp(abc[i]+offset, 0, 1)
	}
	return d
}

// DutyRatios computes the duties realizing voltage reference uRef at DC
// voltage udc. It returns the realized switching vector and whether the
// reference had to be limited.
func DutyRatios(uRef complex128, udc float64) (d [3]float64, q complex128, limited bool) {
	if udc <= 0 {
		return [3]float64{0.5, 0.5, 0.5}, 0, uRef != 0
	}
	want := uRef / complex(udc, 0)
	d = Duties(want)
	q = spacevec.ABCToComplex(d)
	return d, q, cmplx.Abs(want) > MaxModulation*(1+1e-12)
}

// Interval is one piece of a switching sequence with constant switching
// state.
type Interval struct {
	T0, T1 float64
	Legs   [3]bool
	Q      complex128
}

// Sequence is an ordered set of contiguous intervals covering one sampling
// period.
type Sequence []Interval

// Average returns the time-averaged switching vector of s.
func (s Sequence) Average() complex128 {
	var sum complex128
	span := 0.0
	for _, iv := range s {
		dt := iv.T1 - iv.T0
		sum += iv.Q * complex(dt, 0)
		span += dt
	}
	if span == 0 {
		return 0
	}
	return sum / complex(span, 0)
}

// Commutations counts the leg transitions in s, starting from the
// switching state prev, and returns the final state.
func (s Sequence) Commutations(prev [3]bool) (int, [3]bool) {
	n := 0
	for _, iv := range s {
		for k := range iv.Legs {
			if iv.Legs[k] != prev[k] {
				n++
			}
		}
		prev = iv.Legs
	}
	return n, prev
}

// Averaged is the single-interval sequence of an ideal averaged converter.
func Averaged(q complex128, t0, t1 float64) Sequence {
	return Sequence{{T0: t0, T1: t1, Q: q}}
}

// Modulator compares duty ratios against a symmetric triangular carrier. One
// sampling period covers half a carrier period, so the carrier direction
// alternates between consecutive periods.
type Modulator struct {
	falling bool
}

func NewModulator() *Modulator {
	return &Modulator{falling: true}
}

// Sequence expands duties d over [t0, t0+ts), truncated at tEnd. Each leg
// is on for d[k]·ts within the full period.
func (c *Modulator) Sequence(d [3]float64, t0, ts, tEnd float64) Sequence {
	falling := c.falling
	c.falling = !c.falling

	on := func(k int, t float64) bool {
		tau := (t - t0) / ts
		if falling {
			return tau >= 1-d[k]
		}
		return tau < d[k]
	}

	edges := []float64{t0, t0 + ts}
	for k := range d {
		var edge float64
		if falling {
			edge = t0 + (1-d[k])*ts
		} else {
			edge = t0 + d[k]*ts
		}
		edges = append(edges, edge)
	}
	sort.Float64s(edges)

	end := math.Min(tEnd, t0+ts)
	seq := make(Sequence, 0, 4)
	for i := 0; i+1 < len(edges); i++ {
		a, b := edges[i], math.Min(edges[i+1], end)
		if b-a <= 0 {
			continue
		}
		mid := 0.5 * (a + b)
		var legs [3]bool
		var abc [3]float64
		for k := range legs {
			legs[k] = on(k, mid)
			if legs[k] {
				abc[k] = 1
			}
		}
		seq = append(seq, Interval{T0: a, T1: b, Legs: legs, Q: spacevec.ABCToComplex(abc)})
		if b >= end {
			break
		}
	}
	return seq
}
