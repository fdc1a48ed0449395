package signal

import (
	"fmt"

	"github.com/san-kum/gritsim/internal/dynamo"
)

// Spec is the declarative form of a signal used in scenario files.
//
//	u_dc_ref: {kind: step, t0: 0.02, before: 600, after: 650}
type Spec struct {
	Kind      string  `yaml:"kind"`
	Value     float64 `yaml:"value,omitempty"`
	T0        float64 `yaml:"t0,omitempty"`
	T1        float64 `yaml:"t1,omitempty"`
	Before    float64 `yaml:"before,omitempty"`
	After     float64 `yaml:"after,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Frequency float64 `yaml:"frequency,omitempty"`
	Phase     float64 `yaml:"phase,omitempty"`
	Gain      float64 `yaml:"gain,omitempty"`
	Terms     []Spec  `yaml:"terms,omitempty"`
}

// ConstSpec is shorthand for a constant signal spec.
func ConstSpec(v float64) *Spec {
	return &Spec{Kind: "const", Value: v}
}

// StepSpec is shorthand for a step signal spec.
func StepSpec(t0, before, after float64) *Spec {
	return &Spec{Kind: "step", T0: t0, Before: before, After: after}
}

// Build compiles the spec. A nil spec yields a nil Func.
func (s *Spec) Build() (Func, error) {
	if s == nil {
		return nil, nil
	}
	switch s.Kind {
	case "", "const":
		return Const(s.Value), nil
	case "step":
		return Step(s.T0, s.Before, s.After), nil
	case "ramp":
		return Ramp(s.T0, s.T1, s.Before, s.After), nil
	case "sine":
		return Sum(Const(s.Value), Sine(s.Amplitude, s.Frequency, s.Phase)), nil
	case "sum", "scale":
		terms := make([]Func, 0, len(s.Terms))
		for i := range s.Terms {
			f, err := s.Terms[i].Build()
			if err != nil {
				return nil, fmt.Errorf("term %d: %w", i, err)
			}
			terms = append(terms, f)
		}
		if s.Kind == "scale" {
			return Scale(s.Gain, Sum(terms...)), nil
		}
		return Sum(terms...), nil
	default:
		return nil, dynamo.Configf("unknown signal kind: %s", s.Kind)
	}
}
