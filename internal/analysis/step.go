package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// StepInfo characterizes the response to a reference step.
type StepInfo struct {
	Initial      float64
	Final        float64
	Overshoot    float64 // percent of the step size
	RiseTime     float64 // 10 % to 90 %
	SettlingTime float64 // last entry into the band, relative to the step
}

// StepResponse analyzes y(t) after a step at tStep towards target. band is
// the settling tolerance as a fraction of the step size.
func StepResponse(t, y []float64, tStep, target, band float64) (StepInfo, error) {
	if len(t) != len(y) || len(t) < 2 {
		return StepInfo{}, fmt.Errorf("%w: %d times, %d samples", ErrShortRecord, len(t), len(y))
	}
	k0 := 0
	for k0 < len(t) && t[k0] < tStep {
		k0++
	}
	if k0 == 0 || k0 >= len(t)-1 {
		return StepInfo{}, fmt.Errorf("%w: step at %g outside the record", ErrShortRecord, tStep)
	}

	info := StepInfo{Initial: y[k0-1], Final: y[len(y)-1]}
	size := target - info.Initial
	if size == 0 {
		return info, nil
	}
	after := y[k0:]

	// Normalized progress towards the target, so both step directions share
	// one code path.
	progress := make([]float64, len(after))
	copy(progress, after)
	floats.AddConst(-info.Initial, progress)
	floats.Scale(1/size, progress)

	info.Overshoot = math.Max(0, 100*(floats.Max(progress)-1))

	t10, t90 := math.NaN(), math.NaN()
	for i, p := range progress {
		if math.IsNaN(t10) && p >= 0.1 {
			t10 = t[k0+i]
		}
		if math.IsNaN(t90) && p >= 0.9 {
			t90 = t[k0+i]
			break
		}
	}
	info.RiseTime = t90 - t10

	info.SettlingTime = math.NaN()
	for i := len(progress) - 1; i >= 0; i-- {
		if math.Abs(progress[i]-1) > band {
			if i < len(progress)-1 {
				info.SettlingTime = t[k0+i+1] - tStep
			}
			return info, nil
		}
	}
	info.SettlingTime = t[k0] - tStep
	return info, nil
}
