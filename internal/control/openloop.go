package control

import (
	"fmt"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/pwm"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/spacevec"
)

// OpenLoop commands a converter voltage of magnitude U(t) rotating at W,
// ignoring all measurements except the DC voltage used to scale the duty
// ratios.
type OpenLoop struct {
	Ts    float64
	W     float64
	Phase float64
	U     signal.Func
}

func NewOpenLoop(ts, w, phase float64, u signal.Func) (*OpenLoop, error) {
	if !(ts > 0) {
		return nil, fmt.Errorf("open-loop control: %w", dynamo.Configf("T_s must be positive, got %g", ts))
	}
	if u == nil {
		return nil, fmt.Errorf("open-loop control: %w", dynamo.Configf("voltage magnitude signal is required"))
	}
	return &OpenLoop{Ts: ts, W: w, Phase: phase, U: u}, nil
}

func (o *OpenLoop) SamplingPeriod() float64 { return o.Ts }

func (o *OpenLoop) DCBusControlEnabled() bool { return false }

func (o *OpenLoop) Reset() {}

func (o *OpenLoop) GetParams() map[string]float64 {
	return map[string]float64{"w": o.W, "phase": o.Phase, "T_s": o.Ts}
}

func (o *OpenLoop) Step(t float64, meas model.Measurement) (Command, error) {
	mag, err := signal.Eval("u_c_abs", o.U, t)
	if err != nil {
		return Command{}, err
	}
	// Reference the voltage to the middle of the hold interval.
	theta := o.W*(t+0.5*o.Ts) + o.Phase

	cmd := Command{
		T:     t,
		Theta: spacevec.WrapAngle(o.W*t + o.Phase),
		W:     o.W,
		Udc:   meas.Udc,
		UcRef: complex(mag, 0),
	}
	cmd.DABC, cmd.Q, cmd.VoltageLimited = pwm.DutyRatios(spacevec.Rotate(complex(mag, 0), theta), meas.Udc)
	return cmd, nil
}
