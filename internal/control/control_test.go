package control

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/spacevec"
)

func measurement(t, ug, theta, udc float64) model.Measurement {
	return model.Measurement{
		T:     t,
		UgABC: spacevec.ComplexToABC(cmplx.Rect(ug, theta)),
		Udc:   udc,
	}
}

func TestPI(t *testing.T) {
	p := NewPI(1, 2, 100)
	for i := 0; i < 10; i++ {
		raw, out := p.Output(1)
		p.Update(1, raw, out, 0.1)
	}
	if math.Abs(p.integral-2) > 1e-12 {
		t.Errorf("integral = %f, want 2", p.integral)
	}

	p.Reset()
	if raw, _ := p.Output(0); raw != 0 {
		t.Errorf("output after reset = %f", raw)
	}
}

func TestPIAntiWindup(t *testing.T) {
	p := NewPI(1, 10, 1)
	for i := 0; i < 1000; i++ {
		raw, out := p.Output(5)
		if out != 1 {
			t.Fatalf("step %d: limited output %f, want 1", i, out)
		}
		p.Update(5, raw, out, 0.01)
	}
	// The integrator settles where zero error would reproduce the limit.
	if math.Abs(p.integral-1) > 1e-3 {
		t.Errorf("integral = %f, want 1", p.integral)
	}

	// A sign change of the error leaves saturation immediately.
	if raw, out := p.Output(-1.5); raw != out || out >= 0 {
		t.Errorf("output after error reversal = %f (raw %f)", out, raw)
	}
}

func TestCurrentCtrlTracksReference(t *testing.T) {
	const (
		l  = 10e-3
		ts = 1 / 16e3
	)
	w := 2 * math.Pi * 50
	ug := complex(326.6, 0)
	iRef := complex(20, -5)

	c := NewCurrentCtrl(2*math.Pi*400, l, 0)
	var i complex128
	for k := 0; k < 800; k++ {
		u := c.Output(iRef, i, ug, w)
		c.Update(iRef, i, u, u, ts)
		// Inductor seen from a frame rotating at w.
		i += complex(ts/l, 0) * (u - ug - complex(0, w*l)*i)
	}
	if cmplx.Abs(i-iRef) > 1e-3 {
		t.Errorf("current = %v, want %v", i, iRef)
	}
}

func TestPLLLocks(t *testing.T) {
	const ts = 1 / 16e3
	wg := 2 * math.Pi * 51
	p := NewPLL(2*math.Pi*20, 1, 326.6, 2*math.Pi*50)

	var errAngle float64
	for k := 0; k < 8000; k++ {
		tk := float64(k) * ts
		thetaG := wg*tk + 0.3
		errAngle = spacevec.WrapAngle(thetaG - p.Angle())
		ugs := cmplx.Rect(326.6, thetaG)
		p.Update(spacevec.Rotate(ugs, -p.Angle()), ts)
	}
	if math.Abs(errAngle) > 1e-3 {
		t.Errorf("angle error = %f rad", errAngle)
	}
	if math.Abs(p.Freq()-wg) > 1e-2 {
		t.Errorf("frequency = %f, want %f", p.Freq(), wg)
	}
	if math.Abs(p.Magnitude()-326.6) > 0.1 {
		t.Errorf("magnitude = %f", p.Magnitude())
	}
}

func TestDCBusCtrlSign(t *testing.T) {
	d := NewDCBusCtrl(1e-3, 2*math.Pi*30, 1, 10e3)

	if _, _, p := d.Output(600, 590); p >= 0 {
		t.Errorf("bus below reference: p_ref = %f, want negative (charging)", p)
	}
	if _, _, p := d.Output(600, 610); p <= 0 {
		t.Errorf("bus above reference: p_ref = %f, want positive", p)
	}
	if _, _, p := d.Output(600, 0); p != -10e3 {
		t.Errorf("p_ref = %f, want limit -10e3", p)
	}
}

func TestNewGridFollowingCtrlValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GridFollowingCtrlPars)
	}{
		{"no inductance", func(p *GridFollowingCtrlPars) { p.Lf = 0 }},
		{"no sampling period", func(p *GridFollowingCtrlPars) { p.Ts = 0 }},
		{"negative current limit", func(p *GridFollowingCtrlPars) { p.IMax = -1 }},
		{"mismatched switching frequency", func(p *GridFollowingCtrlPars) { p.Fsw = 10e3 }},
		{"dc control without capacitance", func(p *GridFollowingCtrlPars) { p.OnVdc = true; p.Cdc = 0 }},
		{"dc control without reference", func(p *GridFollowingCtrlPars) { p.OnVdc = true; p.UdcRef = nil }},
		{"negative resistance", func(p *GridFollowingCtrlPars) { p.Rf = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pars := DefaultGridFollowingCtrlPars()
			tt.modify(&pars)
			if _, err := NewGridFollowingCtrl(pars); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}

	if _, err := NewGridFollowingCtrl(DefaultGridFollowingCtrlPars()); err != nil {
		t.Errorf("default parameters rejected: %v", err)
	}
}

func TestGridFollowingCtrlCurrentLimit(t *testing.T) {
	pars := DefaultGridFollowingCtrlPars()
	pars.PgRef = signal.Const(8e3)
	pars.QgRef = signal.Step(0.001, 0, 50e3)
	ctrl, err := NewGridFollowingCtrl(pars)
	if err != nil {
		t.Fatal(err)
	}

	limited := false
	for k := 0; k < 40; k++ {
		tk := float64(k) * pars.Ts
		cmd, err := ctrl.Step(tk, measurement(tk, pars.UgN, pars.WgN*tk, 600))
		if err != nil {
			t.Fatalf("step %d: %v", k, err)
		}
		if cmplx.Abs(cmd.IcRef) > pars.IMax*(1+1e-12) {
			t.Errorf("step %d: |i_ref| = %f exceeds %f", k, cmplx.Abs(cmd.IcRef), pars.IMax)
		}
		limited = limited || cmd.CurrentLimited
	}
	if !limited {
		t.Error("reference never reported as limited")
	}
}

func TestGridFollowingCtrlUndefinedSignal(t *testing.T) {
	pars := DefaultGridFollowingCtrlPars()
	pars.QgRef = signal.FuncOf(func(t float64) float64 { return math.NaN() })
	ctrl, err := NewGridFollowingCtrl(pars)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ctrl.Step(0, measurement(0, pars.UgN, 0, 600))
	if !errors.Is(err, dynamo.ErrUndefinedSignal) || !errors.Is(err, dynamo.ErrMisuse) {
		t.Errorf("expected undefined signal misuse, got %v", err)
	}
}

func TestGridFollowingCtrlIdle(t *testing.T) {
	pars := DefaultGridFollowingCtrlPars()
	ctrl, err := NewGridFollowingCtrl(pars)
	if err != nil {
		t.Fatal(err)
	}

	cmd, err := ctrl.Step(0, measurement(0, pars.UgN, 0, 600))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.IcRef != 0 {
		t.Errorf("i_ref = %v with zero power references", cmd.IcRef)
	}
	// Zero current: the converter reproduces the grid voltage.
	if math.Abs(cmplx.Abs(cmd.Q*600)-pars.UgN) > 1e-6 {
		t.Errorf("|u_c| = %f, want %f", cmplx.Abs(cmd.Q*600), pars.UgN)
	}
	for k, d := range cmd.DABC {
		if d < 0 || d > 1 {
			t.Errorf("d[%d] = %f", k, d)
		}
	}
	if cmd.VoltageLimited {
		t.Error("nominal grid voltage should be within the modulation range")
	}
}

func TestGridFollowingCtrlReset(t *testing.T) {
	pars := DefaultGridFollowingCtrlPars()
	pars.OnVdc = true
	pars.UdcRef = signal.Const(650)
	ctrl, err := NewGridFollowingCtrl(pars)
	if err != nil {
		t.Fatal(err)
	}

	run := func() Command {
		var cmd Command
		for k := 0; k < 20; k++ {
			tk := float64(k) * pars.Ts
			cmd, _ = ctrl.Step(tk, measurement(tk, pars.UgN, pars.WgN*tk, 600))
		}
		return cmd
	}

	first := run()
	ctrl.Reset()
	second := run()
	if first != second {
		t.Errorf("commands differ after reset:\n%+v\n%+v", first, second)
	}
	if first.PgRef >= 0 {
		t.Errorf("p_g_ref = %f, want negative to charge the bus", first.PgRef)
	}
	if !ctrl.DCBusControlEnabled() {
		t.Error("DC-bus control not reported as enabled")
	}
}

func TestOpenLoop(t *testing.T) {
	o, err := NewOpenLoop(1e-4, 2*math.Pi*50, 0, signal.Const(300))
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := o.Step(0, model.Measurement{Udc: 600})
	if err != nil {
		t.Fatal(err)
	}
	want := cmplx.Rect(300, 2*math.Pi*50*0.5e-4)
	if cmplx.Abs(cmd.Q*600-want) > 1e-9 {
		t.Errorf("u_c = %v, want %v", cmd.Q*600, want)
	}

	if _, err := NewOpenLoop(0, 0, 0, signal.Zero); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
