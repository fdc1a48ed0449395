package control

import (
	"fmt"
	"math"

	"github.com/san-kum/gritsim/internal/base"
	"github.com/san-kum/gritsim/internal/dynamo"
	"github.com/san-kum/gritsim/internal/model"
	"github.com/san-kum/gritsim/internal/pwm"
	"github.com/san-kum/gritsim/internal/signal"
	"github.com/san-kum/gritsim/internal/spacevec"
)

// GridFollowingCtrlPars configures a GridFollowingCtrl.
type GridFollowingCtrlPars struct {
	Lf  float64 // filter inductance used for tuning and decoupling (H)
	Rf  float64
	Cdc float64 // DC-bus capacitance used by the energy loop (F)
	Fsw float64 // switching frequency (Hz)
	Ts  float64 // sampling period (s)

	OnVdc bool // regulate the DC-bus voltage instead of following PgRef

	IMax float64 // current reference magnitude limit (A, peak)
	PMax float64 // active power reference limit (W)
	UgN  float64 // nominal PCC voltage magnitude (V, peak)
	WgN  float64 // nominal grid angular frequency (rad/s)

	AlphaC  float64 // current control bandwidth (rad/s)
	W0PLL   float64
	ZetaPLL float64
	W0DC    float64
	ZetaDC  float64

	PgRef  signal.Func // used when OnVdc is false
	QgRef  signal.Func
	UdcRef signal.Func // used when OnVdc is true
}

// DefaultGridFollowingCtrlPars returns the tuning of the 10 kVA converter.
func DefaultGridFollowingCtrlPars() GridFollowingCtrlPars {
	b := base.Grid10kVA()
	return GridFollowingCtrlPars{
		Lf:      10e-3,
		Cdc:     1e-3,
		Fsw:     8e3,
		Ts:      1 / 16e3,
		IMax:    1.5 * b.I,
		PMax:    10e3,
		UgN:     b.U,
		WgN:     2 * math.Pi * 50,
		AlphaC:  2 * math.Pi * 400,
		W0PLL:   2 * math.Pi * 20,
		ZetaPLL: 1,
		W0DC:    2 * math.Pi * 30,
		ZetaDC:  1,
		PgRef:   signal.Zero,
		QgRef:   signal.Zero,
		UdcRef:  signal.Const(600),
	}
}

type param struct {
	name string
	v    float64
}

func (p GridFollowingCtrlPars) validate() error {
	positive := []param{
		{"L_f", p.Lf},
		{"T_s", p.Ts},
		{"i_max", p.IMax},
		{"p_max", p.PMax},
		{"u_gN", p.UgN},
		{"w_gN", p.WgN},
		{"alpha_c", p.AlphaC},
		{"w0_pll", p.W0PLL},
		{"zeta_pll", p.ZetaPLL},
	}
	if p.OnVdc {
		if p.UdcRef == nil {
			return dynamo.Configf("u_dc_ref is required when DC-bus control is on")
		}
		positive = append(positive,
			param{"C_dc", p.Cdc},
			param{"w0_dc", p.W0DC},
			param{"zeta_dc", p.ZetaDC},
		)
	}
	for _, f := range positive {
		if !(f.v > 0) {
			return dynamo.Configf("%s must be positive, got %g", f.name, f.v)
		}
	}
	if p.Rf < 0 {
		return dynamo.Configf("R_f must be non-negative, got %g", p.Rf)
	}
	if p.Fsw > 0 && math.Abs(p.Ts*2*p.Fsw-1) > 1e-9 {
		return dynamo.Configf("T_s = %g does not match half the switching period of f_sw = %g", p.Ts, p.Fsw)
	}
	return nil
}

// GridFollowingCtrl synchronizes with the grid through a PLL and injects
// the current that delivers the requested active and reactive power. With
// OnVdc the active power follows from a DC-bus energy controller.
type GridFollowingCtrl struct {
	pars GridFollowingCtrlPars
	pll  *PLL
	cur  *CurrentCtrl
	dc   *DCBusCtrl
}

func NewGridFollowingCtrl(pars GridFollowingCtrlPars) (*GridFollowingCtrl, error) {
	if err := pars.validate(); err != nil {
		return nil, fmt.Errorf("grid-following control: %w", err)
	}
	pars.PgRef = signal.OrZero(pars.PgRef)
	pars.QgRef = signal.OrZero(pars.QgRef)

	c := &GridFollowingCtrl{
		pars: pars,
		pll:  NewPLL(pars.W0PLL, pars.ZetaPLL, pars.UgN, pars.WgN),
		cur:  NewCurrentCtrl(pars.AlphaC, pars.Lf, pars.Rf),
	}
	if pars.OnVdc {
		c.dc = NewDCBusCtrl(pars.Cdc, pars.W0DC, pars.ZetaDC, pars.PMax)
	}
	return c, nil
}

func (c *GridFollowingCtrl) SamplingPeriod() float64 { return c.pars.Ts }

func (c *GridFollowingCtrl) DCBusControlEnabled() bool { return c.pars.OnVdc }

func (c *GridFollowingCtrl) Pars() GridFollowingCtrlPars { return c.pars }

func (c *GridFollowingCtrl) Reset() {
	c.pll.Reset()
	c.cur.Reset()
	if c.dc != nil {
		c.dc.Reset()
	}
}

func (c *GridFollowingCtrl) Step(t float64, meas model.Measurement) (Command, error) {
	p := c.pars
	cmd := Command{T: t, Udc: meas.Udc}

	var err error
	if cmd.QgRef, err = signal.Eval("q_g_ref", p.QgRef, t); err != nil {
		return Command{}, err
	}
	if p.OnVdc {
		if cmd.UdcRef, err = signal.Eval("u_dc_ref", p.UdcRef, t); err != nil {
			return Command{}, err
		}
	} else if cmd.PgRef, err = signal.Eval("p_g_ref", p.PgRef, t); err != nil {
		return Command{}, err
	}

	// Synchronous frame of this sampling instant.
	cmd.Theta, cmd.W = c.pll.Angle(), c.pll.Freq()
	cmd.Ug = spacevec.Rotate(spacevec.ABCToComplex(meas.UgABC), -cmd.Theta)
	cmd.Ic = spacevec.Rotate(spacevec.ABCToComplex(meas.IcABC), -cmd.Theta)
	uAbs := c.pll.Magnitude()

	var eW, rawW float64
	if c.dc != nil {
		eW, rawW, cmd.PgRef = c.dc.Output(cmd.UdcRef, meas.Udc)
	}
	cmd.PgRef = spacevec.Clamp(cmd.PgRef, -p.PMax, p.PMax)

	iRef := complex(2*cmd.PgRef/(3*uAbs), -2*cmd.QgRef/(3*uAbs))
	cmd.IcRef = spacevec.ClampMagnitude(iRef, p.IMax)
	cmd.CurrentLimited = cmd.IcRef != iRef

	cmd.UcRef = c.cur.Output(cmd.IcRef, cmd.Ic, cmd.Ug, cmd.W)

	// The held voltage is centred half a period after the sampling instant.
	thetaOut := cmd.Theta + 0.5*p.Ts*cmd.W
	cmd.DABC, cmd.Q, cmd.VoltageLimited = pwm.DutyRatios(spacevec.Rotate(cmd.UcRef, thetaOut), meas.Udc)
	uReal := spacevec.Rotate(cmd.Q*complex(meas.Udc, 0), -thetaOut)

	c.cur.Update(cmd.IcRef, cmd.Ic, cmd.UcRef, uReal, p.Ts)
	if c.dc != nil {
		c.dc.Update(eW, rawW, 1.5*uAbs*real(cmd.IcRef), p.Ts)
	}
	c.pll.Update(cmd.Ug, p.Ts)

	return cmd, nil
}

// GetParams returns the derived gains for display
func (c *GridFollowingCtrl) GetParams() map[string]float64 {
	params := map[string]float64{
		"k_t":     c.cur.Kt,
		"k_p":     c.cur.Kp,
		"k_i":     c.cur.Ki,
		"k_p_pll": c.pll.Kp,
		"k_i_pll": c.pll.Ki,
		"i_max":   c.pars.IMax,
		"p_max":   c.pars.PMax,
	}
	if c.dc != nil {
		for k, v := range c.dc.pi.GetParams() {
			params["dc."+k] = v
		}
	}
	return params
}
