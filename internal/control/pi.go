package control

import "github.com/san-kum/gritsim/internal/spacevec"

// PI is a discrete-time PI controller with output limits. The integrator is
// driven by the error that would have produced the realized output
// (back-calculation with tracking gain Ki/Kp).
type PI struct {
	Kp       float64
	Ki       float64
	Min      float64
	Max      float64
	integral float64
}

func NewPI(kp, ki, limit float64) *PI {
	return &PI{
		Kp:  kp,
		Ki:  ki,
		Min: -limit,
		Max: limit,
	}
}

// Output returns the unlimited and the limited output for error e.
func (p *PI) Output(e float64) (raw, out float64) {
	raw = p.Kp*e + p.integral
	return raw, spacevec.Clamp(raw, p.Min, p.Max)
}

// Update advances the integrator by one period ts. out is the output that
// was realized, which may differ from both raw and the limited output when
// a downstream stage saturates.
func (p *PI) Update(e, raw, out, ts float64) {
	if p.Kp != 0 {
		e += (out - raw) / p.Kp
	}
	p.integral += ts * p.Ki * e
}

// Reset clears integrator state
func (p *PI) Reset() {
	p.integral = 0
}

// GetParams returns the gains for display
func (p *PI) GetParams() map[string]float64 {
	return map[string]float64{
		"k_p": p.Kp,
		"k_i": p.Ki,
		"max": p.Max,
	}
}

// CurrentCtrl is a two-degree-of-freedom complex PI current controller in
// synchronous coordinates with cross-coupling decoupling and PCC voltage
// feedforward:
//
//	u = Kt·i_ref − Kp·i + u_i + (R + jωL)·i + u_g
//	u_i ← u_i + T_s·Ki·(i_ref − i + (u_real − u)/Kt)
type CurrentCtrl struct {
	Kt float64
	Kp float64
	Ki float64
	L  float64
	R  float64
	ui complex128
}

// NewCurrentCtrl tunes the controller for closed-loop bandwidth alpha on an
// series inductance l with resistance r.
func NewCurrentCtrl(alpha, l, r float64) *CurrentCtrl {
	return &CurrentCtrl{
		Kt: alpha * l,
		Kp: 2 * alpha * l,
		Ki: alpha * alpha * l,
		L:  l,
		R:  r,
	}
}

// Output returns the unlimited voltage reference.
func (c *CurrentCtrl) Output(iRef, i, ug complex128, w float64) complex128 {
	return complex(c.Kt, 0)*iRef - complex(c.Kp, 0)*i + c.ui + complex(c.R, w*c.L)*i + ug
}

// Update advances the integrator; uReal is the voltage the converter
// actually realizes.
func (c *CurrentCtrl) Update(iRef, i, uRaw, uReal complex128, ts float64) {
	e := iRef - i
	if c.Kt != 0 {
		e += (uReal - uRaw) / complex(c.Kt, 0)
	}
	c.ui += complex(ts*c.Ki, 0) * e
}

func (c *CurrentCtrl) Reset() {
	c.ui = 0
}
