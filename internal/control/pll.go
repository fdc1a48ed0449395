package control

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/gritsim/internal/spacevec"
)

// PLL synchronizes to the PCC voltage by driving its q component to zero.
// It also low-pass filters the voltage magnitude with the same bandwidth.
type PLL struct {
	Kp    float64
	Ki    float64
	WN    float64
	Alpha float64 // magnitude filter bandwidth

	theta float64
	wi    float64
	uAbs  float64
	uN    float64
}

// NewPLL tunes the loop for natural frequency w0 and damping zeta around
// nominal voltage magnitude ugN and angular frequency wN.
func NewPLL(w0, zeta, ugN, wN float64) *PLL {
	p := &PLL{
		Kp:    2 * zeta * w0 / ugN,
		Ki:    w0 * w0 / ugN,
		WN:    wN,
		Alpha: w0,
		uN:    ugN,
	}
	p.Reset()
	return p
}

func (p *PLL) Angle() float64 { return p.theta }

// Freq returns the estimated grid angular frequency.
func (p *PLL) Freq() float64 { return p.WN + p.wi }

// Magnitude returns the filtered PCC voltage magnitude, floored at 10 % of
// nominal so that power-to-current conversion stays bounded during dips.
func (p *PLL) Magnitude() float64 {
	return math.Max(p.uAbs, 0.1*p.uN)
}

// Update advances the loop by ts given the PCC voltage ug in the current
// PLL frame.
func (p *PLL) Update(ug complex128, ts float64) {
	e := imag(ug)
	w := p.WN + p.wi + p.Kp*e
	p.wi += ts * p.Ki * e
	p.theta = spacevec.WrapAngle(p.theta + ts*w)
	p.uAbs += ts * p.Alpha * (cmplx.Abs(ug) - p.uAbs)
}

func (p *PLL) Reset() {
	p.theta = 0
	p.wi = 0
	p.uAbs = p.uN
}
