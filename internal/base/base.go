// Package base computes per-unit base values from converter nameplate data.
package base

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/gritsim/internal/dynamo"
)

// Values holds peak-valued base quantities for per-unit scaling.
type Values struct {
	U float64 // phase voltage peak (V)
	I float64 // phase current peak (A)
	W float64 // angular frequency (rad/s)
	P float64 // power (W)
	Z float64 // impedance (Ω)
	L float64 // inductance (H)
	C float64 // capacitance (F)
	// Udc is the DC voltage base, twice the phase voltage peak.
	Udc float64
}

// New derives base values from the line-to-line RMS voltage uNom, the RMS
// current iNom and the frequency fNom. pNom is kept for reference and only
// checked for sign.
func New(uNom, iNom, fNom, pNom float64) (Values, error) {
	if uNom <= 0 || iNom <= 0 || fNom <= 0 || pNom <= 0 {
		return Values{}, fmt.Errorf("%w: nominal values must be positive", dynamo.ErrConfiguration)
	}
	v := Values{
		U: math.Sqrt(2.0/3.0) * uNom,
		I: math.Sqrt2 * iNom,
		W: 2 * math.Pi * fNom,
	}
	v.P = 1.5 * v.U * v.I
	v.Z = v.U / v.I
	v.L = v.Z / v.W
	v.C = 1 / (v.Z * v.W)
	v.Udc = 2 * v.U
	return v, nil
}

// Grid10kVA are the base values of the 400 V, 14.5 A, 50 Hz converter used
// throughout the presets.
func Grid10kVA() Values {
	v, _ := New(400, 14.5, 50, 10e3)
	return v
}

// Of returns the base for a log series name; ok is false when the series
// has no electrical unit (angles, duty ratios).
func (v Values) Of(name string) (float64, bool) {
	switch {
	case name == "u_dc" || name == "u_dc_ref":
		return v.Udc, true
	case strings.HasPrefix(name, "i_"):
		return v.I, true
	case strings.HasPrefix(name, "u_"), strings.HasPrefix(name, "e_"):
		return v.U, true
	case strings.HasPrefix(name, "p_"), strings.HasPrefix(name, "q_g"):
		return v.P, true
	case strings.HasPrefix(name, "w_"):
		return v.W, true
	}
	return 0, false
}
