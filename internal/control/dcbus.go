package control

// DCBusCtrl regulates the DC-bus voltage through the capacitor energy
// W = C·u_dc²/2. Its output is the grid active power reference.
type DCBusCtrl struct {
	C  float64
	pi *PI
}

// NewDCBusCtrl tunes the energy loop (an integrator plant) for natural
// frequency w0 and damping zeta. The power reference is limited to pMax.
func NewDCBusCtrl(c, w0, zeta, pMax float64) *DCBusCtrl {
	return &DCBusCtrl{
		C:  c,
		pi: NewPI(2*zeta*w0, w0*w0, pMax),
	}
}

// Output returns the energy error, the unlimited controller output and the
// limited power reference. Power flowing into the grid discharges the bus,
// hence the sign inversion.
func (d *DCBusCtrl) Output(udcRef, udc float64) (e, raw, pRef float64) {
	e = 0.5 * d.C * (udcRef*udcRef - udc*udc)
	raw, out := d.pi.Output(e)
	return e, raw, -out
}

// Update advances the integrator given the power pReal the converter was
// actually commanded after downstream current limiting.
func (d *DCBusCtrl) Update(e, raw, pReal, ts float64) {
	d.pi.Update(e, raw, -pReal, ts)
}

func (d *DCBusCtrl) Reset() {
	d.pi.Reset()
}
