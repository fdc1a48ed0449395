package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// ErrShortRecord indicates too few samples for the requested analysis.
var ErrShortRecord = errors.New("analysis: record too short")

// Spectrum is a single-sided amplitude spectrum.
type Spectrum struct {
	Freq []float64
	Amp  []float64
}

// AmplitudeSpectrum returns the peak amplitude of each frequency bin of x
// sampled at fs.
func AmplitudeSpectrum(x []float64, fs float64) Spectrum {
	n := len(x)
	if n == 0 {
		return Spectrum{}
	}
	bins := fft.FFTReal(x)
	half := n/2 + 1
	s := Spectrum{
		Freq: make([]float64, half),
		Amp:  make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freq[k] = float64(k) * fs / float64(n)
		a := cmplx.Abs(bins[k]) / float64(n)
		if k != 0 && !(n%2 == 0 && k == n/2) {
			a *= 2
		}
		s.Amp[k] = a
	}
	return s
}

// Harmonic returns the amplitude of harmonic order h of fundamental f0.
func (s Spectrum) Harmonic(f0 float64, h int) float64 {
	if len(s.Freq) < 2 {
		return 0
	}
	df := s.Freq[1] - s.Freq[0]
	k := int(math.Round(float64(h) * f0 / df))
	if k < 0 || k >= len(s.Amp) {
		return 0
	}
	return s.Amp[k]
}

// THD returns the total harmonic distortion of x up to maxOrder (bounded by
// the Nyquist frequency), relative to the fundamental f0.
func THD(x []float64, fs, f0 float64, maxOrder int) (float64, error) {
	if len(x) < 4 {
		return 0, fmt.Errorf("%w: %d samples", ErrShortRecord, len(x))
	}
	s := AmplitudeSpectrum(x, fs)
	a1 := s.Harmonic(f0, 1)
	if a1 == 0 {
		return 0, fmt.Errorf("analysis: no fundamental component at %g Hz", f0)
	}

	var harmonics []float64
	for h := 2; h <= maxOrder && float64(h)*f0 < fs/2; h++ {
		harmonics = append(harmonics, s.Harmonic(f0, h))
	}
	if len(harmonics) == 0 {
		return 0, nil
	}
	return floats.Norm(harmonics, 2) / a1, nil
}

// Window returns the last cycles fundamental periods of x on the uniform
// time axis t, together with the sampling frequency. A trailing sample on a
// truncated final period is skipped.
func Window(t, x []float64, f0, cycles float64) ([]float64, float64, error) {
	if len(t) != len(x) {
		return nil, 0, fmt.Errorf("analysis: %d times for %d samples", len(t), len(x))
	}
	if len(t) < 3 {
		return nil, 0, fmt.Errorf("%w: %d samples", ErrShortRecord, len(t))
	}
	dt := t[1] - t[0]
	end := len(t)
	if last := t[end-1] - t[end-2]; math.Abs(last-dt) > 1e-9*dt {
		end--
	}
	fs := 1 / dt
	n := int(math.Round(cycles * fs / f0))
	if n < 2 || n > end {
		return nil, 0, fmt.Errorf("%w: need %d samples for %g cycles, have %d", ErrShortRecord, n, cycles, end)
	}
	return x[end-n : end], fs, nil
}
