package spacevec

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestABCToComplex(t *testing.T) {
	tests := []struct {
		name string
		abc  [3]float64
		want complex128
	}{
		{"phase a only", [3]float64{1, 0, 0}, complex(2.0/3.0, 0)},
		{"zero", [3]float64{0, 0, 0}, 0},
		{"zero sequence dropped", [3]float64{1, 1, 1}, 0},
		{"balanced", [3]float64{1, -0.5, -0.5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ABCToComplex(tt.abc)
			if cmplx.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ABCToComplex(%v) = %v, want %v", tt.abc, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, z := range []complex128{1, 1i, complex(0.3, -0.7), 0} {
		got := ABCToComplex(ComplexToABC(z))
		if cmplx.Abs(got-z) > 1e-12 {
			t.Errorf("round trip of %v gave %v", z, got)
		}
	}
}

func TestComplexToABCBalanced(t *testing.T) {
	for _, theta := range []float64{0, 0.4, 2.1, -1.3} {
		abc := ComplexToABC(cmplx.Rect(1, theta))
		if math.Abs(abc[0]+abc[1]+abc[2]) > 1e-12 {
			t.Errorf("phases not balanced at theta=%v: %v", theta, abc)
		}
		if math.Abs(abc[1]-math.Cos(theta-TwoPiOverThree)) > 1e-12 {
			t.Errorf("phase b = %v, want %v", abc[1], math.Cos(theta-TwoPiOverThree))
		}
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{5 * math.Pi / 2, math.Pi / 2},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("Clamp high = %v", got)
	}
	if got := Clamp(-3, -2, 2); got != -2 {
		t.Errorf("Clamp low = %v", got)
	}
}

func TestClampMagnitude(t *testing.T) {
	z := ClampMagnitude(complex(30, 40), 10)
	if math.Abs(cmplx.Abs(z)-10) > 1e-12 {
		t.Errorf("|z| = %v, want 10", cmplx.Abs(z))
	}
	if math.Abs(cmplx.Phase(z)-math.Atan2(40, 30)) > 1e-12 {
		t.Error("angle changed by clamping")
	}
	if got := ClampMagnitude(complex(1, 1), 10); got != complex(1, 1) {
		t.Errorf("small vector modified: %v", got)
	}
}
