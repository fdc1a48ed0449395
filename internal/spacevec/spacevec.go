// Package spacevec holds the stateless three-phase helpers: peak-value scaled
// space-vector transforms between phase quantities and complex vectors.
package spacevec

import (
	"math"
	"math/cmplx"

	"golang.org/x/exp/constraints"
)

const (
	TwoPiOverThree = 2 * math.Pi / 3
	sqrt3          = 1.7320508075688772
)

// ABCToComplex maps phase quantities to a space vector. The zero-sequence
// component is discarded.
func ABCToComplex(abc [3]float64) complex128 {
	re := (2*abc[0] - abc[1] - abc[2]) / 3
	im := (abc[1] - abc[2]) / sqrt3
	return complex(re, im)
}

// ComplexToABC maps a space vector to zero-sequence-free phase quantities.
func ComplexToABC(z complex128) [3]float64 {
	re, im := real(z), imag(z)
	return [3]float64{
		re,
		-0.5*re + 0.5*sqrt3*im,
		-0.5*re - 0.5*sqrt3*im,
	}
}

// Rotate returns z·exp(jθ).
func Rotate(z complex128, theta float64) complex128 {
	return z * cmplx.Rect(1, theta)
}

// WrapAngle maps a to (-π, π].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampMagnitude scales z so that |z| <= limit, keeping its angle.
func ClampMagnitude(z complex128, limit float64) complex128 {
	mag := cmplx.Abs(z)
	if mag <= limit || mag == 0 {
		return z
	}
	return z * complex(limit/mag, 0)
}

// Dot returns the inner product of two phase triples.
func Dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
