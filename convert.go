package qbloch

import (
	"math"
	"math/cmplx"
)

const (
	// amplitudeEpsilon is the magnitude below which an amplitude's argument
	// is treated as undefined.
	amplitudeEpsilon = 1e-10
	twoPi            = 2 * math.Pi
)

/*
AmplitudesToSpherical maps the amplitude pair of a|0⟩ + b|1⟩ onto Bloch
angles. theta is the polar angle from the |0⟩ pole in [0, π] and phi the
relative phase in [0, 2π).

For a unit-norm pair theta = 2·acos(|a0|), and |a0| = Re(a0) for the
canonical amplitudes the engine stores. The atan2 form yields the same angle
without losing precision next to the poles.
*/
func AmplitudesToSpherical(a0, a1 complex128) (theta, phi float64) {
	theta = 2 * math.Atan2(cmplx.Abs(a1), cmplx.Abs(a0))

	if cmplx.Abs(a1) < amplitudeEpsilon {
		return theta, 0
	}

	base := 0.0
	if cmplx.Abs(a0) >= amplitudeEpsilon {
		base = cmplx.Phase(a0)
	}

	return theta, wrapAngle(cmplx.Phase(a1) - base)
}

// SphericalToCartesian places the Bloch angles on the unit sphere with |0⟩
// at +Z and |1⟩ at -Z. y is sinθ·sinφ; the variant sinφ·cosθ would put
// (|0⟩ + i|1⟩)/√2 at the origin instead of +Y.
func SphericalToCartesian(theta, phi float64) Vector {
	sinTheta := math.Sin(theta)
	return Vector{
		X: sinTheta * math.Cos(phi),
		Y: sinTheta * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// AmplitudesToCartesian is SphericalToCartesian(AmplitudesToSpherical(a0, a1)).
func AmplitudesToCartesian(a0, a1 complex128) Vector {
	return SphericalToCartesian(AmplitudesToSpherical(a0, a1))
}

// SphericalToAmplitudes returns the canonical amplitudes with a real,
// non-negative a0.
func SphericalToAmplitudes(theta, phi float64) (a0, a1 complex128) {
	a0 = complex(math.Cos(theta/2), 0)
	a1 = cmplx.Rect(math.Sin(theta/2), phi)
	return a0, a1
}

// CartesianToSpherical recovers Bloch angles from any non-zero vector. The
// poles report phi = 0.
func CartesianToSpherical(v Vector) (theta, phi float64) {
	n := v.Norm()
	if n == (Vector{}) {
		return 0, 0
	}

	theta = math.Acos(clamp(n.Z, -1, 1))
	if math.Hypot(n.X, n.Y) < amplitudeEpsilon {
		return theta, 0
	}

	return theta, wrapAngle(math.Atan2(n.Y, n.X))
}

// PhaseFraction expresses phi as a fraction of a full turn in [0, 1).
func PhaseFraction(phi float64) float64 {
	return wrapAngle(phi) / twoPi
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		a = 0
	}
	return a
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
