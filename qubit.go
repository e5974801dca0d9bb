package qbloch

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
)

const normTolerance = 1e-9

// RandomSource yields uniformly distributed numbers in [0, 1). *rand.Rand
// from math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

/*
Qubit is a single two-level quantum state α|0⟩ + β|1⟩.

The amplitudes are the only mutable truth. Bloch angles and cartesian
coordinates are derived from them after every change and never written
independently. Once measured the qubit is frozen: every further gate is a
silent no-op that returns the collapsed coordinates.

A Qubit performs no locking of its own; Session serializes access to it.
*/
type Qubit struct {
	alpha complex128 // |0⟩ amplitude
	beta  complex128 // |1⟩ amplitude

	theta  float64
	phi    float64
	coords Vector

	collapsed bool
	outcome   int
	rng       RandomSource
}

// QubitOption configures a Qubit at construction.
type QubitOption func(*Qubit)

// WithRandomSource replaces the global math/rand/v2 source used by Measure.
func WithRandomSource(src RandomSource) QubitOption {
	return func(q *Qubit) {
		if src != nil {
			q.rng = src
		}
	}
}

/*
NewQubit validates and wraps an amplitude pair. The squared magnitudes must
sum to one within 1e-9, otherwise an *InvalidStateError is returned and no
qubit exists.
*/
func NewQubit(alpha, beta complex128, opts ...QubitOption) (*Qubit, error) {
	sum := squaredMagnitude(alpha) + squaredMagnitude(beta)
	if !(math.Abs(sum-1) <= normTolerance) {
		return nil, &InvalidStateError{Alpha: alpha, Beta: beta, Sum: sum}
	}

	q := &Qubit{
		alpha:   alpha,
		beta:    beta,
		outcome: -1,
		rng:     globalSource{},
	}

	for _, opt := range opts {
		opt(q)
	}

	q.update()
	return q, nil
}

// NewGroundQubit returns the |0⟩ state.
func NewGroundQubit(opts ...QubitOption) *Qubit {
	q, _ := NewQubit(1, 0, opts...)
	return q
}

func (q *Qubit) ApplyX() Vector { return q.apply(pauliX) }
func (q *Qubit) ApplyY() Vector { return q.apply(pauliY) }

// ApplyZ is a phase flip, P(π).
func (q *Qubit) ApplyZ() Vector { return q.ApplyPhase(math.Pi) }

func (q *Qubit) ApplyHadamard() Vector { return q.apply(hadamard) }

// ApplyPhase multiplies β by e^{i·angle}, turning the state about the Z axis.
func (q *Qubit) ApplyPhase(angle float64) Vector { return q.apply(phaseShift(angle)) }

func (q *Qubit) ApplyS() Vector { return q.ApplyPhase(math.Pi / 2) }
func (q *Qubit) ApplyT() Vector { return q.ApplyPhase(math.Pi / 4) }

func (q *Qubit) ApplyRX(angle float64) Vector { return q.apply(rotationX(angle)) }
func (q *Qubit) ApplyRY(angle float64) Vector { return q.apply(rotationY(angle)) }
func (q *Qubit) ApplyRZ(angle float64) Vector { return q.apply(rotationZ(angle)) }

// Apply dispatches a gate by identifier. angle is ignored by fixed gates.
func (q *Qubit) Apply(g Gate, angle float64) Vector {
	switch g {
	case GateX:
		return q.ApplyX()
	case GateY:
		return q.ApplyY()
	case GateZ:
		return q.ApplyZ()
	case GateH:
		return q.ApplyHadamard()
	case GateS:
		return q.ApplyS()
	case GateT:
		return q.ApplyT()
	case GateP:
		return q.ApplyPhase(angle)
	case GateRX:
		return q.ApplyRX(angle)
	case GateRY:
		return q.ApplyRY(angle)
	case GateRZ:
		return q.ApplyRZ(angle)
	case GateMeasure:
		return q.Measure()
	}
	return q.coords
}

/*
Measure collapses the state by the Born rule: a uniform r in [0, 1) picks |0⟩
when r ≤ |α|², |1⟩ otherwise. The first call freezes the qubit; later calls
return the same coordinates without drawing again.
*/
func (q *Qubit) Measure() Vector {
	if q.collapsed {
		return q.coords
	}

	if q.rng.Float64() <= squaredMagnitude(q.alpha) {
		q.alpha, q.beta, q.outcome = 1, 0, 0
	} else {
		q.alpha, q.beta, q.outcome = 0, 1, 1
	}

	q.collapsed = true
	q.update()
	return q.coords
}

// apply leaves the state untouched once collapsed or when u carries a NaN
// or infinite entry.
func (q *Qubit) apply(u unitary) Vector {
	if q.collapsed || !u.finite() {
		return q.coords
	}

	q.alpha, q.beta = u.apply(q.alpha, q.beta)
	q.update()
	return q.coords
}

// update removes the global phase so α is real and non-negative, then
// re-derives angles and coordinates from the amplitudes.
func (q *Qubit) update() {
	if r := cmplx.Abs(q.alpha); r >= amplitudeEpsilon {
		rot := cmplx.Conj(q.alpha) / complex(r, 0)
		q.alpha = complex(r, 0)
		q.beta *= rot
	}

	q.theta, q.phi = AmplitudesToSpherical(q.alpha, q.beta)
	q.coords = SphericalToCartesian(q.theta, q.phi)
}

func (q *Qubit) Amplitudes() (alpha, beta complex128) { return q.alpha, q.beta }
func (q *Qubit) Spherical() (theta, phi float64)      { return q.theta, q.phi }
func (q *Qubit) Cartesian() Vector                    { return q.coords }
func (q *Qubit) Collapsed() bool                      { return q.collapsed }

// Outcome returns the measured basis state, 0 or 1, once collapsed.
func (q *Qubit) Outcome() (int, bool) {
	return q.outcome, q.collapsed
}

// Probabilities returns |α|² and |β|².
func (q *Qubit) Probabilities() (p0, p1 float64) {
	return squaredMagnitude(q.alpha), squaredMagnitude(q.beta)
}

// Frame snapshots the current position as an unsequenced history frame.
func (q *Qubit) Frame() Frame {
	return Frame{
		X:     q.coords.X,
		Y:     q.coords.Y,
		Z:     q.coords.Z,
		Phase: PhaseFraction(q.phi),
	}
}

func (q *Qubit) String() string {
	return fmt.Sprintf(
		"State Vector: [%.3f %.3f]\nBloch Angles: θ = %.3g φ = %.3g\nCartesian Coords: %s\nCollapsed: %t",
		q.alpha, q.beta, q.theta, q.phi, q.coords, q.collapsed,
	)
}

func squaredMagnitude(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}
