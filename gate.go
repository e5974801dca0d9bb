package qbloch

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Gate identifies one operation of the single-qubit gate set.
type Gate int

const (
	// GateInit marks the frame recorded for the initial state.
	GateInit Gate = iota
	GateX
	GateY
	GateZ
	GateH
	GateS
	GateT
	GateP
	GateRX
	GateRY
	GateRZ
	GateMeasure
	// GateAim marks a target set directly as a vector rather than by a gate.
	GateAim
)

var gateNames = map[Gate]string{
	GateInit:    "init",
	GateX:       "x",
	GateY:       "y",
	GateZ:       "z",
	GateH:       "h",
	GateS:       "s",
	GateT:       "t",
	GateP:       "p",
	GateRX:      "rx",
	GateRY:      "ry",
	GateRZ:      "rz",
	GateMeasure: "measure",
	GateAim:     "aim",
}

var gateAliases = map[string]Gate{
	"hadamard": GateH,
	"phase":    GateP,
	"m":        GateMeasure,
}

func (g Gate) String() string {
	if name, ok := gateNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Gate(%d)", int(g))
}

// Parametric reports whether the gate takes a rotation angle.
func (g Gate) Parametric() bool {
	switch g {
	case GateP, GateRX, GateRY, GateRZ:
		return true
	}
	return false
}

// applicable reports whether the gate can be applied to a qubit. The init
// and aim markers only label frames.
func (g Gate) applicable() bool {
	_, named := gateNames[g]
	return named && g != GateInit && g != GateAim
}

// ParseGate resolves a case-insensitive gate name. The frame markers init
// and aim are not gates a caller can apply and are rejected.
func ParseGate(name string) (Gate, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if g, ok := gateAliases[key]; ok {
		return g, nil
	}

	for g, n := range gateNames {
		if n == key && g.applicable() {
			return g, nil
		}
	}

	return GateInit, fmt.Errorf("%w: %q", ErrUnknownGate, name)
}

// unitary is a 2x2 complex matrix acting on the column (alpha, beta).
type unitary [2][2]complex128

// finite reports whether every entry is a finite complex number.
func (u unitary) finite() bool {
	for _, row := range u {
		for _, c := range row {
			if cmplx.IsNaN(c) || cmplx.IsInf(c) {
				return false
			}
		}
	}
	return true
}

func (u unitary) apply(alpha, beta complex128) (complex128, complex128) {
	return u[0][0]*alpha + u[0][1]*beta,
		u[1][0]*alpha + u[1][1]*beta
}

var (
	pauliX = unitary{
		{0, 1},
		{1, 0},
	}
	pauliY = unitary{
		{0, -1i},
		{1i, 0},
	}
	// H = 1/√2 * [1  1]
	//           [1 -1]
	hadamard = unitary{
		{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
		{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	}
)

func phaseShift(angle float64) unitary {
	return unitary{
		{1, 0},
		{0, cmplx.Exp(complex(0, angle))},
	}
}

func rotationX(angle float64) unitary {
	c, s := math.Cos(angle/2), math.Sin(angle/2)
	return unitary{
		{complex(c, 0), complex(0, -s)},
		{complex(0, -s), complex(c, 0)},
	}
}

func rotationY(angle float64) unitary {
	c, s := math.Cos(angle/2), math.Sin(angle/2)
	return unitary{
		{complex(c, 0), complex(-s, 0)},
		{complex(s, 0), complex(c, 0)},
	}
}

func rotationZ(angle float64) unitary {
	return unitary{
		{cmplx.Exp(complex(0, -angle/2)), 0},
		{0, cmplx.Exp(complex(0, angle/2))},
	}
}
