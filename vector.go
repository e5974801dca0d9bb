package qbloch

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
)

// Vector is a point or direction in the 3D space around the Bloch sphere.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Add(w Vector) Vector    { return Vector{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vector) Sub(w Vector) Vector    { return Vector{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vector) Scale(s float64) Vector { return Vector{v.X * s, v.Y * s, v.Z * s} }
func (v Vector) Dot(w Vector) float64   { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }
func (v Vector) Len() float64           { return math.Sqrt(v.Dot(v)) }
func (v Vector) Neg() Vector            { return Vector{-v.X, -v.Y, -v.Z} }

// IsFinite reports whether no component is NaN or infinite.
func (v Vector) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func (v Vector) Lerp(w Vector, t float64) Vector {
	return Vector{
		v.X + (w.X-v.X)*t,
		v.Y + (w.Y-v.Y)*t,
		v.Z + (w.Z-v.Z)*t,
	}
}

// Norm returns a unit-length version of the vector, or the zero vector when
// the length is below the degeneracy threshold.
func (v Vector) Norm() Vector {
	l := v.Len()
	if l < zeroLength {
		return Vector{}
	}
	return Vector{v.X / l, v.Y / l, v.Z / l}
}

// ApproxEqual reports whether every component of v and w differs by at most tol.
func (v Vector) ApproxEqual(w Vector, tol float64) bool {
	return scalar.EqualWithinAbs(v.X, w.X, tol) &&
		scalar.EqualWithinAbs(v.Y, w.Y, tol) &&
		scalar.EqualWithinAbs(v.Z, w.Z, tol)
}

/*
Rotate turns v by angle radians around axis, right-handed, using a unit
quaternion q·v·q*. A zero axis leaves v untouched.
*/
func (v Vector) Rotate(axis Vector, angle float64) Vector {
	u := axis.Norm()
	if u == (Vector{}) {
		return v
	}

	s := math.Sin(angle / 2)
	q := quat.Number{
		Real: math.Cos(angle / 2),
		Imag: u.X * s,
		Jmag: u.Y * s,
		Kmag: u.Z * s,
	}

	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return Vector{p.Imag, p.Jmag, p.Kmag}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// Axis names one of the cartesian basis directions.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Unit returns the positive unit vector along the axis.
func (a Axis) Unit() Vector {
	switch a {
	case AxisX:
		return Vector{1, 0, 0}
	case AxisY:
		return Vector{0, 1, 0}
	default:
		return Vector{0, 0, 1}
	}
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", name)
}
