package qbloch

import "math"

const (
	// zeroLength is the magnitude below which a vector has no direction.
	zeroLength = 1e-10
	// parallelThreshold bounds |cos| beyond which two directions are treated
	// as parallel or antipodal.
	parallelThreshold = 0.9995
)

type slerpConfig struct {
	via *Vector
}

// SlerpOption tunes a single Slerp evaluation.
type SlerpOption func(*slerpConfig)

// WithVia routes antipodal interpolations through the given direction.
func WithVia(direction Vector) SlerpOption {
	return func(c *slerpConfig) {
		c.via = &direction
	}
}

// WithViaAxis routes antipodal interpolations through a positive basis axis.
func WithViaAxis(axis Axis) SlerpOption {
	return WithVia(axis.Unit())
}

/*
Slerp moves from start towards end along the great circle joining their
directions while the length changes linearly from |start| to |end|. It is
defined for every input so an animation frame can never fail:

  - a zero-length endpoint degrades to component-wise linear interpolation;
  - nearly parallel directions use linear interpolation as well;
  - nearly antipodal directions pass through an intermediate direction,
    reaching it at t = 0.5. The intermediate is the via option when given
    and usable, otherwise a direction perpendicular to start.

t is not clamped; callers own its range.
*/
func Slerp(start, end Vector, t float64, opts ...SlerpOption) Vector {
	startMag, endMag := start.Len(), end.Len()
	if startMag < zeroLength || endMag < zeroLength {
		return start.Lerp(end, t)
	}

	s := start.Scale(1 / startMag)
	e := end.Scale(1 / endMag)
	dot := clamp(s.Dot(e), -1, 1)
	mag := startMag + (endMag-startMag)*t

	if math.Abs(dot) > parallelThreshold {
		if dot >= 0 {
			return start.Lerp(end, t)
		}

		cfg := &slerpConfig{}
		for _, opt := range opts {
			opt(cfg)
		}

		mid := viaDirection(s, cfg.via)
		if t < 0.5 {
			return slerpUnit(s, mid, t*2).Scale(mag)
		}
		return slerpUnit(mid, e, (t-0.5)*2).Scale(mag)
	}

	return slerpUnit(s, e, t).Scale(mag)
}

// Interpolate is Slerp over the positional part of two history frames.
func Interpolate(from, to Frame, t float64, opts ...SlerpOption) Vector {
	return Slerp(from.Vector(), to.Vector(), t, opts...)
}

// slerpUnit interpolates between two unit vectors. When the angle between
// them vanishes it holds s.
func slerpUnit(s, e Vector, t float64) Vector {
	theta := math.Acos(clamp(s.Dot(e), -1, 1))
	sinTheta := math.Sin(theta)

	if math.Abs(sinTheta) < zeroLength {
		return s
	}

	a := math.Sin((1-t)*theta) / sinTheta
	b := math.Sin(t*theta) / sinTheta
	return s.Scale(a).Add(e.Scale(b))
}

// viaDirection picks the unit intermediate for an antipodal pair starting at
// the unit vector s. A via that is zero or collinear with s cannot split the
// path and is replaced by a perpendicular.
func viaDirection(s Vector, via *Vector) Vector {
	if via != nil {
		v := via.Norm()
		if v != (Vector{}) && math.Abs(v.Dot(s)) <= parallelThreshold {
			return v
		}
	}

	if math.Abs(s.X) < 0.9 {
		return Vector{0, -s.Z, s.Y}.Norm()
	}
	return Vector{-s.Y, s.X, 0}.Norm()
}
