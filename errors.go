package qbloch

import (
	"errors"
	"fmt"
)

// ErrUnknownGate is returned when a gate name is not part of the gate set.
var ErrUnknownGate = errors.New("unknown gate")

// ErrInvalidAngle is returned for a NaN or infinite gate angle.
var ErrInvalidAngle = errors.New("gate angle must be finite")

// ErrInvalidTarget is returned when an aimed vector has a NaN or infinite component.
var ErrInvalidTarget = errors.New("target must be finite")

/*
InvalidStateError reports an amplitude pair whose squared magnitudes do not
sum to one. The qubit is never created in that case; nothing is normalized
on the caller's behalf.
*/
type InvalidStateError struct {
	Alpha complex128
	Beta  complex128
	Sum   float64
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf(
		"invalid qubit state: |%v|² + |%v|² = %.12g, want 1",
		e.Alpha, e.Beta, e.Sum,
	)
}
