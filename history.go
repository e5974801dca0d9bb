package qbloch

import (
	"fmt"
	"strings"
	"time"
)

/*
Frame is one recorded point of the gate history: the cartesian position on
the Bloch sphere and the phase as a fraction of a full turn. Seq, Gate and At
describe how the frame came to be and do not affect interpolation.
*/
type Frame struct {
	X, Y, Z float64
	Phase   float64 // phi / 2π, in [0, 1)

	Seq  uint64
	Gate Gate
	At   time.Time
}

// Vector returns the positional part of the frame.
func (f Frame) Vector() Vector {
	return Vector{f.X, f.Y, f.Z}
}

func (f Frame) String() string {
	return fmt.Sprintf("#%d %-7s %s phase=%.3f", f.Seq, f.Gate, f.Vector(), f.Phase)
}

// Direction moves the history cursor.
type Direction int

const (
	Previous Direction = iota
	Next
	// Rewind jumps back to the first frame.
	Rewind
)

func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Rewind:
		return "rewind"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts previous/prev, next and reset/rewind.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "previous", "prev":
		return Previous, nil
	case "next":
		return Next, nil
	case "reset", "rewind":
		return Rewind, nil
	}
	return Previous, fmt.Errorf("unknown direction %q", name)
}

/*
History is the append-only ledger of frames produced by a session, plus a
cursor pointing at the frame currently being shown. Frames are numbered in
order of arrival; moving the cursor never alters them.

History is not safe for concurrent use. Session guards it with its own lock.
*/
type History struct {
	frames []Frame
	cursor int
}

func newHistory(initial Frame) *History {
	h := &History{frames: make([]Frame, 0, 16)}
	h.Append(initial)
	return h
}

// Append records a frame, stamps its sequence number and moves the cursor
// onto it.
func (h *History) Append(f Frame) Frame {
	f.Seq = uint64(len(h.frames))
	if f.At.IsZero() {
		f.At = time.Now()
	}

	h.frames = append(h.frames, f)
	h.cursor = len(h.frames) - 1
	return f
}

// Frames returns a copy of the whole ledger in order.
func (h *History) Frames() []Frame {
	out := make([]Frame, len(h.frames))
	copy(out, h.frames)
	return out
}

// Since returns a copy of the frames recorded at or after seq.
func (h *History) Since(seq uint64) []Frame {
	if seq >= uint64(len(h.frames)) {
		return []Frame{}
	}

	out := make([]Frame, len(h.frames)-int(seq))
	copy(out, h.frames[seq:])
	return out
}

func (h *History) Len() int       { return len(h.frames) }
func (h *History) Cursor() int    { return h.cursor }
func (h *History) Current() Frame { return h.frames[h.cursor] }
func (h *History) Last() Frame    { return h.frames[len(h.frames)-1] }

// Step moves the cursor and returns the frame it lands on. At a boundary the
// cursor stays put and false is returned.
func (h *History) Step(d Direction) (Frame, bool) {
	switch d {
	case Previous:
		if h.cursor == 0 {
			return h.Current(), false
		}
		h.cursor--
	case Next:
		if h.cursor >= len(h.frames)-1 {
			return h.Current(), false
		}
		h.cursor++
	case Rewind:
		if h.cursor == 0 {
			return h.Current(), false
		}
		h.cursor = 0
	default:
		return h.Current(), false
	}

	return h.Current(), true
}
