package qbloch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

// ErrMissingAngle is returned when a parametric gate is issued without an angle.
var ErrMissingAngle = errors.New("gate requires an angle")

// Sample is what one animation tick shows.
type Sample struct {
	Position Vector
	Progress float64
	Target   Frame
	// Arrived is true only on the tick that completes a transition.
	Arrived bool
}

/*
Session owns one qubit, its frame history and the animation that moves the
displayed vector towards the current target.

A single mutex covers the qubit, the history, the displayed position, the
target and the interpolation parameter. It is taken for the duration of each
gate, measurement, navigation and tick, and released before anything else
happens, so a tick can never observe a half-written target.
*/
type Session struct {
	mu sync.Mutex

	id      string
	cfg     *Config
	via     []SlerpOption
	qubit   *Qubit
	history *History
	metrics *Metrics

	from     Frame
	target   Frame
	t        float64
	position Vector
	waiters  []chan Frame
}

type sessionOptions struct {
	amplitudes *[2]complex128
	rng        RandomSource
	metrics    *Metrics
}

// SessionOption configures a Session at construction.
type SessionOption func(*sessionOptions)

// WithAmplitudes starts the session from an explicit amplitude pair instead
// of Config.Initial.
func WithAmplitudes(alpha, beta complex128) SessionOption {
	return func(o *sessionOptions) {
		o.amplitudes = &[2]complex128{alpha, beta}
	}
}

// WithRandom overrides the measurement source derived from Config.Seed.
func WithRandom(src RandomSource) SessionOption {
	return func(o *sessionOptions) {
		o.rng = src
	}
}

// WithMetrics lets several sessions report into one Metrics.
func WithMetrics(m *Metrics) SessionOption {
	return func(o *sessionOptions) {
		o.metrics = m
	}
}

/*
NewSession creates the qubit and records its initial frame. A nil config
uses NewConfig. Amplitudes failing the unit-norm check surface as an
*InvalidStateError.
*/
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &sessionOptions{rng: cfg.randomSource()}
	for _, opt := range opts {
		opt(o)
	}

	alpha, beta := cfg.amplitudes()
	if o.amplitudes != nil {
		alpha, beta = o.amplitudes[0], o.amplitudes[1]
	}

	qubit, err := NewQubit(alpha, beta, WithRandomSource(o.rng))
	if err != nil {
		return nil, err
	}

	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	initial := qubit.Frame()
	initial.Gate = GateInit

	own := *cfg
	s := &Session{
		id:      uuid.NewString(),
		cfg:     &own,
		via:     cfg.slerpOptions(),
		qubit:   qubit,
		history: newHistory(initial),
		metrics: o.metrics,
		t:       1,
	}
	s.target = s.history.Current()
	s.from = s.target
	s.position = s.target.Vector()

	errnie.Info("NewSession - id %s, initial %s", s.id, s.position)
	return s, nil
}

/*
ApplyGate applies a gate by name (x, y, z, h, s, t, p, rx, ry, rz or
measure). Parametric gates take their angle in radians as the first extra
argument.
*/
func (s *Session) ApplyGate(name string, angle ...float64) (Vector, error) {
	g, err := ParseGate(name)
	if err != nil {
		return s.Position(), err
	}

	if g.Parametric() && len(angle) == 0 {
		return s.Position(), fmt.Errorf("%w: %s", ErrMissingAngle, g)
	}

	a := 0.0
	if len(angle) > 0 {
		a = angle[0]
	}
	if g.Parametric() && !finite(a) {
		return s.Position(), fmt.Errorf("%w: %s %v", ErrInvalidAngle, g, a)
	}
	return s.Apply(g, a), nil
}

/*
Apply runs the gate on the qubit, appends the resulting frame and retargets
the animation onto it. Once the qubit is collapsed, or when a parametric
gate gets a NaN or infinite angle, nothing is recorded and the current
coordinates come back unchanged.
*/
func (s *Session) Apply(g Gate, angle float64) Vector {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.qubit.Collapsed() || !g.applicable() || (g.Parametric() && !finite(angle)) {
		s.metrics.recordIgnored()
		return s.qubit.Cartesian()
	}

	v := s.qubit.Apply(g, angle)

	f := s.qubit.Frame()
	f.Gate = g
	f = s.history.Append(f)
	s.retarget(f)

	if g == GateMeasure {
		outcome, _ := s.qubit.Outcome()
		s.metrics.recordMeasurement(outcome)
		errnie.Info("Measure - id %s, outcome |%d⟩", s.id, outcome)
		return v
	}

	s.metrics.recordGate(g)
	errnie.Info("Apply - id %s, gate %s, angle %.4f, coords %s", s.id, g, angle, v)
	return v
}

// Measure collapses the qubit. Only the first call records a frame.
func (s *Session) Measure() Vector {
	return s.Apply(GateMeasure, 0)
}

// History returns a copy of every recorded frame in order.
func (s *Session) History() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Frames()
}

// Cursor returns the index of the frame being animated towards.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Cursor()
}

/*
Navigate moves the history cursor and retargets the animation onto the
frame it lands on. At a boundary nothing changes and false is returned with
the current target.
*/
func (s *Session) Navigate(d Direction) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, moved := s.history.Step(d)
	s.metrics.recordNavigation(moved)
	if !moved {
		return s.target, false
	}

	s.retarget(f)
	errnie.Info("Navigate - id %s, %s to #%d", s.id, d, f.Seq)
	return f, true
}

/*
Aim retargets the animation onto an arbitrary vector of any length. The
qubit and the history are left alone; the next gate or navigation moves the
animation back onto a recorded frame.
*/
func (s *Session) Aim(v Vector) (Frame, error) {
	if !v.IsFinite() {
		return Frame{}, fmt.Errorf("%w: %s", ErrInvalidTarget, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, phi := CartesianToSpherical(v)
	f := Frame{
		X:     v.X,
		Y:     v.Y,
		Z:     v.Z,
		Phase: PhaseFraction(phi),
		Seq:   s.history.Current().Seq,
		Gate:  GateAim,
		At:    time.Now(),
	}

	s.retarget(f)
	s.metrics.recordGate(GateAim)
	errnie.Info("Aim - id %s, target %s", s.id, v)
	return f, nil
}

// Tick advances the animation by one step and returns the displayed position.
func (s *Session) Tick() Vector {
	return s.Advance().Position
}

/*
Advance moves the interpolation parameter forward by Config.Step, never past
one, and reports the displayed position. Waiters registered through Await are
released on the tick that reaches the target.
*/
func (s *Session) Advance() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.recordTick()

	if s.t >= 1 {
		return Sample{Position: s.position, Progress: 1, Target: s.target}
	}

	s.t = math.Min(1, s.t+s.cfg.Step)
	s.position = Interpolate(s.from, s.target, s.t, s.via...)

	arrived := s.t >= 1
	if arrived {
		s.metrics.finishTransition(time.Now())
		s.release()
	}

	return Sample{
		Position: s.position,
		Progress: s.t,
		Target:   s.target,
		Arrived:  arrived,
	}
}

/*
Await returns a channel that receives the target frame once the animation
reaches it. When nothing is in flight the channel is already filled.
Retargeting before arrival moves the wait onto the new target.
*/
func (s *Session) Await() <-chan Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Frame, 1)
	if s.t >= 1 {
		ch <- s.target
		close(ch)
		return ch
	}

	s.waiters = append(s.waiters, ch)
	return ch
}

/*
Replay rewinds the cursor to the first frame and steps through the history,
waiting for each transition to finish before moving on. Something else has to
be ticking the session, usually an Animator. It returns nil once the last
frame is reached or the context error if cancelled.
*/
func (s *Session) Replay(ctx context.Context) error {
	errnie.Info("Replay - id %s, frames %d", s.id, len(s.History()))

	s.Navigate(Rewind)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Await():
		}

		if _, ok := s.Navigate(Next); !ok {
			return nil
		}
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Metrics() *Metrics { return s.metrics }

func (s *Session) Config() Config {
	return *s.cfg
}

func (s *Session) Position() Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Session) Target() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Progress is the interpolation parameter of the current transition.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *Session) Collapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qubit.Collapsed()
}

// Probabilities returns the Born-rule probabilities of |0⟩ and |1⟩.
func (s *Session) Probabilities() (p0, p1 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qubit.Probabilities()
}

// State describes the live qubit, not the frame under the cursor.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qubit.String()
}

// retarget starts a transition from what is on screen now. Callers hold mu.
func (s *Session) retarget(f Frame) {
	s.from = Frame{
		X:     s.position.X,
		Y:     s.position.Y,
		Z:     s.position.Z,
		Phase: s.target.Phase,
	}
	s.target = f
	s.t = 0
	s.metrics.startTransition(time.Now())
}

// release hands the reached target to every waiter. Callers hold mu.
func (s *Session) release() {
	for _, ch := range s.waiters {
		ch <- s.target
		close(ch)
	}
	s.waiters = nil
}
