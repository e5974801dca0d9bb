package qbloch

import (
	"context"
	"time"

	"github.com/theapemachine/errnie"
)

// Animator is the clock that drives a session: one Advance per tick, each
// sample handed to the broadcast.
type Animator struct {
	session   *Session
	broadcast *Broadcast
	interval  time.Duration
}

// NewAnimator ticks session at its configured interval. broadcast may be nil
// when nobody listens.
func NewAnimator(session *Session, broadcast *Broadcast) *Animator {
	return &Animator{
		session:   session,
		broadcast: broadcast,
		interval:  session.Config().TickInterval,
	}
}

// Run ticks until ctx is done and returns its error.
func (a *Animator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	errnie.Info("Animator - session %s, interval %s", a.session.ID(), a.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sample := a.session.Advance()
			if a.broadcast != nil {
				a.broadcast.Send(sample)
			}
		}
	}
}
