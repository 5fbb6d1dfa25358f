package session

import (
	"context"
	"os"
	"sync"

	"github.com/smazurov/dcam/internal/pipeline"
)

// Reason names the source that ended a session.
type Reason string

const (
	ReasonSignal      Reason = "signal"
	ReasonQuit        Reason = "quit"
	ReasonInputClosed Reason = "input-closed"
	ReasonPipeline    Reason = "pipeline"
	ReasonCancelled   Reason = "cancelled"
)

// Outcome describes how a session ended.
type Outcome struct {
	Reason Reason
	Signal os.Signal
	Event  *pipeline.Event
}

// Race settles which of several concurrent sources ends a session. The
// first Finish wins and cancels the race context; later calls change
// nothing.
type Race struct {
	once    sync.Once
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// NewRace returns a race and the context its contenders should watch.
func NewRace(parent context.Context) (*Race, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Race{cancel: cancel, done: make(chan struct{})}, ctx
}

// Finish records o if no other source finished first, and reports whether
// it won.
func (r *Race) Finish(o Outcome) bool {
	won := false
	r.once.Do(func() {
		r.outcome = o
		won = true
		close(r.done)
		r.cancel()
	})
	return won
}

// Done closes once a winner is recorded.
func (r *Race) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the winning outcome; ok is false while undecided.
func (r *Race) Outcome() (Outcome, bool) {
	select {
	case <-r.done:
		return r.outcome, true
	default:
		return Outcome{}, false
	}
}

// Stop releases the race context without recording a winner.
func (r *Race) Stop() {
	r.cancel()
}
