package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/dcam/internal/logging"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind is the kind of an Event.
type EventKind int

const (
	EventOther EventKind = iota
	EventEndOfStream
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventEndOfStream:
		return "eos"
	case EventError:
		return "error"
	default:
		return "other"
	}
}

// Event is a bus event observed while playing.
type Event struct {
	Kind     EventKind
	Source   string
	Detail   string
	Debug    string
	Category ErrorCategory
}

// Terminal reports whether the event ends the session.
func (e Event) Terminal() bool {
	return e.Kind == EventEndOfStream || e.Kind == EventError
}

const (
	defaultStartWindow  = 3 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// Session drives one Engine through Idle, Playing, Paused and Closed.
type Session struct {
	engine Engine
	logger *slog.Logger

	startWindow  time.Duration
	pollInterval time.Duration

	mu           sync.Mutex
	state        State
	flip         FlipMethod
	mirror       FlipMethod
	eventsCalled bool
	stopPolling  chan struct{}
	pollDone     chan struct{}
	onState      func(State)
}

// Option configures a Session.
type Option func(*Session)

// WithStartWindow sets how long Start watches the bus for early errors.
func WithStartWindow(d time.Duration) Option {
	return func(s *Session) {
		s.startWindow = d
	}
}

// WithPollInterval sets the bus poll timeout.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithStateHook registers a callback invoked after every state change.
func WithStateHook(fn func(State)) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

// NewSession wraps an engine built for cfg.
func NewSession(cfg Config, engine Engine, opts ...Option) *Session {
	mirror := cfg.Flip
	if mirror == FlipNone {
		mirror = FlipHorizontal
	}

	s := &Session{
		engine:       engine,
		logger:       logging.GetLogger("pipeline"),
		startWindow:  defaultStartWindow,
		pollInterval: defaultPollInterval,
		state:        StateIdle,
		flip:         cfg.Flip,
		mirror:       mirror,
		stopPolling:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build renders cfg, constructs the engine and wraps it in a Session.
func Build(cfg Config, factory EngineFactory, opts ...Option) (*Session, error) {
	description := BuildDescription(cfg)

	engine, err := factory(description)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s := NewSession(cfg, engine, opts...)
	s.logger.Debug("Pipeline built", "description", description)
	return s, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("Pipeline state changed", "from", s.state, "to", state)
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}

// Start moves Idle to Playing. It fails, leaving the session Closed, when
// the engine refuses to play or the bus reports an error before the start
// window ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StatePlaying, StatePaused:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	if err := s.engine.Play(); err != nil {
		s.abort()
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	if err := s.awaitStart(ctx); err != nil {
		s.abort()
		return err
	}

	s.mu.Lock()
	s.setStateLocked(StatePlaying)
	s.mu.Unlock()

	s.logger.Info("Pipeline playing")
	return nil
}

// awaitStart watches the bus until the pipeline reports PLAYING, an error
// or end-of-stream arrives, or the start window elapses.
func (s *Session) awaitStart(ctx context.Context) error {
	deadline := time.Now().Add(s.startWindow)

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := s.engine.Pop(s.pollInterval)
		if msg == nil {
			continue
		}

		switch msg.Kind {
		case MessagePlaying:
			return nil
		case MessageError:
			category := ClassifyError(msg.Detail, msg.Debug)
			s.logger.Error("Pipeline failed to start",
				"source", msg.Source,
				"error", msg.Detail,
				"debug", msg.Debug,
				"category", category)
			return fmt.Errorf("pipeline error [%s]: %s", category, msg.Detail)
		case MessageEOS:
			return fmt.Errorf("pipeline reached end of stream while starting")
		}
	}

	// Live sources may not confirm PLAYING quickly; no error is good enough.
	s.logger.Debug("Start window elapsed without PLAYING confirmation")
	return nil
}

func (s *Session) abort() {
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("Failed to close pipeline", "error", err)
	}
	s.mu.Lock()
	s.setStateLocked(StateClosed)
	s.mu.Unlock()
}

// Events streams bus events while the session plays. The channel closes
// after a terminal event or when ctx is cancelled, and the session pauses.
// Only the first call streams; later calls get a closed channel.
func (s *Session) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event, 8)

	s.mu.Lock()
	if s.eventsCalled || s.state != StatePlaying {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	s.eventsCalled = true
	s.pollDone = make(chan struct{})
	done := s.pollDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer close(ch)
		defer s.pause()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopPolling:
				return
			default:
			}

			msg := s.engine.Pop(s.pollInterval)
			if msg == nil {
				continue
			}

			ev, ok := s.toEvent(msg)
			if !ok {
				continue
			}

			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			case <-s.stopPolling:
				return
			}

			if ev.Terminal() {
				return
			}
		}
	}()

	return ch
}

func (s *Session) toEvent(msg *Message) (Event, bool) {
	switch msg.Kind {
	case MessageEOS:
		s.logger.Info("Pipeline reached end of stream")
		return Event{Kind: EventEndOfStream, Source: msg.Source}, true
	case MessageError:
		category := ClassifyError(msg.Detail, msg.Debug)
		s.logger.Error("Pipeline error",
			"source", msg.Source,
			"error", msg.Detail,
			"debug", msg.Debug,
			"category", category)
		return Event{
			Kind:     EventError,
			Source:   msg.Source,
			Detail:   msg.Detail,
			Debug:    msg.Debug,
			Category: category,
		}, true
	case MessagePlaying:
		return Event{}, false
	default:
		return Event{Kind: EventOther, Source: msg.Source, Detail: msg.Detail}, true
	}
}

// pause moves Playing to Paused.
func (s *Session) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	if err := s.engine.Pause(); err != nil {
		s.logger.Warn("Failed to pause pipeline", "error", err)
	}
	s.setStateLocked(StatePaused)
}

// Stop pauses and closes the session. It is safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stopPolling:
	default:
		close(s.stopPolling)
	}
	done := s.pollDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.pause()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	err := s.engine.Close()
	s.setStateLocked(StateClosed)
	if err != nil {
		return fmt.Errorf("failed to close pipeline: %w", err)
	}
	s.logger.Info("Pipeline closed")
	return nil
}

// ToggleMirror switches the flip element between the configured flip
// method and none. It returns whether mirroring is now on.
func (s *Session) ToggleMirror() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return s.flip != FlipNone, ErrNotPlaying
	}

	next := s.mirror
	if s.flip != FlipNone {
		next = FlipNone
	}
	if err := s.engine.SetFlip(next); err != nil {
		return s.flip != FlipNone, fmt.Errorf("failed to set flip method: %w", err)
	}
	s.flip = next
	s.logger.Debug("Flip method changed", "method", next)
	return next != FlipNone, nil
}

// Mirrored reports whether the flip element currently applies a flip.
func (s *Session) Mirrored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flip != FlipNone
}
