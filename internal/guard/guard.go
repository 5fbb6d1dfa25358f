// Package guard ties externally held resources (port forwards, sound server
// modules, a running pipeline) to exactly one release action.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/dcam/internal/logging"
)

// ReleaseFunc undoes one acquisition.
type ReleaseFunc func(ctx context.Context) error

// AcquireFunc performs an acquisition and returns an identifier for the held
// resource together with its release action.
type AcquireFunc func(ctx context.Context) (id string, release ReleaseFunc, err error)

// Guard owns one successfully acquired resource.
type Guard struct {
	name    string
	id      string
	release ReleaseFunc
	logger  *slog.Logger

	once sync.Once
	err  error
}

// Acquire runs fn and wraps the result in a Guard. A failed acquisition
// returns no Guard, so its release is never invoked.
func Acquire(ctx context.Context, name string, fn AcquireFunc, logger *slog.Logger) (*Guard, error) {
	if logger == nil {
		logger = logging.GetLogger("guard")
	}

	id, release, err := fn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}

	logger.Debug("Resource acquired", "resource", name, "id", id)
	return New(name, id, release, logger), nil
}

// New wraps an already acquired resource.
func New(name, id string, release ReleaseFunc, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = logging.GetLogger("guard")
	}
	return &Guard{name: name, id: id, release: release, logger: logger}
}

// Name returns the resource name given at acquisition.
func (g *Guard) Name() string {
	return g.name
}

// ID returns the identifier reported by the acquisition.
func (g *Guard) ID() string {
	return g.id
}

// Release runs the release action once. Later calls return the first
// result without running it again.
func (g *Guard) Release(ctx context.Context) error {
	g.once.Do(func() {
		if g.release == nil {
			return
		}
		if err := g.release(ctx); err != nil {
			g.err = fmt.Errorf("release %s (%s): %w", g.name, g.id, err)
			g.logger.Warn("Failed to release resource", "resource", g.name, "id", g.id, "error", err)
			return
		}
		g.logger.Debug("Resource released", "resource", g.name, "id", g.id)
	})
	return g.err
}

// Stack releases guards in reverse order of acquisition.
type Stack struct {
	mu     sync.Mutex
	guards []*Guard
	logger *slog.Logger
}

// NewStack creates an empty Stack.
func NewStack(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = logging.GetLogger("guard")
	}
	return &Stack{logger: logger}
}

// Acquire acquires a resource and pushes its guard on success.
func (s *Stack) Acquire(ctx context.Context, name string, fn AcquireFunc) (*Guard, error) {
	g, err := Acquire(ctx, name, fn, s.logger)
	if err != nil {
		return nil, err
	}
	s.Push(g)
	return g, nil
}

// Push records an already acquired guard.
func (s *Stack) Push(g *Guard) {
	if g == nil {
		return
	}
	s.mu.Lock()
	s.guards = append(s.guards, g)
	s.mu.Unlock()
}

// Len returns the number of held guards.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guards)
}

// ReleaseAll releases every held guard, last acquired first. A failed
// release does not stop the ones after it; all failures are joined.
func (s *Stack) ReleaseAll(ctx context.Context) error {
	s.mu.Lock()
	guards := s.guards
	s.guards = nil
	s.mu.Unlock()

	var errs []error
	for i := len(guards) - 1; i >= 0; i-- {
		if err := guards[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
