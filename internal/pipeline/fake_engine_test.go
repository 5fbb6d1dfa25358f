package pipeline

import (
	"errors"
	"sync"
	"time"
)

// fakeEngine is a scripted Engine. Messages queued with push are returned by
// Pop in order; an empty queue waits for the timeout like a quiet bus.
type fakeEngine struct {
	mu       sync.Mutex
	queue    []*Message
	calls    []string
	flips    []FlipMethod
	playErr  error
	closeErr error
	flipErr  error
	notify   chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{notify: make(chan struct{}, 1)}
}

func (f *fakeEngine) push(msgs ...*Message) {
	f.mu.Lock()
	f.queue = append(f.queue, msgs...)
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Play() error {
	f.record("play")
	return f.playErr
}

func (f *fakeEngine) Pause() error {
	f.record("pause")
	return nil
}

func (f *fakeEngine) Close() error {
	f.record("close")
	return f.closeErr
}

func (f *fakeEngine) SetFlip(m FlipMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flipErr != nil {
		return f.flipErr
	}
	f.flips = append(f.flips, m)
	return nil
}

func (f *fakeEngine) Pop(timeout time.Duration) *Message {
	f.mu.Lock()
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg
	}
	f.mu.Unlock()

	select {
	case <-f.notify:
		return f.Pop(0)
	case <-time.After(timeout):
		return nil
	}
}

var errFake = errors.New("fake engine failure")
