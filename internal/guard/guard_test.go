package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu       sync.Mutex
	released []string
}

func (r *recorder) acquire(name string, releaseErr error) AcquireFunc {
	return func(context.Context) (string, ReleaseFunc, error) {
		return name, func(context.Context) error {
			r.mu.Lock()
			r.released = append(r.released, name)
			r.mu.Unlock()
			return releaseErr
		}, nil
	}
}

func TestReleaseRunsOnce(t *testing.T) {
	rec := &recorder{}
	g, err := Acquire(context.Background(), "forward", rec.acquire("tcp:8080", nil), testLogger())
	require.NoError(t, err)

	require.NoError(t, g.Release(context.Background()))
	require.NoError(t, g.Release(context.Background()))

	assert.Equal(t, []string{"tcp:8080"}, rec.released)
	assert.Equal(t, "forward", g.Name())
	assert.Equal(t, "tcp:8080", g.ID())
}

func TestReleaseErrorIsSticky(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	g, err := Acquire(context.Background(), "sink", rec.acquire("42", boom), testLogger())
	require.NoError(t, err)

	first := g.Release(context.Background())
	second := g.Release(context.Background())

	require.ErrorIs(t, first, boom)
	assert.Equal(t, first, second)
	assert.Len(t, rec.released, 1)
}

func TestConcurrentReleaseRunsOnce(t *testing.T) {
	rec := &recorder{}
	g, err := Acquire(context.Background(), "pipeline", rec.acquire("p", nil), testLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Release(context.Background())
		}()
	}
	wg.Wait()

	assert.Len(t, rec.released, 1)
}

func TestFailedAcquireNeverReleases(t *testing.T) {
	released := false
	boom := errors.New("adb unavailable")

	g, err := Acquire(context.Background(), "forward", func(context.Context) (string, ReleaseFunc, error) {
		return "", func(context.Context) error {
			released = true
			return nil
		}, boom
	}, testLogger())

	require.ErrorIs(t, err, boom)
	assert.Nil(t, g)
	assert.False(t, released)
}

func TestStackReleasesInReverseOrder(t *testing.T) {
	rec := &recorder{}
	s := NewStack(testLogger())

	for _, name := range []string{"a1", "a2", "a3"} {
		_, err := s.Acquire(context.Background(), name, rec.acquire(name, nil))
		require.NoError(t, err)
	}

	require.NoError(t, s.ReleaseAll(context.Background()))
	assert.Equal(t, []string{"a3", "a2", "a1"}, rec.released)
	assert.Equal(t, 0, s.Len())
}

func TestStackContinuesPastFailedRelease(t *testing.T) {
	rec := &recorder{}
	s := NewStack(testLogger())
	boom := errors.New("unload failed")

	_, err := s.Acquire(context.Background(), "a1", rec.acquire("a1", nil))
	require.NoError(t, err)
	_, err = s.Acquire(context.Background(), "a2", rec.acquire("a2", boom))
	require.NoError(t, err)
	_, err = s.Acquire(context.Background(), "a3", rec.acquire("a3", nil))
	require.NoError(t, err)

	err = s.ReleaseAll(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a3", "a2", "a1"}, rec.released)
}

func TestStackPartialAcquisition(t *testing.T) {
	rec := &recorder{}
	s := NewStack(testLogger())
	failed := false

	_, err := s.Acquire(context.Background(), "a1", rec.acquire("a1", nil))
	require.NoError(t, err)
	_, err = s.Acquire(context.Background(), "a2", rec.acquire("a2", nil))
	require.NoError(t, err)
	_, err = s.Acquire(context.Background(), "a3", func(context.Context) (string, ReleaseFunc, error) {
		return "", func(context.Context) error {
			failed = true
			return nil
		}, errors.New("no device")
	})
	require.Error(t, err)

	require.NoError(t, s.ReleaseAll(context.Background()))
	assert.Equal(t, []string{"a2", "a1"}, rec.released)
	assert.False(t, failed, "release of the failed step must not run")
}

func TestReleaseAllTwiceIsNoop(t *testing.T) {
	rec := &recorder{}
	s := NewStack(testLogger())
	_, err := s.Acquire(context.Background(), "a1", rec.acquire("a1", nil))
	require.NoError(t, err)

	require.NoError(t, s.ReleaseAll(context.Background()))
	require.NoError(t, s.ReleaseAll(context.Background()))
	assert.Equal(t, []string{"a1"}, rec.released)
}
