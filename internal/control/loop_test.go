package control

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/dcam/internal/camera"
	"github.com/smazurov/dcam/internal/events"
)

type fakeCamera struct {
	mu        sync.Mutex
	calls     []string
	refreshes int
	values    camera.Values
	zoomPct   int
	zoomKnown bool
	zoomErr   error
}

func (c *fakeCamera) record(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *fakeCamera) ZoomIn(context.Context) error {
	c.record("zoom-in")
	return c.zoomErr
}

func (c *fakeCamera) ZoomOut(context.Context) error {
	c.record("zoom-out")
	return c.zoomErr
}

func (c *fakeCamera) ApplyDelta(_ context.Context, s camera.Setting, delta int) error {
	c.record(string(s) + ":" + strconv.Itoa(delta))
	return nil
}

func (c *fakeCamera) Refresh(context.Context) error {
	c.mu.Lock()
	c.refreshes++
	c.mu.Unlock()
	return nil
}

func (c *fakeCamera) Current() (camera.Values, bool) {
	return c.values, true
}

func (c *fakeCamera) ZoomPercent() (int, bool) {
	return c.zoomPct, c.zoomKnown
}

func (c *fakeCamera) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...), c.refreshes
}

type fakeMirror struct {
	on  bool
	err error
}

func (m *fakeMirror) ToggleMirror() (bool, error) {
	if m.err != nil {
		return m.on, m.err
	}
	m.on = !m.on
	return m.on, nil
}

func (m *fakeMirror) Mirrored() bool { return m.on }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runKeys(t *testing.T, l *Loop, keys ...Key) error {
	t.Helper()
	ch := make(chan Key, len(keys))
	for _, k := range keys {
		ch <- k
	}
	close(ch)

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), ch) }()

	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		t.Fatal("loop did not return")
		return nil
	}
}

func TestLoopQuitSkipsRefresh(t *testing.T) {
	cam := &fakeCamera{}
	l := NewLoop(cam, WithLogger(testLogger()))

	err := runKeys(t, l, 'q', 'z')
	require.NoError(t, err)

	calls, refreshes := cam.snapshot()
	assert.Empty(t, calls)
	assert.Equal(t, 0, refreshes)
}

func TestLoopCommandsRefreshEveryTime(t *testing.T) {
	cam := &fakeCamera{}
	mirror := &fakeMirror{}
	l := NewLoop(cam, WithLogger(testLogger()), WithMirror(mirror), WithSteps(10, 3))

	err := runKeys(t, l, 'z', 'Z', 't', 'T', KeyLeft, KeyRight, KeyUp, KeyDown, 'x', 'f', 'q')
	require.NoError(t, err)

	calls, refreshes := cam.snapshot()
	assert.Equal(t, []string{
		"zoom-in",
		"zoom-out",
		"quality:3",
		"quality:-3",
		"crop_x:-10",
		"crop_x:10",
		"crop_y:-10",
		"crop_y:10",
	}, calls)
	// Nine actionable commands (the no-op key is skipped).
	assert.Equal(t, 9, refreshes)
	assert.True(t, mirror.on)
}

func TestLoopFailedMutationStillRefreshes(t *testing.T) {
	cam := &fakeCamera{zoomErr: camera.ErrZoomUnavailable}
	l := NewLoop(cam, WithLogger(testLogger()))

	require.NoError(t, runKeys(t, l, 'z', 'q'))

	_, refreshes := cam.snapshot()
	assert.Equal(t, 1, refreshes)
}

func TestLoopMirrorWithoutPipeline(t *testing.T) {
	cam := &fakeCamera{}
	l := NewLoop(cam, WithLogger(testLogger()))

	require.NoError(t, runKeys(t, l, 'f', 'q'))
	_, refreshes := cam.snapshot()
	assert.Equal(t, 1, refreshes)
}

func TestLoopInputClosed(t *testing.T) {
	l := NewLoop(&fakeCamera{}, WithLogger(testLogger()))
	err := runKeys(t, l, 'x')
	require.ErrorIs(t, err, ErrInputClosed)
}

func TestLoopCancelledContextIgnoresBufferedKey(t *testing.T) {
	for i := 0; i < 200; i++ {
		cam := &fakeCamera{}
		mirror := &fakeMirror{}
		l := NewLoop(cam, WithLogger(testLogger()), WithMirror(mirror))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		keys := make(chan Key, 2)
		keys <- 'z'
		keys <- 'f'

		err := l.Run(ctx, keys)
		require.ErrorIs(t, err, context.Canceled)

		calls, refreshes := cam.snapshot()
		require.Empty(t, calls, "iteration %d", i)
		require.Equal(t, 0, refreshes, "iteration %d", i)
		require.False(t, mirror.on, "iteration %d", i)
	}
}

func TestLoopNilKeysWaitsForContext(t *testing.T) {
	l := NewLoop(&fakeCamera{}, WithLogger(testLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Run(ctx, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopStatusLine(t *testing.T) {
	cam := &fakeCamera{values: camera.Values{Quality: 80}, zoomPct: 50, zoomKnown: true}
	var buf bytes.Buffer
	l := NewLoop(cam, WithLogger(testLogger()), WithStatusLine(&buf), WithMirror(&fakeMirror{}))

	require.NoError(t, runKeys(t, l, 'f', 'q'))

	out := buf.String()
	assert.Contains(t, out, "zoom 50% | quality 80 | mirror off")
	assert.True(t, strings.HasSuffix(out, "zoom 50% | quality 80 | mirror on"))
}

func TestLoopPublishesEvents(t *testing.T) {
	bus := events.New()
	commands := make(chan events.ControlCommandEvent, 4)
	states := make(chan events.CameraStateEvent, 4)
	defer bus.Subscribe(func(e events.ControlCommandEvent) { commands <- e })()
	defer bus.Subscribe(func(e events.CameraStateEvent) { states <- e })()

	cam := &fakeCamera{values: camera.Values{Quality: 60}, zoomErr: errors.New("boom")}
	l := NewLoop(cam, WithLogger(testLogger()), WithBus(bus))
	require.NoError(t, runKeys(t, l, 'z', 'q'))

	select {
	case ev := <-commands:
		assert.Equal(t, "zoom-in", ev.Command)
		assert.Equal(t, "boom", ev.Error)
	case <-time.After(time.Second):
		t.Fatal("command event not published")
	}
	select {
	case ev := <-states:
		assert.Equal(t, uint32(60), ev.Quality)
		assert.False(t, ev.ZoomKnown)
	case <-time.After(time.Second):
		t.Fatal("camera state event not published")
	}
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "zoom 0% | quality 50 | mirror on", StatusLine(0, true, 50, true))
	assert.Equal(t, "zoom --% | quality 0 | mirror off", StatusLine(0, false, 0, false))
}
