package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/dcam/internal/process/processtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartServer(t *testing.T) {
	fake := processtest.NewFake()
	a := New(fake, WithLogger(testLogger()))

	require.NoError(t, a.StartServer(context.Background()))
	assert.Equal(t, []string{"adb start-server"}, fake.Lines())
}

func TestForwardAndRelease(t *testing.T) {
	fake := processtest.NewFake()
	a := New(fake, WithLogger(testLogger()))

	g, err := a.Forward(context.Background(), 8080)
	require.NoError(t, err)
	assert.Equal(t, "tcp:8080", g.ID())

	require.NoError(t, g.Release(context.Background()))
	require.NoError(t, g.Release(context.Background()))

	assert.Equal(t, []string{
		"adb forward tcp:8080 tcp:8080",
		"adb forward --remove tcp:8080",
	}, fake.Lines())
}

func TestForwardReleaseSurvivesCancelledContext(t *testing.T) {
	fake := processtest.NewFake()
	a := New(fake, WithLogger(testLogger()))

	g, err := a.Forward(context.Background(), 4747)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.Release(ctx))
	assert.Contains(t, fake.Lines(), "adb forward --remove tcp:4747")
}

func TestForwardFailureHasNoGuard(t *testing.T) {
	boom := errors.New("no devices/emulators found")
	fake := processtest.NewFake().On("adb forward tcp:8080 tcp:8080", processtest.Response{Err: boom})
	a := New(fake, WithLogger(testLogger()))

	g, err := a.Forward(context.Background(), 8080)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, g)
	assert.Equal(t, []string{"adb forward tcp:8080 tcp:8080"}, fake.Lines())
}

func TestSerialAndPath(t *testing.T) {
	fake := processtest.NewFake()
	a := New(fake, WithLogger(testLogger()), WithPath("/opt/platform-tools/adb"), WithSerial("R58M"))

	require.NoError(t, a.StartServer(context.Background()))
	_, err := a.Forward(context.Background(), 8080)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/opt/platform-tools/adb -s R58M start-server",
		"/opt/platform-tools/adb -s R58M forward tcp:8080 tcp:8080",
	}, fake.Lines())
}
