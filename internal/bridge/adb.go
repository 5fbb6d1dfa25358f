// Package bridge drives the Android device bridge (adb) that exposes the
// phone's camera HTTP port on localhost.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/smazurov/dcam/internal/guard"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/process"
)

// DefaultPath is the adb binary looked up on PATH.
const DefaultPath = "adb"

// ADB issues adb commands through a process.Runner.
type ADB struct {
	runner process.Runner
	path   string
	serial string
	logger *slog.Logger
}

// Option configures an ADB.
type Option func(*ADB)

// WithPath overrides the adb binary.
func WithPath(path string) Option {
	return func(a *ADB) {
		if path != "" {
			a.path = path
		}
	}
}

// WithSerial targets one device when several are attached.
func WithSerial(serial string) Option {
	return func(a *ADB) {
		a.serial = serial
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *ADB) {
		a.logger = logger
	}
}

// New creates an ADB bridge.
func New(runner process.Runner, opts ...Option) *ADB {
	a := &ADB{
		runner: runner,
		path:   DefaultPath,
		logger: logging.GetLogger("bridge"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartServer makes sure the adb server daemon is running.
func (a *ADB) StartServer(ctx context.Context) error {
	if err := a.runner.Run(ctx, a.path, a.args("start-server")...); err != nil {
		return fmt.Errorf("start adb server: %w", err)
	}
	a.logger.Debug("ADB server running")
	return nil
}

// Forward maps local tcp:port to the same port on the device. The returned
// guard removes the mapping when released.
func (a *ADB) Forward(ctx context.Context, port uint16) (*guard.Guard, error) {
	endpoint := "tcp:" + strconv.Itoa(int(port))

	return guard.Acquire(ctx, "port-forward", func(ctx context.Context) (string, guard.ReleaseFunc, error) {
		if err := a.runner.Run(ctx, a.path, a.args("forward", endpoint, endpoint)...); err != nil {
			return "", nil, err
		}
		a.logger.Info("Port forwarded", "port", port, "serial", a.serial)

		return endpoint, func(ctx context.Context) error {
			// Removal runs during teardown; detach from the cancelled session context.
			if err := a.runner.Run(context.WithoutCancel(ctx), a.path, a.args("forward", "--remove", endpoint)...); err != nil {
				return err
			}
			a.logger.Info("Port forward removed", "port", port)
			return nil
		}, nil
	}, a.logger)
}

func (a *ADB) args(args ...string) []string {
	if a.serial == "" {
		return args
	}
	return append([]string{"-s", a.serial}, args...)
}
