package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smazurov/dcam/pkg/linuxav/v4l2"
)

var (
	// ErrDeviceNotFound is returned when the node does not appear in time.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotOutput is returned for nodes that do not accept video output.
	ErrNotOutput = errors.New("device does not accept video output")
)

// WaitForDevice returns once path exists, watching its directory for up to
// timeout. A zero timeout only checks once.
func WaitForDevice(ctx context.Context, path string, timeout time.Duration, logger *slog.Logger) error {
	if exists(path) {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch for %s: %w", path, err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// The node may have appeared between the first check and Add.
	if exists(path) {
		return nil
	}

	logger.Info("Waiting for device", "path", path, "timeout", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return fmt.Errorf("%w: %s (waited %s)", ErrDeviceNotFound, path, timeout)

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
			}
			if event.Op&fsnotify.Create != 0 && filepath.Clean(event.Name) == filepath.Clean(path) {
				logger.Debug("Device appeared", "path", path)
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
			}
			logger.Warn("Device watcher error", "error", err)
		}
	}
}

// CheckOutput verifies that the node accepts video output.
func CheckOutput(path string) (v4l2.Capability, error) {
	capability, err := v4l2.QueryCapability(path)
	if err != nil {
		return v4l2.Capability{}, fmt.Errorf("query %s: %w", path, err)
	}
	if !capability.SupportsOutput() {
		return capability, fmt.Errorf("%w: %s (driver %q)", ErrNotOutput, path, capability.Driver)
	}
	return capability, nil
}

// Prepare waits for the node and checks it accepts output. Platforms
// without V4L2 skip the check.
func Prepare(ctx context.Context, path string, timeout time.Duration, logger *slog.Logger) error {
	if err := WaitForDevice(ctx, path, timeout, logger); err != nil {
		return err
	}

	capability, err := CheckOutput(path)
	if errors.Is(err, v4l2.ErrUnsupported) {
		logger.Debug("Skipping device capability check", "path", path)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Output device ready",
		"path", path,
		"driver", capability.Driver,
		"card", capability.Card,
		"loopback", capability.IsLoopback())
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
