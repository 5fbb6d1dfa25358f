package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/smazurov/dcam/internal/camera"
	"github.com/smazurov/dcam/internal/events"
	"github.com/smazurov/dcam/internal/logging"
)

// ErrInputClosed is returned by Run when the key channel closes.
var ErrInputClosed = errors.New("keyboard input closed")

// DefaultStep is the default pan and quality increment.
const DefaultStep = 5

// Camera is the camera state the loop drives.
type Camera interface {
	ZoomIn(ctx context.Context) error
	ZoomOut(ctx context.Context) error
	ApplyDelta(ctx context.Context, setting camera.Setting, delta int) error
	Refresh(ctx context.Context) error
	Current() (camera.Values, bool)
	ZoomPercent() (int, bool)
}

// Mirror toggles image mirroring on the running pipeline.
type Mirror interface {
	ToggleMirror() (bool, error)
	Mirrored() bool
}

// Loop applies keyboard commands to the camera and pipeline.
type Loop struct {
	camera      Camera
	mirror      Mirror
	bus         *events.Bus
	status      io.Writer
	panStep     int
	qualityStep int
	logger      *slog.Logger

	statusMu sync.Mutex
}

// Option configures a Loop.
type Option func(*Loop)

// WithMirror sets the pipeline the mirror command toggles.
func WithMirror(m Mirror) Option {
	return func(l *Loop) {
		l.mirror = m
	}
}

// WithBus publishes command and camera state events.
func WithBus(bus *events.Bus) Option {
	return func(l *Loop) {
		l.bus = bus
	}
}

// WithStatusLine draws the status line on w after every command.
func WithStatusLine(w io.Writer) Option {
	return func(l *Loop) {
		l.status = w
	}
}

// WithSteps sets the pan and quality increments. Non-positive values keep
// the defaults.
func WithSteps(pan, quality int) Option {
	return func(l *Loop) {
		if pan > 0 {
			l.panStep = pan
		}
		if quality > 0 {
			l.qualityStep = quality
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a control loop over cam.
func NewLoop(cam Camera, opts ...Option) *Loop {
	l := &Loop{
		camera:      cam,
		panStep:     DefaultStep,
		qualityStep: DefaultStep,
		logger:      logging.GetLogger("control"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run handles keys until quit (nil), the key channel closes
// (ErrInputClosed) or ctx ends (ctx.Err()). A nil channel means no keyboard;
// Run then waits for ctx.
func (l *Loop) Run(ctx context.Context, keys <-chan Key) error {
	l.drawStatus()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-keys:
			// A cancelled context wins over a buffered key.
			if err := ctx.Err(); err != nil {
				return err
			}
			if !ok {
				l.logger.Debug("Keyboard input closed")
				return ErrInputClosed
			}

			cmd := CommandForKey(key)
			if cmd == CommandQuit {
				l.logger.Info("Quit requested", "key", key)
				return nil
			}
			if cmd == CommandNothing {
				continue
			}

			l.Handle(ctx, cmd)
		}
	}
}

// Handle applies one command, refreshes the camera state and redraws the
// status line. Failures are logged and do not skip the refresh.
func (l *Loop) Handle(ctx context.Context, cmd Command) {
	err := l.apply(ctx, cmd)
	if err != nil {
		l.logger.Warn("Command failed", "command", cmd, "error", err)
	} else {
		l.logger.Debug("Command applied", "command", cmd)
	}

	ev := events.ControlCommandEvent{Command: cmd.String(), Timestamp: events.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	l.bus.Publish(ev)

	if err := l.camera.Refresh(ctx); err != nil {
		l.logger.Warn("Failed to refresh camera state", "error", err)
	}

	l.publishState()
	l.drawStatus()
}

func (l *Loop) apply(ctx context.Context, cmd Command) error {
	switch cmd {
	case CommandZoomIn:
		return l.camera.ZoomIn(ctx)
	case CommandZoomOut:
		return l.camera.ZoomOut(ctx)
	case CommandQualityUp:
		return l.camera.ApplyDelta(ctx, camera.SettingQuality, l.qualityStep)
	case CommandQualityDown:
		return l.camera.ApplyDelta(ctx, camera.SettingQuality, -l.qualityStep)
	case CommandPanLeft:
		return l.camera.ApplyDelta(ctx, camera.SettingCropX, -l.panStep)
	case CommandPanRight:
		return l.camera.ApplyDelta(ctx, camera.SettingCropX, l.panStep)
	case CommandPanUp:
		return l.camera.ApplyDelta(ctx, camera.SettingCropY, -l.panStep)
	case CommandPanDown:
		return l.camera.ApplyDelta(ctx, camera.SettingCropY, l.panStep)
	case CommandToggleMirror:
		if l.mirror == nil {
			return errors.New("no pipeline to mirror")
		}
		on, err := l.mirror.ToggleMirror()
		if err != nil {
			return err
		}
		l.logger.Info("Mirror toggled", "mirror", on)
		return nil
	default:
		return fmt.Errorf("unhandled command %s", cmd)
	}
}

func (l *Loop) mirrored() bool {
	return l.mirror != nil && l.mirror.Mirrored()
}

func (l *Loop) publishState() {
	if l.bus == nil {
		return
	}
	values, ok := l.camera.Current()
	if !ok {
		return
	}
	pct, known := l.camera.ZoomPercent()
	l.bus.Publish(events.CameraStateEvent{
		Zoom:        uint32(values.Zoom),
		ZoomPercent: pct,
		ZoomKnown:   known,
		CropX:       uint32(values.CropX),
		CropY:       uint32(values.CropY),
		Quality:     uint32(values.Quality),
		Mirrored:    l.mirrored(),
		Timestamp:   events.Now(),
	})
}

func (l *Loop) drawStatus() {
	if l.status == nil {
		return
	}
	l.statusMu.Lock()
	defer l.statusMu.Unlock()

	values, _ := l.camera.Current()
	pct, known := l.camera.ZoomPercent()
	line := StatusLine(pct, known, int(values.Quality), l.mirrored())
	// Carriage return and erase-line keep the status on one row.
	_, _ = io.WriteString(l.status, "\r\x1b[2K"+line)
}

// StatusLine renders the single-line camera summary.
func StatusLine(zoomPercent int, zoomKnown bool, quality int, mirrored bool) string {
	zoom := "--"
	if zoomKnown {
		zoom = fmt.Sprintf("%d", zoomPercent)
	}
	mirror := "off"
	if mirrored {
		mirror = "on"
	}
	return fmt.Sprintf("zoom %s%% | quality %d | mirror %s", zoom, quality, mirror)
}
