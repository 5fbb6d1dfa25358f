package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smazurov/dcam/internal/audio"
	"github.com/smazurov/dcam/internal/bridge"
	"github.com/smazurov/dcam/internal/camera"
	"github.com/smazurov/dcam/internal/control"
	"github.com/smazurov/dcam/internal/devices"
	"github.com/smazurov/dcam/internal/events"
	"github.com/smazurov/dcam/internal/guard"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/metrics/exporters"
	"github.com/smazurov/dcam/internal/pipeline"
	"github.com/smazurov/dcam/internal/process"
	"github.com/smazurov/dcam/internal/terminal"
	"github.com/smazurov/dcam/internal/types"
)

// ErrNoEngine is returned when no pipeline engine factory is configured.
var ErrNoEngine = errors.New("no pipeline engine configured")

// DevicePreparer waits for and validates the output device.
type DevicePreparer func(ctx context.Context, path string, timeout time.Duration, logger *slog.Logger) error

// Session runs one coordinated session.
type Session struct {
	cfg    Config
	id     string
	logger *slog.Logger
	bus    *events.Bus

	runner        process.Runner
	engines       pipeline.EngineFactory
	prepareDevice DevicePreparer
	httpClient    *http.Client
	cameraURL     string

	signals  <-chan os.Signal
	keys     <-chan control.Key
	stdin    *os.File
	logOut   *terminal.CRLFWriter
	status   io.Writer
	pipeOpts []pipeline.Option
}

// Option configures a Session.
type Option func(*Session)

// WithRunner sets the runner for adb and pactl.
func WithRunner(r process.Runner) Option {
	return func(s *Session) {
		s.runner = r
	}
}

// WithEngineFactory sets the pipeline engine.
func WithEngineFactory(f pipeline.EngineFactory) Option {
	return func(s *Session) {
		s.engines = f
	}
}

// WithDevicePreparer replaces the output device wait and check.
func WithDevicePreparer(p DevicePreparer) Option {
	return func(s *Session) {
		s.prepareDevice = p
	}
}

// WithCameraURL overrides the camera API root derived from the port.
func WithCameraURL(url string) Option {
	return func(s *Session) {
		s.cameraURL = url
	}
}

// WithHTTPClient sets the client for the camera API.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		s.httpClient = c
	}
}

// WithSignals replaces OS signal delivery.
func WithSignals(ch <-chan os.Signal) Option {
	return func(s *Session) {
		s.signals = ch
	}
}

// WithKeys supplies decoded keys directly instead of reading a terminal.
func WithKeys(ch <-chan control.Key) Option {
	return func(s *Session) {
		s.keys = ch
	}
}

// WithTerminal reads keys from stdin, switching it to raw mode while the
// session runs when it is a terminal. logOut, if set, gets CRLF translation
// during raw mode.
func WithTerminal(stdin *os.File, logOut *terminal.CRLFWriter) Option {
	return func(s *Session) {
		s.stdin = stdin
		s.logOut = logOut
	}
}

// WithStatusWriter sets where the status line is drawn when enabled.
func WithStatusWriter(w io.Writer) Option {
	return func(s *Session) {
		s.status = w
	}
}

// WithBus publishes session events on bus.
func WithBus(bus *events.Bus) Option {
	return func(s *Session) {
		s.bus = bus
	}
}

// WithPipelineOptions passes options to the pipeline session.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Session) {
		s.pipeOpts = append(s.pipeOpts, opts...)
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a session for cfg.
func New(cfg Config, opts ...Option) *Session {
	s := &Session{
		cfg:           cfg,
		id:            uuid.NewString(),
		logger:        logging.GetLogger("session"),
		prepareDevice: devices.Prepare,
		status:        os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = process.NewExec(logging.GetLogger("process"))
	}
	if s.cameraURL == "" {
		s.cameraURL = "http://127.0.0.1:" + strconv.Itoa(int(cfg.Port))
	}
	s.logger = s.logger.With("session_id", s.id)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run acquires every resource, runs until the first of a signal, a quit
// key or a terminal pipeline event, and releases everything in reverse
// order. A non-nil error means acquisition failed; release failures are
// logged only.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	stack := guard.NewStack(s.logger)
	defer func() {
		if err := stack.ReleaseAll(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Teardown finished with errors", "error", err)
		} else {
			s.logger.Info("Teardown complete")
		}
	}()

	pl, remote, err := s.acquire(ctx, stack)
	if err != nil {
		return Outcome{}, err
	}

	outcome := s.race(ctx, stack, pl, remote)
	s.logger.Info("Session ending", "reason", outcome.Reason)
	s.bus.Publish(events.SessionEndedEvent{
		SessionID: s.id,
		Reason:    string(outcome.Reason),
		Timestamp: events.Now(),
	})
	return outcome, nil
}

// acquire performs every acquisition step, pushing guards on stack.
func (s *Session) acquire(ctx context.Context, stack *guard.Stack) (*pipeline.Session, *camera.Remote, error) {
	if s.engines == nil {
		return nil, nil, ErrNoEngine
	}

	adb := bridge.New(s.runner,
		bridge.WithPath(s.cfg.AdbPath),
		bridge.WithSerial(s.cfg.AdbSerial),
		bridge.WithLogger(logging.GetLogger("bridge").With("session_id", s.id)))

	if err := adb.StartServer(ctx); err != nil {
		s.resourceFailed("adb-server", err)
		return nil, nil, err
	}

	forward, err := adb.Forward(ctx, s.cfg.Port)
	if err != nil {
		s.resourceFailed("port-forward", err)
		return nil, nil, err
	}
	stack.Push(s.track(forward))

	if s.cfg.MetricsListen != "" {
		listener, err := exporters.Listen(ctx, s.cfg.MetricsListen, logging.GetLogger("metrics"))
		if err != nil {
			s.resourceFailed("metrics-listener", err)
			return nil, nil, err
		}
		stack.Push(s.track(listener))
	}

	clientOpts := []camera.ClientOption{camera.WithLogger(logging.GetLogger("camera").With("session_id", s.id))}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, camera.WithHTTPClient(s.httpClient))
	}
	remote := camera.NewRemote(camera.NewClient(s.cameraURL, clientOpts...))
	if err := remote.Fetch(ctx, true); err != nil {
		s.logger.Warn("Initial camera query failed, continuing", "error", err)
	}

	resolution := s.resolveResolution(remote)

	var audioSink string
	if s.cfg.Audio {
		router, err := audio.Setup(ctx, s.runner, audio.Options{
			PactlPath:  s.cfg.PactlPath,
			EchoCancel: s.cfg.EchoCancel,
			Logger:     logging.GetLogger("audio").With("session_id", s.id),
		})
		if err != nil {
			s.resourceFailed("audio", err)
			return nil, nil, fmt.Errorf("audio setup: %w", err)
		}
		stack.Push(s.track(guard.New("audio", audio.DefaultSinkName, router.Teardown, s.logger)))
		audioSink = router.PlaybackSink()
	}

	if err := s.prepareDevice(ctx, s.cfg.Device, s.cfg.DeviceWait, logging.GetLogger("devices")); err != nil {
		s.resourceFailed("device", err)
		return nil, nil, err
	}

	pipeCfg := pipeline.Config{
		BaseURL:    s.cameraURL,
		Device:     s.cfg.Device,
		Resolution: resolution,
		Flip:       s.cfg.Flip,
		AudioSink:  audioSink,
	}
	pipeOpts := append([]pipeline.Option{
		pipeline.WithLogger(logging.GetLogger("pipeline").With("session_id", s.id)),
		pipeline.WithStateHook(func(st pipeline.State) {
			s.bus.Publish(events.PipelineStateEvent{State: st.String(), Timestamp: events.Now()})
		}),
	}, s.pipeOpts...)

	pl, err := pipeline.Build(pipeCfg, s.engines, pipeOpts...)
	if err != nil {
		s.resourceFailed("pipeline", err)
		return nil, nil, err
	}
	if err := pl.Start(ctx); err != nil {
		s.resourceFailed("pipeline", err)
		return nil, nil, err
	}
	stack.Push(s.track(guard.New("pipeline", s.cfg.Device, func(context.Context) error {
		return pl.Stop()
	}, s.logger)))

	s.logger.Info("Session started",
		"port", s.cfg.Port,
		"device", s.cfg.Device,
		"resolution", resolution.String(),
		"audio", audioSink != "")
	return pl, remote, nil
}

func (s *Session) resolveResolution(remote *camera.Remote) types.Resolution {
	if s.cfg.Resolution != nil {
		return *s.cfg.Resolution
	}

	values, ok := remote.Current()
	if !ok {
		s.logger.Warn("Camera resolution unknown, using fallback", "resolution", types.FallbackResolution.String())
		return types.FallbackResolution
	}
	res, err := values.Resolution()
	if err != nil {
		s.logger.Warn("Camera reported unusable resolution, using fallback",
			"video_size", values.VideoSize,
			"resolution", types.FallbackResolution.String())
		return types.FallbackResolution
	}
	s.logger.Debug("Using camera resolution", "resolution", res.String())
	return res
}

// race runs the signal watcher, the control loop and the pipeline event
// consumer until one of them ends the session.
func (s *Session) race(ctx context.Context, stack *guard.Stack, pl *pipeline.Session, remote *camera.Remote) Outcome {
	r, raceCtx := NewRace(ctx)
	defer r.Stop()

	signals := s.signals
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer signal.Stop(ch)
		signals = ch
	}

	keys := s.keys
	if keys == nil && s.stdin != nil && terminal.IsTerminal(s.stdin) {
		raw, err := terminal.MakeRaw(raceCtx, s.stdin, s.logOut)
		if err != nil {
			s.logger.Warn("Keyboard control unavailable", "error", err)
		} else {
			// Released before the pipeline so the terminal is usable during teardown.
			defer func() { _ = raw.Release(context.WithoutCancel(ctx)) }()
			keys = control.KeyBridge(s.stdin, control.DefaultKeyBuffer)
		}
	}

	loopOpts := []control.Option{
		control.WithMirror(pl),
		control.WithBus(s.bus),
		control.WithSteps(s.cfg.PanStep, s.cfg.QualityStep),
		control.WithLogger(logging.GetLogger("control").With("session_id", s.id)),
	}
	if s.cfg.ShowStatus && s.status != nil {
		loopOpts = append(loopOpts, control.WithStatusLine(s.status))
		defer func() { _, _ = io.WriteString(s.status, "\r\n") }()
	}
	loop := control.NewLoop(remote, loopOpts...)

	g, gctx := errgroup.WithContext(raceCtx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case sig, ok := <-signals:
			if ok && gctx.Err() == nil {
				s.logger.Info("Received shutdown signal", "signal", sig.String())
				r.Finish(Outcome{Reason: ReasonSignal, Signal: sig})
			}
		}
		return nil
	})

	g.Go(func() error {
		err := loop.Run(gctx, keys)
		switch {
		case err == nil:
			r.Finish(Outcome{Reason: ReasonQuit})
		case errors.Is(err, control.ErrInputClosed):
			r.Finish(Outcome{Reason: ReasonInputClosed})
		}
		return nil
	})

	g.Go(func() error {
		for ev := range pl.Events(gctx) {
			// The race is already settled.
			if gctx.Err() != nil {
				return nil
			}
			if ev.Kind == pipeline.EventError {
				s.bus.Publish(events.PipelineErrorEvent{
					Source:    ev.Source,
					Category:  ev.Category.String(),
					Detail:    ev.Detail,
					Timestamp: events.Now(),
				})
			}
			if ev.Terminal() {
				r.Finish(Outcome{Reason: ReasonPipeline, Event: &ev})
			}
		}
		return nil
	})

	_ = g.Wait()

	outcome, ok := r.Outcome()
	if !ok {
		outcome = Outcome{Reason: ReasonCancelled}
	}
	return outcome
}

// track wraps g so its release is published on the bus.
func (s *Session) track(g *guard.Guard) *guard.Guard {
	s.bus.Publish(events.ResourceEvent{Resource: g.Name(), Action: events.ResourceAcquired, Timestamp: events.Now()})
	return guard.New(g.Name(), g.ID(), func(ctx context.Context) error {
		err := g.Release(ctx)
		ev := events.ResourceEvent{Resource: g.Name(), Action: events.ResourceReleased, Timestamp: events.Now()}
		if err != nil {
			ev.Action = events.ResourceFailed
			ev.Error = err.Error()
		}
		s.bus.Publish(ev)
		return err
	}, s.logger)
}

func (s *Session) resourceFailed(name string, err error) {
	s.bus.Publish(events.ResourceEvent{Resource: name, Action: events.ResourceFailed, Error: err.Error(), Timestamp: events.Now()})
}
