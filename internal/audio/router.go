package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smazurov/dcam/internal/guard"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/process"
)

// Default device names created by Setup.
const (
	DefaultSinkName       = "dcam_sink"
	DefaultEchoSourceName = "dcam_mic"
	DefaultEchoSinkName   = "dcam_echo_sink"
)

// EchoCancelState records whether echo cancellation is active. It is either
// EchoCancelEnabled or EchoCancelDisabled.
type EchoCancelState interface {
	echoCancelState()
}

// EchoCancelEnabled means module-echo-cancel is loaded.
type EchoCancelEnabled struct {
	ModuleID uint32
}

// EchoCancelDisabled means the router runs without echo cancellation.
type EchoCancelDisabled struct {
	Reason string
}

func (EchoCancelEnabled) echoCancelState()  {}
func (EchoCancelDisabled) echoCancelState() {}

// Options configures Setup.
type Options struct {
	PactlPath  string
	SinkName   string
	EchoCancel bool
	Logger     *slog.Logger
}

// Router holds the devices created by Setup until Teardown.
type Router struct {
	DefaultSource string
	DefaultSink   string
	VirtualSinkID uint32
	EchoCancel    EchoCancelState

	sinkName string
	guards   *guard.Stack
	logger   *slog.Logger
}

// Setup queries the sound server and builds the virtual microphone. A failed
// step unwinds the steps before it and returns the error.
func Setup(ctx context.Context, runner process.Runner, opts Options) (*Router, error) {
	if opts.PactlPath == "" {
		opts.PactlPath = DefaultPactlPath
	}
	if opts.SinkName == "" {
		opts.SinkName = DefaultSinkName
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("audio")
	}

	info, err := QueryServerInfo(ctx, runner, opts.PactlPath)
	if err != nil {
		return nil, err
	}

	r := &Router{
		DefaultSource: info.DefaultSource,
		DefaultSink:   info.DefaultSink,
		sinkName:      opts.SinkName,
		guards:        guard.NewStack(logger),
		logger:        logger,
	}
	p := pactl{runner: runner, path: opts.PactlPath}

	sinkGuard, err := r.guards.Acquire(ctx, "virtual-sink", func(ctx context.Context) (string, guard.ReleaseFunc, error) {
		id, err := p.loadModule(ctx, "module-null-sink",
			"sink_name="+opts.SinkName,
			"sink_properties=device.description="+opts.SinkName)
		if err != nil {
			return "", nil, err
		}
		return strconv.FormatUint(uint64(id), 10), p.unloader(id), nil
	})
	if err != nil {
		return nil, err
	}
	r.VirtualSinkID = parseModuleID(sinkGuard.ID())

	r.EchoCancel = r.echoCancelPlan(info, opts.EchoCancel)
	micSource := opts.SinkName + ".monitor"
	playbackSink := opts.SinkName

	if _, planned := r.EchoCancel.(EchoCancelEnabled); planned {
		echoGuard, err := r.guards.Acquire(ctx, "echo-cancel", func(ctx context.Context) (string, guard.ReleaseFunc, error) {
			id, err := p.loadModule(ctx, "module-echo-cancel",
				"source_master="+micSource,
				"sink_master="+info.DefaultSink,
				"source_name="+DefaultEchoSourceName,
				"sink_name="+DefaultEchoSinkName,
				"use_master_format=1",
				"aec_method=webrtc")
			if err != nil {
				return "", nil, err
			}
			return strconv.FormatUint(uint64(id), 10), p.unloader(id), nil
		})
		if err != nil {
			return nil, r.unwind(ctx, err)
		}
		r.EchoCancel = EchoCancelEnabled{ModuleID: parseModuleID(echoGuard.ID())}
		micSource = DefaultEchoSourceName
		// Desktop playback goes through the canceller so it is removed from the mic.
		playbackSink = DefaultEchoSinkName
	}

	_, err = r.guards.Acquire(ctx, "default-sink", p.switchDefault("set-default-sink", playbackSink, info.DefaultSink))
	if err != nil {
		return nil, r.unwind(ctx, err)
	}

	_, err = r.guards.Acquire(ctx, "default-source", p.switchDefault("set-default-source", micSource, info.DefaultSource))
	if err != nil {
		return nil, r.unwind(ctx, err)
	}

	logger.Info("Audio routed",
		"sink", playbackSink,
		"source", micSource,
		"echo_cancel", describeEchoCancel(r.EchoCancel))
	return r, nil
}

// echoCancelPlan decides the echo-cancel state before anything is loaded.
// EchoCancelEnabled with a zero module id means "load it".
func (r *Router) echoCancelPlan(info ServerInfo, wanted bool) EchoCancelState {
	if !wanted {
		return EchoCancelDisabled{Reason: "disabled by configuration"}
	}
	backend, ok := ProbeBackend(info)
	if !ok {
		r.logger.Warn("Unrecognised sound server, echo cancellation disabled", "server", info.ServerName)
		return EchoCancelDisabled{Reason: "unrecognised sound server " + strconv.Quote(info.ServerName)}
	}
	if !backend.SupportsEchoCancel() {
		r.logger.Debug("Sound server too old for echo cancellation", "backend", backend.String())
		return EchoCancelDisabled{Reason: backend.String() + " does not support echo cancellation"}
	}
	return EchoCancelEnabled{}
}

func (r *Router) unwind(ctx context.Context, cause error) error {
	if err := r.guards.ReleaseAll(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// PlaybackSink names the sink the pipeline's audio branch plays into.
func (r *Router) PlaybackSink() string {
	return r.sinkName
}

// Teardown restores the default source and sink, then unloads the echo
// canceller and the virtual sink. Every step is attempted.
func (r *Router) Teardown(ctx context.Context) error {
	err := r.guards.ReleaseAll(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.Warn("Audio teardown incomplete", "error", err)
		return err
	}
	r.logger.Info("Audio routing removed")
	return nil
}

func describeEchoCancel(state EchoCancelState) string {
	switch s := state.(type) {
	case EchoCancelEnabled:
		return "enabled (module " + strconv.FormatUint(uint64(s.ModuleID), 10) + ")"
	case EchoCancelDisabled:
		return "disabled: " + s.Reason
	default:
		return "unknown"
	}
}

func parseModuleID(id string) uint32 {
	n, _ := strconv.ParseUint(id, 10, 32)
	return uint32(n)
}

type pactl struct {
	runner process.Runner
	path   string
}

func (p pactl) loadModule(ctx context.Context, module string, args ...string) (uint32, error) {
	out, err := p.runner.Output(ctx, p.path, append([]string{"load-module", module}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", module, err)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(out), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("load %s: unexpected module id %q", module, out)
	}
	return uint32(id), nil
}

func (p pactl) unloader(id uint32) guard.ReleaseFunc {
	return func(ctx context.Context) error {
		return p.runner.Run(ctx, p.path, "unload-module", strconv.FormatUint(uint64(id), 10))
	}
}

// switchDefault sets a default device and restores the previous one on release.
func (p pactl) switchDefault(command, target, previous string) guard.AcquireFunc {
	return func(ctx context.Context) (string, guard.ReleaseFunc, error) {
		if err := p.runner.Run(ctx, p.path, command, target); err != nil {
			return "", nil, err
		}
		return target, func(ctx context.Context) error {
			if previous == "" {
				return nil
			}
			return p.runner.Run(ctx, p.path, command, previous)
		}, nil
	}
}
