// Package cmd holds the dcam command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/smazurov/dcam/internal/config"
	"github.com/smazurov/dcam/internal/events"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/metrics"
	"github.com/smazurov/dcam/internal/pipeline"
	"github.com/smazurov/dcam/internal/pipeline/gstengine"
	"github.com/smazurov/dcam/internal/session"
	"github.com/smazurov/dcam/internal/terminal"
	"github.com/smazurov/dcam/internal/types"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the dcam command. Running it with no subcommand
// starts a webcam session.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "dcam",
		Short: "Use an Android IP camera as a local webcam",
		Long: `Forwards the phone's camera app over adb, routes its microphone into a virtual ` +
			`source, and feeds its video into a v4l2loopback device. While running, keys ` +
			`control zoom (z/Z), quality (t/T), mirroring (f) and pan (arrows); q quits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.load(cmd); err != nil {
				return err
			}
			return runSession(cmd.Context(), opts)
		},
	}
	bindFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		CreateProbeAudioCmd(opts),
		CreateStatusCmd(opts),
		CreateVersionCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// sessionConfig converts CLI options into a session configuration.
func (o *Options) sessionConfig() (session.Config, error) {
	res, err := types.ParseResolution(o.Resolution)
	if err != nil {
		return session.Config{}, err
	}
	flip, err := pipeline.ParseFlipMethod(o.Flip)
	if err != nil {
		return session.Config{}, err
	}
	if o.Port == 0 {
		return session.Config{}, errors.New("port must be non-zero")
	}

	return session.Config{
		Port:          o.Port,
		Device:        o.Device,
		Resolution:    res,
		Audio:         !o.NoAudio,
		EchoCancel:    !o.NoEchoCancel,
		Flip:          flip,
		DeviceWait:    o.DeviceWait,
		AdbPath:       o.AdbPath,
		AdbSerial:     o.AdbSerial,
		PactlPath:     o.PactlPath,
		PanStep:       o.PanStep,
		QualityStep:   o.QualityStep,
		MetricsListen: o.MetricsListen,
		ShowStatus:    logging.Visibility(o.Verbose, o.Quiet) >= logging.DefaultVerbosity,
	}, nil
}

func runSession(ctx context.Context, opts *Options) error {
	stderr := terminal.NewCRLFWriter(os.Stderr)
	opts.initLogging(stderr)
	logger := logging.GetLogger("main")

	cfg, err := opts.sessionConfig()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(opts.Config); statErr == nil {
		watcher, watchErr := config.WatchLogging(ctx, opts.Config, opts.levelOverridden(), logging.GetLogger("config"))
		if watchErr != nil {
			logger.Warn("Config watcher unavailable", "error", watchErr)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	bus := events.New()
	defer metrics.Subscribe(bus)()

	s := session.New(cfg,
		session.WithEngineFactory(gstengine.Factory),
		session.WithTerminal(os.Stdin, stderr),
		session.WithStatusWriter(stderr),
		session.WithBus(bus),
		session.WithLogger(logger))

	outcome, err := s.Run(ctx)
	if err != nil {
		return err
	}

	if outcome.Event != nil && outcome.Event.Kind == pipeline.EventError {
		logger.Error("Pipeline stopped",
			"source", outcome.Event.Source,
			"category", outcome.Event.Category.String(),
			"error", outcome.Event.Detail)
	}
	return nil
}
