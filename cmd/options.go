package cmd

import (
	"fmt"
	"time"

	"github.com/smazurov/dcam/internal/config"
	"github.com/smazurov/dcam/internal/logging"
	"github.com/smazurov/dcam/internal/pipeline"
	"github.com/smazurov/dcam/internal/terminal"
	"github.com/smazurov/dcam/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Options for the CLI - flat structure with toml mapping. Flag names are
// the kebab-case field names so the config loader can tell which were set.
type Options struct {
	Config string

	Port         uint16        `toml:"port" env:"PORT"`
	Device       string        `toml:"device" env:"DEVICE"`
	Resolution   string        `toml:"resolution" env:"RESOLUTION"`
	NoAudio      bool          `toml:"no_audio" env:"NO_AUDIO"`
	NoEchoCancel bool          `toml:"no_echo_cancel" env:"NO_ECHO_CANCEL"`
	Flip         string        `toml:"flip" env:"FLIP"`
	DeviceWait   time.Duration `toml:"device_wait" env:"DEVICE_WAIT"`

	AdbPath   string `toml:"adb.path" env:"ADB_PATH"`
	AdbSerial string `toml:"adb.serial" env:"ADB_SERIAL"`
	PactlPath string `toml:"audio.pactl_path" env:"PACTL_PATH"`

	PanStep     int `toml:"control.pan_step" env:"PAN_STEP"`
	QualityStep int `toml:"control.quality_step" env:"QUALITY_STEP"`

	MetricsListen string `toml:"metrics.listen" env:"METRICS_LISTEN"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`

	// Verbose and Quiet are -v/-q counts; they only come from flags.
	Verbose int `toml:"-"`
	Quiet   int `toml:"-"`
}

func bindFlags(flags *pflag.FlagSet, o *Options) {
	flags.StringVarP(&o.Config, "config", "c", config.DefaultPath(), "Path to configuration file")

	flags.Uint16VarP(&o.Port, "port", "p", 8080, "Camera app HTTP port, forwarded over adb")
	flags.StringVarP(&o.Device, "device", "d", "/dev/video0", "v4l2loopback device to write to")
	flags.StringVarP(&o.Resolution, "resolution", "r", types.ResolutionAuto, "Output size WIDTHxHEIGHT, or auto to follow the camera")
	flags.BoolVar(&o.NoAudio, "no-audio", false, "Do not route the phone microphone")
	flags.BoolVar(&o.NoEchoCancel, "no-echo-cancel", false, "Do not load the echo canceller")
	flags.StringVar(&o.Flip, "flip", pipeline.FlipNone.String(), "Image flip method; the mirror key toggles it")
	flags.DurationVar(&o.DeviceWait, "device-wait", 5*time.Second, "How long to wait for the output device to appear")

	flags.StringVar(&o.AdbPath, "adb-path", "adb", "adb binary")
	flags.StringVarP(&o.AdbSerial, "adb-serial", "s", "", "Serial of the device to use when several are attached")
	flags.StringVar(&o.PactlPath, "pactl-path", "pactl", "pactl binary")

	flags.IntVar(&o.PanStep, "pan-step", 5, "Crop change per pan key")
	flags.IntVar(&o.QualityStep, "quality-step", 5, "Quality change per quality key")

	flags.StringVar(&o.MetricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address during a session")

	flags.StringVar(&o.LoggingLevel, "logging-level", "", "Global logging level (trace, debug, info, warn, error, off)")
	flags.StringVar(&o.LoggingFormat, "logging-format", "text", "Logging format (text, json)")

	flags.CountVarP(&o.Verbose, "verbose", "v", "More output; repeat for more")
	flags.CountVarP(&o.Quiet, "quiet", "q", "Less output; repeat for less")
}

// load merges the config file and environment into o.
func (o *Options) load(cmd *cobra.Command) error {
	if err := config.LoadConfig(o, cmd); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

// levelOverridden reports whether -v/-q replace the configured level.
func (o *Options) levelOverridden() bool {
	_, ok := logging.VerbosityLevel(o.Verbose, o.Quiet)
	return ok
}

// initLogging sets up logging from the config file and -v/-q, writing
// through out.
func (o *Options) initLogging(out *terminal.CRLFWriter) {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	if level, ok := logging.VerbosityLevel(o.Verbose, o.Quiet); ok {
		cfg.Level = level
	}
	if out != nil {
		cfg.Output = out
	}
	logging.Initialize(cfg)
}
