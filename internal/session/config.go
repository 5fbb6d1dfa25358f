// Package session coordinates one virtual webcam session: it acquires the
// port forward, audio routing, output device and pipeline in order, races
// signals, the keyboard and the pipeline for the end of the session, then
// releases everything in reverse.
package session

import (
	"time"

	"github.com/smazurov/dcam/internal/pipeline"
	"github.com/smazurov/dcam/internal/types"
)

// Config is the resolved configuration of one session.
type Config struct {
	Port uint16
	// Device is the v4l2loopback node the pipeline writes to.
	Device string
	// Resolution nil means use the camera's current video size.
	Resolution *types.Resolution
	Audio      bool
	EchoCancel bool
	Flip       pipeline.FlipMethod
	DeviceWait time.Duration

	AdbPath   string
	AdbSerial string
	PactlPath string

	PanStep     int
	QualityStep int

	// MetricsListen is the address for /metrics; empty disables it.
	MetricsListen string
	// ShowStatus draws the status line.
	ShowStatus bool
}
