// Package pipeline runs the GStreamer graph that pulls the phone's MJPEG and
// WAV feeds and pushes decoded frames into a v4l2loopback device.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/smazurov/dcam/internal/types"
)

// FlipElementName is the name of the videoflip element in every description.
const FlipElementName = "flip"

// Config describes one pipeline.
type Config struct {
	// BaseURL is the camera's HTTP root, e.g. http://127.0.0.1:8080.
	BaseURL    string
	Device     string
	Resolution types.Resolution
	Flip       FlipMethod
	// AudioSink names the sound server sink for the audio branch. Empty
	// disables audio.
	AudioSink string
}

// BuildDescription renders cfg as a gst-launch description.
func BuildDescription(cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "souphttpsrc location=%s/videofeed is-live=true do-timestamp=true", strings.TrimRight(cfg.BaseURL, "/"))
	b.WriteString(" ! multipartdemux")
	b.WriteString(" ! jpegdec")
	fmt.Fprintf(&b, " ! videoflip name=%s method=%s", FlipElementName, cfg.Flip)
	b.WriteString(" ! videoconvert")
	b.WriteString(" ! videoscale")
	fmt.Fprintf(&b, " ! video/x-raw,format=YUY2,width=%d,height=%d", cfg.Resolution.Width, cfg.Resolution.Height)
	fmt.Fprintf(&b, " ! v4l2sink device=%s sync=false", cfg.Device)

	if cfg.AudioSink != "" {
		fmt.Fprintf(&b, " souphttpsrc location=%s/audio.wav is-live=true do-timestamp=true", strings.TrimRight(cfg.BaseURL, "/"))
		b.WriteString(" ! wavparse")
		b.WriteString(" ! audioconvert")
		b.WriteString(" ! audioresample")
		fmt.Fprintf(&b, " ! pulsesink device=%s sync=false", cfg.AudioSink)
	}

	return b.String()
}
