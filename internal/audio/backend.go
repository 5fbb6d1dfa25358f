package audio

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Engine identifies the sound server implementation behind pactl.
type Engine int

const (
	EnginePulseAudio Engine = iota
	EnginePipeWire
)

func (e Engine) String() string {
	switch e {
	case EnginePipeWire:
		return "pipewire"
	case EnginePulseAudio:
		return "pulseaudio"
	default:
		return "unknown"
	}
}

// Minimum versions that ship a working module-echo-cancel.
var (
	MinPipeWireEchoCancel   = semver.MustParse("0.3.40")
	MinPulseAudioEchoCancel = semver.MustParse("2.0.0")
)

// Backend is a recognised sound server and its version.
type Backend struct {
	Engine  Engine
	Version *semver.Version
}

var pipewireName = regexp.MustCompile(`PipeWire\s+([0-9][0-9A-Za-z.+-]*)`)

// ProbeBackend identifies the sound server from `pactl info`. It reports
// false for servers it does not recognise or whose version cannot be parsed.
func ProbeBackend(info ServerInfo) (Backend, bool) {
	if m := pipewireName.FindStringSubmatch(info.ServerName); m != nil {
		v, err := semver.NewVersion(m[1])
		if err != nil {
			return Backend{}, false
		}
		return Backend{Engine: EnginePipeWire, Version: v}, true
	}

	if strings.EqualFold(strings.TrimSpace(info.ServerName), "pulseaudio") {
		v, err := semver.NewVersion(info.ServerVersion)
		if err != nil {
			return Backend{}, false
		}
		return Backend{Engine: EnginePulseAudio, Version: v}, true
	}

	return Backend{}, false
}

// SupportsEchoCancel reports whether the backend version can load
// module-echo-cancel.
func (b Backend) SupportsEchoCancel() bool {
	if b.Version == nil {
		return false
	}
	minimum := MinPulseAudioEchoCancel
	if b.Engine == EnginePipeWire {
		minimum = MinPipeWireEchoCancel
	}
	// Distribution suffixes parse as prereleases; compare the release triple only.
	v, err := b.Version.SetPrerelease("")
	if err != nil {
		v = *b.Version
	}
	return !v.LessThan(minimum)
}

func (b Backend) String() string {
	if b.Version == nil {
		return b.Engine.String()
	}
	return b.Engine.String() + " " + b.Version.String()
}
