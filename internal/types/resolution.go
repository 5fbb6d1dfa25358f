package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResolutionAuto is the textual sentinel meaning "use whatever the device is sending".
const ResolutionAuto = "auto"

// ErrInvalidResolution is returned for strings that are neither "auto" nor WIDTHxHEIGHT.
var ErrInvalidResolution = errors.New("invalid resolution")

// FallbackResolution is used when "auto" is configured and the device cannot be queried.
var FallbackResolution = Resolution{Width: 640, Height: 480}

// Resolution is a video frame size in pixels.
type Resolution struct {
	Width  uint16
	Height uint16
}

// ParseResolution parses "WIDTHxHEIGHT". It returns nil and no error for "auto".
func ParseResolution(s string) (*Resolution, error) {
	s = strings.TrimSpace(s)
	if s == ResolutionAuto {
		return nil, nil
	}

	width, height, ok := strings.Cut(s, "x")
	if !ok {
		return nil, fmt.Errorf("%w %q: expected WIDTHxHEIGHT", ErrInvalidResolution, s)
	}

	w, err := strconv.ParseUint(width, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w %q: width: %w", ErrInvalidResolution, s, err)
	}
	h, err := strconv.ParseUint(height, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w %q: height: %w", ErrInvalidResolution, s, err)
	}
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w %q: zero dimension", ErrInvalidResolution, s)
	}

	r := &Resolution{Width: uint16(w), Height: uint16(h)}
	if r.String() != s {
		return nil, fmt.Errorf("%w %q: not in canonical form %q", ErrInvalidResolution, s, r.String())
	}
	return r, nil
}

// String renders the resolution as WIDTHxHEIGHT.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "auto" is rejected here
// because a concrete Resolution value cannot represent it.
func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	if parsed == nil {
		return fmt.Errorf("%w: %q has no concrete size", ErrInvalidResolution, ResolutionAuto)
	}
	*r = *parsed
	return nil
}
