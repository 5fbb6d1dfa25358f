package pipeline

import (
	"errors"
	"strings"
)

var (
	// ErrClosed is returned for operations on a closed session.
	ErrClosed = errors.New("pipeline closed")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("pipeline already started")
	// ErrNotPlaying is returned by operations that need a running pipeline.
	ErrNotPlaying = errors.New("pipeline not playing")
)

// ErrorCategory classifies bus errors for logs and metrics.
type ErrorCategory int

const (
	ErrCategoryUnknown ErrorCategory = iota
	ErrCategoryNetwork
	ErrCategoryCodec
	ErrCategoryDevice
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryDevice:
		return "device"
	default:
		return "unknown"
	}
}

var (
	deviceKeywords = []string{
		"v4l2",
		"/dev/video",
		"device",
		"permission denied",
		"busy",
		"pulse",
	}
	codecKeywords = []string{
		"decode",
		"jpeg",
		"format",
		"caps",
		"not-negotiated",
		"negotiat",
		"wav",
	}
	networkKeywords = []string{
		"connection",
		"could not connect",
		"timeout",
		"timed out",
		"unreachable",
		"refused",
		"socket",
		"soup",
		"http",
		"resolve",
	}
)

// ClassifyError assigns a category from the error and debug strings of a
// bus error. Device problems are checked first since their messages often
// mention formats too.
func ClassifyError(detail, debug string) ErrorCategory {
	combined := strings.ToLower(detail + " " + debug)

	switch {
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	case containsAny(combined, networkKeywords):
		return ErrCategoryNetwork
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
