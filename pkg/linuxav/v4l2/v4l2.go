// Package v4l2 provides pure Go bindings to the part of the Video4Linux2
// (V4L2) API needed to validate a loopback output device.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Capability Queries
//
// Check that a device node accepts video output before writing to it:
//
//	cap, err := v4l2.QueryCapability("/dev/video0")
//	if err == nil && !cap.SupportsOutput() {
//	    // not a v4l2loopback (or other output) device
//	}
package v4l2

import (
	"bytes"
	"errors"
)

// ErrUnsupported is returned on platforms without V4L2.
var ErrUnsupported = errors.New("v4l2: unsupported platform")

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapVideoOutput  = 0x00000002
	CapVideoM2M     = 0x00008000
	CapReadWrite    = 0x01000000
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Capability is the decoded result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// Effective returns the capabilities of the opened node: DeviceCaps when the
// driver fills it, otherwise the physical device's capabilities.
func (c Capability) Effective() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// SupportsOutput reports whether frames can be written to the node.
func (c Capability) SupportsOutput() bool {
	return c.Effective()&CapVideoOutput != 0
}

// IsLoopback reports whether the node belongs to the v4l2loopback driver.
func (c Capability) IsLoopback() bool {
	return c.Driver == "v4l2 loopback"
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
