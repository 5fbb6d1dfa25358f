// Package devices locates and validates the v4l2loopback device node that
// receives the decoded video.
package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveDevicePath turns a device argument into a device node path.
// Accepted forms are a full /dev path, a bare node name (video2), or a
// stable /dev/v4l/by-id or by-path name.
func ResolveDevicePath(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("empty device path")
	}

	// If it's already a full path, use it directly
	if strings.HasPrefix(device, "/") {
		return filepath.Clean(device), nil
	}

	if strings.HasPrefix(device, "video") {
		return "/dev/" + device, nil
	}

	// Try by-id first (for USB devices)
	if strings.HasPrefix(device, "usb-") {
		devicePath := "/dev/v4l/by-id/" + device
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	// Try by-path (for platform devices and USB devices without by-id)
	if strings.HasPrefix(device, "platform-") || strings.HasPrefix(device, "usb-") {
		devicePath := "/dev/v4l/by-path/" + device
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	return "", fmt.Errorf("no device node found for %q", device)
}
