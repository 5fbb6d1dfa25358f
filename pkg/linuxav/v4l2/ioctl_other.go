//go:build !linux

package v4l2

// QueryCapability is not available outside Linux.
func QueryCapability(string) (Capability, error) {
	return Capability{}, ErrUnsupported
}
