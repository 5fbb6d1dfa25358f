package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/smazurov/dcam/internal/logging"
)

// ErrZoomUnavailable means the current zoom cannot be located among the
// available zoom steps (not fetched yet, or the device reported a value
// outside the list).
var ErrZoomUnavailable = errors.New("zoom steps unavailable")

// ErrUnknownSetting is returned by ApplyDelta for settings it cannot adjust.
var ErrUnknownSetting = errors.New("unknown setting")

// Remote caches the device state between control actions. The cache may
// lag the device until the next Refresh.
type Remote struct {
	client *Client
	logger *slog.Logger

	mu       sync.RWMutex
	current  Values
	steps    ZoomSteps
	fetched  bool // current values fetched at least once
	hasAvail bool
}

// NewRemote creates an empty cache over client.
func NewRemote(client *Client) *Remote {
	return &Remote{
		client: client,
		logger: logging.GetLogger("camera"),
	}
}

// Fetch replaces the cached current values. Available values are replaced
// only when requested and present in the response.
func (r *Remote) Fetch(ctx context.Context, includeAvailable bool) error {
	status, err := r.client.Status(ctx, includeAvailable)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = status.Current
	r.fetched = true
	if includeAvailable && status.Available != nil && len(status.Available.Zoom) > 0 {
		r.steps = status.Available.Zoom
		r.hasAvail = true
		r.logger.Debug("Zoom steps fetched", "count", len(r.steps))
	}
	return nil
}

// Refresh re-reads the current values. Available values are requested until
// they have been fetched once.
func (r *Remote) Refresh(ctx context.Context) error {
	r.mu.RLock()
	needAvail := !r.hasAvail
	r.mu.RUnlock()
	return r.Fetch(ctx, needAvail)
}

// Current returns the cached values and whether they were ever fetched.
func (r *Remote) Current() (Values, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.fetched
}

// ZoomSteps returns a copy of the available zoom steps.
func (r *Remote) ZoomSteps() ZoomSteps {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(ZoomSteps(nil), r.steps...)
}

// ZoomStepIndex locates the current zoom among the available steps by exact
// integer match. It returns the index and the number of steps.
func (r *Remote) ZoomStepIndex() (index, count int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.zoomStepIndexLocked()
}

func (r *Remote) zoomStepIndexLocked() (int, int, bool) {
	for i, step := range r.steps {
		v, err := strconv.ParseUint(strings.TrimSpace(step), 10, 16)
		if err != nil {
			continue
		}
		if uint16(v) == uint16(r.current.Zoom) {
			return i, len(r.steps), true
		}
	}
	return 0, len(r.steps), false
}

// IncrementZoom returns the next zoom index, clamped to the last step.
func (r *Remote) IncrementZoom() (int, error) {
	idx, count, ok := r.ZoomStepIndex()
	if !ok {
		return 0, fmt.Errorf("zoom in: %w", ErrZoomUnavailable)
	}
	if idx+1 < count {
		return idx + 1, nil
	}
	return idx, nil
}

// DecrementZoom returns the previous zoom index, clamped to zero.
func (r *Remote) DecrementZoom() (int, error) {
	idx, _, ok := r.ZoomStepIndex()
	if !ok {
		return 0, fmt.Errorf("zoom out: %w", ErrZoomUnavailable)
	}
	if idx > 0 {
		return idx - 1, nil
	}
	return 0, nil
}

// ZoomIn moves one zoom step in.
func (r *Remote) ZoomIn(ctx context.Context) error {
	idx, err := r.IncrementZoom()
	if err != nil {
		return err
	}
	return r.client.SetZoom(ctx, idx)
}

// ZoomOut moves one zoom step out.
func (r *Remote) ZoomOut(ctx context.Context) error {
	idx, err := r.DecrementZoom()
	if err != nil {
		return err
	}
	return r.client.SetZoom(ctx, idx)
}

// ZoomPercent renders the zoom position as 0..100 across the available steps.
func (r *Remote) ZoomPercent() (int, bool) {
	idx, count, ok := r.ZoomStepIndex()
	if !ok {
		return 0, false
	}
	if count <= 1 {
		return 0, true
	}
	return idx * 100 / (count - 1), true
}

// ApplyDelta adds delta to a setting and writes the result. Crop offsets
// stop at zero; quality stays within 0..MaxQuality.
func (r *Remote) ApplyDelta(ctx context.Context, setting Setting, delta int) error {
	r.mu.RLock()
	current := r.current
	r.mu.RUnlock()

	var value int64
	switch setting {
	case SettingCropX:
		value = max(int64(current.CropX)+int64(delta), 0)
	case SettingCropY:
		value = max(int64(current.CropY)+int64(delta), 0)
	case SettingQuality:
		value = min(max(int64(current.Quality)+int64(delta), 0), MaxQuality)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, setting)
	}

	return r.client.SetSetting(ctx, setting, uint32(value))
}
