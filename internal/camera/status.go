package camera

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/smazurov/dcam/internal/types"
)

// Status is the body of GET /status.json.
type Status struct {
	Current   Values     `json:"curvals"`
	Available *Available `json:"avail,omitempty"`
}

// Values are the device's current settings. The camera app reports most
// numbers as decimal strings; Number and Number16 accept both forms.
type Values struct {
	Zoom      Number16 `json:"zoom"`
	CropX     Number   `json:"crop_x"`
	CropY     Number   `json:"crop_y"`
	Quality   Number16 `json:"quality"`
	VideoSize string   `json:"video_size"`
}

// Resolution parses VideoSize.
func (v Values) Resolution() (types.Resolution, error) {
	res, err := types.ParseResolution(v.VideoSize)
	if err != nil {
		return types.Resolution{}, err
	}
	if res == nil {
		return types.Resolution{}, fmt.Errorf("%w: device reported %q", types.ErrInvalidResolution, v.VideoSize)
	}
	return *res, nil
}

// Available lists the values the device accepts.
type Available struct {
	Zoom ZoomSteps `json:"zoom"`
}

// Number is an unsigned integer encoded as a JSON number or a decimal string.
type Number uint32

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	v, null, err := parseNumber(data, 32)
	if err != nil || null {
		return err
	}
	*n = Number(v)
	return nil
}

// Number16 is a Number limited to 16 bits; larger values fail to decode.
type Number16 uint16

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number16) UnmarshalJSON(data []byte) error {
	v, null, err := parseNumber(data, 16)
	if err != nil || null {
		return err
	}
	*n = Number16(v)
	return nil
}

func parseNumber(data []byte, bitSize int) (uint64, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return 0, true, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false, err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, bitSize)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q: %w", data, err)
	}
	return v, false, nil
}

// ZoomSteps is the ordered list of zoom levels; entries may be strings or numbers.
type ZoomSteps []string

// UnmarshalJSON implements json.Unmarshaler.
func (z *ZoomSteps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	steps := make(ZoomSteps, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			steps = append(steps, s)
			continue
		}
		steps = append(steps, string(bytes.TrimSpace(r)))
	}
	*z = steps
	return nil
}

// Setting names a device setting writable through /settings.
type Setting string

const (
	SettingCropX   Setting = "crop_x"
	SettingCropY   Setting = "crop_y"
	SettingQuality Setting = "quality"
)

// MaxQuality is the upper bound of the quality setting.
const MaxQuality = 100
