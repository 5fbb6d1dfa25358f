package pipeline

import (
	"fmt"
	"strings"
)

// FlipMethod mirrors the values of videoflip's method property.
type FlipMethod int

const (
	FlipNone FlipMethod = iota
	FlipClockwise
	FlipRotate180
	FlipCounterclockwise
	FlipHorizontal
	FlipVertical
	FlipUpperLeftDiagonal
	FlipUpperRightDiagonal
	FlipAutomatic
)

var flipNames = [...]string{
	FlipNone:               "none",
	FlipClockwise:          "clockwise",
	FlipRotate180:          "rotate-180",
	FlipCounterclockwise:   "counterclockwise",
	FlipHorizontal:         "horizontal-flip",
	FlipVertical:           "vertical-flip",
	FlipUpperLeftDiagonal:  "upper-left-diagonal",
	FlipUpperRightDiagonal: "upper-right-diagonal",
	FlipAutomatic:          "automatic",
}

// ParseFlipMethod accepts the videoflip nick names. An empty string is none.
func ParseFlipMethod(s string) (FlipMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FlipNone, nil
	}
	for i, name := range flipNames {
		if name == s {
			return FlipMethod(i), nil
		}
	}
	return FlipNone, fmt.Errorf("unknown flip method %q", s)
}

func (f FlipMethod) String() string {
	if f < 0 || int(f) >= len(flipNames) {
		return fmt.Sprintf("FlipMethod(%d)", int(f))
	}
	return flipNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f FlipMethod) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FlipMethod) UnmarshalText(text []byte) error {
	m, err := ParseFlipMethod(string(text))
	if err != nil {
		return err
	}
	*f = m
	return nil
}
