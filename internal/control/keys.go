// Package control maps keyboard input to camera and pipeline commands.
package control

import (
	"bufio"
	"io"
)

// Key is a decoded key press. Printable keys are their rune; special keys
// are negative.
type Key rune

const (
	KeyUp Key = -(iota + 1)
	KeyDown
	KeyRight
	KeyLeft
	KeyEscape
	KeyCtrlC
	KeyCtrlD
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyRight:
		return "right"
	case KeyLeft:
		return "left"
	case KeyEscape:
		return "esc"
	case KeyCtrlC:
		return "ctrl-c"
	case KeyCtrlD:
		return "ctrl-d"
	default:
		return string(rune(k))
	}
}

// Decoder turns a raw terminal byte stream into keys. Arrow keys arrive as
// CSI (ESC [ A) or SS3 (ESC O A) sequences.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks for the next key.
func (d *Decoder) Next() (Key, error) {
	r, _, err := d.r.ReadRune()
	if err != nil {
		return 0, err
	}

	switch r {
	case 0x03:
		return KeyCtrlC, nil
	case 0x04:
		return KeyCtrlD, nil
	case 0x1b:
		return d.escape(), nil
	default:
		return Key(r), nil
	}
}

// escape decodes the rest of an escape sequence. A lone ESC, or one not
// followed by a known sequence in the same read, is KeyEscape.
func (d *Decoder) escape() Key {
	if d.r.Buffered() < 2 {
		return KeyEscape
	}

	prefix, err := d.r.Peek(2)
	if err != nil || (prefix[0] != '[' && prefix[0] != 'O') {
		return KeyEscape
	}

	var key Key
	switch prefix[1] {
	case 'A':
		key = KeyUp
	case 'B':
		key = KeyDown
	case 'C':
		key = KeyRight
	case 'D':
		key = KeyLeft
	default:
		return KeyEscape
	}
	_, _ = d.r.Discard(2)
	return key
}

// DefaultKeyBuffer is the capacity of the channel filled by KeyBridge.
const DefaultKeyBuffer = 16

// KeyBridge decodes keys from r on its own goroutine and sends them on the
// returned channel, which closes when r returns an error (EOF included). A
// full channel blocks the reader, never the consumer. The goroutine stays
// blocked in Read until r yields, so r should be the process's stdin.
func KeyBridge(r io.Reader, capacity int) <-chan Key {
	if capacity <= 0 {
		capacity = DefaultKeyBuffer
	}
	ch := make(chan Key, capacity)

	go func() {
		defer close(ch)
		dec := NewDecoder(r)
		for {
			key, err := dec.Next()
			if err != nil {
				return
			}
			ch <- key
		}
	}()

	return ch
}
