// Package terminal puts stdin into raw mode for single-key control and keeps
// log output readable while it is raw.
package terminal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/smazurov/dcam/internal/guard"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// MakeRaw switches f to raw mode. The returned guard restores the previous
// mode and switches out to the CRLF translation of out, if one is given.
func MakeRaw(ctx context.Context, f *os.File, out *CRLFWriter) (*guard.Guard, error) {
	return guard.Acquire(ctx, "raw-terminal", func(context.Context) (string, guard.ReleaseFunc, error) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return "", nil, fmt.Errorf("enable raw mode: %w", err)
		}
		if out != nil {
			out.SetRaw(true)
		}

		return f.Name(), func(context.Context) error {
			if out != nil {
				out.SetRaw(false)
			}
			return term.Restore(fd, state)
		}, nil
	}, nil)
}

// CRLFWriter writes to an underlying writer, translating "\n" to "\r\n"
// while raw mode is on. Raw terminals do not return the carriage on a line
// feed, so untranslated lines stair-step.
type CRLFWriter struct {
	mu  sync.Mutex
	w   io.Writer
	raw atomic.Bool
}

// NewCRLFWriter wraps w.
func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

// SetRaw toggles translation.
func (c *CRLFWriter) SetRaw(raw bool) {
	c.raw.Store(raw)
}

// Write implements io.Writer. The returned count refers to p.
func (c *CRLFWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.raw.Load() || bytes.IndexByte(p, '\n') < 0 {
		return c.w.Write(p)
	}

	// Start on a fresh line so records do not overwrite the status line.
	translated := append([]byte("\r\x1b[2K"), bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))...)
	if _, err := c.w.Write(translated); err != nil {
		return 0, err
	}
	return len(p), nil
}
