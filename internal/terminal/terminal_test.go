package terminal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRLFWriterPassthrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewCRLFWriter(&buf)

	n, err := w.Write([]byte("level=INFO msg=hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 21, n)
	assert.Equal(t, "level=INFO msg=hello\n", buf.String())
}

func TestCRLFWriterRaw(t *testing.T) {
	var buf bytes.Buffer
	w := NewCRLFWriter(&buf)
	w.SetRaw(true)

	n, err := w.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "\r\x1b[2Ka\r\nb\r\n", buf.String())

	buf.Reset()
	w.SetRaw(false)
	_, err = w.Write([]byte("c\n"))
	require.NoError(t, err)
	assert.Equal(t, "c\n", buf.String())
}

func TestMakeRawFailsOnRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))

	w := NewCRLFWriter(&bytes.Buffer{})
	g, err := MakeRaw(context.Background(), f, w)
	require.Error(t, err)
	assert.Nil(t, g)
	assert.False(t, w.raw.Load())
}
