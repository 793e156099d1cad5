package storage

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)

	require.NoError(t, lw.WriteLine("big"))
	require.NoError(t, lw.WriteLine("data"))
	assert.Empty(t, buf.String(), "lines stay buffered until flush")

	require.NoError(t, lw.Flush())
	assert.Equal(t, "big\ndata\n", buf.String())
}

func TestLineWriter_FlushError(t *testing.T) {
	lw := NewLineWriter(failingWriter{})
	require.NoError(t, lw.WriteLine("x"))
	assert.Error(t, lw.Flush())
}

func TestNewLineScanner(t *testing.T) {
	t.Run("reads lines", func(t *testing.T) {
		sc := NewLineScanner(strings.NewReader("a b\n\nc\n"), 0)
		var got []string
		for sc.Scan() {
			got = append(got, sc.Text())
		}
		require.NoError(t, sc.Err())
		assert.Equal(t, []string{"a b", "", "c"}, got)
	})

	t.Run("rejects lines above the limit", func(t *testing.T) {
		sc := NewLineScanner(strings.NewReader(strings.Repeat("x", 100)+"\n"), 16)
		for sc.Scan() {
		}
		assert.ErrorIs(t, sc.Err(), bufio.ErrTooLong)
	})
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, assert.AnError
}
