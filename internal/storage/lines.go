package storage

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxLineBytes bounds a single input line. Corpora with no newlines
	// at all need a larger limit.
	DefaultMaxLineBytes = 16 * 1024 * 1024

	initialScanBuf = 64 * 1024
	writeBufSize   = 64 * 1024
)

// NewLineScanner returns a line scanner over r that accepts lines up to
// maxLine bytes. maxLine <= 0 selects DefaultMaxLineBytes.
func NewLineScanner(r io.Reader, maxLine int) *bufio.Scanner {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	sc := bufio.NewScanner(r)
	bufSize := initialScanBuf
	if bufSize > maxLine {
		bufSize = maxLine
	}
	sc.Buffer(make([]byte, bufSize), maxLine)
	return sc
}

// LineWriter writes newline-terminated records through a buffer.
type LineWriter struct {
	bw *bufio.Writer
}

// NewLineWriter wraps w with a write buffer.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{bw: bufio.NewWriterSize(w, writeBufSize)}
}

// WriteLine writes s followed by '\n'.
func (lw *LineWriter) WriteLine(s string) error {
	if _, err := lw.bw.WriteString(s); err != nil {
		return errors.Wrap(err, "write line")
	}
	if err := lw.bw.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write line")
	}
	return nil
}

// Flush pushes buffered lines to the underlying writer.
func (lw *LineWriter) Flush() error {
	return errors.Wrap(lw.bw.Flush(), "flush lines")
}
