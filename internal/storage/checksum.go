package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

const (
	// ChecksumPrefix is the prefix for SHA-256 checksums.
	ChecksumPrefix = "sha256:"

	checksumBufSize = 32 * 1024
)

// Checksum represents a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

var ErrChecksumMismatch = errors.New("checksum mismatch")

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, checksumBufSize)
		return &buf
	},
}

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return FormatChecksum(sum[:])
}

// ComputeFileChecksum streams the file at path through SHA-256.
func ComputeFileChecksum(path string) (Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "compute file checksum %s", path)
	}
	defer f.Close()

	bufPtr := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufPtr)

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, *bufPtr); err != nil {
		return "", errors.Wrapf(err, "compute file checksum %s", path)
	}
	return FormatChecksum(h.Sum(nil)), nil
}

// VerifyFileChecksum verifies that a file's SHA-256 matches the expected checksum.
func VerifyFileChecksum(path string, expected Checksum) error {
	actual, err := ComputeFileChecksum(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return errors.Wrapf(ErrChecksumMismatch, "file %s expected %s got %s", path, expected, actual)
	}
	return nil
}

// FormatChecksum formats raw hash bytes into a Checksum with the "sha256:" prefix.
func FormatChecksum(sum []byte) Checksum {
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum))
}

// HashingWriter forwards writes to an underlying writer and hashes every byte
// that was accepted, so a file's checksum is known the moment it is written.
type HashingWriter struct {
	w io.Writer
	h hash.Hash
	n int64
}

// NewHashingWriter wraps w.
func NewHashingWriter(w io.Writer) *HashingWriter {
	return &HashingWriter{w: w, h: sha256.New()}
}

func (hw *HashingWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	hw.h.Write(p[:n])
	hw.n += int64(n)
	return n, err
}

// Checksum returns the checksum of everything written so far.
func (hw *HashingWriter) Checksum() Checksum {
	return FormatChecksum(hw.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (hw *HashingWriter) Size() int64 {
	return hw.n
}
