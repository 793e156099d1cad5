package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChecksum(t *testing.T) {
	data := []byte("hello")
	expected := sha256.Sum256(data)

	got := ComputeChecksum(data)
	assert.Equal(t, Checksum(ChecksumPrefix+hex.EncodeToString(expected[:])), got)
}

func TestComputeFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testfile")
	data := []byte("test file content for checksum")
	require.NoError(t, os.WriteFile(path, data, 0644))

	got, err := ComputeFileChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, ComputeChecksum(data), got)
}

func TestComputeFileChecksum_NotExists(t *testing.T) {
	_, err := ComputeFileChecksum("/nonexistent/path/file")
	assert.Error(t, err)
}

func TestVerifyFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testfile")
	require.NoError(t, os.WriteFile(path, []byte("actual content"), 0644))

	t.Run("match", func(t *testing.T) {
		assert.NoError(t, VerifyFileChecksum(path, ComputeChecksum([]byte("actual content"))))
	})

	t.Run("mismatch", func(t *testing.T) {
		err := VerifyFileChecksum(path, ComputeChecksum([]byte("different content")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrChecksumMismatch))
	})
}

func TestHashingWriter(t *testing.T) {
	var buf bytes.Buffer
	hw := NewHashingWriter(&buf)

	_, err := hw.Write([]byte("apple\n"))
	require.NoError(t, err)
	_, err = hw.Write([]byte("banana\n"))
	require.NoError(t, err)

	assert.Equal(t, "apple\nbanana\n", buf.String())
	assert.Equal(t, int64(13), hw.Size())
	assert.Equal(t, ComputeChecksum([]byte("apple\nbanana\n")), hw.Checksum())
}
