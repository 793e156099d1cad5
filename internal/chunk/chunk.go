// Package chunk holds the intermediate files of an external sort: each chunk
// is a sorted, duplicate-free list of tokens, one per line.
package chunk

import (
	"os"

	"github.com/pkg/errors"

	"UniqSort/internal/analysis"
	"UniqSort/internal/storage"
)

var (
	ErrUnsorted     = errors.New("tokens are not strictly ascending")
	ErrInvalidToken = errors.New("invalid token")
)

// Chunk describes one flushed working set on disk.
type Chunk struct {
	// Index is the flush sequence number, also used in the file name.
	Index    int
	Path     string
	Count    int
	Checksum storage.Checksum
}

// WriteSorted writes tokens to path, one per line, and fsyncs the file.
// tokens must be strictly ascending; the check runs while writing so an
// unsorted input never leaves a chunk behind. On any error the partial file
// is removed.
func WriteSorted(path string, index int, tokens []analysis.Token) (Chunk, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, storage.FilePerm)
	if err != nil {
		return Chunk{}, errors.Wrapf(err, "create chunk %s", path)
	}

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(path)
		}
	}()

	hw := storage.NewHashingWriter(f)
	lw := storage.NewLineWriter(hw)
	var prev analysis.Token
	for i, tok := range tokens {
		if !tok.Valid() {
			return Chunk{}, errors.Wrapf(ErrInvalidToken, "chunk %s line %d", path, i+1)
		}
		if i > 0 && tok <= prev {
			return Chunk{}, errors.Wrapf(ErrUnsorted, "chunk %s line %d: %q after %q", path, i+1, tok, prev)
		}
		if err := lw.WriteLine(string(tok)); err != nil {
			return Chunk{}, errors.Wrapf(err, "write chunk %s", path)
		}
		prev = tok
	}
	if err := lw.Flush(); err != nil {
		return Chunk{}, errors.Wrapf(err, "write chunk %s", path)
	}
	if err := storage.SyncClose(f); err != nil {
		return Chunk{}, err
	}

	success = true
	return Chunk{
		Index:    index,
		Path:     path,
		Count:    len(tokens),
		Checksum: hw.Checksum(),
	}, nil
}

// VerifyFile re-reads the chunk and checks that every line is a valid token,
// that lines are strictly ascending and, when a checksum is recorded, that
// the content still matches it.
func VerifyFile(c Chunk) error {
	if c.Checksum != "" {
		if err := storage.VerifyFileChecksum(c.Path, c.Checksum); err != nil {
			return err
		}
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return errors.Wrapf(err, "open chunk %s", c.Path)
	}
	defer f.Close()

	sc := storage.NewLineScanner(f, 0)
	var prev analysis.Token
	line := 0
	for sc.Scan() {
		line++
		tok := analysis.Token(sc.Text())
		if !tok.Valid() {
			return errors.Wrapf(ErrInvalidToken, "chunk %s line %d", c.Path, line)
		}
		if line > 1 && tok <= prev {
			return errors.Wrapf(ErrUnsorted, "chunk %s line %d: %q after %q", c.Path, line, tok, prev)
		}
		prev = tok
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "read chunk %s", c.Path)
	}
	if c.Count > 0 && line != c.Count {
		return errors.Errorf("chunk %s has %d lines, recorded %d", c.Path, line, c.Count)
	}
	return nil
}
