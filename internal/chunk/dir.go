package chunk

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"UniqSort/internal/storage"
)

// Suffix is the file extension of every chunk file.
const Suffix = ".txt"

// Dir is the directory chunk files are written to.
// Path methods are pure functions with no I/O side effects.
type Dir struct {
	Root string
}

// NewDir creates a Dir for the given root path.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// ChunkPath returns the path of chunk n of the given source:
// <root>/<source>_chunk_<n>.txt.
func (d *Dir) ChunkPath(source string, n int) string {
	return filepath.Join(d.Root, fmt.Sprintf("%s_chunk_%d%s", source, n, Suffix))
}

// Prepare empties the directory, or creates it when missing, so chunks of an
// earlier run never mix with the new ones. It returns the removed paths.
func (d *Dir) Prepare() ([]string, error) {
	if storage.FileExists(d.Root) {
		return nil, errors.Errorf("chunk dir %s is a regular file", d.Root)
	}
	removed, err := storage.RemoveDirContents(d.Root)
	if err != nil {
		return removed, errors.Wrapf(err, "clean chunk dir %s", d.Root)
	}
	if err := storage.EnsureDir(d.Root); err != nil {
		return removed, errors.Wrapf(err, "create chunk dir %s", d.Root)
	}
	return removed, nil
}

// SourceName derives the chunk name prefix from an input path: the base
// name without its extension. Dot files keep their full base name.
func SourceName(inputPath string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return base
	}
	return name
}
