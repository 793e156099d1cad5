package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// RemoveDirContents removes all entries inside a directory without removing
// the directory itself. Returns a list of removed paths for audit logging.
func RemoveDirContents(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var removed []string
	var firstErr error
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "remove %s", p)
			}
			continue
		}
		removed = append(removed, p)
	}
	return removed, firstErr
}

// RemoveFiles removes every path in paths, ignoring paths that are already
// gone. It keeps going after a failure and returns the first one.
func RemoveFiles(paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = errors.Wrapf(err, "remove %s", p)
		}
	}
	return firstErr
}

// ListFiles returns the names (not full paths) of all regular files
// within dir (non-recursive).
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list files %s", dir)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
