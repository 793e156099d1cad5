package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// FsyncDir opens the directory at path and calls fsync on it so that newly
// created or renamed entries survive a crash.
func FsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "fsync dir open %s", path)
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return errors.Wrapf(err, "fsync dir sync %s", path)
	}
	if err := d.Close(); err != nil {
		return errors.Wrapf(err, "fsync dir close %s", path)
	}
	return nil
}

// SyncClose fsyncs and closes f. The file is closed even when the sync fails.
func SyncClose(f *os.File) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "sync %s", f.Name())
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", f.Name())
	}
	return nil
}

// CreateTempBeside creates a temporary file in the directory of finalPath so
// that a later rename stays on one filesystem. The file gets FilePerm rather
// than the owner-only mode of os.CreateTemp.
func CreateTempBeside(finalPath string) (*os.File, error) {
	dir := filepath.Dir(finalPath)
	f, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".tmp-*")
	if err != nil {
		return nil, errors.Wrapf(err, "create temp in %s", dir)
	}
	if err := f.Chmod(FilePerm); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errors.Wrapf(err, "chmod %s", f.Name())
	}
	return f, nil
}

// RenameDurable renames an already-written and fsynced file from tmpPath to
// finalPath, then fsyncs the parent directory of finalPath.
func RenameDurable(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errors.Wrapf(err, "rename %s → %s", tmpPath, finalPath)
	}
	if err := FsyncDir(filepath.Dir(finalPath)); err != nil {
		return errors.Wrapf(err, "fsync parent dir of %s", finalPath)
	}
	return nil
}

// EnsureDir creates a directory (and parents) if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirPerm)
}
