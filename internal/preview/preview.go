// Package preview prints the head of token files and counts their
// non-blank lines, for eyeballing inputs, chunks and outputs.
package preview

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"UniqSort/internal/storage"
)

var ErrInvalidLimit = errors.New("preview line limit must not be negative")

// FileSummary is the outcome for one file. Err is set when the file could
// not be read to the end; Lines then counts what was read before.
type FileSummary struct {
	Path  string
	Lines int64
	Err   error
}

type Summary struct {
	Files []FileSummary
	// Total is the sum of non-blank lines over all files.
	Total  int64
	Failed int
}

// Files writes, for each path, a header, its first k non-blank lines and
// its non-blank line count to w, then a grand total. Unreadable files are
// noted and skipped. The returned error is non-nil only for a negative k or
// when writing to w fails.
func Files(paths []string, k int, w io.Writer) (Summary, error) {
	if k < 0 {
		return Summary{}, errors.Wrapf(ErrInvalidLimit, "got %d", k)
	}

	var sum Summary
	for _, p := range paths {
		fs, err := file(p, k, w)
		if err != nil {
			return sum, err
		}
		sum.Files = append(sum.Files, fs)
		sum.Total += fs.Lines
		if fs.Err != nil {
			sum.Failed++
		}
	}
	if _, err := fmt.Fprintf(w, "total: %d non-blank lines in %d files\n", sum.Total, len(paths)); err != nil {
		return sum, errors.Wrap(err, "write preview")
	}
	return sum, nil
}

// Expand replaces every directory in paths with the regular files directly
// inside it, in name order, so a chunk directory can be previewed whole.
// Other paths are kept as given.
func Expand(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !storage.DirExists(p) {
			out = append(out, p)
			continue
		}
		names, err := storage.ListFiles(p)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out = append(out, filepath.Join(p, name))
		}
	}
	return out, nil
}

func file(path string, k int, w io.Writer) (FileSummary, error) {
	fs := FileSummary{Path: path}
	if _, err := fmt.Fprintf(w, "==> %s <==\n", path); err != nil {
		return fs, errors.Wrap(err, "write preview")
	}

	f, err := os.Open(path)
	if err != nil {
		fs.Err = errors.Wrapf(err, "open %s", path)
		_, werr := fmt.Fprintf(w, "error: %v\n\n", fs.Err)
		return fs, errors.Wrap(werr, "write preview")
	}
	defer f.Close()

	sc := storage.NewLineScanner(f, 0)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if fs.Lines < int64(k) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return fs, errors.Wrap(err, "write preview")
			}
		}
		fs.Lines++
	}
	if err := sc.Err(); err != nil {
		fs.Err = errors.Wrapf(err, "read %s", path)
		if _, werr := fmt.Fprintf(w, "error: %v\n", fs.Err); werr != nil {
			return fs, errors.Wrap(werr, "write preview")
		}
	}

	_, err = fmt.Fprintf(w, "%d non-blank lines\n\n", fs.Lines)
	return fs, errors.Wrap(err, "write preview")
}
