package chunk

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies a best-effort failure.
type Kind string

const (
	// KindSourceUnreadable: the input could not be opened or a read failed.
	// Partitioning stops and keeps the chunks flushed so far.
	KindSourceUnreadable Kind = "source-unreadable"
	// KindChunkWrite: a chunk could not be created or written. Its tokens
	// are lost and partitioning continues.
	KindChunkWrite Kind = "chunk-write"
	// KindChunkOpen: a chunk could not be opened for merging and is excluded.
	KindChunkOpen Kind = "chunk-open"
	// KindChunkRead: a chunk failed mid-read during merging; the tokens read
	// before the failure are merged, the rest are lost.
	KindChunkRead Kind = "chunk-read"
	// KindOutputWrite: the final output could not be written. Not retried.
	KindOutputWrite Kind = "output-write"
)

// Failure is one recorded failure.
type Failure struct {
	Kind Kind
	Path string
	Err  error
}

func (f *Failure) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Path, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Cause supports github.com/pkg/errors.Cause.
func (f *Failure) Cause() error { return f.Err }

// Report collects failures of a run. It is safe for concurrent use.
type Report struct {
	mu       sync.Mutex
	failures []*Failure
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{}
}

// Record appends a failure and returns it.
func (r *Report) Record(kind Kind, path string, err error) *Failure {
	f := &Failure{Kind: kind, Path: path, Err: err}
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
	return f
}

// Merge appends all failures of other.
func (r *Report) Merge(other *Report) {
	if other == nil || other == r {
		return
	}
	fs := other.Failures()
	r.mu.Lock()
	r.failures = append(r.failures, fs...)
	r.mu.Unlock()
}

// Failures returns a copy of the recorded failures in recording order.
func (r *Report) Failures() []*Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Len returns the number of recorded failures.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

// Count returns the number of failures of the given kind.
func (r *Report) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// ErrorOrNil returns all failures as one *multierror.Error, or nil.
func (r *Report) ErrorOrNil() error {
	var merr *multierror.Error
	for _, f := range r.Failures() {
		merr = multierror.Append(merr, f)
	}
	return merr.ErrorOrNil()
}
