// Package merge performs the k-way merge of sorted chunk files into a single
// ascending, duplicate-free token stream.
package merge

import (
	"container/heap"
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"UniqSort/internal/analysis"
	"UniqSort/internal/chunk"
	"UniqSort/internal/metrics"
	"UniqSort/internal/storage"
)

var ErrInvalidOptions = errors.New("invalid merge options")

// Options configures an Engine.
type Options struct {
	// ReadAhead is the number of tokens each cursor prefetches on its own
	// goroutine. 0 reads synchronously.
	ReadAhead int

	// Logger for merge events. If nil, events are discarded.
	Logger logrus.FieldLogger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{}
}

// Result summarizes one merge.
type Result struct {
	// Emitted is the number of distinct tokens written.
	Emitted int64
	// Duplicates is the number of tokens suppressed because they equal the
	// previously emitted one.
	Duplicates int64
	// ChunksMerged counts chunks that were opened successfully.
	ChunksMerged int
	// Checksum of the written output. Only set by MergeFile.
	Checksum storage.Checksum
	Report   *chunk.Report
	Duration time.Duration
}

// Engine merges chunks. It holds no per-merge state and may be reused.
type Engine struct {
	opts   Options
	logger logrus.FieldLogger
}

// NewEngine validates opts and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.ReadAhead < 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "read-ahead must not be negative, got %d", opts.ReadAhead)
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Engine{opts: opts, logger: logger.WithField("component", "merge")}, nil
}

// Merge writes the union of chunks to w in ascending order, each token once.
//
// A chunk that cannot be opened is skipped and one that fails mid-read is
// retired; both are recorded in the result's Report and the merge goes on.
// An output write failure is recorded and returned. Cancelling ctx stops the
// merge between tokens. Every opened chunk is closed before Merge returns.
func (e *Engine) Merge(ctx context.Context, chunks []chunk.Chunk, w io.Writer) (*Result, error) {
	start := time.Now()
	res := &Result{Report: chunk.NewReport()}

	e.logger.WithField("chunks", len(chunks)).Info("merge started")

	cursors, h := e.open(chunks, res)
	defer func() {
		for _, c := range cursors {
			e.closeCursor(c)
		}
	}()

	lw := storage.NewLineWriter(w)
	err := e.drain(ctx, cursors, &h, lw, res)
	if err == nil {
		if err = lw.Flush(); err != nil {
			err = e.outputFailed(res, err)
		}
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	e.logger.WithFields(logrus.Fields{
		"chunks":     res.ChunksMerged,
		"emitted":    res.Emitted,
		"duplicates": res.Duplicates,
		"failures":   res.Report.Len(),
		"duration":   res.Duration,
	}).Info("merge finished")
	return res, nil
}

// open opens a cursor per chunk and seeds the heap with each first token.
// Chunks that turn out empty or unreadable are closed right away.
func (e *Engine) open(chunks []chunk.Chunk, res *Result) ([]*Cursor, entryHeap) {
	cursors := make([]*Cursor, 0, len(chunks))
	h := make(entryHeap, 0, len(chunks))
	for _, c := range chunks {
		cur, err := OpenCursor(c, e.opts.ReadAhead)
		if err != nil {
			e.fail(res.Report, chunk.KindChunkOpen, c.Path, err, "chunk open failed, skipping it")
			continue
		}
		cursors = append(cursors, cur)
		res.ChunksMerged++
		if cur.Next() {
			h = append(h, entry{tok: cur.Token(), src: len(cursors) - 1})
		} else {
			e.retire(res, cur)
		}
	}
	heap.Init(&h)
	return cursors, h
}

// drain pops the heap until it is empty, writing each distinct token once.
func (e *Engine) drain(ctx context.Context, cursors []*Cursor, h *entryHeap, lw *storage.LineWriter, res *Result) error {
	var last analysis.Token
	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			e.logger.WithError(err).WithField("emitted", res.Emitted).Warn("merge cancelled")
			return err
		}

		top := (*h)[0]
		if top.tok != last {
			if err := lw.WriteLine(string(top.tok)); err != nil {
				return e.outputFailed(res, err)
			}
			last = top.tok
			res.Emitted++
			e.opts.Metrics.IncTokensEmitted()
		} else {
			res.Duplicates++
			e.opts.Metrics.IncDuplicates()
		}

		cur := cursors[top.src]
		if cur.Next() {
			(*h)[0].tok = cur.Token()
			heap.Fix(h, 0)
			continue
		}
		heap.Pop(h)
		e.retire(res, cur)
	}
	return nil
}

// retire releases an exhausted cursor and records the error that ended it.
func (e *Engine) retire(res *Result, cur *Cursor) {
	if err := cur.Err(); err != nil {
		e.fail(res.Report, chunk.KindChunkRead, cur.Chunk().Path, err, "chunk read failed, retiring it")
	}
	e.closeCursor(cur)
}

func (e *Engine) closeCursor(cur *Cursor) {
	if err := cur.Close(); err != nil {
		e.logger.WithError(err).WithField("path", cur.Chunk().Path).Warn("close chunk")
	}
}

// MergeFile merges into a temporary file next to outPath and renames it
// into place once it is complete and synced. On failure outPath is left
// untouched.
func (e *Engine) MergeFile(ctx context.Context, chunks []chunk.Chunk, outPath string) (*Result, error) {
	f, err := storage.CreateTempBeside(outPath)
	if err != nil {
		res := &Result{Report: chunk.NewReport()}
		e.fail(res.Report, chunk.KindOutputWrite, outPath, err, "output create failed")
		return res, err
	}
	tmpPath := f.Name()
	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	hw := storage.NewHashingWriter(f)
	res, err := e.Merge(ctx, chunks, hw)
	if err != nil {
		return res, err
	}
	if err := storage.SyncClose(f); err != nil {
		return res, e.outputFailed(res, err)
	}
	if err := storage.RenameDurable(tmpPath, outPath); err != nil {
		return res, e.outputFailed(res, err)
	}
	success = true
	res.Checksum = hw.Checksum()

	e.logger.WithFields(logrus.Fields{
		"path":     outPath,
		"bytes":    hw.Size(),
		"checksum": res.Checksum,
	}).Debug("output written")
	return res, nil
}

func (e *Engine) outputFailed(res *Result, err error) error {
	return e.fail(res.Report, chunk.KindOutputWrite, "", err, "output write failed")
}

func (e *Engine) fail(report *chunk.Report, kind chunk.Kind, path string, err error, msg string) *chunk.Failure {
	e.opts.Metrics.IncFailure(string(kind))
	e.logger.WithError(err).WithFields(logrus.Fields{
		"kind": kind,
		"path": path,
	}).Error(msg)
	return report.Record(kind, path, err)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
