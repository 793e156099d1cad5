// Package partition splits an arbitrarily large token stream into sorted,
// duplicate-free chunk files whose size is bounded by a working set capacity.
package partition

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"UniqSort/internal/analysis"
	"UniqSort/internal/chunk"
	"UniqSort/internal/metrics"
	"UniqSort/internal/storage"
)

var ErrInvalidOptions = errors.New("invalid partition options")

// Options configures a Builder.
type Options struct {
	// Capacity is the number of distinct tokens per chunk. Must be > 0.
	Capacity int

	// Dir receives the chunk files. Required.
	Dir *chunk.Dir

	// Source names the chunk files: <Source>_chunk_<n>.txt. Required.
	Source string

	// Tokenizer splits and normalizes lines. If nil, the word tokenizer with
	// the standard normalizer is used.
	Tokenizer *analysis.Tokenizer

	// FlushWorkers is the number of full working sets that may be sorted and
	// written in the background while reading continues. 0 flushes inline.
	// Peak memory is about (FlushWorkers+1) * Capacity tokens.
	FlushWorkers int

	// MaxLineBytes bounds a single input line. 0 selects the storage default.
	MaxLineBytes int

	// Logger for partition events. If nil, events are discarded.
	Logger logrus.FieldLogger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// DefaultOptions returns Options with sensible defaults. Dir and Source must
// still be set by the caller.
func DefaultOptions() Options {
	return Options{
		Capacity: DefaultCapacity,
	}
}

// Result is the outcome of one partition run.
type Result struct {
	Store *chunk.Store

	Lines    int64
	Raw      int64
	Rejected int64
	// Accepted counts working set insertions. A token that recurs after a
	// flush is accepted again.
	Accepted int64
	Duration time.Duration
}

// Builder turns an input stream into chunk files.
type Builder struct {
	opts      Options
	logger    logrus.FieldLogger
	tokenizer *analysis.Tokenizer
}

// NewBuilder validates opts and creates a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "capacity must be positive, got %d", opts.Capacity)
	}
	if opts.Dir == nil || opts.Dir.Root == "" {
		return nil, errors.Wrap(ErrInvalidOptions, "chunk dir is required")
	}
	if opts.Source == "" {
		return nil, errors.Wrap(ErrInvalidOptions, "source name is required")
	}
	if opts.FlushWorkers < 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "flush workers must not be negative, got %d", opts.FlushWorkers)
	}
	if opts.MaxLineBytes < 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "max line bytes must not be negative, got %d", opts.MaxLineBytes)
	}

	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tokenizer = analysis.NewTokenizer(nil, analysis.SplitWord)
	}
	return &Builder{
		opts:      opts,
		logger:    logger.WithField("component", "partition"),
		tokenizer: tokenizer,
	}, nil
}

// Partition reads r line by line and flushes a sorted chunk every time the
// working set reaches capacity, plus one final chunk for the remainder.
//
// Failures are best-effort: a read failure stops partitioning and keeps the
// chunks flushed so far (the unflushed remainder is dropped); a chunk write
// failure loses that chunk and partitioning continues. Both are recorded in
// the store's Report. The returned error is non-nil only when r is nil or
// ctx is cancelled; in the latter case the chunks flushed so far are still
// returned.
func (b *Builder) Partition(ctx context.Context, r io.Reader) (*Result, error) {
	if r == nil {
		return nil, errors.Wrap(ErrInvalidOptions, "nil input reader")
	}

	start := time.Now()
	store := chunk.NewStore()
	res := &Result{Store: store}

	set, err := NewWorkingSet(b.opts.Capacity)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"source":        b.opts.Source,
		"capacity":      set.Capacity(),
		"dir":           b.opts.Dir.Root,
		"flush_workers": b.opts.FlushWorkers,
	}).Info("partition started")

	f := newFlusher(b, store)
	defer f.wait()

	sc := storage.NewLineScanner(r, b.opts.MaxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			f.wait()
			res.Duration = time.Since(start)
			b.logger.WithError(err).WithField("chunks", store.Len()).Warn("partition cancelled")
			return res, err
		}

		res.Lines++
		tokens, rejected := b.tokenizer.Split(sc.Text())
		res.Raw += int64(len(tokens) + rejected)
		res.Rejected += int64(rejected)
		b.opts.Metrics.AddTokensRead(len(tokens) + rejected)
		b.opts.Metrics.AddTokensRejected(rejected)

		for _, tok := range tokens {
			added, full := set.Add(tok)
			if !added {
				continue
			}
			res.Accepted++
			b.opts.Metrics.IncTokensAccepted()
			if full {
				f.flush(set.Drain())
			}
		}
	}

	if err := sc.Err(); err != nil {
		fields := logrus.Fields{
			"kind":      chunk.KindSourceUnreadable,
			"line":      res.Lines,
			"discarded": set.Len(),
		}
		msg := "input read failed, keeping chunks flushed so far"
		if errors.Is(err, bufio.ErrTooLong) {
			limit := maxLineBytes(b.opts.MaxLineBytes)
			fields["max_line_bytes"] = limit
			msg = "input line exceeds max_line_bytes, keeping chunks flushed so far"
			err = errors.Wrapf(err, "line %d longer than %d bytes", res.Lines+1, limit)
		}
		store.Report().Record(chunk.KindSourceUnreadable, b.opts.Source, err)
		b.opts.Metrics.IncFailure(string(chunk.KindSourceUnreadable))
		b.logger.WithError(err).WithFields(fields).Error(msg)
	} else if set.Len() > 0 {
		f.flush(set.Drain())
	}

	f.wait()
	res.Duration = time.Since(start)
	b.logger.WithFields(logrus.Fields{
		"chunks":   store.Len(),
		"tokens":   store.TotalTokens(),
		"lines":    res.Lines,
		"accepted": res.Accepted,
		"rejected": res.Rejected,
		"failures": store.Report().Len(),
		"duration": res.Duration,
	}).Info("partition finished")
	return res, nil
}

func maxLineBytes(n int) int {
	if n <= 0 {
		return storage.DefaultMaxLineBytes
	}
	return n
}

// flusher writes drained working sets, inline or on a bounded number of
// background goroutines. Chunk indices are assigned by the caller goroutine
// in flush order, so file names stay monotonic either way.
type flusher struct {
	b     *Builder
	store *chunk.Store
	next  int
	async bool
	g     errgroup.Group
}

func newFlusher(b *Builder, store *chunk.Store) *flusher {
	f := &flusher{b: b, store: store}
	if b.opts.FlushWorkers > 0 {
		f.async = true
		f.g.SetLimit(b.opts.FlushWorkers)
	}
	return f
}

func (f *flusher) flush(tokens []analysis.Token) {
	index := f.next
	f.next++
	if !f.async {
		f.write(index, tokens)
		return
	}
	f.g.Go(func() error {
		f.write(index, tokens)
		return nil
	})
}

func (f *flusher) write(index int, tokens []analysis.Token) {
	path := f.b.opts.Dir.ChunkPath(f.b.opts.Source, index)
	c, err := chunk.WriteSorted(path, index, tokens)
	if err != nil {
		f.store.Report().Record(chunk.KindChunkWrite, path, err)
		f.b.opts.Metrics.IncFailure(string(chunk.KindChunkWrite))
		f.b.logger.WithError(err).WithFields(logrus.Fields{
			"kind":   chunk.KindChunkWrite,
			"chunk":  index,
			"path":   path,
			"tokens": len(tokens),
		}).Error("chunk write failed, its tokens are lost")
		return
	}
	f.store.Add(c)
	f.b.opts.Metrics.IncChunksWritten()
	f.b.logger.WithFields(logrus.Fields{
		"chunk":  index,
		"path":   path,
		"tokens": c.Count,
	}).Debug("chunk flushed")
}

// wait blocks until background flushes are done. Safe to call repeatedly.
func (f *flusher) wait() {
	if f.async {
		_ = f.g.Wait()
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
