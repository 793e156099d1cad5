// Package pipeline runs the phases of an external sort-and-merge: it
// partitions the input into sorted chunks, merges them into the output and
// cleans up.
package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"UniqSort/internal/analysis"
	"UniqSort/internal/chunk"
	"UniqSort/internal/merge"
	"UniqSort/internal/partition"
	"UniqSort/internal/storage"
)

var (
	ErrInvalidOptions = errors.New("invalid pipeline options")
	// ErrPartialResult is returned in Strict mode when the output was
	// written but some input was lost to best-effort failures.
	ErrPartialResult = errors.New("partial result")
)

// Phase names used in logs and metrics.
const (
	PhasePrepare   = "prepare"
	PhasePartition = "partition"
	PhaseVerify    = "verify"
	PhaseMerge     = "merge"
	PhaseCleanup   = "cleanup"
)

// Result describes one run.
type Result struct {
	RunID string

	// Input statistics.
	Lines    int64
	Raw      int64
	Rejected int64

	Chunks     int
	ChunkDir   string
	ChunkPaths []string

	Emitted    int64
	Duplicates int64
	Checksum   storage.Checksum

	// Report holds every best-effort failure of the run.
	Report   *chunk.Report
	Duration time.Duration
}

// Sorter runs the sort pipeline. A Sorter may run many times, sequentially
// or concurrently with distinct chunk directories.
type Sorter struct {
	opts      Options
	logger    logrus.FieldLogger
	tokenizer *analysis.Tokenizer
}

// NewSorter validates opts and creates a Sorter.
func NewSorter(opts Options) (*Sorter, error) {
	if opts.Capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "capacity must be positive, got %d", opts.Capacity)
	}
	if opts.FlushWorkers < 0 {
		return nil, errors.Wrapf(ErrInvalidOptions, "flush workers must not be negative, got %d", opts.FlushWorkers)
	}
	normalizer, err := analysis.NewRegistry().Get(opts.Normalizer)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	mode, err := analysis.ParseSplitMode(string(opts.SplitMode))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidOptions, err.Error())
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	s := &Sorter{
		opts:      opts,
		logger:    logger,
		tokenizer: analysis.NewTokenizer(normalizer, mode),
	}
	if _, err := s.newEngine(logger); err != nil {
		return nil, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	return s, nil
}

// Run sorts the distinct tokens of the file at input into the file at output.
//
// Best-effort failures (unreadable input, lost chunks, unreadable chunks)
// do not stop the run; they are collected in Result.Report and, in Strict
// mode, turn the returned error into ErrPartialResult. A failure to write
// the output is returned as an error.
func (s *Sorter) Run(ctx context.Context, input, output string) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := s.logger.WithField("run_id", runID)
	res := &Result{RunID: runID, Report: chunk.NewReport()}

	// Phase 1: PREPARE
	logger.WithFields(logrus.Fields{
		"phase":  PhasePrepare,
		"input":  input,
		"output": output,
	}).Info("pipeline phase started")
	phaseStart := time.Now()
	dir, removeDir, err := s.prepare(logger, runID, input, output)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline prepare")
	}
	res.ChunkDir = dir.Root
	s.opts.Metrics.ObservePhase(PhasePrepare, time.Since(phaseStart))

	var store *chunk.Store
	defer func() {
		s.cleanup(logger, dir, store, removeDir)
	}()

	// Phase 2: PARTITION
	if err := ctx.Err(); err != nil {
		return res, errors.Wrap(err, "pipeline cancelled before partition")
	}
	logger.WithField("phase", PhasePartition).Info("pipeline phase started")
	phaseStart = time.Now()
	store, err = s.partition(ctx, logger, dir, input, res)
	if err != nil {
		return res, errors.Wrap(err, "pipeline partition")
	}
	s.opts.Metrics.ObservePhase(PhasePartition, time.Since(phaseStart))

	chunks := store.Chunks()

	// Phase 3: VERIFY
	if s.opts.VerifyChunks {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrap(err, "pipeline cancelled before verify")
		}
		logger.WithField("phase", PhaseVerify).Info("pipeline phase started")
		phaseStart = time.Now()
		chunks = s.verify(logger, chunks, res.Report)
		s.opts.Metrics.ObservePhase(PhaseVerify, time.Since(phaseStart))
	}

	// Phase 4: MERGE
	if err := ctx.Err(); err != nil {
		return res, errors.Wrap(err, "pipeline cancelled before merge")
	}
	logger.WithFields(logrus.Fields{
		"phase":  PhaseMerge,
		"chunks": len(chunks),
	}).Info("pipeline phase started")
	phaseStart = time.Now()
	engine, err := s.newEngine(logger)
	if err != nil {
		return res, err
	}
	mres, err := engine.MergeFile(ctx, chunks, output)
	if mres != nil {
		res.Report.Merge(mres.Report)
		res.Emitted = mres.Emitted
		res.Duplicates = mres.Duplicates
		res.Checksum = mres.Checksum
	}
	if err != nil {
		return res, errors.Wrap(err, "pipeline merge")
	}
	s.opts.Metrics.ObservePhase(PhaseMerge, time.Since(phaseStart))

	res.Duration = time.Since(start)
	logger.WithFields(logrus.Fields{
		"chunks":     res.Chunks,
		"emitted":    res.Emitted,
		"duplicates": res.Duplicates,
		"failures":   res.Report.Len(),
		"checksum":   res.Checksum,
		"duration":   res.Duration,
	}).Info("pipeline complete")

	if s.opts.Strict && res.Report.Len() > 0 {
		return res, errors.Wrapf(ErrPartialResult, "%d best-effort failures: %v", res.Report.Len(), res.Report.ErrorOrNil())
	}
	return res, nil
}

func (s *Sorter) newEngine(logger logrus.FieldLogger) (*merge.Engine, error) {
	return merge.NewEngine(merge.Options{
		ReadAhead: s.opts.ReadAhead,
		Logger:    logger,
		Metrics:   s.opts.Metrics,
	})
}

// prepare checks the paths and readies the chunk directory. removeDir
// reports whether the directory was created for this run only.
func (s *Sorter) prepare(logger logrus.FieldLogger, runID, input, output string) (dir *chunk.Dir, removeDir bool, err error) {
	if input == "" || output == "" {
		return nil, false, errors.Wrap(ErrInvalidOptions, "input and output paths are required")
	}

	if s.opts.ChunkDir == "" {
		root, err := os.MkdirTemp("", "uniqsort-"+runID[:8]+"-")
		if err != nil {
			return nil, false, errors.Wrap(err, "create temp chunk dir")
		}
		return chunk.NewDir(root), true, nil
	}

	for _, p := range []string{input, output} {
		if within(s.opts.ChunkDir, p) {
			return nil, false, errors.Wrapf(ErrInvalidOptions, "%s lies inside chunk dir %s, which is emptied before a run", p, s.opts.ChunkDir)
		}
	}
	dir = chunk.NewDir(s.opts.ChunkDir)
	removed, err := dir.Prepare()
	if err != nil {
		return nil, false, err
	}
	if len(removed) > 0 {
		logger.WithFields(logrus.Fields{
			"dir":     dir.Root,
			"removed": len(removed),
		}).Info("chunk dir cleaned")
	}
	return dir, false, nil
}

func (s *Sorter) partition(ctx context.Context, logger logrus.FieldLogger, dir *chunk.Dir, input string, res *Result) (*chunk.Store, error) {
	f, err := os.Open(input)
	if err != nil {
		// Same as a read failure on the first byte: no chunks, empty output.
		res.Report.Record(chunk.KindSourceUnreadable, input, err)
		s.opts.Metrics.IncFailure(string(chunk.KindSourceUnreadable))
		logger.WithError(err).WithFields(logrus.Fields{
			"kind": chunk.KindSourceUnreadable,
			"path": input,
		}).Error("input open failed")
		return chunk.NewStore(), nil
	}
	defer f.Close()

	builder, err := partition.NewBuilder(partition.Options{
		Capacity:     s.opts.Capacity,
		Dir:          dir,
		Source:       chunk.SourceName(input),
		Tokenizer:    s.tokenizer,
		FlushWorkers: s.opts.FlushWorkers,
		MaxLineBytes: s.opts.MaxLineBytes,
		Logger:       logger,
		Metrics:      s.opts.Metrics,
	})
	if err != nil {
		return chunk.NewStore(), err
	}

	pres, err := builder.Partition(ctx, f)
	if pres == nil {
		return chunk.NewStore(), err
	}
	res.Lines = pres.Lines
	res.Raw = pres.Raw
	res.Rejected = pres.Rejected
	res.Chunks = pres.Store.Len()
	res.ChunkPaths = pres.Store.Paths()
	res.Report.Merge(pres.Store.Report())
	return pres.Store, err
}

func (s *Sorter) verify(logger logrus.FieldLogger, chunks []chunk.Chunk, report *chunk.Report) []chunk.Chunk {
	kept := make([]chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if err := chunk.VerifyFile(c); err != nil {
			report.Record(chunk.KindChunkRead, c.Path, err)
			s.opts.Metrics.IncFailure(string(chunk.KindChunkRead))
			logger.WithError(err).WithFields(logrus.Fields{
				"kind": chunk.KindChunkRead,
				"path": c.Path,
			}).Error("chunk failed verification, excluding it")
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// cleanup removes chunk files unless they are to be kept. Errors are logged
// and never fail the run.
func (s *Sorter) cleanup(logger logrus.FieldLogger, dir *chunk.Dir, store *chunk.Store, removeDir bool) {
	if s.opts.KeepChunks {
		return
	}
	start := time.Now()
	logger.WithField("phase", PhaseCleanup).Debug("pipeline phase started")

	var err error
	switch {
	case removeDir:
		err = os.RemoveAll(dir.Root)
	case store != nil:
		err = store.Remove()
	}
	if err != nil {
		logger.WithError(err).WithField("dir", dir.Root).Warn("pipeline cleanup non-fatal error")
	}
	s.opts.Metrics.ObservePhase(PhaseCleanup, time.Since(start))
}

// within reports whether path is dir itself or lies below it.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
