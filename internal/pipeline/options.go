package pipeline

import (
	"github.com/sirupsen/logrus"

	"UniqSort/internal/analysis"
	"UniqSort/internal/config"
	"UniqSort/internal/metrics"
	"UniqSort/internal/partition"
)

// Options configures a Sorter.
type Options struct {
	// Capacity is the number of distinct tokens per chunk.
	Capacity int

	// ChunkDir receives the chunk files and is emptied before partitioning.
	// If empty, a fresh temporary directory is used and removed afterwards
	// unless KeepChunks is set.
	ChunkDir string

	// Normalizer names a registered normalizer ("standard", "nfkc").
	Normalizer string
	SplitMode  analysis.SplitMode

	FlushWorkers int
	ReadAhead    int
	MaxLineBytes int

	// KeepChunks leaves chunk files on disk after a run.
	KeepChunks bool

	// VerifyChunks re-reads every chunk before merging. Chunks that fail
	// are excluded from the merge and reported.
	VerifyChunks bool

	// Strict turns any best-effort failure into ErrPartialResult. The
	// output is still written.
	Strict bool

	// Logger for pipeline events. If nil, events are discarded.
	Logger logrus.FieldLogger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Capacity:   partition.DefaultCapacity,
		Normalizer: string(analysis.FormStandard),
		SplitMode:  analysis.SplitWord,
	}
}

// OptionsFromConfig maps a validated run configuration to Options.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.Capacity = cfg.Capacity
	opts.ChunkDir = cfg.ChunkDir
	if cfg.Normalizer != "" {
		opts.Normalizer = cfg.Normalizer
	}
	if mode, err := analysis.ParseSplitMode(cfg.SplitMode); err == nil {
		opts.SplitMode = mode
	}
	opts.FlushWorkers = cfg.FlushWorkers
	opts.ReadAhead = cfg.ReadAhead
	opts.MaxLineBytes = cfg.MaxLineBytes
	opts.KeepChunks = cfg.KeepChunks
	opts.VerifyChunks = cfg.VerifyChunks
	opts.Strict = cfg.Strict
	return opts
}
