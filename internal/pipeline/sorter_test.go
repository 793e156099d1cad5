package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"UniqSort/internal/analysis"
	"UniqSort/internal/chunk"
	"UniqSort/internal/config"
	"UniqSort/internal/metrics"
	"UniqSort/internal/storage"
	tu "UniqSort/internal/testutil"
)

func newTestSorter(t *testing.T, mutate ...func(*Options)) *Sorter {
	t.Helper()
	logger, _ := tu.NullLogger()
	opts := DefaultOptions()
	opts.Capacity = 3
	opts.Logger = logger
	for _, m := range mutate {
		m(&opts)
	}
	s, err := NewSorter(opts)
	require.NoError(t, err)
	return s
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := tu.WriteInput(t, dir, "corpus.txt", "Time flies, time FLIES! big-data BIG DATA\n")
	output := filepath.Join(dir, "sorted.txt")

	res, err := newTestSorter(t).Run(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, []string{"big", "data", "flies", "time"}, tu.ReadLines(t, output))
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, int64(4), res.Emitted)
	assert.Equal(t, int64(1), res.Duplicates)
	assert.Equal(t, int64(1), res.Lines)
	assert.Zero(t, res.Report.Len())

	sum, err := storage.ComputeFileChecksum(output)
	require.NoError(t, err)
	assert.Equal(t, sum, res.Checksum)

	assert.False(t, storage.DirExists(res.ChunkDir), "temporary chunk dir is removed")
}

func TestRun_KeepChunks(t *testing.T) {
	dir := t.TempDir()
	chunkDir := filepath.Join(dir, "chunks")
	input := tu.WriteInput(t, dir, "corpus.txt", "apple banana cherry\ndate apple\n")
	output := filepath.Join(dir, "sorted.txt")

	res, err := newTestSorter(t, func(o *Options) {
		o.ChunkDir = chunkDir
		o.KeepChunks = true
		o.VerifyChunks = true
	}).Run(context.Background(), input, output)
	require.NoError(t, err)

	d := chunk.NewDir(chunkDir)
	assert.Equal(t, []string{d.ChunkPath("corpus", 0), d.ChunkPath("corpus", 1)}, res.ChunkPaths)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, tu.ReadLines(t, res.ChunkPaths[0]))
	assert.Equal(t, []string{"apple", "date"}, tu.ReadLines(t, res.ChunkPaths[1]))
	assert.Equal(t, []string{"apple", "banana", "cherry", "date"}, tu.ReadLines(t, output))
}

func TestRun_ChunkDirIsCleaned(t *testing.T) {
	dir := t.TempDir()
	chunkDir := filepath.Join(dir, "chunks")
	require.NoError(t, os.MkdirAll(chunkDir, 0755))
	stale := tu.WriteInput(t, chunkDir, "corpus_chunk_9.txt", "zzz\n")

	input := tu.WriteInput(t, dir, "corpus.txt", "b a\n")
	output := filepath.Join(dir, "sorted.txt")

	_, err := newTestSorter(t, func(o *Options) { o.ChunkDir = chunkDir }).Run(context.Background(), input, output)
	require.NoError(t, err)

	assert.False(t, storage.FileExists(stale))
	assert.Equal(t, []string{"a", "b"}, tu.ReadLines(t, output))
	files, err := storage.ListFiles(chunkDir)
	require.NoError(t, err)
	assert.Empty(t, files, "chunks are removed after the run")
}

func TestRun_RejectsPathsInsideChunkDir(t *testing.T) {
	dir := t.TempDir()
	input := tu.WriteInput(t, dir, "corpus.txt", "a\n")

	_, err := newTestSorter(t, func(o *Options) { o.ChunkDir = dir }).Run(context.Background(), input, filepath.Join(t.TempDir(), "out.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOptions))
	assert.True(t, storage.FileExists(input), "nothing is cleaned when paths are rejected")
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "sorted.txt")

	res, err := newTestSorter(t).Run(context.Background(), filepath.Join(dir, "absent.txt"), output)
	require.NoError(t, err, "an unreadable input is a best-effort failure")
	assert.Equal(t, []string{}, tu.ReadLines(t, output))
	assert.Equal(t, 1, res.Report.Count(chunk.KindSourceUnreadable))

	res, err = newTestSorter(t, func(o *Options) { o.Strict = true }).Run(context.Background(), filepath.Join(dir, "absent.txt"), output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialResult))
	assert.True(t, storage.FileExists(output), "strict mode still writes the output")
	assert.Equal(t, 1, res.Report.Len())
}

func TestRun_EmptyPaths(t *testing.T) {
	_, err := newTestSorter(t).Run(context.Background(), "", "out.txt")
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	input := tu.WriteInput(t, dir, "corpus.txt", "a b c d e\n")
	output := filepath.Join(dir, "sorted.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestSorter(t).Run(ctx, input, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, storage.FileExists(output))
	require.NotNil(t, res)
	assert.False(t, storage.DirExists(res.ChunkDir))
}

func TestRun_Metrics(t *testing.T) {
	dir := t.TempDir()
	input := tu.WriteInput(t, dir, "corpus.txt", "apple banana cherry\napple date !!!\n")
	output := filepath.Join(dir, "sorted.txt")
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	_, err := newTestSorter(t, func(o *Options) {
		o.Metrics = m
		o.SplitMode = analysis.SplitWhitespace
	}).Run(context.Background(), input, output)
	require.NoError(t, err)

	assert.Equal(t, float64(6), testutil.ToFloat64(m.TokensRead))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokensRejected))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ChunksWritten))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.TokensEmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 4, testutil.CollectAndCount(m.PhaseDuration), "prepare, partition, merge and cleanup")
}

func TestRun_NormalizerAndSplitMode(t *testing.T) {
	dir := t.TempDir()
	input := tu.WriteInput(t, dir, "corpus.txt", "big-data ﬁne\n")
	output := filepath.Join(dir, "sorted.txt")

	_, err := newTestSorter(t, func(o *Options) {
		o.Normalizer = "nfkc"
		o.SplitMode = analysis.SplitWhitespace
	}).Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, []string{"bigdata", "fine"}, tu.ReadLines(t, output))
}

func TestNewSorter_InvalidOptions(t *testing.T) {
	cases := map[string]func(*Options){
		"zero capacity":      func(o *Options) { o.Capacity = 0 },
		"negative workers":   func(o *Options) { o.FlushWorkers = -1 },
		"negative ahead":     func(o *Options) { o.ReadAhead = -1 },
		"unknown normalizer": func(o *Options) { o.Normalizer = "soundex" },
		"unknown split":      func(o *Options) { o.SplitMode = "comma" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			mutate(&opts)
			_, err := NewSorter(opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOptions))
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity = 77
	cfg.SplitMode = "whitespace"
	cfg.KeepChunks = true
	cfg.ReadAhead = 4
	cfg.MaxLineBytes = 1 << 20

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 77, opts.Capacity)
	assert.Equal(t, analysis.SplitWhitespace, opts.SplitMode)
	assert.True(t, opts.KeepChunks)
	assert.Equal(t, 4, opts.ReadAhead)
	assert.Equal(t, 1<<20, opts.MaxLineBytes)
	assert.Equal(t, "standard", opts.Normalizer)
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/data/chunks", "/data/chunks"))
	assert.True(t, within("/data/chunks", "/data/chunks/a.txt"))
	assert.False(t, within("/data/chunks", "/data/chunks2/a.txt"))
	assert.False(t, within("/data/chunks", "/data/out.txt"))
	assert.True(t, within("/data/chunks", filepath.Join("/data/chunks", strings.Repeat("x", 3))))
}
