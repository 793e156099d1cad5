package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"UniqSort/internal/config"
	"UniqSort/internal/metrics"
	"UniqSort/internal/pipeline"
	"UniqSort/internal/preview"
)

// globalOptions are accepted before any command. Unset flags leave the
// value from the config file or environment in place.
type globalOptions struct {
	Config    string  `long:"config" short:"c" description:"YAML configuration file" env:"UNIQSORT_CONFIG"`
	LogLevel  *string `long:"log-level" description:"Log level (trace, debug, info, warn, error)"`
	LogFormat *string `long:"log-format" description:"Log format" choice:"text" choice:"json"`
}

type application struct {
	global globalOptions
	stdout io.Writer
	stderr io.Writer
	logger logrus.FieldLogger
}

// setup loads the configuration, applies the global flags and creates the
// logger.
func (a *application) setup() (config.Config, error) {
	cfg, err := config.Load(a.global.Config)
	if err != nil {
		return cfg, err
	}
	if a.global.LogLevel != nil {
		cfg.LogLevel = *a.global.LogLevel
	}
	if a.global.LogFormat != nil {
		cfg.LogFormat = *a.global.LogFormat
	}
	if err := cfg.ValidateOutput(); err != nil {
		return cfg, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	if err != nil {
		return cfg, err
	}
	a.logger = logger.WithField("version", Version)
	return cfg, nil
}

type sortCommand struct {
	app *application

	Capacity     *int    `long:"capacity" short:"C" description:"Distinct tokens per chunk (default: derived from memory)"`
	ChunkDir     *string `long:"chunk-dir" description:"Directory for chunk files; emptied before the run (default: a temporary directory)"`
	Normalizer   *string `long:"normalizer" description:"Token normalizer" choice:"standard" choice:"nfkc"`
	SplitMode    *string `long:"split" description:"How lines are split into raw tokens" choice:"word" choice:"whitespace"`
	FlushWorkers *int    `long:"flush-workers" description:"Chunks sorted and written in the background (0: inline)"`
	ReadAhead    *int    `long:"read-ahead" description:"Tokens prefetched per chunk during the merge (0: none)"`
	MaxLineBytes *int    `long:"max-line-bytes" description:"Longest accepted input line in bytes (0: 16 MiB)"`
	KeepChunks   *bool   `long:"keep-chunks" description:"Leave chunk files on disk"`
	Strict       *bool   `long:"strict" description:"Exit with status 3 if any input was lost"`
	VerifyChunks *bool   `long:"verify-chunks" description:"Re-read every chunk before merging"`
	MetricsFile  *string `long:"metrics-file" description:"Write Prometheus metrics to this file after the run"`
	Preview      bool    `long:"preview" description:"Print the head of the output (and kept chunks) after the run"`

	Args struct {
		Input  string `positional-arg-name:"input"`
		Output string `positional-arg-name:"output"`
	} `positional-args:"yes"`
}

func (c *sortCommand) Execute(_ []string) error {
	cfg, err := c.app.setup()
	if err != nil {
		return err
	}
	c.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = c.app.logger

	var reg *prometheus.Registry
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		opts.Metrics = metrics.NewMetrics(reg)
	}

	sorter, err := pipeline.NewSorter(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := sorter.Run(ctx, cfg.Input, cfg.Output)

	if reg != nil {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			c.app.logger.WithError(err).WithField("path", cfg.MetricsFile).Warn("write metrics file")
		}
	}
	if runErr != nil && !errors.Is(runErr, pipeline.ErrPartialResult) {
		return runErr
	}

	fmt.Fprintf(c.app.stdout, "%d distinct tokens written to %s (%d chunks, %d duplicates suppressed, %d failures, %s)\n",
		res.Emitted, cfg.Output, res.Chunks, res.Duplicates, res.Report.Len(), res.Checksum)

	if c.Preview {
		paths := []string{cfg.Output}
		if cfg.KeepChunks {
			paths = append(res.ChunkPaths, cfg.Output)
		}
		if _, err := preview.Files(paths, cfg.PreviewLines, c.app.stdout); err != nil {
			return err
		}
	}
	return runErr
}

func (c *sortCommand) apply(cfg *config.Config) {
	if c.Args.Input != "" {
		cfg.Input = c.Args.Input
	}
	if c.Args.Output != "" {
		cfg.Output = c.Args.Output
	}
	setIfNotNil(&cfg.Capacity, c.Capacity)
	setIfNotNil(&cfg.ChunkDir, c.ChunkDir)
	setIfNotNil(&cfg.Normalizer, c.Normalizer)
	setIfNotNil(&cfg.SplitMode, c.SplitMode)
	setIfNotNil(&cfg.FlushWorkers, c.FlushWorkers)
	setIfNotNil(&cfg.ReadAhead, c.ReadAhead)
	setIfNotNil(&cfg.MaxLineBytes, c.MaxLineBytes)
	setIfNotNil(&cfg.KeepChunks, c.KeepChunks)
	setIfNotNil(&cfg.Strict, c.Strict)
	setIfNotNil(&cfg.VerifyChunks, c.VerifyChunks)
	setIfNotNil(&cfg.MetricsFile, c.MetricsFile)
}

type previewCommand struct {
	app *application

	Lines *int `long:"lines" short:"n" description:"Non-blank lines shown per file"`

	Args struct {
		Files []string `positional-arg-name:"path" required:"1" description:"Files, or directories whose files are shown"`
	} `positional-args:"yes"`
}

func (c *previewCommand) Execute(_ []string) error {
	cfg, err := c.app.setup()
	if err != nil {
		return err
	}
	setIfNotNil(&cfg.PreviewLines, c.Lines)
	if err := cfg.ValidateOutput(); err != nil {
		return err
	}

	paths, err := preview.Expand(c.Args.Files)
	if err != nil {
		return err
	}
	sum, err := preview.Files(paths, cfg.PreviewLines, c.app.stdout)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		for _, f := range sum.Files {
			if f.Err != nil {
				c.app.logger.WithError(f.Err).WithField("path", f.Path).Warn("preview skipped file")
			}
		}
		return errors.Errorf("%d of %d files could not be read", sum.Failed, len(sum.Files))
	}
	return nil
}

type versionCommand struct {
	app *application
}

func (c *versionCommand) Execute(_ []string) error {
	_, err := fmt.Fprintln(c.app.stdout, "uniqsort", Version)
	return err
}

func setIfNotNil[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
