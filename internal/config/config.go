// Package config holds the run configuration of uniqsort. Values come from
// defaults, an optional YAML file, UNIQSORT_* environment variables and
// finally command line flags, in that order of precedence.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"UniqSort/internal/analysis"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	LogFormatText = "text"
	LogFormatJSON = "json"

	DefaultPreviewLines = 10

	// Assumed resident cost of one distinct token in the working set,
	// including map overhead.
	bytesPerToken = 64
	// Share of physical memory the working set may use.
	memoryShare = 64

	MinDefaultCapacity = 1_000
	MaxDefaultCapacity = 10_000_000
)

type Config struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	ChunkDir string `yaml:"chunk_dir"`

	// Capacity is the number of distinct tokens per chunk.
	Capacity     int    `yaml:"capacity"`
	Normalizer   string `yaml:"normalizer"`
	SplitMode    string `yaml:"split_mode"`
	FlushWorkers int    `yaml:"flush_workers"`
	ReadAhead    int    `yaml:"read_ahead"`
	// MaxLineBytes bounds one input line. 0 selects the built-in limit.
	MaxLineBytes int    `yaml:"max_line_bytes"`

	KeepChunks   bool `yaml:"keep_chunks"`
	Strict       bool `yaml:"strict"`
	VerifyChunks bool `yaml:"verify_chunks"`
	PreviewLines int  `yaml:"preview_lines"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Capacity:     DefaultCapacity(),
		Normalizer:   string(analysis.FormStandard),
		SplitMode:    string(analysis.SplitWord),
		PreviewLines: DefaultPreviewLines,
		LogLevel:     logrus.InfoLevel.String(),
		LogFormat:    LogFormatText,
	}
}

// DefaultCapacity sizes the working set from the host's physical memory.
func DefaultCapacity() int {
	return capacityFor(memory.TotalMemory())
}

func capacityFor(totalMemory uint64) int {
	c := totalMemory / memoryShare / bytesPerToken
	switch {
	case c < MinDefaultCapacity:
		return MinDefaultCapacity
	case c > MaxDefaultCapacity:
		return MaxDefaultCapacity
	default:
		return int(c)
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config file %s", path)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config file %s", path)
		}
	}
	if err := FromEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}

// Validate checks everything a sort run needs.
func (c Config) Validate() error {
	if c.Input == "" {
		return errors.Wrap(ErrInvalid, "input path is required")
	}
	if c.Output == "" {
		return errors.Wrap(ErrInvalid, "output path is required")
	}
	if c.Capacity <= 0 {
		return errors.Wrapf(ErrInvalid, "capacity must be positive, got %d", c.Capacity)
	}
	if _, err := analysis.NewRegistry().Get(c.Normalizer); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if _, err := analysis.ParseSplitMode(c.SplitMode); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if c.FlushWorkers < 0 {
		return errors.Wrapf(ErrInvalid, "flush_workers must not be negative, got %d", c.FlushWorkers)
	}
	if c.ReadAhead < 0 {
		return errors.Wrapf(ErrInvalid, "read_ahead must not be negative, got %d", c.ReadAhead)
	}
	if c.MaxLineBytes < 0 {
		return errors.Wrapf(ErrInvalid, "max_line_bytes must not be negative, got %d", c.MaxLineBytes)
	}
	return c.ValidateOutput()
}

// ValidateOutput checks the settings shared by every command: logging and
// preview.
func (c Config) ValidateOutput() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return errors.Wrapf(ErrInvalid, "unknown log format %q", c.LogFormat)
	}
	if c.PreviewLines < 0 {
		return errors.Wrapf(ErrInvalid, "preview_lines must not be negative, got %d", c.PreviewLines)
	}
	return nil
}
