package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const envPrefix = "UNIQSORT_"

// FromEnv overrides cfg with every UNIQSORT_* variable that is set and
// non-empty, e.g. UNIQSORT_CAPACITY or UNIQSORT_KEEP_CHUNKS.
func FromEnv(cfg *Config) error {
	strs := map[string]*string{
		"INPUT":        &cfg.Input,
		"OUTPUT":       &cfg.Output,
		"CHUNK_DIR":    &cfg.ChunkDir,
		"NORMALIZER":   &cfg.Normalizer,
		"SPLIT_MODE":   &cfg.SplitMode,
		"LOG_LEVEL":    &cfg.LogLevel,
		"LOG_FORMAT":   &cfg.LogFormat,
		"METRICS_FILE": &cfg.MetricsFile,
	}
	for name, dst := range strs {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CAPACITY":       &cfg.Capacity,
		"FLUSH_WORKERS":  &cfg.FlushWorkers,
		"READ_AHEAD":     &cfg.ReadAhead,
		"MAX_LINE_BYTES": &cfg.MaxLineBytes,
		"PREVIEW_LINES":  &cfg.PreviewLines,
	}
	for name, dst := range ints {
		if v := os.Getenv(envPrefix + name); v != "" {
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(ErrInvalid, "parse %s%s as int: %v", envPrefix, name, err)
			}
			*dst = asInt
		}
	}

	bools := map[string]*bool{
		"KEEP_CHUNKS":   &cfg.KeepChunks,
		"STRICT":        &cfg.Strict,
		"VERIFY_CHUNKS": &cfg.VerifyChunks,
	}
	for name, dst := range bools {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = enabled(v)
		}
	}
	return nil
}

func enabled(value string) bool {
	switch strings.ToLower(value) {
	case "on", "enabled", "1", "true", "yes":
		return true
	default:
		return false
	}
}
