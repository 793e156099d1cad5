package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := Default()
	c.Input = "in.txt"
	c.Output = "out.txt"
	return c
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.GreaterOrEqual(t, c.Capacity, MinDefaultCapacity)
	assert.LessOrEqual(t, c.Capacity, MaxDefaultCapacity)
	assert.Equal(t, "standard", c.Normalizer)
	assert.Equal(t, "word", c.SplitMode)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, LogFormatText, c.LogFormat)
	assert.NoError(t, validConfig().Validate())
}

func TestCapacityFor(t *testing.T) {
	assert.Equal(t, MinDefaultCapacity, capacityFor(0))
	assert.Equal(t, MinDefaultCapacity, capacityFor(1<<20))
	assert.Equal(t, 262_144, capacityFor(1<<30))
	assert.Equal(t, MaxDefaultCapacity, capacityFor(1<<50))
}

func TestParse(t *testing.T) {
	c := Default()
	err := Parse([]byte(`
input: corpus.txt
output: sorted.txt
capacity: 500
split_mode: whitespace
keep_chunks: true
max_line_bytes: 1048576
`), &c)
	require.NoError(t, err)
	assert.Equal(t, "corpus.txt", c.Input)
	assert.Equal(t, "sorted.txt", c.Output)
	assert.Equal(t, 500, c.Capacity)
	assert.Equal(t, "whitespace", c.SplitMode)
	assert.True(t, c.KeepChunks)
	assert.Equal(t, 1<<20, c.MaxLineBytes)
	assert.Equal(t, "standard", c.Normalizer, "unset keys keep their defaults")
}

func TestParse_Empty(t *testing.T) {
	c := Default()
	require.NoError(t, Parse(nil, &c))
	assert.Equal(t, Default(), c)
}

func TestParse_Rejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key": "capcity: 10\n",
		"bad type":    "capacity: lots\n",
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			err := Parse([]byte(doc), &c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uniqsort.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: a.txt\noutput: b.txt\ncapacity: 42\n"), 0644))

	t.Setenv("UNIQSORT_CAPACITY", "7")
	t.Setenv("UNIQSORT_STRICT", "true")
	t.Setenv("UNIQSORT_LOG_FORMAT", "json")
	t.Setenv("UNIQSORT_MAX_LINE_BYTES", "4096")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", c.Input)
	assert.Equal(t, 7, c.Capacity, "environment wins over the file")
	assert.True(t, c.Strict)
	assert.Equal(t, LogFormatJSON, c.LogFormat)
	assert.Equal(t, 4096, c.MaxLineBytes)
	assert.NoError(t, c.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Normalizer, c.Normalizer)
}

func TestFromEnv_BadInt(t *testing.T) {
	t.Setenv("UNIQSORT_FLUSH_WORKERS", "many")
	c := Default()
	err := FromEnv(&c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no input":           func(c *Config) { c.Input = "" },
		"no output":          func(c *Config) { c.Output = "" },
		"zero capacity":      func(c *Config) { c.Capacity = 0 },
		"unknown normalizer": func(c *Config) { c.Normalizer = "soundex" },
		"unknown split":      func(c *Config) { c.SplitMode = "comma" },
		"negative workers":   func(c *Config) { c.FlushWorkers = -1 },
		"negative ahead":     func(c *Config) { c.ReadAhead = -1 },
		"negative max line":  func(c *Config) { c.MaxLineBytes = -1 },
		"bad level":          func(c *Config) { c.LogLevel = "loud" },
		"bad format":         func(c *Config) { c.LogFormat = "xml" },
		"negative preview":   func(c *Config) { c.PreviewLines = -3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}
