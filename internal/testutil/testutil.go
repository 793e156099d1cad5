package testutil

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"UniqSort/internal/analysis"
)

// WriteInput writes content to dir/name and returns the path.
func WriteInput(t testing.TB, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// ReadLines returns the lines of the file at path without trailing newlines.
// An empty file yields an empty, non-nil slice.
func ReadLines(t testing.TB, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return SplitLines(string(data))
}

// SplitLines splits newline-terminated text into lines.
func SplitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

// RequireStrictlyAscending fails the test unless every line is greater than
// the one before it.
func RequireStrictlyAscending(t testing.TB, lines []string) {
	t.Helper()
	for i := 1; i < len(lines); i++ {
		require.Less(t, lines[i-1], lines[i], "line %d is not greater than line %d", i+1, i)
	}
}

// ExpectedTokens computes, fully in memory, the sorted distinct tokens the
// pipeline must produce for content.
func ExpectedTokens(content string, tz *analysis.Tokenizer) []string {
	if tz == nil {
		tz = analysis.NewTokenizer(nil, analysis.SplitWord)
	}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		tokens, _ := tz.Split(line)
		for _, tok := range tokens {
			seen[string(tok)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

// RandomCorpus generates lines of words drawn from a vocabulary of vocab
// distinct words, decorated with case changes and punctuation so that
// normalization matters. The same seed gives the same corpus.
func RandomCorpus(seed int64, lines, wordsPerLine, vocab int) string {
	rng := rand.New(rand.NewSource(seed))
	decorations := []string{"", "", ",", ".", "!", "\"", "'s"}

	var sb strings.Builder
	for i := 0; i < lines; i++ {
		for j := 0; j < wordsPerLine; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			w := fmt.Sprintf("w%05d", rng.Intn(vocab))
			if rng.Intn(3) == 0 {
				w = strings.ToUpper(w)
			}
			sb.WriteString(w)
			sb.WriteString(decorations[rng.Intn(len(decorations))])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NullLogger returns a logger that records entries in a hook instead of
// printing them.
func NullLogger() (*logrus.Logger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return l, hook
}

// FailingReader returns data and then fails with Err instead of io.EOF.
type FailingReader struct {
	Data string
	Err  error
	pos  int
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.Data) {
		return 0, r.Err
	}
	n := copy(p, r.Data[r.pos:])
	r.pos += n
	return n, nil
}

// FailingWriter accepts Limit bytes and then fails with Err.
type FailingWriter struct {
	Limit int
	Err   error
	n     int
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.Limit {
		k := w.Limit - w.n
		if k < 0 {
			k = 0
		}
		w.n += k
		return k, w.Err
	}
	w.n += len(p)
	return len(p), nil
}

var _ io.Reader = (*FailingReader)(nil)
var _ io.Writer = (*FailingWriter)(nil)
