package merge

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"UniqSort/internal/analysis"
	"UniqSort/internal/chunk"
	"UniqSort/internal/storage"
)

// ErrCorruptChunk is reported when a chunk breaks the sorted, valid-token
// invariant while it is being merged.
var ErrCorruptChunk = errors.New("corrupt chunk")

// tokenSource yields the raw lines of one chunk.
type tokenSource interface {
	next() (analysis.Token, bool)
	err() error
	close() error
}

// Cursor walks the tokens of one chunk in order. A cursor is either
// positioned on a token or exhausted; once Next returns false it stays
// exhausted and Err tells whether it ended cleanly.
type Cursor struct {
	chunk chunk.Chunk
	src   tokenSource
	tok   analysis.Token
	line  int
	err   error
	done  bool
}

// OpenCursor opens c for reading. With readAhead > 0 a goroutine prefetches
// up to readAhead tokens ahead of the consumer.
func OpenCursor(c chunk.Chunk, readAhead int) (*Cursor, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open chunk %s", c.Path)
	}
	var src tokenSource = &scanSource{f: f, sc: storage.NewLineScanner(f, 0)}
	if readAhead > 0 {
		src = newPrefetchSource(src, readAhead)
	}
	return &Cursor{chunk: c, src: src}, nil
}

// Next advances to the next token.
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	tok, ok := c.src.next()
	if !ok {
		c.done = true
		if err := c.src.err(); err != nil {
			c.err = errors.Wrapf(err, "read chunk %s", c.chunk.Path)
		}
		return false
	}
	c.line++
	if !tok.Valid() {
		c.done = true
		c.err = errors.Wrapf(ErrCorruptChunk, "chunk %s line %d: empty token", c.chunk.Path, c.line)
		return false
	}
	if c.line > 1 && tok <= c.tok {
		c.done = true
		c.err = errors.Wrapf(ErrCorruptChunk, "chunk %s line %d: %q after %q", c.chunk.Path, c.line, tok, c.tok)
		return false
	}
	c.tok = tok
	return true
}

// Token returns the current token. Only meaningful after Next returned true.
func (c *Cursor) Token() analysis.Token { return c.tok }

// Err returns the error that ended the cursor, if any.
func (c *Cursor) Err() error { return c.err }

// Chunk returns the chunk being read.
func (c *Cursor) Chunk() chunk.Chunk { return c.chunk }

// Close releases the file handle. It may be called more than once.
func (c *Cursor) Close() error {
	c.done = true
	if c.src == nil {
		return nil
	}
	err := c.src.close()
	c.src = nil
	return err
}

type scanSource struct {
	f  *os.File
	sc *bufio.Scanner
}

func (s *scanSource) next() (analysis.Token, bool) {
	if !s.sc.Scan() {
		return "", false
	}
	return analysis.Token(s.sc.Text()), true
}

func (s *scanSource) err() error { return s.sc.Err() }

func (s *scanSource) close() error { return s.f.Close() }

// prefetchSource reads from inner on its own goroutine. The consumer side is
// not safe for concurrent use; only the producer goroutine touches inner
// until close has waited for it.
type prefetchSource struct {
	inner tokenSource
	ch    chan analysis.Token
	stop  chan struct{}
	g     errgroup.Group
	rerr  error
}

func newPrefetchSource(inner tokenSource, depth int) *prefetchSource {
	p := &prefetchSource{
		inner: inner,
		ch:    make(chan analysis.Token, depth),
		stop:  make(chan struct{}),
	}
	p.g.Go(func() error {
		defer close(p.ch)
		for {
			tok, ok := inner.next()
			if !ok {
				return inner.err()
			}
			select {
			case p.ch <- tok:
			case <-p.stop:
				return nil
			}
		}
	})
	return p
}

func (p *prefetchSource) next() (analysis.Token, bool) {
	tok, ok := <-p.ch
	if !ok {
		p.rerr = p.g.Wait()
		return "", false
	}
	return tok, true
}

func (p *prefetchSource) err() error { return p.rerr }

func (p *prefetchSource) close() error {
	close(p.stop)
	_ = p.g.Wait()
	return p.inner.close()
}
