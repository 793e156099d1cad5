package partition

import (
	"slices"

	"github.com/pkg/errors"

	"UniqSort/internal/analysis"
)

const (
	// DefaultCapacity is the number of distinct tokens held before a flush.
	DefaultCapacity = 10_000

	// maxPrealloc caps the initial map size so a huge capacity does not
	// allocate up front for tokens that may never arrive.
	maxPrealloc = 1 << 16
)

var ErrInvalidCapacity = errors.New("working set capacity must be positive")

// WorkingSet accumulates distinct tokens between flushes. Its size never
// exceeds its capacity: Add reports full once the capacity is reached and
// the owner is expected to flush and Reset before adding more.
type WorkingSet struct {
	tokens   map[analysis.Token]struct{}
	capacity int
}

// NewWorkingSet creates an empty set bounded by capacity distinct tokens.
func NewWorkingSet(capacity int) (*WorkingSet, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "got %d", capacity)
	}
	return &WorkingSet{
		tokens:   make(map[analysis.Token]struct{}, min(capacity, maxPrealloc)),
		capacity: capacity,
	}, nil
}

// Add inserts tok if it is not present yet. added reports whether the set
// grew; full reports whether the set has reached its capacity.
// Adding to a full set is a caller bug and panics.
func (ws *WorkingSet) Add(tok analysis.Token) (added, full bool) {
	if _, ok := ws.tokens[tok]; ok {
		return false, ws.IsFull()
	}
	if ws.IsFull() {
		panic("partition: add to a full working set")
	}
	ws.tokens[tok] = struct{}{}
	return true, ws.IsFull()
}

// Len returns the number of distinct tokens held.
func (ws *WorkingSet) Len() int {
	return len(ws.tokens)
}

// Capacity returns the flush threshold.
func (ws *WorkingSet) Capacity() int {
	return ws.capacity
}

// IsFull returns true once the set holds capacity tokens.
func (ws *WorkingSet) IsFull() bool {
	return len(ws.tokens) >= ws.capacity
}

// Sorted returns the tokens in ascending byte order.
func (ws *WorkingSet) Sorted() []analysis.Token {
	out := make([]analysis.Token, 0, len(ws.tokens))
	for tok := range ws.tokens {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

// Drain returns the sorted tokens and leaves the set empty.
func (ws *WorkingSet) Drain() []analysis.Token {
	out := ws.Sorted()
	ws.Reset()
	return out
}

// Reset replaces the contents with an empty set.
func (ws *WorkingSet) Reset() {
	ws.tokens = make(map[analysis.Token]struct{}, min(ws.capacity, maxPrealloc))
}
