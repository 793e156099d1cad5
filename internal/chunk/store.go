package chunk

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"UniqSort/internal/storage"
)

// Store is the ordered collection of chunks produced by one partition run,
// together with the failures recorded while producing them. It is treated as
// read-only once partitioning returns.
type Store struct {
	mu     sync.Mutex
	chunks []Chunk
	report *Report
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{report: NewReport()}
}

// Add records a successfully written chunk.
func (s *Store) Add(c Chunk) {
	s.mu.Lock()
	s.chunks = append(s.chunks, c)
	s.mu.Unlock()
}

// Chunks returns the chunks ordered by index.
func (s *Store) Chunks() []Chunk {
	s.mu.Lock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Paths returns the chunk file paths ordered by index.
func (s *Store) Paths() []string {
	chunks := s.Chunks()
	paths := make([]string, len(chunks))
	for i, c := range chunks {
		paths[i] = c.Path
	}
	return paths
}

// Len returns the number of chunks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// TotalTokens returns the sum of token counts over all chunks. Tokens that
// occur in more than one chunk are counted once per chunk.
func (s *Store) TotalTokens() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.chunks {
		n += int64(c.Count)
	}
	return n
}

// Report returns the failures recorded while building the store.
func (s *Store) Report() *Report {
	return s.report
}

// Verify checks every chunk with VerifyFile and returns all violations.
func (s *Store) Verify() error {
	var merr *multierror.Error
	for _, c := range s.Chunks() {
		if err := VerifyFile(c); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// Remove deletes all chunk files.
func (s *Store) Remove() error {
	return storage.RemoveFiles(s.Paths())
}
