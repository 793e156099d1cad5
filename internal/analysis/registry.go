package analysis

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Registry manages normalizer instances by name.
type Registry struct {
	normalizers map[string]*Normalizer
	mu          sync.RWMutex
}

// NewRegistry creates a Registry with the built-in forms registered.
func NewRegistry() *Registry {
	r := &Registry{
		normalizers: make(map[string]*Normalizer),
	}
	for _, f := range []Form{FormStandard, FormNFKC} {
		n, _ := NewNormalizer(f)
		_ = r.Register(string(f), n)
	}
	return r
}

// Get returns the normalizer registered under the given name.
func (r *Registry) Get(name string) (*Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.normalizers[name]
	if !ok {
		return nil, errors.Errorf("unknown normalizer: %q (known: %s)", name, strings.Join(r.names(), ", "))
	}
	return n, nil
}

// Register adds a normalizer under a custom name.
func (r *Registry) Register(name string, n *Normalizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.normalizers[name]; exists {
		return errors.Errorf("normalizer already registered: %q", name)
	}
	r.normalizers[name] = n
	return nil
}

// names returns the registered names in sorted order. Callers hold r.mu.
func (r *Registry) names() []string {
	names := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
