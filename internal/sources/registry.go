package sources

import (
	"strings"
	"sync"
)

// Registry maps source identifiers to implementations. It is filled at
// start-up and read by every search.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	order   []string
}

func NewRegistry(list ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range list {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(s Source) error {
	name := strings.ToLower(s.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return NewSourceError(name, ErrDuplicateSource)
	}
	r.sources[name] = s
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[strings.ToLower(name)]
	return s, ok
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Resolve maps requested ids to sources. An empty request means every
// registered source. Duplicate ids are collapsed.
func (r *Registry) Resolve(ids []string) (found []Source, unknown []string) {
	if len(ids) == 0 {
		ids = r.Names()
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := strings.ToLower(strings.TrimSpace(id))
		if seen[key] {
			continue
		}
		seen[key] = true

		if s, ok := r.Get(key); ok {
			found = append(found, s)
		} else {
			unknown = append(unknown, id)
		}
	}
	return found, unknown
}

// Supporting lists the registered sources declaring capability c.
func (r *Registry) Supporting(c Capability) []Source {
	var out []Source
	for _, name := range r.Names() {
		s, _ := r.Get(name)
		if Supports(s, c) {
			out = append(out, s)
		}
	}
	return out
}
