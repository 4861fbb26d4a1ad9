package cloud

import (
	"slices"
	"sync"
)

// Registry is the set of active point cloud sources, in registration order.
// It holds non-owning references; sources unregister themselves on deactivation.
type Registry struct {
	mu      sync.RWMutex
	sources []*Source
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds src if it is not already present.
func (r *Registry) Register(src *Source) {
	if src == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.sources, src) {
		return
	}
	r.sources = append(r.sources, src)
}

// Unregister removes src. Unknown sources are ignored.
func (r *Registry) Unregister(src *Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := slices.Index(r.sources, src)
	if idx < 0 {
		return
	}
	r.sources = slices.Delete(r.sources, idx, idx+1)
}

// Snapshot returns the current sources. Later registration changes never
// affect a returned snapshot.
func (r *Registry) Snapshot() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sources)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

func (r *Registry) Contains(src *Source) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.sources, src)
}
