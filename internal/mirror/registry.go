package mirror

import (
	"fmt"
	"sync"
)

// Registry maps network names to their metadata source.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds or replaces the source for network.
func (r *Registry) Register(network string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[network] = src
}

// Get retrieves the source for network.
func (r *Registry) Get(network string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[network]
	if !ok {
		return nil, fmt.Errorf("network not supported: %s", network)
	}
	return src, nil
}
