package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/docuchat/docuchat/internal/types"
)

// ErrProviderNotFound is returned when a named provider is not registered.
var ErrProviderNotFound = errors.New("provider not found")

// Registry holds the named AI providers available to the embedding and
// retrieval core. It is populated once at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]types.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]types.Provider)}
}

func (r *Registry) Register(p types.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (types.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Names returns the registered provider names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
