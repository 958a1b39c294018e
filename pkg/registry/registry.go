package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// TransformFunc defines the signature of a pre-submit transform.
// It receives the validated form values and returns the request body to post.
type TransformFunc func(ctx context.Context, data domain.FormData) (map[string]any, error)

// Registry manages the available pre-submit transforms.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]TransformFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]TransformFunc),
	}
}

// Default returns a registry with the built-in transforms registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(MonthlySales, MonthlySalesTransform)
	return r
}

// Register adds a transform to the registry.
// If a transform with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn TransformFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[name] = fn
}

// Has reports whether a transform is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transforms[name]
	return ok
}

// Names returns the registered transform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a transform by name and applies it.
// Returns an error if the transform is not found.
func (r *Registry) Execute(ctx context.Context, name string, data domain.FormData) (map[string]any, error) {
	r.mu.RLock()
	fn, ok := r.transforms[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("transform not found: %s", name)
	}

	return fn(ctx, data)
}
