package tooldeck

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/internal/runtime"
	"github.com/aretw0/tooldeck/pkg/adapters/backend"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/ports"
	"github.com/aretw0/tooldeck/pkg/registry"
)

// FormData is re-exported for callers that only import the root package.
type FormData = domain.FormData

// Engine is the high-level entry point for the tooldeck library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime    *runtime.Engine
	backend    ports.Backend
	catalog    *catalog.Catalog
	transforms *registry.Registry
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	clientOpts []backend.Option
}

var _ ports.PageEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithBackend injects a custom Backend, bypassing the HTTP client.
func WithBackend(b ports.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithBackendOptions configures the default HTTP backend client.
func WithBackendOptions(opts ...backend.Option) Option {
	return func(e *Engine) {
		e.clientOpts = append(e.clientOpts, opts...)
	}
}

// WithCatalog replaces the embedded tool catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithTransforms replaces the default pre-submit transform registry.
func WithTransforms(r *registry.Registry) Option {
	return func(e *Engine) {
		e.transforms = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Engine.
// apiBase is the backend base URL; it may be empty when WithBackend is given.
func New(apiBase string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.catalog == nil {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		eng.catalog = cat
	}

	if eng.transforms == nil {
		eng.transforms = registry.Default()
	}
	for _, tool := range eng.catalog.List() {
		if tool.Transform != "" && !eng.transforms.Has(tool.Transform) {
			return nil, fmt.Errorf("tool %s: transform %q is not registered", tool.ID, tool.Transform)
		}
	}

	if eng.backend == nil {
		if apiBase == "" {
			return nil, fmt.Errorf("apiBase is required when no custom backend is provided")
		}
		clientOpts := append([]backend.Option{backend.WithLogger(eng.logger)}, eng.clientOpts...)
		eng.backend = backend.New(apiBase, clientOpts...)
	}

	eng.runtime = runtime.NewEngine(eng.catalog, eng.backend,
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithTransforms(eng.transforms),
	)
	return eng, nil
}

// Mount starts a visit to a tool and fetches its options.
func (e *Engine) Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error) {
	return e.runtime.Mount(ctx, sessionID, toolID)
}

// Submit validates the values and requests the results.
func (e *Engine) Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error) {
	return e.runtime.Submit(ctx, state, values)
}

// Reset discards the results and returns to the form.
func (e *Engine) Reset(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Reset(ctx, state)
}

// Edit applies a repeatable group action to the form draft.
func (e *Engine) Edit(ctx context.Context, state *domain.State, values domain.FormData, action string) (*domain.State, bool, error) {
	return e.runtime.Edit(ctx, state, values, action)
}

// Tools lists the catalog in definition order.
func (e *Engine) Tools() []catalog.Tool {
	return e.catalog.List()
}

// Tool returns a catalog entry by id.
func (e *Engine) Tool(id string) (catalog.Tool, error) {
	return e.catalog.Get(id)
}

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Backend returns the backend the engine talks to.
func (e *Engine) Backend() ports.Backend {
	return e.backend
}
