package ports

import (
	"context"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// PageEngine defines the lifecycle of a tool page.
// Adapters (HTTP, MCP, terminal) own the state and pass it in; the engine
// returns the next state and never keeps it.
type PageEngine interface {
	// Mount starts a visit and fetches the tool's options.
	Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error)

	// Submit validates the form values and requests the results.
	Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error)

	// Reset discards the results and returns to the form.
	Reset(ctx context.Context, state *domain.State) (*domain.State, error)
}
