package ports

import (
	"context"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// Backend is the external computation service every tool talks to.
// Failures satisfy errors.Is(err, domain.ErrRequestFailed).
type Backend interface {
	// FetchOptions returns the selectable values for a tool's form.
	FetchOptions(ctx context.Context, toolID string) (domain.ToolOptions, error)

	// Compute posts the request body and returns the result payload.
	Compute(ctx context.Context, toolID string, body any) (domain.ResultPayload, error)
}
