package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// LoggingHooks writes one structured line per engine event, for audit
// trails. Phase changes log at info, requests at debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, ev *domain.PhaseEvent) {
			logger.InfoContext(ctx, "phase_change",
				"visit", ev.SessionID,
				"tool", ev.ToolID,
				"from", ev.From,
				"to", ev.To,
			)
		},
		OnRequest: func(ctx context.Context, ev *domain.RequestEvent) {
			logger.DebugContext(ctx, "backend_request", "visit", ev.SessionID, "tool", ev.ToolID, "op", ev.Op)
		},
		OnResponse: func(ctx context.Context, ev *domain.RequestEvent) {
			logger.DebugContext(ctx, "backend_response",
				"visit", ev.SessionID,
				"tool", ev.ToolID,
				"op", ev.Op,
				"duration", ev.Duration,
				"is_error", ev.IsError,
				"status", ev.Status,
			)
		},
	}
}
