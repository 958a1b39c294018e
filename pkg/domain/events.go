package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPhaseChange EventType = "phase_change"
	EventRequest     EventType = "request"
	EventResponse    EventType = "response"
)

// RequestOp names one of the two backend calls of a page cycle.
type RequestOp string

const (
	OpFetchOptions RequestOp = "options"
	OpFetchResults RequestOp = "results"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	ToolID    string    `json:"tool_id"`
}

// PhaseEvent represents a move of the phase machine.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// RequestEvent represents an outbound backend call and, on return, its outcome.
type RequestEvent struct {
	EventBase
	Op       RequestOp     `json:"op"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Status   int           `json:"status,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPhaseChange func(context.Context, *PhaseEvent)
	OnRequest     func(context.Context, *RequestEvent)
	OnResponse    func(context.Context, *RequestEvent)
}

// ChainHooks fans each event out to every non-nil callback, in order.
func ChainHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, ev *PhaseEvent) {
			for _, h := range hooks {
				if h.OnPhaseChange != nil {
					h.OnPhaseChange(ctx, ev)
				}
			}
		},
		OnRequest: func(ctx context.Context, ev *RequestEvent) {
			for _, h := range hooks {
				if h.OnRequest != nil {
					h.OnRequest(ctx, ev)
				}
			}
		},
		OnResponse: func(ctx context.Context, ev *RequestEvent) {
			for _, h := range hooks {
				if h.OnResponse != nil {
					h.OnResponse(ctx, ev)
				}
			}
		},
	}
}
