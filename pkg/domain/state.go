package domain

import (
	"fmt"
	"time"
)

// ToolOptions maps a field name to the ordered values a selection control offers.
// It is supplied by the backend and never mutated after the fetch.
type ToolOptions map[string][]string

// FormData maps a field name to a primitive, a list, or a list of group entries.
type FormData map[string]any

// ResultPayload is the opaque, tool-specific object returned by the backend.
type ResultPayload map[string]any

// State represents the current snapshot of one tool page visit.
type State struct {
	// SessionID identifies the visit (browser session + tool, or an ephemeral id).
	SessionID string `json:"session_id"`

	// ToolID is the catalog identifier of the tool this visit renders.
	ToolID string `json:"tool_id"`

	// Phase selects the branch of the page that renders.
	Phase Phase `json:"phase"`

	// Options holds the backend-supplied selection lists.
	// Empty when the options request failed.
	Options ToolOptions `json:"options"`

	// OptionsFailed records that the options request did not succeed.
	OptionsFailed bool `json:"options_failed,omitempty"`

	// FormData holds the last-submitted values, used as form defaults.
	FormData FormData `json:"form_data"`

	// Results holds the payload of the last successful computation.
	Results ResultPayload `json:"results,omitempty"`

	// Notices are flashed to the user once and then drained.
	Notices []Notice `json:"notices,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state for a tool visit, before any request.
func NewState(sessionID, toolID string) *State {
	return &State{
		SessionID: sessionID,
		ToolID:    toolID,
		Phase:     PhaseInit,
		Options:   ToolOptions{},
		FormData:  FormData{},
		UpdatedAt: time.Now(),
	}
}

// Transition moves the state to the given phase, enforcing the phase machine.
func (s *State) Transition(to Phase) error {
	if !CanTransition(s.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Phase, to)
	}
	s.Phase = to
	s.UpdatedAt = time.Now()
	return nil
}

// Notify appends a notice to be shown on the next render.
func (s *State) Notify(n Notice) {
	s.Notices = append(s.Notices, n)
}

// DrainNotices returns the pending notices and clears them.
func (s *State) DrainNotices() []Notice {
	out := s.Notices
	s.Notices = nil
	return out
}

// Snapshot creates a deep copy of the state.
// Nested lists and group entries inside FormData and Results are copied too.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	cp := *s

	if s.Options != nil {
		cp.Options = make(ToolOptions, len(s.Options))
		for k, v := range s.Options {
			cp.Options[k] = append([]string(nil), v...)
		}
	}
	if s.FormData != nil {
		cp.FormData = FormData(copyMap(s.FormData))
	}
	if s.Results != nil {
		cp.Results = ResultPayload(copyMap(s.Results))
	}
	if s.Notices != nil {
		cp.Notices = append([]Notice(nil), s.Notices...)
	}
	return &cp
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = copyMap(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
