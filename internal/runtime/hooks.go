package runtime

import (
	"context"
	"time"

	"github.com/aretw0/tooldeck/pkg/domain"
)

var timeSince = time.Since

// transition moves the state and reports the move to OnPhaseChange.
func (e *Engine) transition(ctx context.Context, state *domain.State, to domain.Phase) error {
	from := state.Phase
	if err := state.Transition(to); err != nil {
		return err
	}
	e.logger.Debug("phase changed", "tool", state.ToolID, "session_id", state.SessionID, "from", from, "to", to)

	if e.hooks.OnPhaseChange != nil {
		e.hooks.OnPhaseChange(ctx, &domain.PhaseEvent{
			EventBase: e.base(state, domain.EventPhaseChange),
			From:      from,
			To:        to,
		})
	}
	return nil
}

func (e *Engine) base(state *domain.State, typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: state.SessionID,
		ToolID:    state.ToolID,
	}
}
