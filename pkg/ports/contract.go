package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "route-optimizer")
		state.Phase = domain.PhaseResults
		state.Options = domain.ToolOptions{"vehicleType": {"Van", "Truck"}}
		state.FormData = domain.FormData{
			"origin": "Depot 1",
			"stops":  []any{map[string]any{"address": "A"}},
		}
		state.Results = domain.ResultPayload{"totalDistance": 42.0}
		state.Notify(domain.FailureNotice("", "earlier failure"))

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.ToolID, loaded.ToolID)
		assert.Equal(t, domain.PhaseResults, loaded.Phase)
		assert.Equal(t, state.Options, loaded.Options)
		assert.Equal(t, "Depot 1", loaded.FormData["origin"])
		assert.Equal(t, []any{map[string]any{"address": "A"}}, loaded.FormData["stops"])
		assert.Equal(t, 42.0, loaded.Results["totalDistance"])
		assert.Len(t, loaded.Notices, 1)
	})

	t.Run("Load is isolated from later mutation", func(t *testing.T) {
		state := domain.NewState(sessionID, "tool")
		state.FormData["k"] = "before"
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.FormData["k"] = "after"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "before", loaded.FormData["k"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "tool"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "tool"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "tool"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
