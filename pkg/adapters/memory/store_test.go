package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tooldeck/pkg/adapters/memory"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("s1", "route-optimizer")
	state.FormData["stops"] = []any{map[string]any{"address": "A"}}
	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	loaded.FormData["stops"].([]any)[0].(map[string]any)["address"] = "B"

	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.FormData["stops"].([]any)[0].(map[string]any)["address"])
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(
		memory.WithTTL(time.Hour),
		memory.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b1:route-optimizer", domain.NewState("b1:route-optimizer", "route-optimizer")))
	require.NoError(t, store.Save(ctx, "b2:route-optimizer", domain.NewState("b2:route-optimizer", "route-optimizer")))

	now = now.Add(30 * time.Minute)
	// Saving again restarts the TTL.
	require.NoError(t, store.Save(ctx, "b2:route-optimizer", domain.NewState("b2:route-optimizer", "route-optimizer")))

	now = now.Add(31 * time.Minute)
	_, err := store.Load(ctx, "b1:route-optimizer")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2:route-optimizer"}, keys)
}
