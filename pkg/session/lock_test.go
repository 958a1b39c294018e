package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/tooldeck/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	return nil
}
func (nopStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, sessionID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, key, &domain.State{})
		_, _ = mgr.Update(ctx, key, func(_ context.Context, s *domain.State) (*domain.State, error) {
			return nil, nil
		})
		_ = mgr.Delete(ctx, key)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}
