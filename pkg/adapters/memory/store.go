package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// Store keeps visits in process memory. Safe for concurrent use.
// With a TTL, a visit expires that long after its last save, matching the
// redis store; expired visits are dropped lazily on access.
type Store struct {
	mu     sync.RWMutex
	visits map[string]entry
	ttl    time.Duration
	now    func() time.Time
}

type entry struct {
	state     *domain.State
	expiresAt time.Time // zero means never
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires visits ttl after their last save. Zero keeps them.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		visits: make(map[string]entry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a deep copy of the state and restarts its TTL.
func (s *Store) Save(ctx context.Context, key string, state *domain.State) error {
	e := entry{state: state.Snapshot()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.visits[key] = e
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the visit; mutating it does not affect the store.
func (s *Store) Load(ctx context.Context, key string) (*domain.State, error) {
	s.mu.RLock()
	e, ok := s.visits[key]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrSessionNotFound
	}
	return e.state.Snapshot(), nil
}

// Delete removes the visit. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.visits, key)
	s.mu.Unlock()
	return nil
}

// List returns the live visit keys, sorted, pruning expired ones.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.visits))
	for k, e := range s.visits {
		if s.expired(e) {
			delete(s.visits, k)
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
