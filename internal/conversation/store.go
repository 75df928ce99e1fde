package conversation

import "context"

// StateStore persists dialogue states keyed by the digit-only phone key.
// Get returns NewState() for unknown keys.
type StateStore interface {
	Get(ctx context.Context, key string) (State, error)
	Put(ctx context.Context, key string, st State) error
}

// InMemoryStateStore is a map-backed store for tests.
type InMemoryStateStore struct {
	states map[string]State
}

// NewInMemoryStateStore creates an empty in-memory store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{states: make(map[string]State)}
}

func (s *InMemoryStateStore) Get(_ context.Context, key string) (State, error) {
	if st, ok := s.states[key]; ok {
		return st, nil
	}
	return NewState(), nil
}

func (s *InMemoryStateStore) Put(_ context.Context, key string, st State) error {
	s.states[key] = st
	return nil
}

var _ StateStore = (*InMemoryStateStore)(nil)
