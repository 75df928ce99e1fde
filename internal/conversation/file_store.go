package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const stateFileName = "conversation_state.json"

// FileStateStore keeps all states in a single JSON file under the data
// directory. Suitable for a single-process deployment.
type FileStateStore struct {
	mu     sync.Mutex
	path   string
	states map[string]State
}

// NewFileStateStore loads (or initializes) the state file in dataDir.
func NewFileStateStore(dataDir string) (*FileStateStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("conversation: create data dir: %w", err)
	}

	s := &FileStateStore{
		path:   filepath.Join(dataDir, stateFileName),
		states: make(map[string]State),
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("conversation: read state file: %w", err)
	}

	// A corrupt file starts everyone over rather than blocking the bot.
	if err := json.Unmarshal(data, &s.states); err != nil {
		s.states = make(map[string]State)
	}
	return s, nil
}

func (s *FileStateStore) Get(_ context.Context, key string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[key]; ok {
		return st, nil
	}
	return NewState(), nil
}

func (s *FileStateStore) Put(_ context.Context, key string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key] = st
	data, err := json.Marshal(s.states)
	if err != nil {
		return fmt.Errorf("conversation: marshal states: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("conversation: write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("conversation: replace state file: %w", err)
	}
	return nil
}

var _ StateStore = (*FileStateStore)(nil)
