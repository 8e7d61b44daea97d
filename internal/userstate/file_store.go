package userstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all user states in a single JSON map file, mirroring the
// original user_states.json layout. It is the fallback used when Redis is
// not configured. Writes go through an atomic rename so a crashed write
// never leaves a truncated file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore writing to <dataDir>/user_states.json.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, "user_states.json")}
}

// Get returns the stored state, or the default state for unknown phones.
func (s *FileStore) Get(ctx context.Context, phone string) (State, error) {
	if err := validatePhone(phone); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.readAll()
	if err != nil {
		return State{}, err
	}
	state, ok := states[phone]
	if !ok {
		return DefaultState(), nil
	}
	if state.Conversation == "" {
		state.Conversation = StateNew
	}
	return state, nil
}

// Save merges the update into the stored state under the store lock, so the
// whole read-merge-write is all-or-nothing per call.
func (s *FileStore) Save(ctx context.Context, phone string, update Update) error {
	if err := validatePhone(phone); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.readAll()
	if err != nil {
		return err
	}

	current, ok := states[phone]
	if !ok {
		current = DefaultState()
	}
	states[phone] = update.apply(current)

	return s.writeAll(states)
}

// Clear resets the phone back to the default state.
func (s *FileStore) Clear(ctx context.Context, phone string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	states, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := states[phone]; !ok {
		return nil
	}
	delete(states, phone)
	return s.writeAll(states)
}

func (s *FileStore) readAll() (map[string]State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]State{}, nil
		}
		return nil, fmt.Errorf("userstate: read states: %w", err)
	}
	if len(data) == 0 {
		return map[string]State{}, nil
	}

	states := map[string]State{}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("userstate: decode states: %w", err)
	}
	return states, nil
}

func (s *FileStore) writeAll(states map[string]State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("userstate: create data dir: %w", err)
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("userstate: encode states: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("userstate: write states: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("userstate: commit states: %w", err)
	}
	return nil
}
