package remote

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store/Credentials/SettingsStore used by tests
// and as a fallback when no durable store is configured. It applies the same
// merge and soft-delete semantics as the file store.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]map[string]Record // userID -> sessionID -> record
	keys     map[string]string
	settings map[string]json.RawMessage

	// SetErr, when non-nil, is returned by Set. Tests use it to exercise
	// the flush-failure path.
	SetErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]map[string]Record),
		keys:     make(map[string]string),
		settings: make(map[string]json.RawMessage),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID, sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID][sessionID]
	if !ok || rec.Deleted {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Set(_ context.Context, userID, sessionID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SetErr != nil {
		return s.SetErr
	}

	var existing *Record
	if prev, ok := s.records[userID][sessionID]; ok {
		existing = &prev
	}
	merged := merge(existing, rec)
	merged.UpdatedAt = time.Now()

	if s.records[userID] == nil {
		s.records[userID] = make(map[string]Record)
	}
	s.records[userID][sessionID] = merged
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record)
	for id, rec := range s.records[userID] {
		if rec.Deleted {
			continue
		}
		out[id] = rec
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID][sessionID]
	if !ok {
		return nil
	}
	rec.Deleted = true
	rec.UpdatedAt = time.Now()
	s.records[userID][sessionID] = rec
	return nil
}

func (s *MemoryStore) APIKey(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[userID], nil
}

func (s *MemoryStore) StoreAPIKey(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[userID] = key
	return nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, userID string, settings json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[userID] = settings
	return nil
}

func (s *MemoryStore) LoadSettings(_ context.Context, userID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[userID], nil
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ Credentials   = (*MemoryStore)(nil)
	_ SettingsStore = (*MemoryStore)(nil)
)
