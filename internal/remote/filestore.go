package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store, Credentials, and SettingsStore on local JSON
// documents, one file per session record.
//
// Layout: <base>/<userID>/sessions/<sessionID>.json plus credentials.json
// and settings.json at the user level.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file store rooted at ~/.monica/store.
func NewFileStore() (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(homeDir, ".monica", "store"))
}

// NewFileStoreAt creates a file store rooted at the given directory.
func NewFileStoreAt(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Get returns the record for a session, or nil if absent or soft-deleted.
func (s *FileStore) Get(_ context.Context, userID, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.read(userID, sessionID)
	if err != nil || rec == nil || rec.Deleted {
		return nil, err
	}
	return rec, nil
}

// Set merges a record into the stored document and stamps its update time.
func (s *FileStore) Set(_ context.Context, userID, sessionID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(userID, sessionID)
	if err != nil {
		return err
	}

	merged := merge(existing, rec)
	merged.UpdatedAt = time.Now()

	return s.write(userID, sessionID, merged)
}

// List returns all live records for a user keyed by session id.
func (s *FileStore) List(_ context.Context, userID string) (map[string]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.sessionsDir(userID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	records := make(map[string]Record)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := s.read(userID, id)
		if err != nil || rec == nil || rec.Deleted {
			continue // skip invalid and deleted documents
		}
		records[id] = *rec
	}

	return records, nil
}

// Delete marks a session deleted without removing the document.
func (s *FileStore) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(userID, sessionID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	existing.Deleted = true
	existing.UpdatedAt = time.Now()
	return s.write(userID, sessionID, *existing)
}

type credentialsDoc struct {
	APIKey string `json:"apiKey"`
}

// APIKey returns the stored provider key string, or "" when none is set.
func (s *FileStore) APIKey(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.userDir(userID), "credentials.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var doc credentialsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse credentials: %w", err)
	}
	return doc.APIKey, nil
}

// StoreAPIKey persists the provider key string for a user.
func (s *FileStore) StoreAPIKey(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(credentialsDoc{APIKey: key}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "credentials.json"), data, 0600)
}

// SaveSettings persists the user's settings document.
func (s *FileStore) SaveSettings(_ context.Context, userID string, settings json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.json"), settings, 0644)
}

// LoadSettings returns the user's settings document, or nil when absent.
func (s *FileStore) LoadSettings(_ context.Context, userID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.userDir(userID), "settings.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) userDir(userID string) string {
	return filepath.Join(s.baseDir, userID)
}

func (s *FileStore) sessionsDir(userID string) string {
	return filepath.Join(s.userDir(userID), "sessions")
}

func (s *FileStore) read(userID, sessionID string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionsDir(userID), sessionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session document: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session document: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) write(userID, sessionID string, rec Record) error {
	dir := s.sessionsDir(userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session document: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, sessionID+".json"), data, 0644)
}

var (
	_ Store         = (*FileStore)(nil)
	_ Credentials   = (*FileStore)(nil)
	_ SettingsStore = (*FileStore)(nil)
)
