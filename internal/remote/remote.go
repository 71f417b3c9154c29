// Package remote defines the engine's remote collaborators: a per-user
// document store for session records and user settings, and a credential
// store for the provider API key. The engine is authoritative during the
// process lifetime; the remote store is authoritative across restarts.
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/monica-chat/monica/internal/message"
)

// Record is one stored session document.
type Record struct {
	Title     string            `json:"title,omitempty"`
	History   []message.Message `json:"history,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Deleted   bool              `json:"deleted,omitempty"`
}

// Store is the session document store. Set merges into any existing record
// so concurrently written remote fields are preserved; Delete writes a
// soft-delete marker rather than removing the document.
type Store interface {
	// Get returns the record for a session, or nil if absent or deleted.
	Get(ctx context.Context, userID, sessionID string) (*Record, error)

	// Set merges a record into the store and stamps its update time.
	Set(ctx context.Context, userID, sessionID string, rec Record) error

	// List returns all live records for a user keyed by session id.
	List(ctx context.Context, userID string) (map[string]Record, error)

	// Delete marks a session deleted.
	Delete(ctx context.Context, userID, sessionID string) error
}

// Credentials stores the single provider API key string per user. The stored
// string carries a provider prefix when it holds a non-default backend's key.
type Credentials interface {
	APIKey(ctx context.Context, userID string) (string, error)
	StoreAPIKey(ctx context.Context, userID, key string) error
}

// SettingsStore persists the user's settings document alongside sessions.
type SettingsStore interface {
	SaveSettings(ctx context.Context, userID string, settings json.RawMessage) error
	LoadSettings(ctx context.Context, userID string) (json.RawMessage, error)
}

// merge combines an incoming record with the existing one. Zero-valued
// incoming fields keep the stored value, matching the document store's
// merge-write semantics.
func merge(existing *Record, incoming Record) Record {
	if existing == nil {
		return incoming
	}
	merged := *existing
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.History != nil {
		merged.History = incoming.History
	}
	if !incoming.UpdatedAt.IsZero() {
		merged.UpdatedAt = incoming.UpdatedAt
	}
	if incoming.Deleted {
		merged.Deleted = true
	}
	return merged
}
