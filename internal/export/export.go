// Package export produces read-only projections of session state: plain
// text and JSON chat exports, and full backup/restore snapshots.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/monica-chat/monica/internal/config"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/session"
)

// AssistantName labels model messages in the text export.
const AssistantName = "Monica"

// Pair is one exportable (speaker, text) line. Messages without a text part
// are skipped.
type Pair struct {
	Speaker string
	Text    string
}

// Pairs projects a history onto speaker-labelled text lines.
func Pairs(history []message.Message) []Pair {
	pairs := make([]Pair, 0, len(history))
	for _, msg := range history {
		text := msg.Text()
		if text == "" {
			continue
		}
		speaker := AssistantName
		if msg.Role == message.RoleUser {
			speaker = "You"
		}
		pairs = append(pairs, Pair{Speaker: speaker, Text: text})
	}
	return pairs
}

// WriteText writes the plain-text chat export.
func WriteText(w io.Writer, history []message.Message) error {
	if _, err := fmt.Fprint(w, "Monica Chat Export\n===================\n\n"); err != nil {
		return err
	}
	for _, p := range Pairs(history) {
		if _, err := fmt.Fprintf(w, "%s: %s\n\n", p.Speaker, p.Text); err != nil {
			return err
		}
	}
	return nil
}

// ChatExport is the JSON chat export document.
type ChatExport struct {
	ExportDate   time.Time         `json:"exportDate"`
	SessionTitle string            `json:"sessionTitle"`
	ChatHistory  []message.Message `json:"chatHistory"`
}

// WriteJSON writes the JSON chat export for one session.
func WriteJSON(w io.Writer, sess *session.Session, now time.Time) error {
	title := "Untitled"
	if sess.Title != "" {
		title = sess.Title
	}
	doc := ChatExport{
		ExportDate:   now.UTC(),
		SessionTitle: title,
		ChatHistory:  sess.History,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// SnapshotVersion is the backup format version.
const SnapshotVersion = "1.0"

// SessionRecord is one session inside a snapshot.
type SessionRecord struct {
	Title   string            `json:"title"`
	History []message.Message `json:"history"`
}

// Snapshot is the full backup document: every session, the user settings,
// and the stored API key. UserSettings is a pointer so restore can tell a
// snapshot that omits settings from one carrying them.
type Snapshot struct {
	Version      string                   `json:"version"`
	ExportDate   time.Time                `json:"exportDate"`
	AllSessions  map[string]SessionRecord `json:"allSessions"`
	UserSettings *config.Settings         `json:"userSettings,omitempty"`
	APIKey       string                   `json:"apiKey,omitempty"`
}

// NewSnapshot assembles a backup from live state.
func NewSnapshot(sessions []*session.Session, settings config.Settings, apiKey string, now time.Time) Snapshot {
	all := make(map[string]SessionRecord, len(sessions))
	for _, sess := range sessions {
		all[sess.ID] = SessionRecord{Title: sess.Title, History: sess.History}
	}
	return Snapshot{
		Version:      SnapshotVersion,
		ExportDate:   now.UTC(),
		AllSessions:  all,
		UserSettings: &settings,
		APIKey:       apiKey,
	}
}

// WriteSnapshot writes a backup document.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot decodes a backup document. Restore is tolerant: a snapshot
// missing sections restores only what it carries, but a document with no
// recognizable section at all is rejected.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("read backup: %w", err)
	}
	if snap.AllSessions == nil && snap.APIKey == "" && snap.Version == "" {
		return Snapshot{}, fmt.Errorf("read backup: unrecognized format")
	}
	return snap, nil
}
