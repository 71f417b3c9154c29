package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/remote"
)

// Store manages the in-memory session collection and its reconciliation with
// the remote store. It is authoritative during the process lifetime; the
// remote store is authoritative across restarts. Reconciliation is
// last-writer-wins keyed by update time.
type Store struct {
	mu       sync.Mutex
	remote   remote.Store
	userID   string
	sessions map[string]*Session
	current  string
}

// NewStore creates a session store for a user backed by the given remote
// collaborator.
func NewStore(r remote.Store, userID string) *Store {
	return &Store{
		remote:   r,
		userID:   userID,
		sessions: make(map[string]*Session),
	}
}

// Load merges the remote records into the in-memory collection and makes the
// most recently updated session current. With no remote sessions, a fresh one
// is created.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.remote.List(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to list remote sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range records {
		existing, ok := s.sessions[id]
		if ok && existing.LastTouched.After(rec.UpdatedAt) {
			continue // local copy is newer
		}
		s.sessions[id] = &Session{
			ID:          id,
			Title:       rec.Title,
			History:     rec.History,
			LastTouched: rec.UpdatedAt,
		}
	}

	if len(s.sessions) == 0 {
		s.createLocked()
		return nil
	}

	s.current = s.latestTouchedLocked()
	return nil
}

// latestTouchedLocked picks the most recently updated session, falling back
// to newest id on equal update times.
func (s *Store) latestTouchedLocked() string {
	var best string
	for id, sess := range s.sessions {
		if best == "" {
			best = id
			continue
		}
		cur := s.sessions[best]
		if sess.LastTouched.After(cur.LastTouched) ||
			(sess.LastTouched.Equal(cur.LastTouched) && id > best) {
			best = id
		}
	}
	return best
}

// Create generates a fresh session with an empty history and makes it
// current. The previous current session stays in the collection.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked().clone()
}

func (s *Store) createLocked() *Session {
	now := time.Now()
	sess := &Session{
		ID:          NewID(),
		Title:       NewTitle(now),
		LastTouched: now,
	}
	s.sessions[sess.ID] = sess
	s.current = sess.ID
	return sess
}

// currentLocked returns the current session, lazily creating one if the
// store has not been seeded by Load or Create yet.
func (s *Store) currentLocked() *Session {
	if sess, ok := s.sessions[s.current]; ok {
		return sess
	}
	return s.createLocked()
}

// Current returns a snapshot of the current session.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked().clone()
}

// History returns a copy of the current session's message history.
func (s *Store) History() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneHistory(s.currentLocked().History)
}

// SwitchTo makes another session current. A current session with a non-empty
// history is flushed to the remote store first; a flush failure is logged and
// does not block the switch.
func (s *Store) SwitchTo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.current {
		return nil
	}
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("unknown session %q", id)
	}

	if cur, ok := s.sessions[s.current]; ok && len(cur.History) > 0 {
		if err := s.flushLocked(ctx, cur); err != nil {
			log.Logger().Warn("session flush before switch failed",
				zap.String("session", cur.ID), zap.Error(err))
		}
	}

	s.current = id
	return nil
}

// Append pushes a message onto the current session's history. The stored
// message is stamped with its position at creation time and returned.
func (s *Store) Append(msg message.Message) message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked()
	msg.SessionIndex = len(cur.History)
	cur.History = append(cur.History, msg)
	cur.LastTouched = time.Now()
	return msg
}

// TruncateFrom drops all messages at or after index from the current
// session's history.
func (s *Store) TruncateFrom(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked()
	if index < 0 || index > len(cur.History) {
		return
	}
	cur.History = cur.History[:index]
	cur.LastTouched = time.Now()
}

// Delete removes a session from the in-memory and remote collection. When
// the deleted session is current, a fresh empty session takes its place.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("unknown session %q", id)
	}
	delete(s.sessions, id)

	if err := s.remote.Delete(ctx, s.userID, id); err != nil {
		log.Logger().Warn("remote session delete failed",
			zap.String("session", id), zap.Error(err))
	}

	if id == s.current {
		s.createLocked()
	}
	return nil
}

// Flush persists the current session's title and history to the remote
// store. The write is a merge, so concurrent remote fields are preserved.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx, s.currentLocked())
}

func (s *Store) flushLocked(ctx context.Context, sess *Session) error {
	return s.remote.Set(ctx, s.userID, sess.ID, remote.Record{
		Title:   sess.Title,
		History: cloneHistory(sess.History),
	})
}

// List returns session snapshots newest-first. Ids are time-prefixed, so the
// lexicographically descending order is generation order.
func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, id := range s.sortedIDsLocked() {
		out = append(out, s.sessions[id].clone())
	}
	return out
}

func (s *Store) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

func (sess *Session) clone() *Session {
	if sess == nil {
		return nil
	}
	c := *sess
	c.History = cloneHistory(sess.History)
	return &c
}

func cloneHistory(history []message.Message) []message.Message {
	out := make([]message.Message, len(history))
	copy(out, history)
	return out
}
