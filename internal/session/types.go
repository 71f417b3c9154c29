// Package session owns the in-memory session collection: one conversation
// thread per session, exactly one current at a time, reconciled with the
// remote store on load and flushed back on mutation boundaries.
package session

import (
	"time"

	"github.com/monica-chat/monica/internal/message"
)

// Session is one independent conversation thread.
type Session struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	History     []message.Message `json:"history"`
	LastTouched time.Time         `json:"lastTouched"`
}

// Tokens returns the advisory token estimate for the session's history.
func (s *Session) Tokens() int {
	return message.HistoryTokens(s.History)
}
