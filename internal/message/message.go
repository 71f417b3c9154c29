// Package message defines the canonical message types and utilities used across the codebase.
// All packages import from here to avoid circular dependencies.
package message

import (
	"strings"
	"unicode/utf8"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// AudioCaption is the fixed placeholder text carried alongside an inline
// audio payload so that text-only provider paths keep a complete turn.
const AudioCaption = "Audio message submitted."

// Blob carries an inline binary payload. Data marshals to base64 in JSON.
type Blob struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Part is one unit of message content: either text or an inline payload.
// Exactly one of the fields is set.
type Part struct {
	Text   string `json:"text,omitempty"`
	Inline *Blob  `json:"inlineData,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart creates an inline binary part.
func InlinePart(data []byte, mimeType string) Part {
	return Part{Inline: &Blob{Data: data, MIMEType: mimeType}}
}

// Message represents a chat message exchanged between user and model.
// SessionIndex is the position in the owning session's history at creation
// time. It is not stable across edit/delete and is a render hint only.
type Message struct {
	Role         Role   `json:"role"`
	Parts        []Part `json:"parts"`
	SessionIndex int    `json:"sessionIndex,omitempty"`
}

// UserText creates a user message with a single text part.
func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// ModelText creates a model message with a single text part.
func ModelText(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{TextPart(text)}}
}

// AudioMessage creates a user message carrying an inline audio payload
// followed by the fixed placeholder caption.
func AudioMessage(data []byte, mimeType string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{InlinePart(data, mimeType), TextPart(AudioCaption)},
	}
}

// Text returns the first text part of the message, or "" if none exists.
func (m Message) Text() string {
	for _, p := range m.Parts {
		if p.Inline == nil && p.Text != "" {
			return p.Text
		}
	}
	return ""
}

// HasInline reports whether the message carries any inline payload.
func (m Message) HasInline() bool {
	for _, p := range m.Parts {
		if p.Inline != nil {
			return true
		}
	}
	return false
}

// IsAudio reports whether the message is an audio submission: a user message
// with an inline payload captioned with the fixed audio placeholder.
func (m Message) IsAudio() bool {
	return m.Role == RoleUser && m.HasInline() && strings.Contains(m.Text(), AudioCaption)
}

// EstimateTokens returns the advisory token estimate for a text:
// ceil(characters / 4). Characters, not bytes, so multi-byte scripts
// are not inflated. This is UI state only, never sent to a provider.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// HistoryTokens sums the token estimate over every text part in the history.
func HistoryTokens(history []Message) int {
	total := 0
	for _, m := range history {
		for _, p := range m.Parts {
			if p.Inline == nil && p.Text != "" {
				total += EstimateTokens(p.Text)
			}
		}
	}
	return total
}
