package message

import (
	"errors"
	"fmt"
)

// ErrInvalidMutation is returned when an edit, delete, or regenerate targets
// an ineligible message. The input history is never modified on error.
var ErrInvalidMutation = errors.New("invalid mutation")

// TruncateForEdit validates that history[index] is an editable user message
// and returns a copy of the history truncated before it. The edited message
// and everything after it are discarded; the caller re-sends the new text as
// a fresh turn.
func TruncateForEdit(history []Message, index int) ([]Message, error) {
	if index < 0 || index >= len(history) {
		return nil, fmt.Errorf("edit index %d out of range: %w", index, ErrInvalidMutation)
	}
	if history[index].Role != RoleUser {
		return nil, fmt.Errorf("edit targets a %s message: %w", history[index].Role, ErrInvalidMutation)
	}
	return truncate(history, index), nil
}

// TruncateForDelete returns a copy of the history with the message at index
// and all subsequent messages removed.
func TruncateForDelete(history []Message, index int) ([]Message, error) {
	if index < 0 || index >= len(history) {
		return nil, fmt.Errorf("delete index %d out of range: %w", index, ErrInvalidMutation)
	}
	return truncate(history, index), nil
}

// TruncateForRegenerate validates that the history ends in a model reply
// preceded by a user message, and returns the history truncated before that
// user message together with its text for re-sending.
func TruncateForRegenerate(history []Message) ([]Message, string, error) {
	n := len(history)
	if n < 2 || history[n-1].Role != RoleModel || history[n-2].Role != RoleUser {
		return nil, "", fmt.Errorf("regenerate requires a trailing user/model pair: %w", ErrInvalidMutation)
	}
	text := history[n-2].Text()
	if text == "" {
		return nil, "", fmt.Errorf("regenerate source has no text: %w", ErrInvalidMutation)
	}
	return truncate(history, n-2), text, nil
}

func truncate(history []Message, index int) []Message {
	head := make([]Message, index)
	copy(head, history[:index])
	return head
}
