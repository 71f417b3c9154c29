package message

import (
	"errors"
	"testing"
)

func sampleHistory() []Message {
	return []Message{
		UserText("first question"),
		ModelText("first answer"),
		UserText("second question"),
		ModelText("second answer"),
	}
}

func TestTruncateForEdit(t *testing.T) {
	history := sampleHistory()

	head, err := TruncateForEdit(history, 2)
	if err != nil {
		t.Fatalf("TruncateForEdit() error: %v", err)
	}
	if len(head) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(head))
	}
	if head[0].Text() != "first question" || head[1].Text() != "first answer" {
		t.Errorf("head messages changed: %q, %q", head[0].Text(), head[1].Text())
	}
	// Input must be untouched.
	if len(history) != 4 {
		t.Errorf("input history mutated: len %d", len(history))
	}
}

func TestTruncateForEditRejectsModelMessage(t *testing.T) {
	_, err := TruncateForEdit(sampleHistory(), 1)
	if !errors.Is(err, ErrInvalidMutation) {
		t.Errorf("expected ErrInvalidMutation, got %v", err)
	}
}

func TestTruncateForEditRejectsOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, 4, 100} {
		if _, err := TruncateForEdit(sampleHistory(), idx); !errors.Is(err, ErrInvalidMutation) {
			t.Errorf("index %d: expected ErrInvalidMutation, got %v", idx, err)
		}
	}
}

func TestTruncateForDelete(t *testing.T) {
	head, err := TruncateForDelete(sampleHistory(), 1)
	if err != nil {
		t.Fatalf("TruncateForDelete() error: %v", err)
	}
	if len(head) != 1 {
		t.Fatalf("expected 1 message, got %d", len(head))
	}
	if head[0].Text() != "first question" {
		t.Errorf("unexpected remaining message %q", head[0].Text())
	}
}

func TestTruncateForDeleteAtZeroEmptiesHistory(t *testing.T) {
	head, err := TruncateForDelete(sampleHistory(), 0)
	if err != nil {
		t.Fatalf("TruncateForDelete() error: %v", err)
	}
	if len(head) != 0 {
		t.Errorf("expected empty history, got %d messages", len(head))
	}
}

func TestTruncateForRegenerate(t *testing.T) {
	head, text, err := TruncateForRegenerate(sampleHistory())
	if err != nil {
		t.Fatalf("TruncateForRegenerate() error: %v", err)
	}
	if text != "second question" {
		t.Errorf("expected re-send text 'second question', got %q", text)
	}
	if len(head) != 2 {
		t.Errorf("expected 2 messages before the pair, got %d", len(head))
	}
}

func TestTruncateForRegenerateRequiresTrailingPair(t *testing.T) {
	cases := [][]Message{
		nil,
		{UserText("only user")},
		{UserText("q"), ModelText("a"), UserText("pending")},
		{ModelText("a"), ModelText("b")},
	}
	for i, history := range cases {
		if _, _, err := TruncateForRegenerate(history); !errors.Is(err, ErrInvalidMutation) {
			t.Errorf("case %d: expected ErrInvalidMutation, got %v", i, err)
		}
	}
}
