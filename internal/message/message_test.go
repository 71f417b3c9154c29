package message

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
		// Characters, not bytes: 4 CJK runes is one token group.
		{"你好世界", 1},
		{"こんにちは", 2},
	}
	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestHistoryTokensSumsPerPart(t *testing.T) {
	// Two 5-char parts each round up independently: 2 + 2, not ceil(10/4).
	history := []Message{
		{Role: RoleUser, Parts: []Part{TextPart("abcde"), TextPart("fghij")}},
	}
	if got := HistoryTokens(history); got != 4 {
		t.Errorf("HistoryTokens() = %d, want 4", got)
	}
}

func TestHistoryTokensSkipsInlineParts(t *testing.T) {
	history := []Message{
		AudioMessage([]byte{1, 2, 3, 4, 5, 6, 7, 8}, "audio/webm"),
	}
	want := EstimateTokens(AudioCaption)
	if got := HistoryTokens(history); got != want {
		t.Errorf("HistoryTokens() = %d, want %d (caption only)", got, want)
	}
}

func TestTextReturnsFirstTextPart(t *testing.T) {
	msg := Message{Role: RoleUser, Parts: []Part{
		InlinePart([]byte{1}, "image/jpeg"),
		TextPart("hello"),
		TextPart("second"),
	}}
	if got := msg.Text(); got != "hello" {
		t.Errorf("Text() = %q, want %q", got, "hello")
	}
}

func TestAudioMessage(t *testing.T) {
	msg := AudioMessage([]byte{1, 2, 3}, "audio/webm")

	if msg.Role != RoleUser {
		t.Errorf("expected user role, got %q", msg.Role)
	}
	if !msg.IsAudio() {
		t.Error("expected IsAudio() = true")
	}
	if msg.Text() != AudioCaption {
		t.Errorf("expected caption %q, got %q", AudioCaption, msg.Text())
	}
	if !msg.HasInline() {
		t.Error("expected HasInline() = true")
	}
}

func TestUserAndModelText(t *testing.T) {
	u := UserText("hi")
	if u.Role != RoleUser || u.Text() != "hi" {
		t.Errorf("UserText: got role %q text %q", u.Role, u.Text())
	}
	m := ModelText("hello")
	if m.Role != RoleModel || m.Text() != "hello" {
		t.Errorf("ModelText: got role %q text %q", m.Role, m.Text())
	}
}
