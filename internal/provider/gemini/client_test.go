package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
)

// newTestClient points the SDK at a local server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  server.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: server.URL},
	})
	if err != nil {
		t.Fatalf("genai.NewClient() error: %v", err)
	}
	return New(sdk, "gemini-exp-1206")
}

const candidateReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hi there"}]}}]}`

func TestGenerateReturnsFirstCandidateText(t *testing.T) {
	var body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, candidateReply)
	})

	history := []message.Message{
		message.UserText("Hello"),
		message.ModelText("earlier reply"),
		message.UserText("and again"),
	}
	reply, err := client.Generate(context.Background(), history, provider.GenerateOptions{
		Temperature:  0.7,
		MaxTokens:    2048,
		SystemPrompt: "be brief",
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if reply != "Hi there" {
		t.Errorf("expected 'Hi there', got %q", reply)
	}

	for _, want := range []string{`"Hello"`, `"model"`, `"user"`, `"be brief"`, `"maxOutputTokens":2048`} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %s: %s", want, body)
		}
	}
}

func TestGeneratePreservesInlineData(t *testing.T) {
	var body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, candidateReply)
	})

	history := []message.Message{message.AudioMessage([]byte("pcm"), "audio/webm")}
	if _, err := client.Generate(context.Background(), history, provider.GenerateOptions{}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if !strings.Contains(body, "inlineData") {
		t.Errorf("inline payload dropped from request: %s", body)
	}
	if !strings.Contains(body, "audio/webm") {
		t.Errorf("mime type dropped from request: %s", body)
	}
	if !strings.Contains(body, message.AudioCaption) {
		t.Errorf("caption dropped from request: %s", body)
	}
}

func TestGenerateEmptyCandidatesReturnsSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[]}`)
	})

	reply, err := client.Generate(context.Background(), []message.Message{message.UserText("hi")}, provider.GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if reply != provider.NoResponseText {
		t.Errorf("expected sentinel %q, got %q", provider.NoResponseText, reply)
	}
}

func TestGenerateRemoteErrorCarriesEnvelopeMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"rate limited","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := client.Generate(context.Background(), []message.Message{message.UserText("hi")}, provider.GenerateOptions{})
	if err == nil {
		t.Fatal("expected error")
	}

	var gwErr *provider.Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *provider.Error, got %T", err)
	}
	if gwErr.Kind != provider.ErrRemote {
		t.Errorf("expected remote error kind, got %v", gwErr.Kind)
	}
	if gwErr.Error() != "rate limited" {
		t.Errorf("expected envelope message, got %q", gwErr.Error())
	}
}

func TestName(t *testing.T) {
	if (&Client{}).Name() != "gemini" {
		t.Error("unexpected gateway name")
	}
}
