// Package provider defines the gateway boundary to language-model backends.
// The internal message model is translated into a provider-specific wire
// format only here; nothing behind this boundary mutates session state.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/monica-chat/monica/internal/message"
)

// Kind identifies a language-model backend. The set is closed: exactly two
// providers exist and the factory matches exhaustively.
type Kind string

const (
	KindGemini Kind = "gemini"
	KindGroq   Kind = "groq"
)

// Default model ids, matching the hosted endpoints each kind talks to.
const (
	DefaultGeminiModel = "gemini-exp-1206"
	DefaultGroqModel   = "llama-3.1-8b-instant"
)

// NoResponseText is the sentinel reply substituted when a provider returns an
// empty or missing reply field. An empty reply deliberately counts as success
// rather than an error; this lenient behavior is preserved from the product.
const NoResponseText = "No response from model."

// Profile selects a backend and the credentials to reach it.
type Profile struct {
	Kind   Kind
	APIKey string
	Model  string
}

// DefaultModel returns the model id to use when the profile leaves it empty.
func (p Profile) DefaultModel() string {
	if p.Model != "" {
		return p.Model
	}
	if p.Kind == KindGroq {
		return DefaultGroqModel
	}
	return DefaultGeminiModel
}

// GenerateOptions carries per-request generation parameters.
type GenerateOptions struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Gateway executes one atomic generation exchange against a backend. It is
// pure translation plus I/O: the history is serialized into the provider's
// wire format and the first reply text is returned.
type Gateway interface {
	Generate(ctx context.Context, history []message.Message, opts GenerateOptions) (string, error)
	Name() string
}

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// ErrRemote means the provider rejected the request (non-2xx response).
	ErrRemote ErrorKind = iota
	// ErrTransport means the request never produced a provider response.
	ErrTransport
)

// Error is a normalized gateway failure. Message holds the provider's error
// envelope message when one was present, else the HTTP status text.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "gateway error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RemoteError wraps a provider rejection.
func RemoteError(msg string, err error) *Error {
	return &Error{Kind: ErrRemote, Message: msg, Err: err}
}

// TransportError wraps a network-level failure.
func TransportError(err error) *Error {
	return &Error{Kind: ErrTransport, Err: err}
}

// groqKeyPrefix disambiguates provider kind when a single stored string
// carries the credential for either backend.
const groqKeyPrefix = "groq:"

// ParseStoredKey splits a stored credential string into a profile. Keys
// prefixed with "groq:" select the Groq backend; everything else is Gemini.
func ParseStoredKey(stored string) (Profile, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return Profile{}, errors.New("no stored API key")
	}
	if key, ok := strings.CutPrefix(stored, groqKeyPrefix); ok {
		return Profile{Kind: KindGroq, APIKey: key}, nil
	}
	return Profile{Kind: KindGemini, APIKey: stored}, nil
}

// FormatStoredKey renders a profile's credential into the single stored
// string form.
func FormatStoredKey(p Profile) (string, error) {
	switch p.Kind {
	case KindGemini:
		return p.APIKey, nil
	case KindGroq:
		return groqKeyPrefix + p.APIKey, nil
	default:
		return "", fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}
