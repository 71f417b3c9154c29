// Package engine provides the conversation controller: it orchestrates
// send/edit/delete/regenerate against the session store and the provider
// gateway, and owns the single-flight generation guard.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/monica-chat/monica/internal/config"
	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/message"
	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/session"
)

// State is the process-wide generation state. At most one generation request
// is outstanding across the whole engine, not per session.
type State int32

const (
	StateIdle State = iota
	StateInFlight
)

func (s State) String() string {
	if s == StateInFlight {
		return "in-flight"
	}
	return "idle"
}

var (
	// ErrInFlight is returned when a mutating operation arrives while a
	// generation request is outstanding. No state changes.
	ErrInFlight = errors.New("generation in flight")

	// ErrMissingCredential is returned when no provider API key is set.
	// User-correctable; surfaced as a blocking prompt, not chat content.
	ErrMissingCredential = errors.New("missing provider API key")

	// ErrEmptyMessage is returned when a send carries neither text nor
	// attachments.
	ErrEmptyMessage = errors.New("empty message")
)

// Options configures a new engine.
type Options struct {
	Gateway  provider.Gateway
	Profile  provider.Profile
	Settings config.Settings

	// WelcomeText is appended as a model message when a delete empties the
	// history. Empty disables the welcome message.
	WelcomeText string

	// OnChange, when set, is invoked with a history snapshot after every
	// mutation. It notifies the rendering layer and must not call back
	// into the engine.
	OnChange func(history []message.Message)
}

// Engine is the conversation controller.
type Engine struct {
	mu       sync.Mutex
	state    State
	sessions *session.Store
	gateway  provider.Gateway
	profile  provider.Profile
	settings config.Settings
	welcome  string
	onChange func([]message.Message)
	tokens   int
}

// New creates an engine over a session store.
func New(store *session.Store, opts Options) *Engine {
	e := &Engine{
		sessions: store,
		gateway:  opts.Gateway,
		profile:  opts.Profile,
		settings: opts.Settings,
		welcome:  opts.WelcomeText,
		onChange: opts.OnChange,
	}
	e.tokens = message.HistoryTokens(store.History())
	return e
}

// State returns the current generation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Tokens returns the advisory token estimate for the current history. It is
// recomputed after every append and truncate and is never sent to a provider.
func (e *Engine) Tokens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tokens
}

// History returns a snapshot of the current session's history.
func (e *Engine) History() []message.Message {
	return e.sessions.History()
}

// Settings returns the engine's generation settings.
func (e *Engine) Settings() config.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings replaces the generation settings.
func (e *Engine) SetSettings(settings config.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = settings
}

// Gateway returns the connected gateway, or nil when no credential is set.
func (e *Engine) Gateway() provider.Gateway {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateway
}

// Profile returns the active provider profile.
func (e *Engine) Profile() provider.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// SetProfile switches the active provider. History is not migrated: both
// backends consume the internal message model and translation happens only
// at the gateway boundary. Rejected while a generation is in flight.
func (e *Engine) SetProfile(ctx context.Context, profile provider.Profile) error {
	gw, err := NewGateway(ctx, profile)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateInFlight {
		return ErrInFlight
	}
	e.profile = profile
	e.gateway = gw
	return nil
}

// Send builds a user message from prompt text and optional inline
// attachments and runs a generation turn.
func (e *Engine) Send(ctx context.Context, prompt string, attachments ...message.Part) error {
	return e.run(ctx, func() (message.Message, error) {
		parts := make([]message.Part, 0, len(attachments)+1)
		if strings.TrimSpace(prompt) != "" {
			parts = append(parts, message.TextPart(prompt))
		}
		parts = append(parts, attachments...)
		if len(parts) == 0 {
			return message.Message{}, ErrEmptyMessage
		}
		return message.Message{Role: message.RoleUser, Parts: parts}, nil
	})
}

// SendAudio submits a recorded audio payload with the fixed placeholder
// caption and runs a generation turn.
func (e *Engine) SendAudio(ctx context.Context, data []byte, mimeType string) error {
	return e.run(ctx, func() (message.Message, error) {
		if len(data) == 0 {
			return message.Message{}, ErrEmptyMessage
		}
		return message.AudioMessage(data, mimeType), nil
	})
}

// Edit replaces the user message at index with new text. The edited message
// and everything after it are permanently discarded, then the new text is
// sent as a fresh turn. Valid only for user messages while idle.
func (e *Engine) Edit(ctx context.Context, index int, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return ErrEmptyMessage
	}
	return e.run(ctx, func() (message.Message, error) {
		if _, err := message.TruncateForEdit(e.sessions.History(), index); err != nil {
			return message.Message{}, err
		}
		e.sessions.TruncateFrom(index)
		return message.UserText(newText), nil
	})
}

// Regenerate discards the trailing model reply and re-sends the preceding
// user message's text. Valid only while idle and only when the history ends
// in a user/model pair.
func (e *Engine) Regenerate(ctx context.Context) error {
	return e.run(ctx, func() (message.Message, error) {
		head, text, err := message.TruncateForRegenerate(e.sessions.History())
		if err != nil {
			return message.Message{}, err
		}
		e.sessions.TruncateFrom(len(head))
		return message.UserText(text), nil
	})
}

// Delete removes the message at index and everything after it, then flushes.
// An emptied history receives a welcome message. Valid only while idle.
func (e *Engine) Delete(ctx context.Context, index int) error {
	e.mu.Lock()
	if e.state == StateInFlight {
		e.mu.Unlock()
		return ErrInFlight
	}

	history := e.sessions.History()
	if _, err := message.TruncateForDelete(history, index); err != nil {
		e.mu.Unlock()
		return err
	}

	e.sessions.TruncateFrom(index)
	if index == 0 && e.welcome != "" {
		e.sessions.Append(message.ModelText(e.welcome))
	}
	e.recomputeLocked()
	e.mu.Unlock()

	e.flush(ctx)
	e.notify()
	return nil
}

// NewSession creates and switches to a fresh session. Rejected in flight.
func (e *Engine) NewSession(ctx context.Context) (*session.Session, error) {
	e.mu.Lock()
	if e.state == StateInFlight {
		e.mu.Unlock()
		return nil, ErrInFlight
	}
	sess := e.sessions.Create()
	e.recomputeLocked()
	e.mu.Unlock()

	e.notify()
	return sess, nil
}

// SwitchTo flushes the current session and makes id current. Rejected in
// flight.
func (e *Engine) SwitchTo(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.state == StateInFlight {
		e.mu.Unlock()
		return ErrInFlight
	}
	if err := e.sessions.SwitchTo(ctx, id); err != nil {
		e.mu.Unlock()
		return err
	}
	e.recomputeLocked()
	e.mu.Unlock()

	e.notify()
	return nil
}

// DeleteSession removes a session. Deleting the current session recreates an
// empty one so there is always a current session. Rejected in flight.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.state == StateInFlight {
		e.mu.Unlock()
		return ErrInFlight
	}
	if err := e.sessions.Delete(ctx, id); err != nil {
		e.mu.Unlock()
		return err
	}
	e.recomputeLocked()
	e.mu.Unlock()

	e.notify()
	return nil
}

// Sessions lists all sessions, newest first.
func (e *Engine) Sessions() []*session.Session {
	return e.sessions.List()
}

// run executes one generation turn: prepare and append the user message
// under the single-flight guard, call the gateway with the full history, and
// append the reply. A gateway failure never escapes as a fault: it becomes a
// model message so the session remains a complete record of what was
// attempted.
func (e *Engine) run(ctx context.Context, prepare func() (message.Message, error)) error {
	e.mu.Lock()
	if e.state == StateInFlight {
		e.mu.Unlock()
		return ErrInFlight
	}
	if e.profile.APIKey == "" || e.gateway == nil {
		e.mu.Unlock()
		return ErrMissingCredential
	}

	msg, err := prepare()
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.sessions.Append(msg)
	e.recomputeLocked()
	e.state = StateInFlight

	gw := e.gateway
	history := e.sessions.History()
	opts := provider.GenerateOptions{
		Temperature:  e.settings.Temperature,
		MaxTokens:    e.settings.MaxTokens,
		SystemPrompt: e.settings.SystemPrompt,
	}
	e.mu.Unlock()
	e.notify()

	reply, genErr := gw.Generate(ctx, history, opts)
	if genErr != nil {
		reply = fmt.Sprintf("Error: %s", errText(genErr))
	}

	e.mu.Lock()
	e.sessions.Append(message.ModelText(reply))
	e.recomputeLocked()
	e.state = StateIdle
	e.mu.Unlock()

	e.flush(ctx)
	e.notify()
	return nil
}

// flush persists the current session. Persistence failures are logged and
// swallowed: the in-memory mutation is not rolled back.
func (e *Engine) flush(ctx context.Context) {
	if err := e.sessions.Flush(ctx); err != nil {
		log.Logger().Warn("session flush failed", zap.Error(err))
	}
}

func (e *Engine) recomputeLocked() {
	e.tokens = message.HistoryTokens(e.sessions.History())
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange(e.sessions.History())
	}
}

// errText renders a gateway failure for in-chat display.
func errText(err error) string {
	var gwErr *provider.Error
	if errors.As(err, &gwErr) {
		return gwErr.Error()
	}
	return err.Error()
}
