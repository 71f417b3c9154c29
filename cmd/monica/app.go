package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/monica-chat/monica/internal/advisory"
	"github.com/monica-chat/monica/internal/config"
	"github.com/monica-chat/monica/internal/engine"
	"github.com/monica-chat/monica/internal/log"
	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/remote"
	"github.com/monica-chat/monica/internal/session"
)

// app wires the stores, the engine and the settings together for the CLI.
type app struct {
	userID   string
	remote   *remote.FileStore
	sessions *session.Store
	engine   *engine.Engine
	settings config.Settings
	profile  provider.Profile

	mu          sync.Mutex
	lastVerdict *advisory.Verdict
}

// loadApp builds the full application: settings from files and the remote
// settings document, credentials from the remote store or the environment,
// sessions merged from the remote store, and a connected gateway.
func loadApp(ctx context.Context) (*app, error) {
	store, err := remote.NewFileStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	userID := os.Getenv("MONICA_USER")
	if userID == "" {
		userID = "local"
	}

	settings, err := config.NewLoader().Load()
	if err != nil {
		log.Logger().Warn("settings load failed, using defaults", zap.Error(err))
		settings = config.Default()
	}
	if raw, err := store.LoadSettings(ctx, userID); err == nil && raw != nil {
		settings = config.Apply(settings, raw)
	}

	profile, err := loadProfile(ctx, store, userID)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(store, userID)
	if err := sessions.Load(ctx); err != nil {
		return nil, err
	}

	var gateway provider.Gateway
	if profile.APIKey != "" {
		gateway, err = engine.NewGateway(ctx, profile)
		if err != nil {
			return nil, err
		}
	}

	eng := engine.New(sessions, engine.Options{
		Gateway:     gateway,
		Profile:     profile,
		Settings:    settings,
		WelcomeText: config.Translate(settings.Language, "welcome"),
	})

	return &app{
		userID:   userID,
		remote:   store,
		sessions: sessions,
		engine:   eng,
		settings: settings,
		profile:  profile,
	}, nil
}

// loadProfile resolves the provider credential: the remote store first, then
// the MONICA_API_KEY environment variable. Both use the "groq:" prefix to
// select the Groq backend. A missing credential is not an error here; sends
// will reject until one is set.
func loadProfile(ctx context.Context, creds remote.Credentials, userID string) (provider.Profile, error) {
	stored, err := creds.APIKey(ctx, userID)
	if err != nil {
		return provider.Profile{}, err
	}
	if stored == "" {
		stored = os.Getenv("MONICA_API_KEY")
	}
	if stored == "" {
		return provider.Profile{}, nil
	}
	return provider.ParseStoredKey(stored)
}

// setProfile connects a new provider and persists its credential.
func (a *app) setProfile(ctx context.Context, profile provider.Profile) error {
	if err := a.engine.SetProfile(ctx, profile); err != nil {
		return err
	}
	a.profile = profile

	stored, err := provider.FormatStoredKey(profile)
	if err != nil {
		return err
	}
	if err := a.remote.StoreAPIKey(ctx, a.userID, stored); err != nil {
		log.Logger().Warn("credential persist failed", zap.Error(err))
	}
	return nil
}

// saveSettings pushes the current settings to the engine and persists them
// both locally and in the remote settings document.
func (a *app) saveSettings(ctx context.Context) {
	a.engine.SetSettings(a.settings)

	if err := config.NewLoader().Save(a.settings); err != nil {
		log.Logger().Warn("settings save failed", zap.Error(err))
	}
	raw, err := json.Marshal(a.settings)
	if err == nil {
		if err := a.remote.SaveSettings(ctx, a.userID, raw); err != nil {
			log.Logger().Warn("remote settings save failed", zap.Error(err))
		}
	}
}
