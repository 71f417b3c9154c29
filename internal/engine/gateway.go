package engine

import (
	"context"
	"fmt"

	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/provider/gemini"
	"github.com/monica-chat/monica/internal/provider/groq"
)

// NewGateway constructs the gateway for a profile. The provider set is
// closed, so the switch is exhaustive by construction; an unknown kind is a
// programming error surfaced as a plain error.
func NewGateway(ctx context.Context, profile provider.Profile) (provider.Gateway, error) {
	if profile.APIKey == "" {
		return nil, ErrMissingCredential
	}
	switch profile.Kind {
	case provider.KindGemini:
		return gemini.NewClient(ctx, profile.APIKey, profile.DefaultModel())
	case provider.KindGroq:
		return groq.NewClient(profile.APIKey, profile.DefaultModel()), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", profile.Kind)
	}
}
