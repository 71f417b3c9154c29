// Package config provides user settings management. Settings are loaded from
// JSON files with the following priority (lowest to highest):
//  1. ~/.monica/settings.json (user level)
//  2. .monica/settings.json (project level)
//  3. the per-user settings document in the remote store
package config

// Settings represents the user-adjustable generation and UI configuration.
type Settings struct {
	// Temperature is the sampling temperature passed to the provider.
	Temperature float64 `json:"temperature"`

	// MaxTokens caps the provider's reply length.
	MaxTokens int `json:"maxTokens"`

	// SystemPrompt is prepended to every generation request when set.
	SystemPrompt string `json:"systemPrompt,omitempty"`

	// Language selects the locale for canned texts (welcome, placeholders).
	Language string `json:"language"`

	// DarkMode selects the terminal color scheme.
	DarkMode bool `json:"darkMode"`

	// Provider names the active backend kind: "gemini" or "groq".
	Provider string `json:"apiProvider"`
}

// Default returns the settings used before any file or remote document is
// loaded.
func Default() Settings {
	return Settings{
		Temperature: 1.0,
		MaxTokens:   2048,
		Language:    "en",
		DarkMode:    true,
		Provider:    "gemini",
	}
}
