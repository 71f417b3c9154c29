package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Loader handles loading and merging settings from multiple sources.
type Loader struct {
	// userDir is the user-level config directory (e.g., ~/.monica)
	userDir string

	// projectDir is the project-level config directory (e.g., .monica)
	projectDir string
}

// NewLoader creates a settings loader with the default directories.
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		userDir:    filepath.Join(homeDir, ".monica"),
		projectDir: ".monica",
	}
}

// NewLoaderWithDirs creates a loader with custom directories.
func NewLoaderWithDirs(userDir, projectDir string) *Loader {
	return &Loader{userDir: userDir, projectDir: projectDir}
}

// Load merges settings from all sources onto the defaults. Later sources
// override earlier ones; fields absent from a source keep their value.
func (l *Loader) Load() (Settings, error) {
	settings := Default()

	sources := []string{
		filepath.Join(l.userDir, "settings.json"),
		filepath.Join(l.projectDir, "settings.json"),
	}

	for _, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		// Unmarshal onto the accumulated struct: present fields override,
		// absent fields carry forward.
		_ = json.Unmarshal(data, &settings)
	}

	return settings, nil
}

// Apply merges a raw settings document (e.g., the remote store's per-user
// settings) onto the given settings.
func Apply(settings Settings, raw []byte) Settings {
	if len(raw) == 0 {
		return settings
	}
	_ = json.Unmarshal(raw, &settings)
	return settings
}

// Save writes the settings to the user-level settings file.
func (l *Loader) Save(settings Settings) error {
	if err := os.MkdirAll(l.userDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.userDir, "settings.json"), data, 0644)
}
