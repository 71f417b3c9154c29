package config

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales.yaml
var localesYAML []byte

const fallbackLanguage = "en"

var (
	localesOnce sync.Once
	locales     map[string]map[string]string
)

func loadLocales() {
	localesOnce.Do(func() {
		locales = make(map[string]map[string]string)
		_ = yaml.Unmarshal(localesYAML, &locales)
	})
}

// Translate returns the canned text for a key in the given language, falling
// back to English, then to the key itself.
func Translate(lang, key string) string {
	loadLocales()
	if s, ok := locales[lang][key]; ok {
		return s
	}
	if s, ok := locales[fallbackLanguage][key]; ok {
		return s
	}
	return key
}

// Languages returns the set of supported language codes.
func Languages() []string {
	loadLocales()
	out := make([]string, 0, len(locales))
	for lang := range locales {
		out = append(out, lang)
	}
	return out
}
