// Package settings provides local settings file management.
// Settings are stored as a flat JSON key/value document; unknown keys are
// ignored and missing keys take defaults.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/text/language"
)

const (
	// SettingsFileName is the name of the settings file.
	SettingsFileName = "settings.json"

	// TranslatorGoogle selects the free web translator.
	TranslatorGoogle = "google"
	// TranslatorLLM selects the LLM translator.
	TranslatorLLM = "llm"
)

// AppSettings holds the recognized translation options.
type AppSettings struct {
	TranslatorType string `json:"translatorType"`
	TargetLanguage string `json:"targetLanguage"`
	LLMProvider    string `json:"llmProvider"`
	LLMModel       string `json:"llmModel"`
	LLMAPIToken    string `json:"llmApiToken"`
	LLMBaseURL     string `json:"llmBaseUrl"`
	// CustomPrompt overrides the built-in translation system prompt.
	CustomPrompt string `json:"customPrompt"`
	// LLMInputPrice / LLMOutputPrice are USD per 1M tokens, used for cost
	// accounting. Zero leaves the reported cost at zero.
	LLMInputPrice  float64 `json:"llmInputPrice"`
	LLMOutputPrice float64 `json:"llmOutputPrice"`
}

// Defaults returns the settings used when keys are missing.
func Defaults() AppSettings {
	return AppSettings{
		TranslatorType: TranslatorGoogle,
		TargetLanguage: "zh-CN",
	}
}

// Normalize fills missing keys with defaults and canonicalizes the target
// language tag. An unparseable tag is kept verbatim; the translators pass
// unknown codes through.
func (s AppSettings) Normalize() AppSettings {
	d := Defaults()
	if s.TranslatorType == "" {
		s.TranslatorType = d.TranslatorType
	}
	if s.TargetLanguage == "" {
		s.TargetLanguage = d.TargetLanguage
	}
	if tag, err := language.Parse(s.TargetLanguage); err == nil {
		s.TargetLanguage = tag.String()
	}
	return s
}

// Manager manages the local settings file.
type Manager struct {
	filePath string
	settings AppSettings
	mu       sync.RWMutex
}

// NewManager creates a settings manager for settings.json next to the
// executable.
func NewManager() (*Manager, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return NewManagerWithPath(filepath.Join(filepath.Dir(exePath), SettingsFileName)), nil
}

// NewManagerWithPath creates a settings manager with an explicit path.
func NewManagerWithPath(filePath string) *Manager {
	m := &Manager{
		filePath: filePath,
		settings: Defaults(),
	}
	_ = m.Load() // missing file keeps defaults
	return m
}

// Load reads the settings file. A missing file is not an error; invalid JSON
// resets to defaults and reports the parse failure.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.settings = Defaults()
			return nil
		}
		return err
	}

	var s AppSettings
	if err := json.Unmarshal(data, &s); err != nil {
		m.settings = Defaults()
		return err
	}
	m.settings = s.Normalize()
	return nil
}

// Save writes the settings file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.filePath, data, 0600)
}

// Get returns a copy of the current settings.
func (m *Manager) Get() AppSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Set replaces the current settings and saves.
func (m *Manager) Set(s AppSettings) error {
	m.mu.Lock()
	m.settings = s.Normalize()
	m.mu.Unlock()
	return m.Save()
}

// FilePath returns the settings file path.
func (m *Manager) FilePath() string {
	return m.filePath
}
