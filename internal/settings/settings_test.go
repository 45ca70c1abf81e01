package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerWithPath(filepath.Join(t.TempDir(), "settings.json"))
	s := m.Get()
	if s.TranslatorType != TranslatorGoogle {
		t.Errorf("translatorType = %q, want google", s.TranslatorType)
	}
	if s.TargetLanguage != "zh-CN" {
		t.Errorf("targetLanguage = %q, want zh-CN", s.TargetLanguage)
	}
}

func TestLoad_UnknownKeysIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
		"translatorType": "llm",
		"llmModel": "gpt-4o-mini",
		"someFutureKey": true,
		"nested": {"ignored": 1}
	}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewManagerWithPath(path)
	s := m.Get()
	if s.TranslatorType != TranslatorLLM {
		t.Errorf("translatorType = %q, want llm", s.TranslatorType)
	}
	if s.LLMModel != "gpt-4o-mini" {
		t.Errorf("llmModel = %q", s.LLMModel)
	}
	// missing keys take defaults
	if s.TargetLanguage != "zh-CN" {
		t.Errorf("targetLanguage = %q, want default", s.TargetLanguage)
	}
}

func TestLoad_InvalidJSONResetsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewManagerWithPath(path)
	if s := m.Get(); s.TranslatorType != TranslatorGoogle {
		t.Errorf("invalid file did not reset to defaults: %+v", s)
	}
}

func TestNormalize_LanguageTag(t *testing.T) {
	s := AppSettings{TargetLanguage: "zh-cn"}.Normalize()
	if s.TargetLanguage != "zh-CN" {
		t.Errorf("canonicalized tag = %q, want zh-CN", s.TargetLanguage)
	}

	// an unparseable tag passes through untouched
	s = AppSettings{TargetLanguage: "not a tag!"}.Normalize()
	if s.TargetLanguage != "not a tag!" {
		t.Errorf("unparseable tag rewritten to %q", s.TargetLanguage)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	m := NewManagerWithPath(path)

	want := AppSettings{
		TranslatorType: TranslatorLLM,
		TargetLanguage: "ja",
		LLMModel:       "gpt-4o-mini",
		LLMAPIToken:    "sk-test",
		LLMBaseURL:     "https://example.invalid/v1",
	}
	if err := m.Set(want); err != nil {
		t.Fatal(err)
	}

	reloaded := NewManagerWithPath(path).Get()
	if reloaded.LLMModel != want.LLMModel || reloaded.TargetLanguage != "ja" {
		t.Errorf("reloaded = %+v", reloaded)
	}
}
