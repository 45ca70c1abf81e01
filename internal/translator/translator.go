// Package translator provides the translation backends of the pipeline:
// a free Google web endpoint and an LLM chat-completion variant.
package translator

import (
	"context"
	"fmt"

	"github.com/liunuozhi/pdf2zh-app/internal/settings"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// Translator is the unified translation interface. TranslateBatch preserves
// input order 1:1; Usage is only meaningful after the most recent batch
// completed.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
	TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error)
	Usage() types.TranslatorUsage
}

// New builds a translator from settings. customPrompt overrides the built-in
// system prompt of the LLM variant; when empty, the settings' customPrompt
// applies, and when that is empty too, the built-in default.
func New(s settings.AppSettings, customPrompt string) (Translator, error) {
	switch s.TranslatorType {
	case settings.TranslatorGoogle:
		return NewGoogleTranslator(), nil
	case settings.TranslatorLLM:
		return NewLLMTranslator(s, customPrompt)
	default:
		return nil, types.NewError(types.ErrConfigInvalid,
			fmt.Sprintf("unknown translator type %q", s.TranslatorType), nil)
	}
}

// languageNames expands BCP-47-ish codes into names the LLM prompt uses.
// Unknown codes pass through verbatim.
var languageNames = map[string]string{
	"zh-CN": "Simplified Chinese",
	"zh-TW": "Traditional Chinese",
	"ja":    "Japanese",
	"ko":    "Korean",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"en":    "English",
}

// languageName resolves a code for prompting; the empty source language
// becomes auto-detect.
func languageName(code string) string {
	if code == "" {
		return "auto-detect"
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
