package translator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/settings"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

const (
	// llmConcurrency bounds in-flight completion calls per batch.
	llmConcurrency = 5
	// llmTemperature keeps translations deterministic-ish.
	llmTemperature = float32(0.3)

	// defaultSystemPrompt instructs the model when the caller supplies none.
	defaultSystemPrompt = "You are a professional translator. Translate the following text " +
		"accurately and naturally. Output only the translated text, nothing else. " +
		"Preserve any formatting, numbers, and special characters."

	tokensPerPriceUnit = 1_000_000
)

// LLMTranslator translates batches through a chat-completion model with a
// bounded worker pool and per-batch usage accounting.
type LLMTranslator struct {
	model        string
	apiToken     string
	baseURL      string
	systemPrompt string

	inputPrice  float64 // USD per 1M prompt tokens
	outputPrice float64 // USD per 1M completion tokens

	mu    sync.Mutex
	chat  einomodel.BaseChatModel
	usage types.TranslatorUsage
}

// NewLLMTranslator builds the LLM variant from settings. Only the OpenAI
// chat-completion wire protocol is supported; llmBaseUrl points it at
// compatible providers.
func NewLLMTranslator(s settings.AppSettings, customPrompt string) (*LLMTranslator, error) {
	switch s.LLMProvider {
	case "", "openai":
	default:
		return nil, types.NewError(types.ErrConfigInvalid,
			fmt.Sprintf("unknown LLM provider %q", s.LLMProvider), nil)
	}
	if s.LLMModel == "" {
		return nil, types.NewError(types.ErrConfigInvalid, "llmModel is required for the LLM translator", nil)
	}

	prompt := customPrompt
	if prompt == "" {
		prompt = s.CustomPrompt
	}
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	return &LLMTranslator{
		model:        s.LLMModel,
		apiToken:     s.LLMAPIToken,
		baseURL:      s.LLMBaseURL,
		systemPrompt: prompt,
		inputPrice:   s.LLMInputPrice,
		outputPrice:  s.LLMOutputPrice,
	}, nil
}

// chatModel lazily creates the shared chat model.
func (t *LLMTranslator) chatModel(ctx context.Context) (einomodel.BaseChatModel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.chat != nil {
		return t.chat, nil
	}

	temp := llmTemperature
	cfg := &openai.ChatModelConfig{
		Model:       t.model,
		APIKey:      t.apiToken,
		Temperature: &temp,
	}
	if t.baseURL != "" {
		cfg.BaseURL = t.baseURL
	}

	chat, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, types.NewError(types.ErrTranslationFailed, "failed to create chat model", err)
	}
	t.chat = chat
	return chat, nil
}

// Translate sends one completion. An empty response text returns the input
// unchanged.
func (t *LLMTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	chat, err := t.chatModel(ctx)
	if err != nil {
		return "", err
	}

	user := fmt.Sprintf("Translate from %s to %s:\n\n%s", languageName(from), languageName(to), text)
	resp, err := chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(t.systemPrompt),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", types.NewError(types.ErrTranslationFailed, "completion request failed", err)
	}

	t.recordUsage(resp)

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		logger.Warn("completion returned no text, keeping source",
			logger.String("model", t.model))
		return text, nil
	}
	return content, nil
}

// TranslateBatch drains the input through up to llmConcurrency workers that
// advance a shared cursor and write into distinct result slots, preserving
// index alignment. Usage counters reset at the start of each batch.
func (t *LLMTranslator) TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error) {
	t.mu.Lock()
	t.usage = types.TranslatorUsage{}
	t.mu.Unlock()

	if len(texts) == 0 {
		return nil, nil
	}

	workers := llmConcurrency
	if len(texts) < workers {
		workers = len(texts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]string, len(texts))
	var cursor atomic.Int64
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(texts) || ctx.Err() != nil {
					return
				}
				translated, err := t.Translate(ctx, texts[i], from, to)
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					cancel()
					return
				}
				results[i] = translated
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Usage reports the counters of the most recent batch.
func (t *LLMTranslator) Usage() types.TranslatorUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

func (t *LLMTranslator) recordUsage(resp *schema.Message) {
	if resp == nil || resp.ResponseMeta == nil || resp.ResponseMeta.Usage == nil {
		return
	}
	u := resp.ResponseMeta.Usage

	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.InputTokens += u.PromptTokens
	t.usage.OutputTokens += u.CompletionTokens
	t.usage.TotalCost += float64(u.PromptTokens)/tokensPerPriceUnit*t.inputPrice +
		float64(u.CompletionTokens)/tokensPerPriceUnit*t.outputPrice
}
