package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/liunuozhi/pdf2zh-app/internal/settings"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

func TestNew_UnknownTranslatorType(t *testing.T) {
	s := settings.Defaults()
	s.TranslatorType = "deepl"
	_, err := New(s, "")
	if err == nil {
		t.Fatal("expected error for unknown translator type")
	}
	pe, ok := err.(*types.PipelineError)
	if !ok || pe.Kind != types.ErrConfigInvalid {
		t.Errorf("got %T %v, want ConfigInvalid", err, err)
	}
}

func TestNew_Google(t *testing.T) {
	tr, err := New(settings.Defaults(), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*GoogleTranslator); !ok {
		t.Errorf("got %T, want *GoogleTranslator", tr)
	}
	if u := tr.Usage(); u != (types.TranslatorUsage{}) {
		t.Errorf("google usage = %+v, want zero", u)
	}
}

func TestNewLLMTranslator_Validation(t *testing.T) {
	s := settings.Defaults()
	s.TranslatorType = settings.TranslatorLLM
	s.LLMProvider = "bedrock"
	s.LLMModel = "gpt-4o-mini"
	if _, err := New(s, ""); err == nil {
		t.Error("expected ConfigInvalid for unknown provider")
	}

	s.LLMProvider = "openai"
	s.LLMModel = ""
	if _, err := New(s, ""); err == nil {
		t.Error("expected ConfigInvalid for missing model")
	}

	s.LLMModel = "gpt-4o-mini"
	tr, err := New(s, "custom prompt")
	if err != nil {
		t.Fatal(err)
	}
	llm := tr.(*LLMTranslator)
	if llm.systemPrompt != "custom prompt" {
		t.Errorf("systemPrompt = %q", llm.systemPrompt)
	}
}

func TestDefaultPromptApplied(t *testing.T) {
	s := settings.Defaults()
	s.LLMModel = "gpt-4o-mini"
	tr, err := NewLLMTranslator(s, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tr.systemPrompt, "professional translator") {
		t.Errorf("default prompt missing: %q", tr.systemPrompt)
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"":       "auto-detect",
		"zh-CN":  "Simplified Chinese",
		"zh-TW":  "Traditional Chinese",
		"ja":     "Japanese",
		"en":     "English",
		"tlh-KL": "tlh-KL", // unknown codes pass through
	}
	for code, want := range cases {
		if got := languageName(code); got != want {
			t.Errorf("languageName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestDecodeGoogleResponse(t *testing.T) {
	body := []byte(`[[["你好","hello",null,null,10],["世界","world",null,null,10]],null,"en"]`)
	got, err := decodeGoogleResponse(body)
	if err != nil {
		t.Fatal(err)
	}
	if got != "你好世界" {
		t.Errorf("decoded = %q", got)
	}
}

func TestDecodeGoogleResponse_Invalid(t *testing.T) {
	if _, err := decodeGoogleResponse([]byte(`{}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
	if _, err := decodeGoogleResponse([]byte(`[]`)); err == nil {
		t.Error("expected error for empty payload")
	}
}

// fakeChatModel echoes the text of the user turn with a marker, counting
// concurrent calls.
type fakeChatModel struct {
	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	calls      int
	emptyReply bool
	failAfter  int
	usage      schema.TokenUsage
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	if f.failAfter > 0 && calls > f.failAfter {
		return nil, errors.New("rate limited")
	}

	content := ""
	if !f.emptyReply {
		user := input[len(input)-1].Content
		idx := strings.LastIndex(user, "\n\n")
		content = "译:" + user[idx+2:]
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     f.usage.PromptTokens,
				CompletionTokens: f.usage.CompletionTokens,
			},
		},
	}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newTestLLM(t *testing.T, fake *fakeChatModel) *LLMTranslator {
	t.Helper()
	s := settings.Defaults()
	s.LLMModel = "test-model"
	s.LLMInputPrice = 1.0  // $1 per 1M prompt tokens
	s.LLMOutputPrice = 2.0 // $2 per 1M completion tokens
	tr, err := NewLLMTranslator(s, "")
	if err != nil {
		t.Fatal(err)
	}
	tr.chat = fake
	return tr
}

// TestTranslateBatch_Shape checks order-preserving 1:1 alignment.
func TestTranslateBatch_Shape(t *testing.T) {
	fake := &fakeChatModel{usage: schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5}}
	tr := newTestLLM(t, fake)

	texts := make([]string, 23)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%02d", i)
	}

	got, err := tr.TranslateBatch(context.Background(), texts, "", "zh-CN")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(texts) {
		t.Fatalf("len = %d, want %d", len(got), len(texts))
	}
	for i, text := range texts {
		if got[i] != "译:"+text {
			t.Errorf("slot %d = %q, want %q", i, got[i], "译:"+text)
		}
	}
	if fake.maxSeen > llmConcurrency {
		t.Errorf("observed %d concurrent calls, cap is %d", fake.maxSeen, llmConcurrency)
	}
}

func TestTranslateBatch_UsageAccumulates(t *testing.T) {
	fake := &fakeChatModel{usage: schema.TokenUsage{PromptTokens: 100, CompletionTokens: 40}}
	tr := newTestLLM(t, fake)

	if _, err := tr.TranslateBatch(context.Background(), []string{"a", "b", "c"}, "en", "ja"); err != nil {
		t.Fatal(err)
	}
	u := tr.Usage()
	if u.InputTokens != 300 || u.OutputTokens != 120 {
		t.Errorf("usage = %+v, want 300/120", u)
	}
	wantCost := 300.0/1e6*1.0 + 120.0/1e6*2.0
	if diff := u.TotalCost - wantCost; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("cost = %v, want %v", u.TotalCost, wantCost)
	}

	// counters reset at the start of the next batch
	if _, err := tr.TranslateBatch(context.Background(), []string{"d"}, "en", "ja"); err != nil {
		t.Fatal(err)
	}
	if u := tr.Usage(); u.InputTokens != 100 {
		t.Errorf("usage after second batch = %+v, want reset to one call", u)
	}
}

func TestTranslate_EmptyReplyKeepsSource(t *testing.T) {
	fake := &fakeChatModel{emptyReply: true}
	tr := newTestLLM(t, fake)

	got, err := tr.Translate(context.Background(), "keep me", "", "zh-CN")
	if err != nil {
		t.Fatal(err)
	}
	if got != "keep me" {
		t.Errorf("got %q, want the source text", got)
	}
}

func TestTranslateBatch_FailurePropagates(t *testing.T) {
	fake := &fakeChatModel{failAfter: 2}
	tr := newTestLLM(t, fake)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "t"
	}
	if _, err := tr.TranslateBatch(context.Background(), texts, "", "zh-CN"); err == nil {
		t.Fatal("expected the batch to fail")
	}
}

func TestTranslateBatch_Empty(t *testing.T) {
	tr := newTestLLM(t, &fakeChatModel{})
	got, err := tr.TranslateBatch(context.Background(), nil, "", "zh-CN")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d results for empty input", len(got))
	}
}
