package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

const (
	googleEndpoint = "https://translate.googleapis.com/translate_a/single"
	// googleCallDelay spaces sequential calls to stay under the free
	// endpoint's rate limits.
	googleCallDelay = 100 * time.Millisecond
	googleTimeout   = 30 * time.Second
)

// GoogleTranslator translates one text at a time through the free web
// endpoint. It carries no usage accounting.
type GoogleTranslator struct {
	client *http.Client
}

// NewGoogleTranslator creates the free web translator.
func NewGoogleTranslator() *GoogleTranslator {
	return &GoogleTranslator{
		client: &http.Client{Timeout: googleTimeout},
	}
}

// Translate translates a single text.
func (g *GoogleTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if from == "" {
		from = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", from)
	q.Set("tl", to)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", types.NewError(types.ErrTranslationFailed, "failed to build translate request", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrTranslationFailed, "translate request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewError(types.ErrTranslationFailed,
			fmt.Sprintf("translate endpoint returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewError(types.ErrTranslationFailed, "failed to read translate response", err)
	}

	translated, err := decodeGoogleResponse(body)
	if err != nil {
		return "", types.NewError(types.ErrTranslationFailed, "failed to decode translate response", err)
	}
	return translated, nil
}

// TranslateBatch translates sequentially with a fixed delay between calls.
func (g *GoogleTranslator) TranslateBatch(ctx context.Context, texts []string, from, to string) ([]string, error) {
	results := make([]string, len(texts))
	for i, text := range texts {
		if i > 0 {
			select {
			case <-time.After(googleCallDelay):
			case <-ctx.Done():
				return nil, types.NewError(types.ErrTranslationFailed, "translation interrupted", ctx.Err())
			}
		}
		translated, err := g.Translate(ctx, text, from, to)
		if err != nil {
			return nil, err
		}
		results[i] = translated
	}
	return results, nil
}

// Usage always reports zero for the free endpoint.
func (g *GoogleTranslator) Usage() types.TranslatorUsage {
	return types.TranslatorUsage{}
}

// decodeGoogleResponse joins the translated segments of the gtx response,
// which is a nested JSON array of [translated, original, ...] rows.
func decodeGoogleResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response payload")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}
