package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/gotmt"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using an OpenAI-compatible chat API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL for compatible servers (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates req.Text into every target language with one chat
// completion.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	if len(req.TargetLangs) == 0 {
		return map[string]string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &gotmt.ProviderError{
			Kind:      gotmt.KindMalformed,
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content)
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = gotmt.DefaultSourceLang
	}

	targets := make([]string, len(req.TargetLangs))
	for i, code := range req.TargetLangs {
		targets[i] = fmt.Sprintf("- %s (%s)", code, gotmt.LanguageName(code))
	}

	example := make(map[string]string, len(req.TargetLangs))
	for _, code := range req.TargetLangs {
		example[code] = "..."
	}
	exampleJSON, _ := json.Marshal(map[string]any{"translations": example})

	return fmt.Sprintf(`# Role
You are an expert native translator for software user interface strings.

# Task
Translate the user message from %s into each of these languages:
%s

# Style Guide
- **Natural Flow**: Avoid literal translations. The result must read like native UI copy.
- **Brevity**: Keep the length close to the source; these strings appear in buttons, labels and messages.
- **Interpolation**: Do NOT translate variables or placeholders (e.g., {{name}}, {count}, %%s, $1).
- **Formatting**: Preserve leading and trailing whitespace and newlines.

# Format
Return a valid JSON object with a single key "translations" mapping each language code to its translation.
Example: %s
- Do NOT wrap in Markdown code blocks.`,
		gotmt.LanguageName(sourceLang), strings.Join(targets, "\n"), exampleJSON)
}

func (p *OpenAIProvider) parseResponse(content string) (map[string]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, &gotmt.ProviderError{
			Kind:    gotmt.KindMalformed,
			Message: "invalid response format from OpenAI",
			Cause:   err,
		}
	}

	// Prefer the "translations" key; some models return the map at top level.
	raw := []byte(content)
	if nested, ok := obj["translations"]; ok {
		raw = nested
	}

	var translations map[string]string
	if err := json.Unmarshal(raw, &translations); err != nil {
		return nil, &gotmt.ProviderError{
			Kind:    gotmt.KindMalformed,
			Message: "translations must map language codes to strings",
			Cause:   err,
		}
	}

	return translations, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &gotmt.ProviderError{
			Kind:       gotmt.KindRejected,
			Message:    "OpenAI API call rejected",
			Cause:      err,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  isRetryableStatus(apiErr.HTTPStatusCode),
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &gotmt.ProviderError{
			Kind:       gotmt.KindRejected,
			Message:    "OpenAI request failed",
			Cause:      err,
			StatusCode: reqErr.HTTPStatusCode,
			Retryable:  isRetryableStatus(reqErr.HTTPStatusCode),
		}
	}

	return &gotmt.ProviderError{
		Kind:      gotmt.KindUnavailable,
		Message:   "OpenAI API call failed",
		Cause:     err,
		Retryable: true,
	}
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
