package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/gotmt"
)

// HuggingFace defaults.
const (
	DefaultHFBaseURL   = "https://api-inference.huggingface.co"
	DefaultHFModel     = "facebook/nllb-200-distilled-600M"
	DefaultHFMaxLength = 300
)

const maxResponseBytes = 1 << 20

// HuggingFaceConfig holds configuration for the HuggingFace Inference provider.
type HuggingFaceConfig struct {
	APIKey     string       // Bearer token; requests are sent unauthenticated when empty
	Model      string       // Model id (default: facebook/nllb-200-distilled-600M)
	BaseURL    string       // Inference API base URL
	MaxLength  int          // Generation max_length parameter (default: 300)
	HTTPClient *http.Client // Optional; the adapter bounds each call with a context timeout
}

// HuggingFaceProvider translates with an NLLB model served by the
// HuggingFace Inference API. Language codes are mapped to NLLB codes.
type HuggingFaceProvider struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	maxLength int
}

// NewHuggingFaceProvider creates a new HuggingFace provider.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultHFBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultHFModel
	}

	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultHFMaxLength
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &HuggingFaceProvider{
		client:    client,
		endpoint:  baseURL + "/models/" + model,
		apiKey:    cfg.APIKey,
		maxLength: maxLength,
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	SrcLang   string `json:"src_lang"`
	TgtLang   string `json:"tgt_lang"`
	MaxLength int    `json:"max_length"`
}

type hfTranslation struct {
	TranslationText *string `json:"translation_text"`
}

// Translate sends one inference request per target language. When a single
// language is requested its failure is returned as the error; otherwise
// failed languages are left out of the result.
func (p *HuggingFaceProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = gotmt.DefaultSourceLang
	}
	src, ok := gotmt.NLLBCode(sourceLang)
	if !ok {
		return nil, &gotmt.ProviderError{
			Kind:    gotmt.KindUnsupported,
			Message: fmt.Sprintf("no NLLB code for source language %q", sourceLang),
		}
	}

	results := make(map[string]string, len(req.TargetLangs))
	var firstErr error
	for _, lang := range req.TargetLangs {
		text, err := p.translateOne(ctx, req.Text, src, lang)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results[lang] = text
	}

	if len(results) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (p *HuggingFaceProvider) translateOne(ctx context.Context, text, src, lang string) (string, error) {
	tgt, ok := gotmt.NLLBCode(lang)
	if !ok {
		return "", &gotmt.ProviderError{
			Kind:    gotmt.KindUnsupported,
			Message: fmt.Sprintf("no NLLB code for %q", lang),
		}
	}

	body, err := json.Marshal(hfRequest{
		Inputs: text,
		Parameters: hfParameters{
			SrcLang:   src,
			TgtLang:   tgt,
			MaxLength: p.maxLength,
		},
	})
	if err != nil {
		return "", &gotmt.ProviderError{Kind: gotmt.KindMalformed, Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &gotmt.ProviderError{Kind: gotmt.KindUnavailable, Message: "creating request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", gotmt.UserAgent())
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		msg := "HuggingFace request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "HuggingFace request timed out"
		}
		return "", &gotmt.ProviderError{Kind: gotmt.KindUnavailable, Message: msg, Cause: err, Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &gotmt.ProviderError{Kind: gotmt.KindUnavailable, Message: "reading response", Cause: err, Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &gotmt.ProviderError{
			Kind:       gotmt.KindRejected,
			Message:    fmt.Sprintf("HuggingFace returned %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	return parseHFResponse(respBody)
}

// parseHFResponse accepts either [{"translation_text": ...}] or
// {"translation_text": ...}.
func parseHFResponse(body []byte) (string, error) {
	var list []hfTranslation
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) > 0 && list[0].TranslationText != nil {
			return *list[0].TranslationText, nil
		}
	} else {
		var obj hfTranslation
		if err := json.Unmarshal(body, &obj); err == nil && obj.TranslationText != nil {
			return *obj.TranslationText, nil
		}
	}

	return "", &gotmt.ProviderError{
		Kind:    gotmt.KindMalformed,
		Message: fmt.Sprintf("missing translation_text in response: %s", truncate(string(body), 200)),
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Verify HuggingFaceProvider implements Provider
var _ Provider = (*HuggingFaceProvider)(nil)
