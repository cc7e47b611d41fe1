package gotmt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 15 * time.Second

// Provider is the interface for machine-translation backends.
type Provider interface {
	// Translate translates req.Text into every language in req.TargetLangs.
	// A language missing from the returned map counts as a failure for that
	// language only.
	Translate(ctx context.Context, req TranslateRequest) (map[string]string, error)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Text        string
	SourceLang  string
	TargetLangs []string
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Translation is the outcome of a single adapter call. Value is always
// usable; Err records why a fallback value was substituted.
type Translation struct {
	Value string
	Err   error
}

// Fallback reports whether Value is a placeholder.
func (t Translation) Fallback() bool {
	return t.Err != nil
}

// FallbackValue is the placeholder stored when a provider call fails.
func FallbackValue(targetLang, text string) string {
	return fmt.Sprintf("[%s] %s", targetLang, text)
}

// Adapter wraps a Provider so that callers always get a value back.
type Adapter struct {
	provider   Provider
	sourceLang string
	timeout    time.Duration
	logger     *slog.Logger
}

// AdapterOption is a functional option for configuring the Adapter.
type AdapterOption func(*Adapter)

// WithSourceLang sets the language source texts are written in.
func WithSourceLang(lang string) AdapterOption {
	return func(a *Adapter) {
		a.sourceLang = lang
	}
}

// WithTimeout sets the per-call provider timeout.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithAdapterLogger sets the logger used to record provider failures.
func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter creates a new Adapter around the given provider.
func NewAdapter(provider Provider, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		provider:   provider,
		sourceLang: DefaultSourceLang,
		timeout:    DefaultProviderTimeout,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// SourceLang returns the source language.
func (a *Adapter) SourceLang() string {
	return a.sourceLang
}

// Translate translates text into targetLang with exactly one provider call.
// It never fails: on any provider error the result carries the fallback
// value "[targetLang] text" and the error that caused it.
func (a *Adapter) Translate(ctx context.Context, text, targetLang string) Translation {
	value, err := a.call(ctx, text, targetLang)
	if err != nil {
		a.logger.WarnContext(ctx, "provider translation failed, using fallback",
			slog.String("target_lang", targetLang),
			slog.Any("error", err),
		)
		return Translation{Value: FallbackValue(targetLang, text), Err: err}
	}
	return Translation{Value: value}
}

func (a *Adapter) call(ctx context.Context, text, targetLang string) (string, error) {
	if a.provider == nil {
		return "", &ProviderError{Kind: KindUnavailable, Message: "no provider configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results, err := a.provider.Translate(ctx, TranslateRequest{
		Text:        text,
		SourceLang:  a.sourceLang,
		TargetLangs: []string{targetLang},
	})
	if err != nil {
		return "", classify(ctx, err)
	}

	value, ok := results[targetLang]
	if !ok || (strings.TrimSpace(value) == "" && strings.TrimSpace(text) != "") {
		return "", &ProviderError{
			Kind:    KindMalformed,
			Message: fmt.Sprintf("no translation returned for %q", targetLang),
		}
	}

	return value, nil
}

// classify converts an arbitrary provider error into a *ProviderError.
func classify(ctx context.Context, err error) error {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ProviderError{Kind: KindUnavailable, Message: "provider call timed out", Cause: err, Retryable: true}
	}

	return &ProviderError{Kind: KindUnavailable, Message: "provider call failed", Cause: err, Retryable: true}
}
