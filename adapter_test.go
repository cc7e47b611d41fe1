package gotmt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stubProvider translates from a fixed dictionary and counts calls.
type stubProvider struct {
	mu           sync.Mutex
	translations map[string]map[string]string // lang -> text -> translation
	fail         map[string]error             // lang -> error
	err          error                        // returned for every call
	delay        time.Duration
	calls        int64
	requests     []TranslateRequest
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		translations: map[string]map[string]string{
			"es": {"Hello": "Hola", "World": "Mundo", "Goodbye": "Adiós"},
			"fr": {"Hello": "Bonjour", "World": "Monde", "Goodbye": "Au revoir"},
			"de": {"Hello": "Hallo", "World": "Welt", "Goodbye": "Auf Wiedersehen"},
		},
		fail: make(map[string]error),
	}
}

func (p *stubProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	atomic.AddInt64(&p.calls, 1)

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.err != nil {
		return nil, p.err
	}

	results := make(map[string]string, len(req.TargetLangs))
	for _, lang := range req.TargetLangs {
		if err, ok := p.fail[lang]; ok {
			return nil, err
		}
		if tr, ok := p.translations[lang][req.Text]; ok {
			results[lang] = tr
		}
	}
	return results, nil
}

func (p *stubProvider) callCount() int {
	return int(atomic.LoadInt64(&p.calls))
}

// mapCache is a simple concurrent map cache for testing.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *mapCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func TestFallbackValue(t *testing.T) {
	if got := FallbackValue("xx", "Hello"); got != "[xx] Hello" {
		t.Errorf("FallbackValue = %q, want %q", got, "[xx] Hello")
	}
}

func TestAdapter_Translate(t *testing.T) {
	p := newStubProvider()
	a := NewAdapter(p)

	tr := a.Translate(context.Background(), "Hello", "es")
	if tr.Err != nil {
		t.Fatalf("unexpected error: %v", tr.Err)
	}
	if tr.Value != "Hola" {
		t.Errorf("Value = %q, want %q", tr.Value, "Hola")
	}
	if tr.Fallback() {
		t.Error("Fallback() should be false on success")
	}

	if p.callCount() != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", p.callCount())
	}
	req := p.requests[0]
	if req.SourceLang != "en" {
		t.Errorf("SourceLang = %q, want en", req.SourceLang)
	}
	if len(req.TargetLangs) != 1 || req.TargetLangs[0] != "es" {
		t.Errorf("TargetLangs = %v, want [es]", req.TargetLangs)
	}
}

func TestAdapter_UnreachableProvider(t *testing.T) {
	p := newStubProvider()
	p.err = errors.New("dial tcp: connection refused")
	a := NewAdapter(p)

	tr := a.Translate(context.Background(), "Hello", "xx")
	if tr.Value != "[xx] Hello" {
		t.Errorf("Value = %q, want %q", tr.Value, "[xx] Hello")
	}
	if !tr.Fallback() {
		t.Error("Fallback() should be true")
	}

	var pErr *ProviderError
	if !errors.As(tr.Err, &pErr) {
		t.Fatalf("expected *ProviderError, got %T", tr.Err)
	}
	if pErr.Kind != KindUnavailable {
		t.Errorf("Kind = %s, want %s", pErr.Kind, KindUnavailable)
	}
	if p.callCount() != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", p.callCount())
	}
}

func TestAdapter_MissingLanguage(t *testing.T) {
	p := newStubProvider()
	a := NewAdapter(p)

	// The stub has no dictionary for "ja", so the result map omits it.
	tr := a.Translate(context.Background(), "Hello", "ja")
	if tr.Value != "[ja] Hello" {
		t.Errorf("Value = %q, want %q", tr.Value, "[ja] Hello")
	}

	var pErr *ProviderError
	if !errors.As(tr.Err, &pErr) || pErr.Kind != KindMalformed {
		t.Errorf("expected malformed provider error, got %v", tr.Err)
	}
}

func TestAdapter_TypedErrorPassesThrough(t *testing.T) {
	p := newStubProvider()
	p.fail["es"] = &ProviderError{Kind: KindRejected, Message: "status 503", StatusCode: 503}
	a := NewAdapter(p)

	tr := a.Translate(context.Background(), "Hello", "es")

	var pErr *ProviderError
	if !errors.As(tr.Err, &pErr) {
		t.Fatalf("expected *ProviderError, got %T", tr.Err)
	}
	if pErr.Kind != KindRejected || pErr.StatusCode != 503 {
		t.Errorf("unexpected provider error: %+v", pErr)
	}
}

func TestAdapter_Timeout(t *testing.T) {
	p := newStubProvider()
	p.delay = time.Second
	a := NewAdapter(p, WithTimeout(20*time.Millisecond))

	start := time.Now()
	tr := a.Translate(context.Background(), "Hello", "es")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}

	if tr.Value != "[es] Hello" {
		t.Errorf("Value = %q, want fallback", tr.Value)
	}
	if !strings.Contains(tr.Err.Error(), "timed out") {
		t.Errorf("expected timeout error, got %v", tr.Err)
	}
}

func TestAdapter_NilProvider(t *testing.T) {
	a := NewAdapter(nil)

	tr := a.Translate(context.Background(), "Hello", "es")
	if tr.Value != "[es] Hello" {
		t.Errorf("Value = %q, want fallback", tr.Value)
	}
}

func TestAdapter_SourceLangOption(t *testing.T) {
	p := newStubProvider()
	a := NewAdapter(p, WithSourceLang("de"))

	if a.SourceLang() != "de" {
		t.Errorf("SourceLang() = %q, want de", a.SourceLang())
	}

	a.Translate(context.Background(), "Hallo", "es")
	if p.requests[0].SourceLang != "de" {
		t.Errorf("provider saw SourceLang %q, want de", p.requests[0].SourceLang)
	}
}
