package provider

import (
	"context"
	"sync"
)

// MockProvider is an in-process provider for tests and local development.
// Texts without a known translation are left out of the result, which the
// adapter treats as a failure for that language.
type MockProvider struct {
	// Translations maps language code to source text to translation.
	Translations map[string]map[string]string
	// Fail makes every request for a language return the given error.
	Fail map[string]error
	// Err, when set, is returned for every request.
	Err error

	mu          sync.Mutex
	callCount   int
	lastRequest *TranslateRequest
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]map[string]string{
			"es": {"Hello": "Hola", "World": "Mundo", "Hello World": "Hola Mundo", "Goodbye": "Adiós"},
			"fr": {"Hello": "Bonjour", "World": "Monde", "Hello World": "Bonjour le monde", "Goodbye": "Au revoir"},
			"de": {"Hello": "Hallo", "World": "Welt", "Hello World": "Hallo Welt", "Goodbye": "Auf Wiedersehen"},
		},
		Fail: make(map[string]error),
	}
}

// Translate returns mock translations.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) (map[string]string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastRequest = &req
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	results := make(map[string]string, len(req.TargetLangs))
	for _, lang := range req.TargetLangs {
		if err, ok := m.Fail[lang]; ok {
			return nil, err
		}
		if translation, ok := m.Translations[lang][req.Text]; ok {
			results[lang] = translation
		}
	}

	return results, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
