package gotmt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultParallelism is the number of languages translated concurrently.
const DefaultParallelism = 4

// Outcome is the result of a fan-out for one target language.
type Outcome struct {
	Value    string // Translated text or fallback placeholder
	Cached   bool   // Served from the cache
	Fallback bool   // Value is a "[code] text" placeholder
	Err      error  // Provider failure behind a fresh fallback
}

// FanoutResult maps every requested target language to its outcome.
type FanoutResult map[string]Outcome

// Values returns the translated value per language.
func (r FanoutResult) Values() map[string]string {
	values := make(map[string]string, len(r))
	for lang, outcome := range r {
		values[lang] = outcome.Value
	}
	return values
}

// Failed returns the sorted languages that ended up with a fallback value.
func (r FanoutResult) Failed() []string {
	var failed []string
	for lang, outcome := range r {
		if outcome.Fallback {
			failed = append(failed, lang)
		}
	}
	sort.Strings(failed)
	return failed
}

// FanoutStats summarizes where the values of a fan-out came from.
type FanoutStats struct {
	Total      int
	Cached     int
	Translated int
	Fallbacks  int
}

// Stats returns summary statistics for the result.
func (r FanoutResult) Stats() FanoutStats {
	stats := FanoutStats{Total: len(r)}
	for _, outcome := range r {
		switch {
		case outcome.Cached:
			stats.Cached++
		case outcome.Err == nil:
			stats.Translated++
		}
		if outcome.Fallback {
			stats.Fallbacks++
		}
	}
	return stats
}

// Orchestrator produces one value per target language for a source text,
// consulting the cache first and the adapter on a miss.
type Orchestrator struct {
	adapter     *Adapter
	cache       TranslationCache
	parallelism int
	pool        *ants.Pool
	inflight    singleflight.Group
	logger      *slog.Logger
}

// OrchestratorOption is a functional option for configuring the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithParallelism sets how many languages are translated at once.
// Values below 2 make the fan-out sequential.
func WithParallelism(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.parallelism = n
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an Orchestrator. Call Close to release its worker pool.
func NewOrchestrator(adapter *Adapter, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		adapter:     adapter,
		parallelism: DefaultParallelism,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.parallelism > 1 {
		pool, err := ants.NewPool(o.parallelism)
		if err != nil {
			return nil, fmt.Errorf("creating fan-out pool: %w", err)
		}
		o.pool = pool
	}

	return o, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// SourceLang returns the language source texts are written in.
func (o *Orchestrator) SourceLang() string {
	return o.adapter.SourceLang()
}

type fanoutOptions struct {
	skipCachedFallbacks bool
}

// FanoutOption tunes a single Fanout call.
type FanoutOption func(*fanoutOptions)

// SkipCachedFallbacks makes cached placeholder values count as misses, so
// languages that failed earlier are retried. Real cached translations are
// still used.
func SkipCachedFallbacks() FanoutOption {
	return func(o *fanoutOptions) {
		o.skipCachedFallbacks = true
	}
}

// Fanout translates text into every language in targetLangs. Duplicate and
// empty codes are ignored. The result always holds exactly one outcome per
// remaining code; a failing language never affects the others.
func (o *Orchestrator) Fanout(ctx context.Context, text string, targetLangs []string, opts ...FanoutOption) FanoutResult {
	var fo fanoutOptions
	for _, opt := range opts {
		opt(&fo)
	}

	targets := uniqueTargets(targetLangs)
	outcomes := make([]Outcome, len(targets))

	var wg sync.WaitGroup
	for i, lang := range targets {
		task := func() {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome{
						Value:    FallbackValue(lang, text),
						Fallback: true,
						Err:      fmt.Errorf("fan-out worker panic: %v", r),
					}
				}
			}()
			outcomes[i] = o.resolve(ctx, text, lang, fo)
		}

		if o.pool == nil || len(targets) == 1 {
			task()
			continue
		}

		wg.Add(1)
		if err := o.pool.Submit(func() {
			defer wg.Done()
			task()
		}); err != nil {
			wg.Done()
			task()
		}
	}
	wg.Wait()

	result := make(FanoutResult, len(targets))
	for i, lang := range targets {
		result[lang] = outcomes[i]
	}

	stats := result.Stats()
	o.logger.DebugContext(ctx, "fan-out complete",
		slog.Int("languages", stats.Total),
		slog.Int("cached", stats.Cached),
		slog.Int("translated", stats.Translated),
		slog.Int("fallbacks", stats.Fallbacks),
	)

	return result
}

// resolve produces the outcome for a single language.
func (o *Orchestrator) resolve(ctx context.Context, text, lang string, fo fanoutOptions) Outcome {
	if lang == o.adapter.SourceLang() {
		return Outcome{Value: text}
	}

	key := CacheKey(text, lang)
	fallback := FallbackValue(lang, text)

	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			isFallback := cached == fallback
			if !isFallback || !fo.skipCachedFallbacks {
				return Outcome{Value: cached, Cached: true, Fallback: isFallback}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return cancelledOutcome(lang, text, err)
	}

	// Concurrent misses for the same key share one provider call. The call
	// outlives any single caller and is bounded by the adapter timeout.
	ch := o.inflight.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		tr := o.adapter.Translate(callCtx, text, lang)
		if o.cache != nil && !errors.Is(tr.Err, context.Canceled) {
			if err := o.cache.Set(key, tr.Value); err != nil {
				o.logger.WarnContext(callCtx, "cache set failed",
					slog.String("target_lang", lang),
					slog.Any("error", err),
				)
			}
		}
		return tr, nil
	})

	select {
	case res := <-ch:
		tr := res.Val.(Translation)
		return Outcome{Value: tr.Value, Fallback: tr.Fallback(), Err: tr.Err}
	case <-ctx.Done():
		return cancelledOutcome(lang, text, ctx.Err())
	}
}

// cancelledOutcome is the placeholder for a caller that gave up. It is never
// cached.
func cancelledOutcome(lang, text string, err error) Outcome {
	return Outcome{
		Value:    FallbackValue(lang, text),
		Fallback: true,
		Err:      &ProviderError{Kind: KindUnavailable, Message: "fan-out cancelled", Cause: err},
	}
}

// uniqueTargets drops empty and duplicate codes, preserving first-seen order.
func uniqueTargets(langs []string) []string {
	seen := make(map[string]bool, len(langs))
	targets := make([]string, 0, len(langs))
	for _, lang := range langs {
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		targets = append(targets, lang)
	}
	return targets
}
