package gotmt

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func newTestOrchestrator(t *testing.T, p Provider, cache TranslationCache, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	if cache != nil {
		opts = append(opts, WithCache(cache))
	}
	o, err := NewOrchestrator(NewAdapter(p), opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}

func TestFanout_Completeness(t *testing.T) {
	p := newStubProvider()
	p.fail["fr"] = errors.New("fr backend down")
	o := newTestOrchestrator(t, p, newMapCache())

	targets := []string{"es", "fr", "de", "ja"}
	result := o.Fanout(context.Background(), "Hello", targets)

	if len(result) != len(targets) {
		t.Fatalf("expected %d outcomes, got %d", len(targets), len(result))
	}
	for _, lang := range targets {
		if _, ok := result[lang]; !ok {
			t.Errorf("missing outcome for %s", lang)
		}
	}

	want := map[string]string{
		"es": "Hola",
		"fr": "[fr] Hello",
		"de": "Hallo",
		"ja": "[ja] Hello",
	}
	if got := result.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}

	if got := result.Failed(); !reflect.DeepEqual(got, []string{"fr", "ja"}) {
		t.Errorf("Failed() = %v, want [fr ja]", got)
	}
}

func TestFanout_DeterministicWithWarmCache(t *testing.T) {
	cache := newMapCache()
	cache.Set(CacheKey("Hello", "es"), "Hola")

	p := newStubProvider()
	p.err = errors.New("connection refused")
	o := newTestOrchestrator(t, p, cache)

	for i := 0; i < 3; i++ {
		result := o.Fanout(context.Background(), "Hello", []string{"es", "fr"})

		if result["es"].Value != "Hola" || !result["es"].Cached {
			t.Errorf("run %d: es = %+v, want cached Hola", i, result["es"])
		}
		if result["fr"].Value != "[fr] Hello" {
			t.Errorf("run %d: fr = %q, want [fr] Hello", i, result["fr"].Value)
		}
	}
}

func TestFanout_FallbackIsCached(t *testing.T) {
	cache := newMapCache()
	p := newStubProvider()
	p.err = errors.New("connection refused")
	o := newTestOrchestrator(t, p, cache)

	first := o.Fanout(context.Background(), "Hello", []string{"es"})
	if first["es"].Value != "[es] Hello" {
		t.Fatalf("first value = %q, want fallback", first["es"].Value)
	}
	if first["es"].Err == nil {
		t.Error("fresh fallback should carry the provider error")
	}

	second := o.Fanout(context.Background(), "Hello", []string{"es"})
	if second["es"].Value != "[es] Hello" {
		t.Errorf("second value = %q, want fallback", second["es"].Value)
	}
	if !second["es"].Cached || !second["es"].Fallback {
		t.Errorf("second outcome = %+v, want cached fallback", second["es"])
	}

	if p.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.callCount())
	}
}

func TestFanout_SkipCachedFallbacks(t *testing.T) {
	cache := newMapCache()
	cache.Set(CacheKey("Hello", "es"), "[es] Hello")
	cache.Set(CacheKey("Hello", "fr"), "Salut")

	p := newStubProvider()
	o := newTestOrchestrator(t, p, cache)

	result := o.Fanout(context.Background(), "Hello", []string{"es", "fr"}, SkipCachedFallbacks())

	if result["es"].Value != "Hola" || result["es"].Cached {
		t.Errorf("es = %+v, want fresh Hola", result["es"])
	}
	if result["fr"].Value != "Salut" || !result["fr"].Cached {
		t.Errorf("fr = %+v, want cached Salut", result["fr"])
	}
	if v, _ := cache.Get(CacheKey("Hello", "es")); v != "Hola" {
		t.Errorf("cache not refreshed, got %q", v)
	}
	if p.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p.callCount())
	}
}

func TestFanout_SourceLanguage(t *testing.T) {
	cache := newMapCache()
	p := newStubProvider()
	o := newTestOrchestrator(t, p, cache)

	result := o.Fanout(context.Background(), "Hello", []string{"en"})

	if result["en"].Value != "Hello" {
		t.Errorf("en = %q, want source text", result["en"].Value)
	}
	if p.callCount() != 0 {
		t.Errorf("source language should not call the provider, got %d calls", p.callCount())
	}
	if cache.sets != 0 {
		t.Errorf("source language should not be cached, got %d sets", cache.sets)
	}
}

func TestFanout_DuplicateAndEmptyCodes(t *testing.T) {
	p := newStubProvider()
	o := newTestOrchestrator(t, p, newMapCache())

	result := o.Fanout(context.Background(), "Hello", []string{"es", "", "es", "fr"})

	if len(result) != 2 {
		t.Errorf("expected 2 outcomes, got %d: %v", len(result), result)
	}
	if p.callCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", p.callCount())
	}
}

func TestFanout_NoCache(t *testing.T) {
	p := newStubProvider()
	o := newTestOrchestrator(t, p, nil)

	o.Fanout(context.Background(), "Hello", []string{"es"})
	o.Fanout(context.Background(), "Hello", []string{"es"})

	if p.callCount() != 2 {
		t.Errorf("without a cache every call should reach the provider, got %d", p.callCount())
	}
}

func TestFanout_Sequential(t *testing.T) {
	p := newStubProvider()
	o := newTestOrchestrator(t, p, newMapCache(), WithParallelism(1))

	result := o.Fanout(context.Background(), "World", []string{"es", "fr", "de"})

	want := map[string]string{"es": "Mundo", "fr": "Monde", "de": "Welt"}
	if got := result.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestFanout_Parallel(t *testing.T) {
	p := newStubProvider()
	p.delay = 50 * time.Millisecond
	o := newTestOrchestrator(t, p, newMapCache(), WithParallelism(3))

	start := time.Now()
	o.Fanout(context.Background(), "Hello", []string{"es", "fr", "de"})
	elapsed := time.Since(start)

	if elapsed > 120*time.Millisecond {
		t.Errorf("languages were not translated concurrently, took %v", elapsed)
	}
}

func TestFanout_ConcurrentMissesCollapse(t *testing.T) {
	p := newStubProvider()
	p.delay = 50 * time.Millisecond
	o := newTestOrchestrator(t, p, newMapCache())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := o.Fanout(context.Background(), "Goodbye", []string{"es"})
			if result["es"].Value != "Adiós" {
				t.Errorf("es = %q, want Adiós", result["es"].Value)
			}
		}()
	}
	wg.Wait()

	if p.callCount() >= 5 {
		t.Errorf("concurrent misses should share provider calls, got %d", p.callCount())
	}
}

func TestFanout_CancelledCallerDoesNotCacheFallback(t *testing.T) {
	cache := newMapCache()
	p := newStubProvider()
	p.delay = 50 * time.Millisecond
	o := newTestOrchestrator(t, p, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	result := o.Fanout(ctx, "Hello", []string{"es"})
	if !result["es"].Fallback || !errors.Is(result["es"].Err, context.DeadlineExceeded) {
		t.Fatalf("cancelled caller: es = %+v, want fallback caused by its own deadline", result["es"])
	}

	result = o.Fanout(context.Background(), "Hello", []string{"es"})
	if result["es"].Value != "Hola" {
		t.Errorf("later caller got %q, want Hola", result["es"].Value)
	}
	if got, _ := cache.Get(CacheKey("Hello", "es")); got != "Hola" {
		t.Errorf("cached value = %q, want Hola", got)
	}
	if p.callCount() != 1 {
		t.Errorf("expected the abandoned call to be reused, got %d provider calls", p.callCount())
	}
}

func TestFanout_AlreadyCancelled(t *testing.T) {
	cache := newMapCache()
	p := newStubProvider()
	o := newTestOrchestrator(t, p, cache)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Fanout(ctx, "Hello", []string{"es", "fr"})
	for _, lang := range []string{"es", "fr"} {
		if !errors.Is(result[lang].Err, context.Canceled) {
			t.Errorf("%s: err = %v, want context.Canceled", lang, result[lang].Err)
		}
	}
	if p.callCount() != 0 {
		t.Errorf("expected no provider calls, got %d", p.callCount())
	}
	if cache.sets != 0 {
		t.Errorf("expected nothing cached, got %d sets", cache.sets)
	}
}

func TestFanout_SharedCallSurvivesLeaderCancel(t *testing.T) {
	p := newStubProvider()
	p.delay = 50 * time.Millisecond
	o := newTestOrchestrator(t, p, newMapCache())

	ctx, cancel := context.WithCancel(context.Background())
	leader := make(chan Outcome, 1)
	go func() { leader <- o.Fanout(ctx, "Goodbye", []string{"es"})["es"] }()

	time.Sleep(10 * time.Millisecond)
	follower := make(chan Outcome, 1)
	go func() { follower <- o.Fanout(context.Background(), "Goodbye", []string{"es"})["es"] }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	if got := <-leader; !errors.Is(got.Err, context.Canceled) {
		t.Errorf("leader err = %v, want context.Canceled", got.Err)
	}
	if got := <-follower; got.Value != "Adiós" || got.Err != nil {
		t.Errorf("follower = %+v, want Adiós", got)
	}
}

func TestFanoutResult_Stats(t *testing.T) {
	result := FanoutResult{
		"es": {Value: "Hola", Cached: true},
		"fr": {Value: "Bonjour"},
		"de": {Value: "[de] Hello", Fallback: true, Err: errors.New("down")},
		"ja": {Value: "[ja] Hello", Fallback: true, Cached: true},
	}

	stats := result.Stats()
	want := FanoutStats{Total: 4, Cached: 2, Translated: 1, Fallbacks: 2}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}
