package gotmt_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ZaguanLabs/gotmt"
	"github.com/ZaguanLabs/gotmt/cache"
	"github.com/ZaguanLabs/gotmt/events"
	"github.com/ZaguanLabs/gotmt/provider"
	"github.com/ZaguanLabs/gotmt/store"
)

// Benchmarks for performance validation

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func BenchmarkHashText(b *testing.B) {
	text := "Hello World, this is a sample text for hashing"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gotmt.HashText(text)
	}
}

func BenchmarkCacheKey(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gotmt.CacheKey("Hello World", "es")
	}
}

func BenchmarkInMemoryCache_Get(b *testing.B) {
	c := cache.NewInMemoryCache(time.Hour)
	c.Set("test-key", "test-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("test-key")
	}
}

func BenchmarkInMemoryCache_Set(b *testing.B) {
	c := cache.NewInMemoryCache(time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set("test-key", "test-value")
	}
}

func newBenchOrchestrator(b *testing.B, c gotmt.TranslationCache) *gotmt.Orchestrator {
	b.Helper()
	opts := []gotmt.OrchestratorOption{gotmt.WithLogger(discard), gotmt.WithParallelism(4)}
	if c != nil {
		opts = append(opts, gotmt.WithCache(c))
	}
	orch, err := gotmt.NewOrchestrator(
		gotmt.NewAdapter(provider.NewMockProvider(), gotmt.WithAdapterLogger(discard)),
		opts...,
	)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(orch.Close)
	return orch
}

func BenchmarkFanout_Cached(b *testing.B) {
	orch := newBenchOrchestrator(b, cache.NewInMemoryCache(time.Hour))
	targets := []string{"es", "fr", "de"}
	ctx := context.Background()

	// Prime the cache
	orch.Fanout(ctx, "Hello", targets)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		orch.Fanout(ctx, "Hello", targets)
	}
}

func BenchmarkFanout_Uncached(b *testing.B) {
	orch := newBenchOrchestrator(b, nil)
	targets := []string{"es", "fr", "de"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		orch.Fanout(ctx, "Hello", targets)
	}
}

func BenchmarkPropagate(b *testing.B) {
	ctx := context.Background()
	orch := newBenchOrchestrator(b, cache.NewInMemoryCache(time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		st := store.NewMemoryStore()
		now := time.Now()
		for j := 0; j < 100; j++ {
			_ = st.Insert(ctx, gotmt.TranslationEntry{
				ID:        fmt.Sprintf("e%03d", j),
				Key:       fmt.Sprintf("KEY_%03d", j),
				Values:    map[string]string{"en": "Hello"},
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		p := gotmt.NewPropagator(st, orch, gotmt.WithWorkers(4), gotmt.WithPropagatorLogger(discard))
		b.StartTimer()

		if _, err := p.Propagate(ctx, "de", "German"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEventLog_Publish(b *testing.B) {
	log := events.NewLog(events.DefaultCapacity)
	ctx := context.Background()
	ev := gotmt.NewEvent(gotmt.EventTranslationAdded)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = log.Publish(ctx, ev)
	}
}

func BenchmarkGetDirection(b *testing.B) {
	langs := []string{"en", "es", "ar", "ja", "he"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gotmt.GetDirection(langs[i%len(langs)])
	}
}

func BenchmarkLanguageName(b *testing.B) {
	langs := []string{"en", "es", "ar", "ja", "zh"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gotmt.LanguageName(langs[i%len(langs)])
	}
}
