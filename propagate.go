package gotmt

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPropagationWorkers is the number of entries filled concurrently
// when a language is added.
const DefaultPropagationWorkers = 4

// Propagator fills a newly added language into every stored entry.
type Propagator struct {
	store   TranslationStore
	fanout  *Orchestrator
	workers int
	logger  *slog.Logger
	now     func() time.Time
}

// PropagatorOption is a functional option for configuring the Propagator.
type PropagatorOption func(*Propagator)

// WithWorkers sets how many entries are processed at once.
func WithWorkers(n int) PropagatorOption {
	return func(p *Propagator) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPropagatorLogger sets the propagator logger.
func WithPropagatorLogger(logger *slog.Logger) PropagatorOption {
	return func(p *Propagator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPropagator creates a Propagator.
func NewPropagator(store TranslationStore, fanout *Orchestrator, opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		store:   store,
		fanout:  fanout,
		workers: DefaultPropagationWorkers,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Propagate translates the source value of every stored entry into code and
// patches it in place. Entries without a source value are skipped. A store
// failure on one entry is logged and does not stop the others.
//
// It returns the number of entries updated. When ctx is cancelled the entries
// already updated stay updated and the count so far is returned with ctx.Err().
func (p *Propagator) Propagate(ctx context.Context, code, name string) (int, error) {
	entries, err := p.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading translation snapshot: %w", err)
	}

	logger := p.logger.With(slog.String("code", code), slog.String("name", name))
	logger.InfoContext(ctx, "propagating language", slog.Int("entries", len(entries)))

	source := p.fanout.SourceLang()
	targets := []string{code}

	var updated atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		text := entry.Values[source]
		if text == "" {
			logger.DebugContext(ctx, "skipping entry without source value", slog.String("key", entry.Key))
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			value := p.fanout.Fanout(ctx, text, targets)[code].Value
			if ctx.Err() != nil {
				return nil
			}
			if err := p.store.PatchValues(ctx, entry.ID, map[string]string{code: value}, p.now().UTC()); err != nil {
				logger.ErrorContext(ctx, "failed to update entry",
					slog.String("key", entry.Key),
					slog.Any("error", err),
				)
				return nil
			}

			updated.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	count := int(updated.Load())
	if err := ctx.Err(); err != nil {
		logger.WarnContext(ctx, "propagation interrupted", slog.Int("updated", count))
		return count, err
	}

	logger.InfoContext(ctx, "language propagated", slog.Int("updated", count))
	return count, nil
}
