package gotmt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
)

// Service implements the translation-management operations on top of a
// Store, the fan-out Orchestrator and the language Propagator. Each
// completed operation publishes exactly one event.
type Service struct {
	store      Store
	fanout     *Orchestrator
	propagator *Propagator
	notifier   Notifier
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceOption is a functional option for configuring the Service.
type ServiceOption func(*Service)

// WithNotifier sets where change events are published.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithPropagator replaces the default language propagator.
func WithPropagator(p *Propagator) ServiceOption {
	return func(s *Service) {
		s.propagator = p
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for entry timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(store Store, fanout *Orchestrator, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		fanout:  fanout,
		workers: DefaultPropagationWorkers,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.propagator == nil {
		s.propagator = NewPropagator(store, fanout, WithPropagatorLogger(s.logger))
	}
	s.workers = s.propagator.workers

	return s
}

// Bootstrap inserts the default languages when none are configured yet.
func (s *Service) Bootstrap(ctx context.Context) error {
	n, err := s.store.CountLanguages(ctx)
	if err != nil {
		return fmt.Errorf("counting languages: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, lang := range DefaultLanguages {
		if err := s.store.InsertLanguage(ctx, lang); err != nil && !errors.Is(err, ErrLanguageExists) {
			return fmt.Errorf("inserting default language %s: %w", lang.Code, err)
		}
	}

	s.logger.InfoContext(ctx, "default languages created", slog.Int("count", len(DefaultLanguages)))
	return nil
}

// Languages returns every configured language.
func (s *Service) Languages(ctx context.Context) ([]Language, error) {
	return s.store.ListLanguages(ctx)
}

// AddLanguage stores a new language and fills it into every existing entry.
// It returns the stored language and the number of entries updated.
func (s *Service) AddLanguage(ctx context.Context, code, name string) (Language, int, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)

	err := validation.Errors{
		"code": validation.Validate(code,
			validation.Required,
			validation.By(languageCode),
		),
		"name": validation.Validate(name,
			validation.Required,
			validation.RuneLength(1, 100),
		),
	}.Filter()
	if err != nil {
		return Language{}, 0, toValidationError(err)
	}

	lang := Language{Code: code, Name: name}
	if err := s.store.InsertLanguage(ctx, lang); err != nil {
		return Language{}, 0, err
	}

	count, err := s.propagator.Propagate(ctx, code, name)
	if err != nil {
		return lang, count, fmt.Errorf("propagating %s: %w", code, err)
	}

	ev := NewEvent(EventLanguageAdded).WithCount(count)
	ev.Code, ev.Name = code, name
	s.publish(ctx, ev)

	return lang, count, nil
}

// ListTranslations returns one page of entries and the total match count.
func (s *Service) ListTranslations(ctx context.Context, q ListQuery) ([]TranslationEntry, int, error) {
	return s.store.List(ctx, q.Normalized())
}

// Translation returns the entry with the given id.
func (s *Service) Translation(ctx context.Context, id string) (TranslationEntry, error) {
	return s.store.FindByID(ctx, id)
}

// CreateTranslation stores a new key with its source value and a value for
// every other configured language.
func (s *Service) CreateTranslation(ctx context.Context, key, value string) (TranslationEntry, error) {
	key = NormalizeKey(key)
	value = strings.TrimSpace(value)

	err := validation.Errors{
		"key":   validation.Validate(key, validation.Required),
		"value": validation.Validate(value, validation.Required),
	}.Filter()
	if err != nil {
		return TranslationEntry{}, toValidationError(err)
	}

	if _, err := s.store.FindByKey(ctx, key); err == nil {
		return TranslationEntry{}, ErrKeyExists
	} else if !errors.Is(err, ErrNotFound) {
		return TranslationEntry{}, fmt.Errorf("looking up key %s: %w", key, err)
	}

	values, err := s.translateAll(ctx, value)
	if err != nil {
		return TranslationEntry{}, err
	}

	now := s.now().UTC()
	entry := TranslationEntry{
		ID:        xid.New().String(),
		Key:       key,
		Values:    values,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return TranslationEntry{}, err
	}

	ev := NewEvent(EventTranslationAdded)
	ev.ID, ev.Key = entry.ID, entry.Key
	s.publish(ctx, ev)

	return entry, nil
}

// UpdateTranslation replaces every value of an entry.
func (s *Service) UpdateTranslation(ctx context.Context, id string, values map[string]string) (TranslationEntry, error) {
	if values == nil {
		return TranslationEntry{}, &ValidationError{Field: "values", Message: "values dict required"}
	}

	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return TranslationEntry{}, err
	}

	diff := DiffValues(entry.Values, values)
	at := s.now().UTC()
	if err := s.store.ReplaceValues(ctx, id, values, at); err != nil {
		return TranslationEntry{}, err
	}
	entry.Values = values
	entry.UpdatedAt = at

	ev := NewEvent(EventTranslationUpdated)
	ev.ID, ev.Key = entry.ID, entry.Key
	ev.Languages = diff.Changed()
	s.publish(ctx, ev)

	return entry, nil
}

// DeleteTranslation removes an entry.
func (s *Service) DeleteTranslation(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	ev := NewEvent(EventTranslationDeleted)
	ev.ID = id
	s.publish(ctx, ev)

	return nil
}

// RegenerateTranslation re-translates the source value of an entry into every
// configured language and replaces its values. Placeholder values left by
// earlier provider failures are retried rather than served from the cache.
func (s *Service) RegenerateTranslation(ctx context.Context, id string) (TranslationEntry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return TranslationEntry{}, err
	}

	entry, err = s.regenerate(ctx, entry)
	if err != nil {
		return TranslationEntry{}, err
	}

	ev := NewEvent(EventTranslationRegenerated)
	ev.ID, ev.Key = entry.ID, entry.Key
	s.publish(ctx, ev)

	return entry, nil
}

// RegenerateAll regenerates every entry that has a source value and returns
// how many were updated. A failure on one entry is logged and skipped.
func (s *Service) RegenerateAll(ctx context.Context) (int, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading translation snapshot: %w", err)
	}

	var updated atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.Values[s.fanout.SourceLang()] == "" {
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if _, err := s.regenerate(ctx, entry); err != nil {
				s.logger.ErrorContext(ctx, "failed to regenerate entry",
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
		return count, err
	}

	s.publish(ctx, NewEvent(EventTranslationsRegenerated).WithCount(count))

	return count, nil
}

func (s *Service) regenerate(ctx context.Context, entry TranslationEntry) (TranslationEntry, error) {
	source := entry.Values[s.fanout.SourceLang()]
	if source == "" {
		return TranslationEntry{}, &ValidationError{Field: "values", Message: "entry has no source value"}
	}

	values, err := s.translateAll(ctx, source, SkipCachedFallbacks())
	if err != nil {
		return TranslationEntry{}, err
	}

	at := s.now().UTC()
	if err := s.store.ReplaceValues(ctx, entry.ID, values, at); err != nil {
		return TranslationEntry{}, err
	}

	entry.Values = values
	entry.UpdatedAt = at
	return entry, nil
}

// translateAll builds the values of an entry: the source text plus one value
// per configured language.
func (s *Service) translateAll(ctx context.Context, text string, opts ...FanoutOption) (map[string]string, error) {
	langs, err := s.store.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}

	source := s.fanout.SourceLang()
	targets := make([]string, 0, len(langs))
	for _, lang := range langs {
		if lang.Code != source {
			targets = append(targets, lang.Code)
		}
	}

	values := s.fanout.Fanout(ctx, text, targets, opts...).Values()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values[source] = text
	return values, nil
}

// Export writes every entry as an indented JSON array.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	entries, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("reading translations: %w", err)
	}
	if entries == nil {
		entries = []TranslationEntry{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Health pings the store.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", ev.Type),
			slog.Any("error", err),
		)
	}
}

// NormalizeKey upper-cases a key and replaces spaces with underscores.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(key)), " ", "_")
}

func languageCode(value any) error {
	code, _ := value.(string)
	if _, err := ParseCode(code); err != nil {
		return errors.New("must be a valid language code")
	}
	return nil
}

// toValidationError converts ozzo validation errors into a *ValidationError
// for the first failing field.
func toValidationError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &ValidationError{Field: fields[0], Message: errs[fields[0]].Error()}
}
