package gotmt

import (
	"context"
	"time"
)

// TranslationStore persists translation entries. Implementations must make
// each single-entry write atomic.
type TranslationStore interface {
	// FindByID returns ErrNotFound when no entry has the given id.
	FindByID(ctx context.Context, id string) (TranslationEntry, error)
	// FindByKey returns ErrNotFound when no entry has the given key.
	FindByKey(ctx context.Context, key string) (TranslationEntry, error)
	// Insert returns ErrKeyExists when the key is taken.
	Insert(ctx context.Context, entry TranslationEntry) error
	// PatchValues merges patch into the entry values and bumps UpdatedAt.
	PatchValues(ctx context.Context, id string, patch map[string]string, at time.Time) error
	// ReplaceValues overwrites the entry values and bumps UpdatedAt.
	ReplaceValues(ctx context.Context, id string, values map[string]string, at time.Time) error
	// Delete returns ErrNotFound when no entry has the given id.
	Delete(ctx context.Context, id string) error
	// List returns one page of entries and the total number of matches.
	List(ctx context.Context, q ListQuery) ([]TranslationEntry, int, error)
	// All returns a snapshot of every entry ordered by key.
	All(ctx context.Context) ([]TranslationEntry, error)
}

// LanguageStore persists the configured languages.
type LanguageStore interface {
	// ListLanguages returns every language, the default first, then by code.
	ListLanguages(ctx context.Context) ([]Language, error)
	// InsertLanguage returns ErrLanguageExists when the code is taken.
	InsertLanguage(ctx context.Context, lang Language) error
	CountLanguages(ctx context.Context) (int, error)
}

// Store combines both stores with a liveness check.
type Store interface {
	TranslationStore
	LanguageStore
	Ping(ctx context.Context) error
}

// Notifier delivers change events to connected clients.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// EventReader reads events appended after a cursor. An empty cursor reads
// from the oldest retained event. The returned cursor is the one to resume
// from, and is meaningful even when err is non-nil.
type EventReader interface {
	Since(ctx context.Context, cursor string, limit int) ([]Event, string, error)
}
