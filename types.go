package gotmt

import (
	"slices"
	"strings"
	"time"
)

// TranslationEntry is one translation key with its per-language values.
type TranslationEntry struct {
	ID        string            `json:"_id"`
	Key       string            `json:"key"`        // Upper-case, unique, immutable
	Values    map[string]string `json:"values"`     // Language code -> text; always has the source language
	CreatedAt time.Time         `json:"created_at"` // Set once on insert
	UpdatedAt time.Time         `json:"updated_at"` // Bumped on every values change
}

// Clone returns a deep copy of the entry.
func (e TranslationEntry) Clone() TranslationEntry {
	values := make(map[string]string, len(e.Values))
	for code, v := range e.Values {
		values[code] = v
	}
	e.Values = values
	return e
}

// Language is a target language known to the system.
type Language struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// SortOrder is the direction of a listing sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Listing defaults and limits.
const (
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// SortColumns are the columns a listing can be sorted by.
var SortColumns = []string{"key", "created_at", "updated_at"}

// ListQuery selects a page of translation entries.
type ListQuery struct {
	Search  string    // Case-insensitive match on key or any value
	SortBy  string    // "key", "created_at" or "updated_at"
	Order   SortOrder // Defaults to ascending
	Page    int       // 1-based
	PerPage int
}

// Normalized returns a copy with defaults applied: page at least 1, per-page
// clamped to 1..MaxPerPage, unknown sort columns replaced by "key" and any
// order other than descending treated as ascending.
func (q ListQuery) Normalized() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PerPage == 0:
		q.PerPage = DefaultPerPage
	case q.PerPage < 1:
		q.PerPage = 1
	case q.PerPage > MaxPerPage:
		q.PerPage = MaxPerPage
	}
	if !slices.Contains(SortColumns, q.SortBy) {
		q.SortBy = "key"
	}
	if q.Order != SortDesc {
		q.Order = SortAsc
	}
	return q
}

// Offset returns the number of entries skipped before the page.
func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// Event types published after each completed operation.
const (
	EventTranslationAdded        = "translation_added"
	EventTranslationUpdated      = "translation_updated"
	EventTranslationDeleted      = "translation_deleted"
	EventTranslationRegenerated  = "translation_regenerated"
	EventTranslationsRegenerated = "translations_regenerated"
	EventLanguageAdded           = "language_added"
)

// Event is a change notification appended to the event log.
type Event struct {
	Type                string   `json:"type"`
	TS                  float64  `json:"ts"`
	ID                  string   `json:"id,omitempty"`
	Key                 string   `json:"key,omitempty"`
	Code                string   `json:"code,omitempty"`
	Name                string   `json:"name,omitempty"`
	Languages           []string `json:"languages,omitempty"`
	TranslationsUpdated *int     `json:"translations_updated,omitempty"`

	// Cursor is the position of the event in the log it was read from.
	Cursor string `json:"-"`
}

// NewEvent creates an event of the given type stamped with the current time.
func NewEvent(eventType string) Event {
	return Event{
		Type: eventType,
		TS:   float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

// WithCount sets the translations_updated field.
func (e Event) WithCount(n int) Event {
	e.TranslationsUpdated = &n
	return e
}
