package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZaguanLabs/gotmt"
)

// MemoryStore keeps entries and languages in process memory. Reads return
// copies, so callers may modify what they get back.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]gotmt.TranslationEntry
	keys      map[string]string // key -> id
	languages []gotmt.Language
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]gotmt.TranslationEntry),
		keys:    make(map[string]string),
	}
}

// FindByID implements gotmt.TranslationStore.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (gotmt.TranslationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return gotmt.TranslationEntry{}, gotmt.ErrNotFound
	}
	return entry.Clone(), nil
}

// FindByKey implements gotmt.TranslationStore.
func (s *MemoryStore) FindByKey(ctx context.Context, key string) (gotmt.TranslationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[key]
	if !ok {
		return gotmt.TranslationEntry{}, gotmt.ErrNotFound
	}
	return s.entries[id].Clone(), nil
}

// Insert implements gotmt.TranslationStore.
func (s *MemoryStore) Insert(ctx context.Context, entry gotmt.TranslationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[entry.Key]; ok {
		return fmt.Errorf("insert %s: %w", entry.Key, gotmt.ErrKeyExists)
	}
	if _, ok := s.entries[entry.ID]; ok {
		return fmt.Errorf("insert %s: %w", entry.ID, gotmt.ErrKeyExists)
	}

	s.entries[entry.ID] = entry.Clone()
	s.keys[entry.Key] = entry.ID
	return nil
}

// PatchValues implements gotmt.TranslationStore.
func (s *MemoryStore) PatchValues(ctx context.Context, id string, patch map[string]string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return gotmt.ErrNotFound
	}

	entry = entry.Clone()
	for code, v := range patch {
		entry.Values[code] = v
	}
	entry.UpdatedAt = at
	s.entries[id] = entry
	return nil
}

// ReplaceValues implements gotmt.TranslationStore.
func (s *MemoryStore) ReplaceValues(ctx context.Context, id string, values map[string]string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return gotmt.ErrNotFound
	}

	entry.Values = values
	entry = entry.Clone()
	entry.UpdatedAt = at
	s.entries[id] = entry
	return nil
}

// Delete implements gotmt.TranslationStore.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return gotmt.ErrNotFound
	}
	delete(s.entries, id)
	delete(s.keys, entry.Key)
	return nil
}

// List implements gotmt.TranslationStore.
func (s *MemoryStore) List(ctx context.Context, q gotmt.ListQuery) ([]gotmt.TranslationEntry, int, error) {
	q = q.Normalized()
	needle := strings.ToLower(q.Search)

	s.mu.RLock()
	matched := make([]gotmt.TranslationEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if needle == "" || matches(entry, needle) {
			matched = append(matched, entry.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch q.SortBy {
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = strings.Compare(a.Key, b.Key)
		}
		if q.Order == gotmt.SortDesc {
			cmp = -cmp
		}
		if cmp == 0 {
			return a.ID < b.ID
		}
		return cmp < 0
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PerPage, total)
	return matched[start:end], total, nil
}

func matches(entry gotmt.TranslationEntry, needle string) bool {
	if strings.Contains(strings.ToLower(entry.Key), needle) {
		return true
	}
	for _, v := range entry.Values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// All implements gotmt.TranslationStore.
func (s *MemoryStore) All(ctx context.Context) ([]gotmt.TranslationEntry, error) {
	s.mu.RLock()
	all := make([]gotmt.TranslationEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		all = append(all, entry.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

// ListLanguages implements gotmt.LanguageStore.
func (s *MemoryStore) ListLanguages(ctx context.Context) ([]gotmt.Language, error) {
	s.mu.RLock()
	langs := make([]gotmt.Language, len(s.languages))
	copy(langs, s.languages)
	s.mu.RUnlock()

	sort.SliceStable(langs, func(i, j int) bool {
		if langs[i].IsDefault != langs[j].IsDefault {
			return langs[i].IsDefault
		}
		return langs[i].Code < langs[j].Code
	})
	return langs, nil
}

// InsertLanguage implements gotmt.LanguageStore.
func (s *MemoryStore) InsertLanguage(ctx context.Context, lang gotmt.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.languages {
		if existing.Code == lang.Code {
			return fmt.Errorf("insert language %s: %w", lang.Code, gotmt.ErrLanguageExists)
		}
	}
	s.languages = append(s.languages, lang)
	return nil
}

// CountLanguages implements gotmt.LanguageStore.
func (s *MemoryStore) CountLanguages(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.languages), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements Backend
var _ Backend = (*MemoryStore)(nil)
