// Package cache provides translation caching implementations.
//
// Keys are built by the caller (see gotmt.CacheKey) from the exact source
// text and the target language; the caches treat them as opaque strings.
package cache

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// ExportableCache is a cache whose live entries can be listed for export.
type ExportableCache interface {
	TranslationCache
	// Entries returns all non-expired entries as key-value pairs.
	Entries() map[string]string
}
