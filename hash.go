package gotmt

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of text. Whitespace is significant:
// "Hello" and "Hello " are different source strings.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates the cache key for a (source text, target language) pair.
func CacheKey(text, targetLang string) string {
	return HashText(text) + ":" + targetLang
}
