package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key addresses one translation in every tier.
type Key string

// Request identifies a translation independent of case and surrounding
// whitespace in the source text.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Normalize lowercases and trims text. Two requests whose texts normalize to
// the same string share a cache entry.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// KeyFor derives the cache key for r: a SHA-256 over the language pair and
// the normalized text.
func KeyFor(r Request) Key {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(r.SourceLang))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(r.TargetLang))))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(r.Text)))
	return Key(hex.EncodeToString(h.Sum(nil)))
}
