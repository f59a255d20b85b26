// Package cache stores serialized compiled-graph snapshots so repeated
// commands over an unchanged ledger skip the replay. Purely an optimization:
// results are byte-identical with the cache disabled.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for graph snapshot caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// GraphKey derives a cache key from the ledger bytes and the point-in-time
// the graph was compiled at. The "now" timestamp is part of the key because
// graph state at time T is a function of both.
func GraphKey(ledger []byte, now time.Time) string {
	h := sha256.New()
	h.Write(ledger)
	h.Write([]byte(now.UTC().Format(time.RFC3339)))
	return "plumbline:graph:v1:" + hex.EncodeToString(h.Sum(nil))
}
