// Package cache holds two unrelated memoization layers that sit in
// front of the targets package: a manifest-digest dedupe set so an
// unchanged manifest is never re-parsed, and a trusted-key lookup
// index. Neither replaces targets.Context.findKey's constant-time scan
// during Process — that scan is a security property, not a
// performance one (see DESIGN.md) — this package only prevents
// redundant Process calls for manifests already seen.
package cache

import (
	"crypto/sha256"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"
)

// SeenSet deduplicates manifests by the SHA-256 of their raw bytes,
// backed by fastcache the way the teacher's trie/state layers cache
// large byte blobs off-heap.
type SeenSet struct {
	c *fastcache.Cache
}

func NewSeenSet(maxBytes int) *SeenSet {
	return &SeenSet{c: fastcache.New(maxBytes)}
}

// Seen reports whether digest(raw) was already recorded, and records
// it if not — a single-call check-and-set.
func (s *SeenSet) Seen(raw []byte) bool {
	sum := sha256.Sum256(raw)
	if s.c.Has(sum[:]) {
		return true
	}
	s.c.Set(sum[:], []byte{1})
	return false
}

func (s *SeenSet) Reset() {
	s.c.Reset()
}

// KeyIndexEntry is one cached key-id -> backend-method association,
// used only to short-circuit an immediate re-provisioning lookup, not
// to bypass manifest signature verification itself.
type KeyIndexEntry struct {
	Method string
}

// KeyIndex memoizes key-id -> method lookups; no command wires it in
// (see DESIGN.md). It is backed by
// hashicorp/golang-lru the way the teacher caches bounded lookup
// tables (see consensus/dpos's snapshot LRU).
type KeyIndex struct {
	lru *lru.Cache
}

func NewKeyIndex(size int) (*KeyIndex, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &KeyIndex{lru: l}, nil
}

func (k *KeyIndex) Put(keyID [32]byte, e KeyIndexEntry) {
	k.lru.Add(keyID, e)
}

func (k *KeyIndex) Get(keyID [32]byte) (KeyIndexEntry, bool) {
	v, ok := k.lru.Get(keyID)
	if !ok {
		return KeyIndexEntry{}, false
	}
	return v.(KeyIndexEntry), true
}
