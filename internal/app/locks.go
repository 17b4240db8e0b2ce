package app

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 64

// KeyedMutex serializes work per key without one lock for the whole keyspace.
// Distinct keys may share a stripe, so never hold two keys at once.
type KeyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (k *KeyedMutex) Lock(key string) {
	k.stripes[stripe(key)].Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.stripes[stripe(key)].Unlock()
}

// With runs fn while holding the lock for key.
func (k *KeyedMutex) With(key string, fn func()) {
	k.Lock(key)
	defer k.Unlock(key)
	fn()
}

func stripe(key string) uint64 {
	return xxhash.Sum64String(key) % lockStripes
}
