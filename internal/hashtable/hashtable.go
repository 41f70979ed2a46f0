// Package hashtable implements the monotonic concurrent hash table
// shape used by both the codeptr→region cache (spec.md §4.7) and the
// wait-id→mutex registry (spec.md §4.8): a fixed power-of-two bucket
// array, each bucket a chain of small chunks holding a handful of
// entries, inserted only (never deleted) during measurement.
//
// Readers never take a lock: a bucket's chain only grows by prepending
// new chunks (lock-free CAS on the bucket head) and by filling a
// chunk's nil slots (lock-free CAS on the slot itself). Because chunks
// are immutable once linked except for nil→filled slot transitions,
// a reader walking the chain never observes a torn entry.
package hashtable

import (
	"sync/atomic"

	"github.com/behrlich/go-ompt/internal/constants"
)

type entry[K comparable, V any] struct {
	key K
	val V
}

type chunk[K comparable, V any] struct {
	slots [constants.ChunkEntries]atomic.Pointer[entry[K, V]]
	next  atomic.Pointer[chunk[K, V]]
}

type bucket[K comparable, V any] struct {
	head atomic.Pointer[chunk[K, V]]
}

// Table is a monotonic concurrent map from K to V.
type Table[K comparable, V any] struct {
	buckets [constants.HashBucketCount]bucket[K, V]
	hash    func(K) uint64
}

// New creates a table keyed by hash, the 32/64-bit mixing function
// spec.md §4.7 requires to combine a key's fields before bucketing.
func New[K comparable, V any](hash func(K) uint64) *Table[K, V] {
	return &Table[K, V]{hash: hash}
}

// GetOrCreate returns the value for key, creating it with create if
// absent. Concurrent calls for the same key may invoke create more
// than once under contention, but only one of the resulting values is
// ever linked into the table and returned to any caller - the losing
// value (and any substrate side effect its constructor performed,
// e.g. registering an unused region definition) is discarded. This is
// the lock-free analogue of the monotonic-insert contract in spec.md
// §4.7/§4.8: idempotent from the reader's point of view, not
// necessarily side-effect-free on the writer's.
func (t *Table[K, V]) GetOrCreate(key K, create func() V) V {
	b := &t.buckets[t.hash(key)&uint64(constants.HashBucketMask)]

	for {
		head := b.head.Load()

		// The fill pass below stops at the first nil slot, which may sit
		// in a newer chunk than the one holding key, so look for key in
		// the whole chain first.
		for c := head; c != nil; c = c.next.Load() {
			for i := range c.slots {
				if e := c.slots[i].Load(); e != nil && e.key == key {
					return e.val
				}
			}
		}

		for c := head; c != nil; c = c.next.Load() {
			for i := range c.slots {
				slot := &c.slots[i]
				e := slot.Load()
				if e == nil {
					candidate := &entry[K, V]{key: key, val: create()}
					if slot.CompareAndSwap(nil, candidate) {
						return candidate.val
					}
					e = slot.Load()
				}
				if e != nil && e.key == key {
					return e.val
				}
			}
		}

		// Every existing chunk is full (or the bucket is empty) and
		// none held our key: append a fresh chunk.
		candidate := &entry[K, V]{key: key, val: create()}
		nc := &chunk[K, V]{}
		nc.slots[0].Store(candidate)
		nc.next.Store(head)
		if b.head.CompareAndSwap(head, nc) {
			return candidate.val
		}
		// Lost the race to append; another insert landed first.
		// Rescan - it may even have been our own key.
	}
}

// Lookup returns the value for key without creating it.
func (t *Table[K, V]) Lookup(key K) (V, bool) {
	b := &t.buckets[t.hash(key)&uint64(constants.HashBucketMask)]
	for c := b.head.Load(); c != nil; c = c.next.Load() {
		for i := range c.slots {
			if e := c.slots[i].Load(); e != nil && e.key == key {
				return e.val, true
			}
		}
	}
	var zero V
	return zero, false
}

// Len walks every bucket and counts occupied slots. Intended for
// diagnostics/tests, not the hot path.
func (t *Table[K, V]) Len() int {
	n := 0
	for i := range t.buckets {
		for c := t.buckets[i].head.Load(); c != nil; c = c.next.Load() {
			for j := range c.slots {
				if c.slots[j].Load() != nil {
					n++
				}
			}
		}
	}
	return n
}
