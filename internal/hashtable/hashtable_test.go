package hashtable

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type codeptrKey struct {
	addr uint64
	kind int32
}

func hashCodeptrKey(k codeptrKey) uint64 {
	return MixKey(k.addr, k.kind)
}

func TestGetOrCreateIdempotentSingleThreaded(t *testing.T) {
	tbl := New[codeptrKey, int](hashCodeptrKey)
	key := codeptrKey{addr: 0x1000, kind: 1}

	calls := 0
	create := func() int {
		calls++
		return 42
	}

	v1 := tbl.GetOrCreate(key, create)
	v2 := tbl.GetOrCreate(key, create)

	require.Equal(t, 42, v1)
	require.Equal(t, 42, v2)
	require.Equal(t, 1, calls, "second GetOrCreate must not invoke create again")
}

func TestGetOrCreateConcurrentIdempotence(t *testing.T) {
	// Invariant 5 (spec.md §8): repeated lookups of the same key across
	// a measurement must yield an identical handle, even under
	// concurrent contention.
	tbl := New[codeptrKey, *int64](hashCodeptrKey)
	key := codeptrKey{addr: 0x2000, kind: 2}

	var seq int64
	const goroutines = 64
	results := make([]*int64, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = tbl.GetOrCreate(key, func() *int64 {
				n := atomic.AddInt64(&seq, 1)
				return &n
			})
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		require.Same(t, results[0], results[i], "all callers must observe the same winning value")
	}
}

func TestDistinctKeysDoNotCollapse(t *testing.T) {
	tbl := New[codeptrKey, string](hashCodeptrKey)
	a := tbl.GetOrCreate(codeptrKey{addr: 0x1000, kind: 0}, func() string { return "a" })
	b := tbl.GetOrCreate(codeptrKey{addr: 0x1000, kind: 1}, func() string { return "b" })
	require.NotEqual(t, a, b, "same address with different kinds must be distinct keys")
}

func TestLenCountsAcrossChunks(t *testing.T) {
	tbl := New[codeptrKey, int](hashCodeptrKey)
	for i := 0; i < 50; i++ {
		i := i
		tbl.GetOrCreate(codeptrKey{addr: uint64(i), kind: 0}, func() int { return i })
	}
	require.Equal(t, 50, tbl.Len())
}

func TestLookupMissing(t *testing.T) {
	tbl := New[codeptrKey, int](hashCodeptrKey)
	_, ok := tbl.Lookup(codeptrKey{addr: 0xdead, kind: 0})
	require.False(t, ok)
}
