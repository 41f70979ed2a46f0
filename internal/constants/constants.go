// Package constants holds the tunables and fixed protocol numbers used
// across the adapter: pool/arena sizing, hash table shape, and stack
// growth limits.
package constants

const (
	// CacheLineSize is the assumed cache line size in bytes. The padding
	// in location.Data is written as fixed [56]byte fields sized for it;
	// no code reads this constant directly.
	CacheLineSize = 64

	// HashBucketCount is the bucket count for the codeptr and wait-id
	// hash tables. Must be a power of two (spec.md §4.7).
	HashBucketCount = 1 << 8

	// HashBucketMask masks a mixed hash down to a bucket index.
	HashBucketMask = HashBucketCount - 1

	// ChunkEntries is the number of (key, value) slots per chained
	// chunk in the monotonic hash tables.
	ChunkEntries = 2

	// MaxStackDepth caps the sync-region / workshare-region stacks
	// carried on a task (spec.md §4.5).
	MaxStackDepth = 255

	// StackGrowStep is the number of slots added each time a task's
	// region stack is grown; growth is realloc'd in cache-line steps
	// (16 * 4-byte handles == one CacheLineSize chunk).
	StackGrowStep = 16

	// MaxExplicitTasks is a nominal bound on the generation-number
	// counter per creator thread within one parallel region (spec.md
	// §4.4). The overflow check at task-create does not read it; it
	// uses the region's ExplicitTaskLayout.MaxGeneration.
	MaxExplicitTasks = 1 << 20

	// InvalidRegionHandle is the sentinel written into the
	// explicit-task encoding to mark an undeferred task (spec.md §4.4).
	InvalidRegionHandle = 0
)
