package region

import (
	"fmt"

	"github.com/behrlich/go-ompt/internal/hashtable"
	"github.com/behrlich/go-ompt/internal/interfaces"
)

type codeptrKey struct {
	addr uintptr
	kind interfaces.RegionKind
}

// CodeptrCache is the monotonic concurrent (return-address, event
// kind) -> region-handle cache (spec.md §4.7). Misses resolve a
// source location through the substrate's address resolver and
// register a new region; region names are stable for the lifetime of
// the process even if the backing shared object is later unloaded
// (spec.md §4.7: "reuse of an address after unload yields incorrect
// region names, not corruption").
type CodeptrCache struct {
	table    *hashtable.Table[codeptrKey, Handle]
	resolver interfaces.AddressResolver
	registry interfaces.DefinitionRegistry
	sourceFiles *hashtable.Table[string, interfaces.SourceFileHandle]
	logger   interfaces.Logger
}

// NewCodeptrCache builds an empty cache over the given resolver and
// definition registry.
func NewCodeptrCache(resolver interfaces.AddressResolver, registry interfaces.DefinitionRegistry, logger interfaces.Logger) *CodeptrCache {
	return &CodeptrCache{
		table: hashtable.New[codeptrKey, Handle](func(k codeptrKey) uint64 {
			return hashtable.MixKey(uint64(k.addr), int32(k.kind))
		}),
		sourceFiles: hashtable.New[string, interfaces.SourceFileHandle](func(k string) uint64 {
			return hashtable.MixKey(fnv64(k), 0)
		}),
		resolver: resolver,
		registry: registry,
		logger:   logger,
	}
}

// Resolve returns the region handle for (addr, kind), registering a
// new region in the substrate's definition registry on first sight
// (spec.md §4.7).
func (c *CodeptrCache) Resolve(addr uintptr, kind interfaces.RegionKind) Handle {
	k := codeptrKey{addr: addr, kind: kind}
	return c.table.GetOrCreate(k, func() Handle {
		loc := c.resolver.Resolve(addr)
		file := c.fileHandle(loc.File)

		var name string
		if loc.HasDebug {
			name = fmt.Sprintf("%s @%s:%d", kind.String(), loc.File, loc.Line)
		} else {
			name = fmt.Sprintf("%s @0x%x", kind.String(), addr)
		}

		return c.registry.NewRegion(name, name, file, loc.Line, loc.Line, kind)
	})
}

func (c *CodeptrCache) fileHandle(name string) interfaces.SourceFileHandle {
	return c.sourceFiles.GetOrCreate(name, func() interfaces.SourceFileHandle {
		return c.registry.NewSourceFile(name)
	})
}

// Len reports the number of distinct (addr, kind) regions resolved so
// far, used by tests and observer gauges.
func (c *CodeptrCache) Len() int {
	return c.table.Len()
}

// fnv64 is a small string-to-uint64 mixing hash used only to key the
// file-name sub-table; it has no bearing on the (addr, kind) key
// mixing spec.md §4.7 specifies for the region cache itself.
func fnv64(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
