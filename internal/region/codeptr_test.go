package region

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-ompt/internal/interfaces"
)

type fakeResolver struct {
	locs map[uintptr]interfaces.SourceLocation
}

func (f *fakeResolver) Resolve(addr uintptr) interfaces.SourceLocation {
	if loc, ok := f.locs[addr]; ok {
		return loc
	}
	return interfaces.SourceLocation{}
}

type fakeRegistry struct {
	mu      sync.Mutex
	files   []string
	regions []string
	next    interfaces.RegionHandle
}

func (f *fakeRegistry) NewSourceFile(name string) interfaces.SourceFileHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, name)
	return interfaces.SourceFileHandle(len(f.files))
}

func (f *fakeRegistry) NewRegion(name, canonicalName string, file interfaces.SourceFileHandle, beginLine, endLine int, kind interfaces.RegionKind) interfaces.RegionHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append(f.regions, name)
	f.next++
	return f.next
}

func (f *fakeRegistry) NewParameter(name string, kind interfaces.RegionKind) interfaces.ParamHandle {
	return 0
}

func (f *fakeRegistry) NewInterimCommunicator(parent interfaces.CommunicatorHandle, size int) interfaces.CommunicatorHandle {
	return 0
}

func (f *fakeRegistry) RegionHandleBits() uint { return 20 }

func TestResolveCachesByAddrAndKind(t *testing.T) {
	resolver := &fakeResolver{locs: map[uintptr]interfaces.SourceLocation{
		0x1000: {File: "main.c", Line: 42, HasDebug: true},
	}}
	registry := &fakeRegistry{}
	cache := NewCodeptrCache(resolver, registry, nil)

	h1 := cache.Resolve(0x1000, interfaces.RegionParallel)
	h2 := cache.Resolve(0x1000, interfaces.RegionParallel)
	require.Equal(t, h1, h2)
	require.Equal(t, 1, cache.Len())
	require.Len(t, registry.regions, 1)
	require.Equal(t, "parallel @main.c:42", registry.regions[0])
}

func TestResolveDistinguishesKindAtSameAddress(t *testing.T) {
	resolver := &fakeResolver{locs: map[uintptr]interfaces.SourceLocation{
		0x1000: {File: "main.c", Line: 42, HasDebug: true},
	}}
	registry := &fakeRegistry{}
	cache := NewCodeptrCache(resolver, registry, nil)

	parallel := cache.Resolve(0x1000, interfaces.RegionParallel)
	ibarrier := cache.Resolve(0x1000, interfaces.RegionImplicitBarrier)
	require.NotEqual(t, parallel, ibarrier)
	require.Equal(t, 2, cache.Len())
}

func TestResolveWithoutDebugInfoUsesHexAddress(t *testing.T) {
	resolver := &fakeResolver{}
	registry := &fakeRegistry{}
	cache := NewCodeptrCache(resolver, registry, nil)

	cache.Resolve(0x2a, interfaces.RegionBarrierExplicit)
	require.Equal(t, "barrier @0x2a", registry.regions[0])
}

func TestResolveConcurrentSameKeyIdempotent(t *testing.T) {
	resolver := &fakeResolver{locs: map[uintptr]interfaces.SourceLocation{
		0x3000: {File: "a.c", Line: 1, HasDebug: true},
	}}
	registry := &fakeRegistry{}
	cache := NewCodeptrCache(resolver, registry, nil)

	var wg sync.WaitGroup
	results := make([]Handle, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Resolve(0x3000, interfaces.RegionLoop)
		}(i)
	}
	wg.Wait()
	for i := 1; i < 64; i++ {
		require.Equal(t, results[0], results[i])
	}
}
