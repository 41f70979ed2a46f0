package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/region"
)

func TestMutexLockAcquireAcquiredReleased(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexLock, 0x1000, 10))
	require.Len(t, sub.enters, 1, "lock-set region must be entered at acquire")

	require.NoError(t, d.MutexAcquired(task, interfaces.MutexLock, 42))
	require.Len(t, sub.acquires, 1)
	require.Equal(t, uint64(1), sub.acquires[0].order)
	require.Len(t, sub.exits, 1, "lock-set region must be exited at acquired")

	require.NoError(t, d.MutexReleased(task, interfaces.MutexLock, 42, 0x1000))
	require.Len(t, sub.releases, 1)
	require.Len(t, sub.enters, 2, "unset region entered at release")
	require.Len(t, sub.exits, 2, "unset region exited at release")
}

func TestMutexNestLockOnlyAdvancesOrderOnOutermost(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexNestLock, 0x1000, 1))
	require.NoError(t, d.MutexAcquired(task, interfaces.MutexNestLock, 7))
	require.Equal(t, uint64(1), sub.acquires[0].order)

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexNestLock, 0x1000, 2))
	require.NoError(t, d.MutexAcquired(task, interfaces.MutexNestLock, 7))
	require.Len(t, sub.acquires, 2, "acquire_lock fires on every nest-lock acquired")
	require.Equal(t, sub.acquires[0].order, sub.acquires[1].order, "re-entrant nest-lock acquisition must not advance acquisition_order")

	require.NoError(t, d.MutexReleased(task, interfaces.MutexNestLock, 7, 0x1000))
	require.Len(t, sub.releases, 1)

	require.NoError(t, d.MutexReleased(task, interfaces.MutexNestLock, 7, 0x1000))
	require.Len(t, sub.releases, 2, "release_lock fires on every nest-lock released")
	require.Equal(t, sub.releases[0].order, sub.releases[1].order)
}

func TestMutexCriticalUnderLockNesting(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexLock, 0x1000, 10))
	require.NoError(t, d.MutexAcquired(task, interfaces.MutexLock, 1))

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexCritical, 0x3000, 20))
	require.NoError(t, d.MutexAcquired(task, interfaces.MutexCritical, 2))
	require.Len(t, sub.acquires, 2)

	require.NoError(t, d.MutexReleased(task, interfaces.MutexCritical, 2, 0x3000))
	require.NoError(t, d.MutexReleased(task, interfaces.MutexLock, 1, 0x1000))
	require.Len(t, sub.releases, 2)
}

func TestMutexReleasedUnknownWaitIDIsBug(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	task := &region.Task{}

	err := d.MutexReleased(task, interfaces.MutexLock, 999, 0x1000)
	require.Error(t, err)
}

func TestMutexTestLockSuccessPath(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	d.TestLockAcquire(task, 0x5000, 5)
	require.NoError(t, d.TestLockAcquired(task, interfaces.MutexLock, 3))

	require.Len(t, sub.enters, 1, "only the test-lock region is entered, not a separate lock-set region")
	require.Len(t, sub.exits, 1)
	require.Len(t, sub.acquires, 1)
}

func TestMutexAtomicIsIgnored(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	require.NoError(t, d.MutexAcquire(task, interfaces.MutexAtomic, 0x1000, 1))
	require.NoError(t, d.MutexAcquired(task, interfaces.MutexAtomic, 1))
	require.NoError(t, d.MutexReleased(task, interfaces.MutexAtomic, 1, 0x1000))

	require.Empty(t, sub.enters)
	require.Empty(t, sub.acquires)
	require.Zero(t, d.mutexes.Len())
}

func TestLockInitDestroyEmitZeroDurationRegions(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	d.LockInit(task, LockInitPlain, 0x6000)
	d.LockDestroy(task, false, 0x6000)

	require.Len(t, sub.enters, 2)
	require.Len(t, sub.exits, 2)
}

func TestNestLockScopeBeginEndTracksOutermost(t *testing.T) {
	d, sub, _, _ := newTestDispatcher()
	task := &region.Task{}

	require.NoError(t, d.NestLockScopeBegin(task, 50))
	require.Len(t, sub.acquires, 1)

	require.NoError(t, d.NestLockScopeBegin(task, 50))
	require.Len(t, sub.acquires, 1, "nested scope-begin must not re-acquire")

	require.NoError(t, d.NestLockScopeEnd(task, 50))
	require.Empty(t, sub.releases)

	require.NoError(t, d.NestLockScopeEnd(task, 50))
	require.Len(t, sub.releases, 1)
}
