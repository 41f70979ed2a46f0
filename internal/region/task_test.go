package region

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskResetClearsStacksAndFlags(t *testing.T) {
	task := &Task{}
	task.Kind = KindExplicit
	require.NoError(t, task.SyncRegions.Push(1))
	require.NoError(t, task.WorkshareRegions.Push(2))
	task.InOverdueUse.Store(true)
	task.TaskRegion = 5
	task.IsLeague = true
	task.Next = &Task{}

	task.reset()

	require.Equal(t, KindUnknown, task.Kind)
	require.True(t, task.SyncRegions.Empty())
	require.True(t, task.WorkshareRegions.Empty())
	require.False(t, task.InOverdueUse.Load())
	require.Equal(t, Handle(0), task.TaskRegion)
	require.False(t, task.IsLeague)
	require.Nil(t, task.Next)
}

func TestTaskInOverdueUseGatesPoolReturn(t *testing.T) {
	task := &Task{}
	task.InOverdueUse.Store(true)

	pool := &TaskPool{}
	var wg sync.WaitGroup
	wg.Add(1)

	done := make(chan struct{})
	go func() {
		defer wg.Done()
		task.WaitOverdueDone()
		pool.Put(task)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("pool.Put ran before in_overdue_use was observed false")
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, 0, pool.Len(), "task must not be recycled while in_overdue_use is set")

	task.InOverdueUse.Store(false)
	wg.Wait()

	require.Equal(t, 1, pool.Len(), "task must be recycled once in_overdue_use clears")
}
