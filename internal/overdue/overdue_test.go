package overdue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-ompt/internal/interfaces"
	"github.com/behrlich/go-ompt/internal/location"
	"github.com/behrlich/go-ompt/internal/region"
)

type fakeTimer struct{ now uint64 }

func (f *fakeTimer) Now() uint64 { f.now++; return f.now }

type exitEvent struct {
	loc    interfaces.LocationID
	ts     uint64
	region interfaces.RegionHandle
}

type teamEndEvent struct {
	tpd       interfaces.ThreadPrivateData
	ts        uint64
	index     uint32
	teamSize  uint32
}

type fakeSink struct {
	exits    []exitEvent
	teamEnds []teamEndEvent
}

func (s *fakeSink) EnterRegion(interfaces.RegionHandle) {}
func (s *fakeSink) ExitRegion(interfaces.RegionHandle)  {}
func (s *fakeSink) EnterRegionAt(interfaces.LocationID, uint64, interfaces.RegionHandle) {
}
func (s *fakeSink) ExitRegionAt(loc interfaces.LocationID, ts uint64, r interfaces.RegionHandle) {
	s.exits = append(s.exits, exitEvent{loc: loc, ts: ts, region: r})
}
func (s *fakeSink) TriggerStringParameter(interfaces.ParamHandle, string) {}

func (s *fakeSink) Fork(uint32) {}
func (s *fakeSink) Join() interfaces.ThreadPrivateData { return 0 }
func (s *fakeSink) TeamBegin(index, teamSize uint32, parentTPD interfaces.ThreadPrivateData) (interfaces.ThreadPrivateData, interfaces.TaskHandle) {
	return 0, 0
}
func (s *fakeSink) TeamEnd(tpd interfaces.ThreadPrivateData, ts uint64, index, teamSize uint32) {
	s.teamEnds = append(s.teamEnds, teamEndEvent{tpd: tpd, ts: ts, index: index, teamSize: teamSize})
}

func newCoordinator() (*Coordinator, *fakeSink, *fakeTimer) {
	sink := &fakeSink{}
	timer := &fakeTimer{}
	return New(timer, sink, sink, nil), sink, timer
}

func newTestTask(t *testing.T) *region.Task {
	t.Helper()
	r := &region.ParallelRegion{Handle: 10, IBarrierHandle: 11}
	return &region.Task{Region: r, ThreadIndex: 1, TeamSize: 2}
}

func TestDrainEmitsExitsWhenTaskPresent(t *testing.T) {
	coord, sink, _ := newCoordinator()
	data := &location.Data{}
	task := newTestTask(t)
	task.Region.TimestampIBarrierEnd.Store(100)
	task.Region.TimestampITaskEnd.Store(200)
	data.SetTask(task)

	coord.Drain(7, data)

	require.Nil(t, data.Task())
	require.False(t, task.InOverdueUse.Load())
	require.Len(t, sink.exits, 2)
	require.Equal(t, uint64(100), sink.exits[0].ts)
	require.Equal(t, interfaces.RegionHandle(11), sink.exits[0].region)
	require.Equal(t, uint64(200), sink.exits[1].ts)
	require.Equal(t, interfaces.RegionHandle(10), sink.exits[1].region)
	require.Len(t, sink.teamEnds, 1)
}

func TestDrainFallsBackToCurrentTimeWhenTimestampsUnset(t *testing.T) {
	coord, sink, timer := newCoordinator()
	data := &location.Data{}
	task := newTestTask(t)
	data.SetTask(task)

	coord.Drain(1, data)

	require.Greater(t, sink.exits[0].ts, uint64(0))
	require.LessOrEqual(t, sink.exits[0].ts, timer.now)
}

func TestDrainWithNoTaskReturnsImmediately(t *testing.T) {
	coord, sink, _ := newCoordinator()
	data := &location.Data{}

	coord.Drain(1, data)

	require.Empty(t, sink.exits)
}

func TestImplicitBarrierEndThenTaskEndNormalSequence(t *testing.T) {
	coord, sink, _ := newCoordinator()
	data := &location.Data{}
	task := newTestTask(t)
	data.SetTask(task)

	finishedByBarrier := coord.ImplicitBarrierEnd(3, data, task, 50)
	require.False(t, finishedByBarrier, "itask-end has not arrived yet")
	require.Len(t, sink.exits, 1)

	coord.ImplicitTaskEnd(3, data, task, 60)
	require.Len(t, sink.exits, 2)
	require.Equal(t, uint64(60), sink.exits[1].ts)
	require.Nil(t, data.Task())
}

func TestImplicitBarrierEndFinishesInlineWhenItaskEndAlreadyPublished(t *testing.T) {
	coord, sink, _ := newCoordinator()
	data := &location.Data{}
	task := newTestTask(t)
	task.Region.TimestampITaskEnd.Store(999)
	data.SetTask(task)

	finished := coord.ImplicitBarrierEnd(3, data, task, 50)
	require.True(t, finished)
	require.Len(t, sink.exits, 2)
	require.Nil(t, data.Task())
}

func TestImplicitTaskEndAfterDrainIsNoop(t *testing.T) {
	coord, sink, _ := newCoordinator()
	data := &location.Data{}
	task := newTestTask(t)
	data.SetTask(task)

	coord.Drain(1, data) // simulates another thread racing ahead and draining
	require.Len(t, sink.exits, 2)

	coord.ImplicitTaskEnd(1, data, task, 70)
	require.Len(t, sink.exits, 2, "a task already drained overdue must not emit again")
}
