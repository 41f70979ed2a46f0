package ompt

import (
	"sync"

	"github.com/behrlich/go-ompt/internal/interfaces"
)

// FakeSubstrate implements interfaces.Substrate with an in-memory event
// log, for tests that drive an Adapter end-to-end without a real
// measurement backend. It is the exported counterpart of
// internal/dispatch's package-private fakeSubstrate: callers outside
// this module need a substrate they can hand to NewAdapter without
// reaching into an internal package.
type FakeSubstrate struct {
	mu sync.RWMutex

	now         uint64
	closed      bool
	regionNames []string
	regionKinds []interfaces.RegionKind
	files       []string

	enters []RegionEvent
	exits  []RegionEvent

	forks      []uint32
	joinCalls  int
	teamBegins []TeamBeginCall
	teamEnds   []TeamEndCall

	taskCreates  []TaskCreateCall
	taskBegins   []TaskBeginCall
	taskSwitches []interfaces.TaskHandle
	taskEnds     []TaskEndCall

	acquires []LockCall
	releases []LockCall

	nextTask interfaces.TaskHandle
}

// RegionEvent records one EnterRegion/ExitRegion(At) call.
type RegionEvent struct {
	Location interfaces.LocationID
	Ts       uint64
	Region   interfaces.RegionHandle
	Timed    bool
}

// TeamBeginCall records one TeamBegin call.
type TeamBeginCall struct {
	Index, TeamSize uint32
	ParentTPD       interfaces.ThreadPrivateData
}

// TeamEndCall records one TeamEnd call.
type TeamEndCall struct {
	TPD             interfaces.ThreadPrivateData
	Ts              uint64
	Index, TeamSize uint32
}

// TaskCreateCall records one TaskCreate call.
type TaskCreateCall struct{ ThreadNum, Gen uint32 }

// TaskBeginCall records one TaskBegin call.
type TaskBeginCall struct {
	Region         interfaces.RegionHandle
	ThreadNum, Gen uint32
}

// TaskEndCall records one TaskEnd call.
type TaskEndCall struct {
	Region interfaces.RegionHandle
	Task   interfaces.TaskHandle
}

// LockCall records one AcquireLock/ReleaseLock call.
type LockCall struct {
	ID    interfaces.MutexHandle
	Order uint64
}

// NewFakeSubstrate creates an empty fake substrate. Now() starts
// ticking from 1 so a zero timestamp is never mistaken for a real one.
func NewFakeSubstrate() *FakeSubstrate {
	return &FakeSubstrate{}
}

func (f *FakeSubstrate) NewSourceFile(name string) interfaces.SourceFileHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, name)
	return interfaces.SourceFileHandle(len(f.files))
}

func (f *FakeSubstrate) NewRegion(name, canonicalName string, file interfaces.SourceFileHandle, beginLine, endLine int, kind interfaces.RegionKind) interfaces.RegionHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regionNames = append(f.regionNames, name)
	f.regionKinds = append(f.regionKinds, kind)
	return interfaces.RegionHandle(len(f.regionNames))
}

func (f *FakeSubstrate) NewParameter(name string, kind interfaces.RegionKind) interfaces.ParamHandle {
	return 0
}

func (f *FakeSubstrate) NewInterimCommunicator(parent interfaces.CommunicatorHandle, size int) interfaces.CommunicatorHandle {
	return 0
}

// RegionHandleBits returns 20, wide enough for the fake's tests while
// still leaving generation/thread-num bits in a 64-bit explicit-task
// word (spec.md §4.4).
func (f *FakeSubstrate) RegionHandleBits() uint { return 20 }

func (f *FakeSubstrate) CurrentLocation() interfaces.LocationID          { return 0 }
func (f *FakeSubstrate) CreateLocation(name string) interfaces.LocationID { return 0 }
func (f *FakeSubstrate) LastTimestamp(loc interfaces.LocationID) uint64  { return 0 }

func (f *FakeSubstrate) EnterRegion(r interfaces.RegionHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters = append(f.enters, RegionEvent{Region: r})
}

func (f *FakeSubstrate) ExitRegion(r interfaces.RegionHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits = append(f.exits, RegionEvent{Region: r})
}

func (f *FakeSubstrate) EnterRegionAt(loc interfaces.LocationID, ts uint64, r interfaces.RegionHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters = append(f.enters, RegionEvent{Location: loc, Ts: ts, Region: r, Timed: true})
}

func (f *FakeSubstrate) ExitRegionAt(loc interfaces.LocationID, ts uint64, r interfaces.RegionHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits = append(f.exits, RegionEvent{Location: loc, Ts: ts, Region: r, Timed: true})
}

func (f *FakeSubstrate) TriggerStringParameter(param interfaces.ParamHandle, value string) {}

func (f *FakeSubstrate) Fork(requestedParallelism uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forks = append(f.forks, requestedParallelism)
}

func (f *FakeSubstrate) Join() interfaces.ThreadPrivateData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls++
	return 0
}

func (f *FakeSubstrate) TeamBegin(index, teamSize uint32, parentTPD interfaces.ThreadPrivateData) (interfaces.ThreadPrivateData, interfaces.TaskHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamBegins = append(f.teamBegins, TeamBeginCall{Index: index, TeamSize: teamSize, ParentTPD: parentTPD})
	return interfaces.ThreadPrivateData(index + 1), 0
}

func (f *FakeSubstrate) TeamEnd(tpd interfaces.ThreadPrivateData, ts uint64, index, teamSize uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamEnds = append(f.teamEnds, TeamEndCall{TPD: tpd, Ts: ts, Index: index, TeamSize: teamSize})
}

func (f *FakeSubstrate) TaskCreate(threadNum, gen uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskCreates = append(f.taskCreates, TaskCreateCall{ThreadNum: threadNum, Gen: gen})
}

func (f *FakeSubstrate) TaskBegin(region interfaces.RegionHandle, threadNum, gen uint32) interfaces.TaskHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskBegins = append(f.taskBegins, TaskBeginCall{Region: region, ThreadNum: threadNum, Gen: gen})
	f.nextTask++
	return f.nextTask
}

func (f *FakeSubstrate) TaskSwitch(task interfaces.TaskHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskSwitches = append(f.taskSwitches, task)
}

func (f *FakeSubstrate) TaskEnd(region interfaces.RegionHandle, task interfaces.TaskHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskEnds = append(f.taskEnds, TaskEndCall{Region: region, Task: task})
}

func (f *FakeSubstrate) AcquireLock(id interfaces.MutexHandle, order uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires = append(f.acquires, LockCall{ID: id, Order: order})
}

func (f *FakeSubstrate) ReleaseLock(id interfaces.MutexHandle, order uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, LockCall{ID: id, Order: order})
}

// Resolve returns a synthetic source location keyed by addr, so tests
// can assert distinct codeptrs resolved to distinct regions without
// needing real debug info.
func (f *FakeSubstrate) Resolve(addr uintptr) interfaces.SourceLocation {
	return interfaces.SourceLocation{File: "fake.c", Line: int(addr), HasDebug: true}
}

func (f *FakeSubstrate) Phase() interfaces.Phase { return interfaces.PhaseWithin }

// Now returns a monotonically increasing counter, starting at 1.
func (f *FakeSubstrate) Now() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now++
	return f.now
}

func (f *FakeSubstrate) AlignedAlloc(size int) []byte { return make([]byte, size) }
func (f *FakeSubstrate) ArenaAlloc(size int) []byte   { return make([]byte, size) }

// Testing accessor methods.

// Enters returns a copy of every EnterRegion(At) call recorded so far.
func (f *FakeSubstrate) Enters() []RegionEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]RegionEvent(nil), f.enters...)
}

// Exits returns a copy of every ExitRegion(At) call recorded so far.
func (f *FakeSubstrate) Exits() []RegionEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]RegionEvent(nil), f.exits...)
}

// Forks returns the requested-parallelism argument of every Fork call.
func (f *FakeSubstrate) Forks() []uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]uint32(nil), f.forks...)
}

// CallCounts returns the number of times each substrate method group
// has been invoked, mirroring the teacher's mock-backend accessor
// style.
func (f *FakeSubstrate) CallCounts() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return map[string]int{
		"enter":       len(f.enters),
		"exit":        len(f.exits),
		"fork":        len(f.forks),
		"join":        f.joinCalls,
		"team_begin":  len(f.teamBegins),
		"team_end":    len(f.teamEnds),
		"task_create": len(f.taskCreates),
		"task_begin":  len(f.taskBegins),
		"task_switch": len(f.taskSwitches),
		"task_end":    len(f.taskEnds),
		"acquire":     len(f.acquires),
		"release":     len(f.releases),
	}
}

// RegionCount returns the number of distinct regions NewRegion has
// defined.
func (f *FakeSubstrate) RegionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.regionNames)
}

// Reset clears all recorded calls but keeps the running Now() counter,
// for reusing one fake substrate across independent test phases.
func (f *FakeSubstrate) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters = nil
	f.exits = nil
	f.forks = nil
	f.joinCalls = 0
	f.teamBegins = nil
	f.teamEnds = nil
	f.taskCreates = nil
	f.taskBegins = nil
	f.taskSwitches = nil
	f.taskEnds = nil
	f.acquires = nil
	f.releases = nil
}

// Compile-time interface check.
var _ interfaces.Substrate = (*FakeSubstrate)(nil)
