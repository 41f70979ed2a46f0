package region

import "sync"

// TaskPool is a single adapter thread's free list of Task objects
// (spec.md §3: "a thread-local free list of tasks"). It is not safe
// for concurrent use; each adapter thread owns exactly one.
type TaskPool struct {
	free *Task
	n    int
}

// Get returns a reused Task if the free list is non-empty, otherwise
// allocates a new one.
func (p *TaskPool) Get() *Task {
	if p.free == nil {
		return &Task{}
	}
	t := p.free
	p.free = t.freeNext
	p.n--
	t.freeNext = nil
	return t
}

// Put resets t and pushes it onto the free list (spec.md §4.3: "when
// zero the task and (eventually) the region return to their pools").
// Callers must have already observed t.InOverdueUse false.
func (p *TaskPool) Put(t *Task) {
	t.reset()
	t.freeNext = p.free
	p.free = t
	p.n++
}

// Len reports the number of free tasks held by this thread's pool.
func (p *TaskPool) Len() int { return p.n }

// RegionPool is the process-global free list of ParallelRegion
// objects, protected by its own mutex (spec.md §3: "global
// parallel-region free list under its own mutex"; §5: "The
// parallel-region free list is protected by a dedicated mutex").
type RegionPool struct {
	mu   sync.Mutex
	free *ParallelRegion
	n    int
}

// Get returns a reused ParallelRegion with its refcount already reset
// to the uninitialized sentinel, or allocates a new one.
func (p *RegionPool) Get() *ParallelRegion {
	p.mu.Lock()
	r := p.free
	if r != nil {
		p.free = r.freeNext
		p.n--
	}
	p.mu.Unlock()

	if r == nil {
		return newParallelRegion()
	}
	r.freeNext = nil
	return r
}

// Put resets r and returns it to the free list (spec.md §4.2 step 3,
// §4.3: "At team-end"). Callers must have already observed
// r.Refcount reaching zero.
func (p *RegionPool) Put(r *ParallelRegion) {
	r.reset()
	p.mu.Lock()
	r.freeNext = p.free
	p.free = r
	p.n++
	p.mu.Unlock()
}

// Len reports the number of free regions, used by tests and the
// observer's occupancy gauges.
func (p *RegionPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
