package ompt

import (
	"sync"
	"sync/atomic"
	"time"
)

// LatencyBucketsNs defines the latency histogram buckets in
// nanoseconds, logarithmically spaced from 1us to 10s. The adapter's
// only latency worth histogramming today is how long an overdue drain
// (spec.md §4.3.1) holds a location's PreserveOrder mutex, but the
// histogram is keyed by name so any future ObserveLatencyNs caller
// gets its own bucket set for free.
var LatencyBucketsNs = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// latencyHistogram accumulates one named latency series.
type latencyHistogram struct {
	buckets [numLatencyBuckets]atomic.Uint64
	total   atomic.Uint64
	count   atomic.Uint64
}

func (h *latencyHistogram) record(ns uint64) {
	h.total.Add(ns)
	h.count.Add(1)
	for i, b := range LatencyBucketsNs {
		if ns <= b {
			h.buckets[i].Add(1)
		}
	}
}

// LatencySnapshot is a point-in-time read of one named latency series.
type LatencySnapshot struct {
	Count     uint64
	AvgNs     uint64
	Histogram [numLatencyBuckets]uint64
}

func (h *latencyHistogram) snapshot() LatencySnapshot {
	snap := LatencySnapshot{Count: h.count.Load()}
	if total := h.total.Load(); snap.Count > 0 {
		snap.AvgNs = total / snap.Count
	}
	for i := range h.buckets {
		snap.Histogram[i] = h.buckets[i].Load()
	}
	return snap
}

// counterMap is a lazily-populated set of named atomic counters,
// generalizing the teacher's fixed ReadOps/WriteOps/DiscardOps/FlushOps
// fields: the adapter's event vocabulary (~20 OMPT callback kinds,
// plus whatever unsupported-feature/bug kinds get coined at call
// sites) is open-ended, so counters are keyed by name instead of being
// enumerated as struct fields.
type counterMap struct {
	m sync.Map // map[string]*atomic.Uint64
}

func (c *counterMap) add(kind string, n uint64) {
	v, _ := c.m.LoadOrStore(kind, new(atomic.Uint64))
	v.(*atomic.Uint64).Add(n)
}

func (c *counterMap) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	c.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return out
}

// histogramMap is the latency analogue of counterMap.
type histogramMap struct {
	m sync.Map // map[string]*latencyHistogram
}

func (h *histogramMap) record(kind string, ns uint64) {
	v, _ := h.m.LoadOrStore(kind, &latencyHistogram{})
	v.(*latencyHistogram).record(ns)
}

func (h *histogramMap) snapshot() map[string]LatencySnapshot {
	out := make(map[string]LatencySnapshot)
	h.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*latencyHistogram).snapshot()
		return true
	})
	return out
}

// Metrics tracks operational statistics for one adapter instance:
// per-event-kind counts, overdue-drain counts, warning/bug counts by
// kind, and named latency histograms (spec.md §5, §7 "errors ...
// surfaced through the substrate's debug/warning channel").
type Metrics struct {
	events       counterMap
	warningKinds counterMap
	bugKinds     counterMap
	latencies    histogramMap

	OverdueDrains atomic.Uint64
	Warnings      atomic.Uint64
	Bugs          atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordEvent increments the counter for one dispatched callback kind
// (e.g. "parallel_begin", "implicit_task_end", "mutex_acquired").
func (m *Metrics) RecordEvent(kind string) {
	m.events.add(kind, 1)
}

// RecordOverdueDrain records one completed overdue-drain (spec.md
// §4.3.1).
func (m *Metrics) RecordOverdueDrain() {
	m.OverdueDrains.Add(1)
}

// RecordWarning records one single-shot unsupported-feature or
// runtime-misbehavior warning, by kind (spec.md §7).
func (m *Metrics) RecordWarning(kind string) {
	m.Warnings.Add(1)
	m.warningKinds.add(kind, 1)
}

// RecordBug records one fatal protocol-bug observation, by kind
// (spec.md §7). Recording happens before the logger's abort hook
// fires, so a test harness can inspect counts even though the process
// would normally exit.
func (m *Metrics) RecordBug(kind string) {
	m.Bugs.Add(1)
	m.bugKinds.add(kind, 1)
}

// RecordLatencyNs records one sample into the named latency series.
func (m *Metrics) RecordLatencyNs(kind string, ns uint64) {
	m.latencies.record(kind, ns)
}

// Stop marks the adapter instance as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic read of Metrics.
type MetricsSnapshot struct {
	EventCounts   map[string]uint64
	WarningKinds  map[string]uint64
	BugKinds      map[string]uint64
	Latencies     map[string]LatencySnapshot
	OverdueDrains uint64
	Warnings      uint64
	Bugs          uint64
	UptimeNs      uint64
	TotalEvents   uint64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EventCounts:   m.events.snapshot(),
		WarningKinds:  m.warningKinds.snapshot(),
		BugKinds:      m.bugKinds.snapshot(),
		Latencies:     m.latencies.snapshot(),
		OverdueDrains: m.OverdueDrains.Load(),
		Warnings:      m.Warnings.Load(),
		Bugs:          m.Bugs.Load(),
	}

	for _, n := range snap.EventCounts {
		snap.TotalEvents += n
	}

	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}

	return snap
}

// Observer is the adapter's pluggable metrics-collection surface. It
// is a superset of internal/interfaces.Observer with the same method
// set, duplicated here (rather than imported) so that callers of this
// module's public API never need to import an internal package to
// implement one.
type Observer interface {
	ObserveEvent(kind string)
	ObserveOverdueDrain()
	ObserveWarning(kind string)
	ObserveBug(kind string)
	ObserveLatencyNs(kind string, ns uint64)
}

// NoOpObserver discards every observation. It is the default when an
// Adapter is constructed without an explicit Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEvent(string)            {}
func (NoOpObserver) ObserveOverdueDrain()           {}
func (NoOpObserver) ObserveWarning(string)          {}
func (NoOpObserver) ObserveBug(string)              {}
func (NoOpObserver) ObserveLatencyNs(string, uint64) {}

// MetricsObserver implements Observer by recording into a Metrics
// instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEvent(kind string)  { o.metrics.RecordEvent(kind) }
func (o *MetricsObserver) ObserveOverdueDrain()      { o.metrics.RecordOverdueDrain() }
func (o *MetricsObserver) ObserveWarning(kind string) { o.metrics.RecordWarning(kind) }
func (o *MetricsObserver) ObserveBug(kind string)     { o.metrics.RecordBug(kind) }
func (o *MetricsObserver) ObserveLatencyNs(kind string, ns uint64) {
	o.metrics.RecordLatencyNs(kind, ns)
}

// Compile-time interface checks.
var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
