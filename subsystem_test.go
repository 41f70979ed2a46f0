package ompt

import (
	"testing"

	"github.com/behrlich/go-ompt/internal/interfaces"
)

func TestAdapterLifecycle(t *testing.T) {
	sub := NewFakeSubstrate()
	a := NewAdapter(sub, nil)

	a.Register(SubsystemID(7))
	if a.SubsystemID() != 7 {
		t.Fatalf("expected SubsystemID=7, got %d", a.SubsystemID())
	}

	a.Init()
	a.Begin()
	a.InitLocation(interfaces.LocationID(1))

	ts := a.ThreadBegin()
	if ts == nil || ts.ID == 0 {
		t.Fatal("expected a non-nil ThreadState with a nonzero id")
	}
	a.ThreadEnd(ts)

	finalized := false
	a.End(func() { finalized = true })
	if !finalized {
		t.Error("expected End's finalize callback to run")
	}

	snap := a.MetricsSnapshot()
	if snap.UptimeNs == 0 {
		t.Error("expected a nonzero uptime after Stop")
	}
}

func TestAdapterHooksMatchMethods(t *testing.T) {
	sub := NewFakeSubstrate()
	a := NewAdapter(sub, nil)
	hooks := a.Hooks()

	hooks.Register(SubsystemID(3))
	if a.SubsystemID() != 3 {
		t.Fatalf("expected hooks.Register to set SubsystemID, got %d", a.SubsystemID())
	}

	hooks.Init()
	hooks.Begin()
	hooks.InitLocation(interfaces.LocationID(2))

	ran := false
	hooks.End(func() { ran = true })
	if !ran {
		t.Error("expected hooks.End's finalize callback to run")
	}
}

func TestStartToolReturnsWorkingDescriptor(t *testing.T) {
	sub := NewFakeSubstrate()
	a, desc := StartTool(sub, nil)
	if a == nil {
		t.Fatal("expected a non-nil Adapter")
	}

	ok := desc.Initialize(func(name string) any { return nil })
	if !ok {
		t.Error("expected Initialize to return true")
	}

	desc.Finalize()
	snap := a.MetricsSnapshot()
	if snap.UptimeNs == 0 {
		t.Error("expected metrics to reflect a stopped adapter after Finalize")
	}
}

func TestAdapterWithCustomObserverSkipsMetrics(t *testing.T) {
	sub := NewFakeSubstrate()
	a := NewAdapter(sub, &AdapterOptions{Observer: NoOpObserver{}})
	if a.Metrics() == nil {
		t.Error("expected NewAdapter to still allocate a Metrics instance even with a custom observer")
	}
}
