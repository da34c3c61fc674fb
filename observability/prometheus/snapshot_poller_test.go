package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-coop/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type runtimeStub struct {
	stats core.RuntimeStats
}

func (s runtimeStub) Stats() core.RuntimeStats { return s.stats }

func TestSnapshotPoller_CollectsRuntimeStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddRuntime("rt-a", runtimeStub{stats: core.RuntimeStats{
		Ready:     3,
		Timers:    2,
		Live:      6,
		Completed: 10,
		Rejected:  2,
		Closed:    true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		ready := testutil.ToFloat64(poller.ready.WithLabelValues("rt-a"))
		live := testutil.ToFloat64(poller.live.WithLabelValues("rt-a"))
		return ready == 3 && live == 6
	})

	if got := testutil.ToFloat64(poller.closed.WithLabelValues("rt-a")); got != 1 {
		t.Fatalf("runtime closed gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.completed.WithLabelValues("rt-a")); got != 10 {
		t.Fatalf("completed gauge = %v, want 10", got)
	}
}

func TestSnapshotPoller_LiveRuntime(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	rt := core.NewRuntimeWithConfig(&core.RuntimeConfig{Name: "live"})
	var sig core.Signal
	rt.Spawn(sig.Await())
	rt.Spawn(core.Do(func() {}))
	rt.Drain()
	poller.AddRuntime(rt.Name(), rt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		live := testutil.ToFloat64(poller.live.WithLabelValues("live"))
		completed := testutil.ToFloat64(poller.completed.WithLabelValues("live"))
		return live == 1 && completed == 1
	})
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
