package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-coop/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RuntimeSnapshotProvider provides current runtime stats snapshots.
// *core.Runtime satisfies it.
type RuntimeSnapshotProvider interface {
	Stats() core.RuntimeStats
}

// SnapshotPoller periodically exports runtime Stats() snapshots into Prometheus gauges.
//
// The poller only reads atomic counters, so it can run on its own goroutine
// while the owner keeps ticking the runtime.
type SnapshotPoller struct {
	interval time.Duration

	runtimesMu sync.RWMutex
	runtimes   map[string]RuntimeSnapshotProvider

	ready     *prom.GaugeVec
	inbox     *prom.GaugeVec
	timers    *prom.GaugeVec
	live      *prom.GaugeVec
	spawned   *prom.GaugeVec
	completed *prom.GaugeVec
	panicked  *prom.GaugeVec
	steps     *prom.GaugeVec
	rejected  *prom.GaugeVec
	closed    *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "coop",
			Subsystem: "runtime",
			Name:      name,
			Help:      help,
		}, []string{"runtime"})
	}

	p := &SnapshotPoller{
		interval:  interval,
		runtimes:  make(map[string]RuntimeSnapshotProvider),
		ready:     gauge("ready", "Tasks in the ready queue."),
		inbox:     gauge("inbox", "Spawned tasks not yet admitted from the inbox."),
		timers:    gauge("timers", "Tasks parked in the timer wheel."),
		live:      gauge("live", "Tasks admitted and not yet finished."),
		spawned:   gauge("spawned_total", "Runtime spawned task count snapshot."),
		completed: gauge("completed_total", "Runtime completed task count snapshot."),
		panicked:  gauge("panicked_total", "Runtime panicked task count snapshot."),
		steps:     gauge("steps_total", "Runtime step count snapshot."),
		rejected:  gauge("rejected_total", "Runtime rejected spawn count snapshot."),
		closed:    gauge("closed", "Runtime closed state (1=closed, 0=open)."),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.ready, &p.inbox, &p.timers, &p.live, &p.spawned,
		&p.completed, &p.panicked, &p.steps, &p.rejected, &p.closed,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}

	return p, nil
}

// AddRuntime adds or replaces a runtime snapshot provider by name.
func (p *SnapshotPoller) AddRuntime(name string, provider RuntimeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runtime")
	p.runtimesMu.Lock()
	p.runtimes[name] = provider
	p.runtimesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runtimesMu.RLock()
	defer p.runtimesMu.RUnlock()

	for name, provider := range p.runtimes {
		stats := provider.Stats()
		p.ready.WithLabelValues(name).Set(float64(stats.Ready))
		p.inbox.WithLabelValues(name).Set(float64(stats.Inbox))
		p.timers.WithLabelValues(name).Set(float64(stats.Timers))
		p.live.WithLabelValues(name).Set(float64(stats.Live))
		p.spawned.WithLabelValues(name).Set(float64(stats.Spawned))
		p.completed.WithLabelValues(name).Set(float64(stats.Completed))
		p.panicked.WithLabelValues(name).Set(float64(stats.Panicked))
		p.steps.WithLabelValues(name).Set(float64(stats.Steps))
		p.rejected.WithLabelValues(name).Set(float64(stats.Rejected))
		if stats.Closed {
			p.closed.WithLabelValues(name).Set(1)
		} else {
			p.closed.WithLabelValues(name).Set(0)
		}
	}
}
