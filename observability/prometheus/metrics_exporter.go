package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-coop/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	StepBuckets []float64
}

// defaultStepBuckets covers steps from 10µs to ~1s; steps are expected to be short.
var defaultStepBuckets = prom.ExponentialBuckets(0.00001, 4, 9)

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	stepDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	readyQueueDepth     *prom.GaugeVec
	timersPending       *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "coop"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.StepBuckets
	if len(buckets) == 0 {
		buckets = defaultStepBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of a single computation step in seconds.",
		Buckets:   buckets,
	}, []string{"runtime", "status"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of computation panics.",
	}, []string{"runtime"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected spawns.",
	}, []string{"runtime", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "ready_queue_depth",
		Help:      "Tasks waiting in the ready queue after the last tick.",
	}, []string{"runtime"})
	timersVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "timers_pending",
		Help:      "Tasks parked in the timer wheel after the last tick.",
	}, []string{"runtime"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if timersVec, err = registerCollector(reg, timersVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		stepDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		readyQueueDepth:     queueDepthVec,
		timersPending:       timersVec,
	}, nil
}

// RecordStepDuration records how long a step took, labelled by its outcome.
func (m *MetricsExporter) RecordStepDuration(runtimeName string, status core.Status, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDurationSeconds.WithLabelValues(normalizeLabel(runtimeName, "unknown"), status.String()).Observe(duration.Seconds())
}

// RecordTaskPanic records computation panics.
func (m *MetricsExporter) RecordTaskPanic(runtimeName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runtimeName, "unknown")).Inc()
}

// RecordQueueDepth records the ready queue length.
func (m *MetricsExporter) RecordQueueDepth(runtimeName string, depth int) {
	if m == nil {
		return
	}
	m.readyQueueDepth.WithLabelValues(normalizeLabel(runtimeName, "unknown")).Set(float64(depth))
}

// RecordTimersPending records the timer wheel size.
func (m *MetricsExporter) RecordTimersPending(runtimeName string, pending int) {
	if m == nil {
		return
	}
	m.timersPending.WithLabelValues(normalizeLabel(runtimeName, "unknown")).Set(float64(pending))
}

// RecordTaskRejected records spawn rejections.
func (m *MetricsExporter) RecordTaskRejected(runtimeName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(runtimeName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
