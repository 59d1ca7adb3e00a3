package prometheus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ownertask/go-owner-tasks/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskSubmittedTotal  *prom.CounterVec
	taskFinishedTotal   *prom.CounterVec
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "ownertasks"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	submittedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_submitted_total",
		Help:      "Total number of tasks accepted by a manager.",
	}, []string{"manager"})
	finishedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_finished_total",
		Help:      "Total number of tasks that left the registry, by terminal state.",
	}, []string{"manager", "state"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"manager", "state"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of runner callback panics.",
	}, []string{"manager"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"manager", "reason"})

	var err error
	if submittedVec, err = registerCollector(reg, submittedVec); err != nil {
		return nil, err
	}
	if finishedVec, err = registerCollector(reg, finishedVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskSubmittedTotal:  submittedVec,
		taskFinishedTotal:   finishedVec,
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
	}, nil
}

// RecordTaskSubmitted records an accepted task.
func (m *MetricsExporter) RecordTaskSubmitted(managerName string) {
	if m == nil {
		return
	}
	m.taskSubmittedTotal.WithLabelValues(normalizeLabel(managerName, "unknown")).Inc()
}

// RecordTaskFinished records the terminal state and run duration of a task.
func (m *MetricsExporter) RecordTaskFinished(managerName string, state core.TaskState, duration time.Duration) {
	if m == nil {
		return
	}
	manager := normalizeLabel(managerName, "unknown")
	label := stateLabel(state)
	m.taskFinishedTotal.WithLabelValues(manager, label).Inc()
	m.taskDurationSeconds.WithLabelValues(manager, label).Observe(duration.Seconds())
}

// RecordTaskPanic records callback panic events.
func (m *MetricsExporter) RecordTaskPanic(managerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(managerName, "unknown")).Inc()
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(managerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(managerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func stateLabel(state core.TaskState) string {
	switch state {
	case core.StateNew, core.StateRunning, core.StateCancelled,
		core.StateForfeited, core.StateError, core.StateFinished:
		return strings.ToLower(state.String())
	default:
		return "unknown"
	}
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
