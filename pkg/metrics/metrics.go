// Package metrics provides Prometheus-based metrics recording for the
// draftflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records engine activity as Prometheus metrics. A nil *Recorder is
// valid and records nothing, so callers can run without metrics wired up.
type Recorder struct {
	stageTransitions  *prometheus.CounterVec
	versionsCreated   *prometheus.CounterVec
	versionsEvicted   prometheus.Counter
	suggestionsTotal  *prometheus.CounterVec
	eventsFlushed     prometheus.Counter
	eventsDropped     prometheus.Counter
	persistFailures   *prometheus.CounterVec
	flushBatchSize    prometheus.Histogram
}

// NewRecorder creates a recorder registered against the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		stageTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_stage_transitions_total",
				Help: "Total stage status transitions by stage and resulting status",
			},
			[]string{"stage", "status"},
		),
		versionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_versions_created_total",
				Help: "Total document versions created by trigger",
			},
			[]string{"trigger"},
		),
		versionsEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftflow_versions_evicted_total",
				Help: "Total document versions evicted from the bounded history",
			},
		),
		suggestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_suggestions_resolved_total",
				Help: "Total suggestions resolved by resolution",
			},
			[]string{"resolution"},
		),
		eventsFlushed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftflow_events_flushed_total",
				Help: "Total edit events flushed to the learning sink",
			},
		),
		eventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "draftflow_events_dropped_total",
				Help: "Total edit events dropped by sink failures",
			},
		),
		persistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftflow_persist_failures_total",
				Help: "Total durable-store write failures by namespace",
			},
			[]string{"namespace"},
		),
		flushBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "draftflow_event_flush_batch_size",
				Help:    "Number of events emitted per debounce flush",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
	}
}

// ObserveStageTransition records a stage moving to a new status.
func (r *Recorder) ObserveStageTransition(stage, status string) {
	if r == nil {
		return
	}
	r.stageTransitions.WithLabelValues(stage, status).Inc()
}

// ObserveVersionCreated records a new document version.
func (r *Recorder) ObserveVersionCreated(trigger string) {
	if r == nil {
		return
	}
	r.versionsCreated.WithLabelValues(trigger).Inc()
}

// ObserveVersionEvicted records a version falling off the bounded history.
func (r *Recorder) ObserveVersionEvicted() {
	if r == nil {
		return
	}
	r.versionsEvicted.Inc()
}

// ObserveSuggestionResolved records an accept or decline decision.
func (r *Recorder) ObserveSuggestionResolved(resolution string) {
	if r == nil {
		return
	}
	r.suggestionsTotal.WithLabelValues(resolution).Inc()
}

// ObserveFlush records a completed debounce flush of n events.
func (r *Recorder) ObserveFlush(n int) {
	if r == nil {
		return
	}
	r.eventsFlushed.Add(float64(n))
	r.flushBatchSize.Observe(float64(n))
}

// ObserveEventsDropped records events lost to a sink failure.
func (r *Recorder) ObserveEventsDropped(n int) {
	if r == nil {
		return
	}
	r.eventsDropped.Add(float64(n))
}

// ObservePersistFailure records a durable-store write failure.
func (r *Recorder) ObservePersistFailure(namespace string) {
	if r == nil {
		return
	}
	r.persistFailures.WithLabelValues(namespace).Inc()
}
