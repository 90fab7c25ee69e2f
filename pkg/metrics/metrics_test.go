package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder

	// None of these may panic on a nil receiver.
	r.ObserveStageTransition("research", "completed")
	r.ObserveVersionCreated("accept")
	r.ObserveVersionEvicted()
	r.ObserveSuggestionResolved("declined")
	r.ObserveFlush(3)
	r.ObserveEventsDropped(1)
	r.ObservePersistFailure("stage_sessions")
}

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveStageTransition("research", "completed")
	r.ObserveStageTransition("research", "completed")
	r.ObserveVersionCreated("manual_save")
	r.ObserveSuggestionResolved("accepted")
	r.ObserveFlush(4)
	r.ObserveEventsDropped(2)
	r.ObservePersistFailure("draft_sessions")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		r.stageTransitions.WithLabelValues("research", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.versionsCreated.WithLabelValues("manual_save")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.suggestionsTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(4), testutil.ToFloat64(r.eventsFlushed))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.eventsDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.persistFailures.WithLabelValues("draft_sessions")))
}
