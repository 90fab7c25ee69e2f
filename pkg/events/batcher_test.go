package events

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draftflow/pkg/config"
	"draftflow/pkg/proto"
)

func editEvent(data map[string]any) *proto.EditEvent {
	return proto.NewEditEvent(proto.EventTypeEdit, data, "thread-1")
}

func TestTrackEditDebounceCoalesces(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, 30*time.Millisecond, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	b.TrackEdit(editEvent(map[string]any{"n": 2}))
	b.TrackEdit(editEvent(map[string]any{"n": 3}))

	// Nothing emitted inside the debounce window.
	assert.Empty(t, sink.Events())
	assert.Equal(t, 3, b.Pending())

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.Pending())
}

func TestTrackEditRestartsTimer(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, 50*time.Millisecond, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	time.Sleep(30 * time.Millisecond)
	// Second event within the window restarts the countdown.
	b.TrackEdit(editEvent(map[string]any{"n": 2}))
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, sink.Events())

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBatcherSettingsFollowConfig(t *testing.T) {
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)
	require.NoError(t, config.LoadConfig(t.TempDir()))
	require.NoError(t, config.UpdateRetention(5, 10))

	sink := NewCollectorSink()
	b := NewBatcher(sink, time.Hour, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"after_text": "0123456789abcdef"}))
	b.Flush()

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "0123456789", events[0].EventData["after_text"], "truncation bound comes from the loaded config")
}

func TestBatcherStartsDisabledWhenConfigSaysSo(t *testing.T) {
	config.ResetForTest()
	t.Cleanup(config.ResetForTest)
	require.NoError(t, config.LoadConfig(t.TempDir()))
	require.NoError(t, config.UpdateTracking(false))

	sink := NewCollectorSink()
	b := NewBatcher(sink, time.Hour, 0, nil)

	assert.False(t, b.Enabled())
	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	b.Flush()
	assert.Empty(t, sink.Events())
}

func TestManualFlushBypassesTimer(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, time.Hour, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	b.TrackEdit(editEvent(map[string]any{"n": 2}))
	b.Flush()

	assert.Len(t, sink.Events(), 2)
	assert.Equal(t, 0, b.Pending())

	// A second flush with an empty queue emits nothing new.
	b.Flush()
	assert.Len(t, sink.Events(), 2)
}

func TestDisabledTrackerNeverEnqueues(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, 10*time.Millisecond, 0, nil)
	b.SetEnabled(false)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	assert.Equal(t, 0, b.Pending())

	b.Flush()
	assert.Empty(t, sink.Events())

	b.SetEnabled(true)
	b.TrackEdit(editEvent(map[string]any{"n": 2}))
	assert.Equal(t, 1, b.Pending())
}

func TestTruncationBoundsTextFields(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, time.Hour, 10, nil)

	long := strings.Repeat("a", 50)
	b.TrackEdit(editEvent(map[string]any{
		"before_text": long,
		"after_text":  long,
		"context":     long,
		"note":        long, // not a text field, left alone
	}))
	b.Flush()

	emitted := sink.Events()
	require.Len(t, emitted, 1)
	assert.Len(t, emitted[0].EventData["before_text"], 10)
	assert.Len(t, emitted[0].EventData["after_text"], 10)
	assert.Len(t, emitted[0].EventData["context"], 10)
	assert.Len(t, emitted[0].EventData["note"], 50)
}

func TestSinkFailureDropsWithoutError(t *testing.T) {
	sink := NewCollectorSink()
	sink.FailEmits = true
	b := NewBatcher(sink, time.Hour, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	// Flush must swallow sink failures and clear the queue regardless.
	b.Flush()
	assert.Equal(t, 0, b.Pending())
	assert.Empty(t, sink.Events())
}

func TestCloseFlushesAndStops(t *testing.T) {
	sink := NewCollectorSink()
	b := NewBatcher(sink, time.Hour, 0, nil)

	b.TrackEdit(editEvent(map[string]any{"n": 1}))
	b.Close()
	assert.Len(t, sink.Events(), 1)

	// After close, tracked events are ignored.
	b.TrackEdit(editEvent(map[string]any{"n": 2}))
	b.Flush()
	assert.Len(t, sink.Events(), 1)
}

func TestGenerateEventID(t *testing.T) {
	a := GenerateEventID()
	c := GenerateEventID()
	assert.True(t, strings.HasPrefix(a, "event-"))
	assert.NotEqual(t, a, c)
}
