// Package events batches extracted preference signals and delivers them to
// the learning event sink without blocking the editing surface.
//
// Events queue in memory; each new event restarts a debounce timer, and on
// expiry the whole queue flushes as individual records. Sink failures are
// logged and swallowed: the local session state stays authoritative even
// when the remote sink is unreachable.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"draftflow/pkg/config"
	"draftflow/pkg/logx"
	"draftflow/pkg/metrics"
	"draftflow/pkg/proto"
)

// DefaultDebounce is the quiet period before queued events flush.
const DefaultDebounce = 2 * time.Second

// DefaultMaxTextLen bounds the text fields on emitted records.
const DefaultMaxTextLen = 500

// textFields are the event_data keys subject to length truncation.
//
//nolint:gochecknoglobals // Static field table
var textFields = []string{
	"before_text",
	"after_text",
	"original_text",
	"proposed_text",
	"user_text",
	"context",
}

// Batcher accumulates edit events and flushes them after a debounce period.
type Batcher struct {
	mu         sync.Mutex
	queue      []*proto.EditEvent
	timer      *time.Timer
	sink       Sink
	debounce   time.Duration
	maxTextLen int
	enabled    bool
	closed     bool
	logger     *logx.Logger
	recorder   *metrics.Recorder
}

// NewBatcher creates a batcher delivering to the given sink. A zero debounce
// or maxTextLen selects the active config's value (engine defaults when no
// config is loaded); the config's tracking toggle sets the initial enabled
// state. The recorder may be nil.
func NewBatcher(sink Sink, debounce time.Duration, maxTextLen int, recorder *metrics.Recorder) *Batcher {
	cfg := config.Active()
	if debounce <= 0 {
		debounce = cfg.DebounceInterval
	}
	if maxTextLen <= 0 {
		maxTextLen = cfg.MaxEventTextLen
	}
	return &Batcher{
		sink:       sink,
		debounce:   debounce,
		maxTextLen: maxTextLen,
		enabled:    cfg.TrackingEnabled,
		logger:     logx.NewLogger("events"),
		recorder:   recorder,
	}
}

// GenerateEventID generates a new UUID for an event record.
func GenerateEventID() string {
	return "event-" + uuid.New().String()
}

// SetEnabled toggles tracking. While disabled, TrackEdit never enqueues.
func (b *Batcher) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Enabled reports whether tracking is active.
func (b *Batcher) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Pending returns the number of queued, unflushed events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// TrackEdit enqueues one event and restarts the debounce timer. Text fields
// are truncated to the configured bound at enqueue time so the queue never
// holds oversized payloads.
func (b *Batcher) TrackEdit(event *proto.EditEvent) {
	if event == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled || b.closed {
		return
	}

	b.truncateFields(event)
	b.queue = append(b.queue, event)

	// Restart the debounce window. The callback re-reads the live queue at
	// fire time rather than capturing it here.
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.Flush)
}

// Flush sends all queued events immediately, bypassing the timer. Used
// before operations that must not lose pending signal, such as a manual
// save or stage approval.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	// Each record is emitted individually, not as one batched blob.
	dropped := 0
	for _, event := range batch {
		if err := b.sink.Emit(event); err != nil {
			dropped++
			b.logger.Warn("Failed to emit %s event: %v", event.EventType, err)
		}
	}

	b.recorder.ObserveFlush(len(batch) - dropped)
	if dropped > 0 {
		b.recorder.ObserveEventsDropped(dropped)
	}
	b.logger.Debug("Flushed %d events (%d dropped)", len(batch), dropped)
}

// Close cancels the debounce timer and flushes any pending events. The
// batcher accepts no further events afterwards.
func (b *Batcher) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.Flush()
}

func (b *Batcher) truncateFields(event *proto.EditEvent) {
	if event.EventData == nil {
		return
	}
	for _, field := range textFields {
		raw, ok := event.EventData[field]
		if !ok {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			continue
		}
		runes := []rune(text)
		if len(runes) > b.maxTextLen {
			event.EventData[field] = string(runes[:b.maxTextLen])
		}
	}
}
