// Package proto defines the boundary types shared across the draftflow
// engine: version triggers, emitted event records, and the loosely-typed
// payload shapes the remote generation service reports. External shapes are
// converted into strict internal aggregates at the package boundaries
// (session.Manager.SyncFromBackend, draft.Store.SyncFromBackend) and never
// stored directly.
package proto

import (
	"encoding/json"
	"fmt"
	"time"
)

// Trigger is the causal tag explaining why a document version was created.
type Trigger string

const (
	TriggerInitial        Trigger = "initial"
	TriggerAccept         Trigger = "accept"
	TriggerDecline        Trigger = "decline"
	TriggerEdit           Trigger = "edit"
	TriggerManualSave     Trigger = "manual_save"
	TriggerAutoCheckpoint Trigger = "auto_checkpoint"
	TriggerRestore        Trigger = "restore"
)

// ValidTriggers returns all valid version triggers.
func ValidTriggers() []Trigger {
	return []Trigger{
		TriggerInitial,
		TriggerAccept,
		TriggerDecline,
		TriggerEdit,
		TriggerManualSave,
		TriggerAutoCheckpoint,
		TriggerRestore,
	}
}

// IsValidTrigger checks if a trigger string is valid.
func IsValidTrigger(trigger Trigger) bool {
	for _, t := range ValidTriggers() {
		if trigger == t {
			return true
		}
	}
	return false
}

func (t Trigger) String() string {
	return string(t)
}

// EventType classifies records emitted to the learning event sink.
type EventType string

const (
	EventTypeEdit           EventType = "edit"
	EventTypeAccept         EventType = "suggestion_accept"
	EventTypeReject         EventType = "suggestion_reject"
	EventTypeDismiss        EventType = "suggestion_dismiss"
	EventTypeImplicitReject EventType = "suggestion_implicit_reject"
)

// ValidEventTypes returns all valid event types.
func ValidEventTypes() []EventType {
	return []EventType{
		EventTypeEdit,
		EventTypeAccept,
		EventTypeReject,
		EventTypeDismiss,
		EventTypeImplicitReject,
	}
}

// IsValidEventType checks if an event type string is valid.
func IsValidEventType(eventType EventType) bool {
	for _, et := range ValidEventTypes() {
		if eventType == et {
			return true
		}
	}
	return false
}

// EditEvent is a single record pushed to the learning event sink.
// EventData carries the categorical signals extracted by pkg/prefs.
type EditEvent struct {
	EventType EventType      `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	ThreadID  string         `json:"thread_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewEditEvent creates an event record with the current timestamp.
func NewEditEvent(eventType EventType, data map[string]any, threadID string) *EditEvent {
	if data == nil {
		data = make(map[string]any)
	}
	return &EditEvent{
		EventType: eventType,
		EventData: data,
		ThreadID:  threadID,
		CreatedAt: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON.
func (e *EditEvent) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// EventFromJSON deserializes an event record from JSON.
func EventFromJSON(data []byte) (*EditEvent, error) {
	var event EditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// Validate checks the event record for required fields.
func (e *EditEvent) Validate() error {
	if !IsValidEventType(e.EventType) {
		return fmt.Errorf("invalid event type: %s", e.EventType)
	}
	if e.EventData == nil {
		return fmt.Errorf("event data cannot be nil")
	}
	return nil
}
