// Package draft implements the versioned document store: a branch-free,
// bounded version history over the drafting-stage document, suggestion
// decision tracking, and an auto-checkpoint timer. History keeps the last
// five snapshots; the change log is unbounded and survives eviction.
package draft

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"draftflow/pkg/proto"
)

// MaxVersions is the default bound on retained version history, overridable
// through config. Older snapshots are evicted from the front; version "1.0"
// gets no special protection.
const MaxVersions = 5

// SuggestionStatus is the lifecycle state of one suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionDeclined SuggestionStatus = "declined"
)

// ChangeType classifies one change-log entry.
type ChangeType string

const (
	ChangeAccept  ChangeType = "accept"
	ChangeDecline ChangeType = "decline"
	ChangeEdit    ChangeType = "edit"
)

// Version is an immutable content snapshot plus the causal tag explaining
// why it was taken.
type Version struct {
	VersionID string        `json:"version_id"`
	Number    string        `json:"number"`
	Content   string        `json:"content"`
	Trigger   proto.Trigger `json:"trigger"`
	ChangeIDs []string      `json:"change_ids,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Suggestion is a proposed text substitution awaiting a user decision.
// A suggestion resolves exactly once: pending to accepted or declined.
type Suggestion struct {
	SuggestionID string           `json:"suggestion_id"`
	Location     string           `json:"location,omitempty"`
	OriginalText string           `json:"original_text"`
	ProposedText string           `json:"proposed_text"`
	Rationale    string           `json:"rationale,omitempty"`
	Status       SuggestionStatus `json:"status"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`

	// ResolvedAtVersion records the version number current when the user
	// decided, so the decision point survives version eviction.
	ResolvedAtVersion string `json:"resolved_at_version,omitempty"`
}

// Resolved reports whether the suggestion has left the pending state.
func (s *Suggestion) Resolved() bool {
	return s.Status != SuggestionPending
}

// ChangeEntry is one row of the unbounded change log. Entries are never
// removed, even when the version they reference has been evicted.
type ChangeEntry struct {
	ChangeID      string     `json:"change_id"`
	ChangeType    ChangeType `json:"change_type"`
	SuggestionID  string     `json:"suggestion_id,omitempty"`
	Location      string     `json:"location,omitempty"`
	Description   string     `json:"description,omitempty"`
	VersionNumber string     `json:"version_number"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Session is the persisted drafting aggregate for one task instance.
type Session struct {
	SessionID      string        `json:"session_id"`
	ThreadID       string        `json:"thread_id"`
	CurrentContent string        `json:"current_content"`
	CurrentVersion string        `json:"current_version"`
	Versions       []Version     `json:"versions"`
	Suggestions    []Suggestion  `json:"suggestions"`
	ChangeLog      []ChangeEntry `json:"change_log"`
	Approved       bool          `json:"approved"`

	StartedAt          time.Time `json:"started_at"`
	LastAutoCheckpoint time.Time `json:"last_auto_checkpoint,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// suggestion returns a pointer into the Suggestions slice, or nil.
func (s *Session) suggestion(id string) *Suggestion {
	for i := range s.Suggestions {
		if s.Suggestions[i].SuggestionID == id {
			return &s.Suggestions[i]
		}
	}
	return nil
}

// version returns the stored snapshot with the given number, or nil.
func (s *Session) version(number string) *Version {
	for i := range s.Versions {
		if s.Versions[i].Number == number {
			return &s.Versions[i]
		}
	}
	return nil
}

// clone returns a deep copy of the session.
func (s *Session) clone() *Session {
	copied := *s
	copied.Versions = append([]Version(nil), s.Versions...)
	copied.Suggestions = append([]Suggestion(nil), s.Suggestions...)
	copied.ChangeLog = append([]ChangeEntry(nil), s.ChangeLog...)
	for i := range copied.Versions {
		copied.Versions[i].ChangeIDs = append([]string(nil), s.Versions[i].ChangeIDs...)
	}
	return &copied
}

// IncrementVersion advances a "major.minor" version number as a base-10
// odometer: minor 9 rolls over to (major+1).0. This is not semantic
// versioning; the numbers exist to give the rolling history a bounded,
// human-legible identifier sequence.
func IncrementVersion(current string) (string, error) {
	majorStr, minorStr, found := strings.Cut(current, ".")
	if !found {
		return "", fmt.Errorf("malformed version number: %s", current)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return "", fmt.Errorf("malformed version number: %s", current)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return "", fmt.Errorf("malformed version number: %s", current)
	}

	if minor+1 >= 10 {
		return fmt.Sprintf("%d.0", major+1), nil
	}
	return fmt.Sprintf("%d.%d", major, minor+1), nil
}

// GenerateVersionID creates a unique version identifier.
func GenerateVersionID() string {
	return "version-" + uuid.New().String()
}

// GenerateSuggestionID creates a unique suggestion identifier.
func GenerateSuggestionID() string {
	return "suggestion-" + uuid.New().String()
}

// GenerateChangeID creates a unique change-log entry identifier.
func GenerateChangeID() string {
	return "change-" + uuid.New().String()
}
