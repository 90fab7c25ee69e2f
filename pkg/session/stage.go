// Package session implements the stage-gating workflow state machine: a
// strict linear-unlock progression through the four application stages,
// persisted to durable local storage so a session survives page reloads.
package session

import "fmt"

// Stage names the ordered phases of the workflow.
type Stage string

// Stage constants - single source of truth for stage names.
const (
	StageResearch  Stage = "research"
	StageDiscovery Stage = "discovery"
	StageDrafting  Stage = "drafting"
	StageExport    Stage = "export"
)

// StageOrder is the fixed stage sequence. It never changes over the life of
// the system; navigation and unlock rules are all defined against it.
//
//nolint:gochecknoglobals // Canonical ordering shared by all sessions
var StageOrder = []Stage{StageResearch, StageDiscovery, StageDrafting, StageExport}

// Status is the lifecycle state of one stage inside a session.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ValidStatuses returns all valid stage statuses.
func ValidStatuses() []Status {
	return []Status{StatusLocked, StatusActive, StatusCompleted, StatusError}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status Status) bool {
	for _, s := range ValidStatuses() {
		if status == s {
			return true
		}
	}
	return false
}

// IsValidStage checks if a stage name is part of the workflow.
func IsValidStage(stage Stage) bool {
	return StageIndex(stage) >= 0
}

// StageIndex returns the position of a stage in StageOrder, or -1.
func StageIndex(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after the given one, if any.
func NextStage(stage Stage) (Stage, bool) {
	idx := StageIndex(stage)
	if idx < 0 || idx+1 >= len(StageOrder) {
		return "", false
	}
	return StageOrder[idx+1], true
}

// StatusTransitions defines the legal status changes driven by normal
// workflow operations. Reconciliation (SyncFromBackend) and the destructive
// forward-reset (StartFreshFromError) rebuild statuses wholesale and are not
// constrained by this table.
//
//nolint:gochecknoglobals // Canonical transition table backing the guards below
var StatusTransitions = map[Status][]Status{
	// A locked stage unlocks when its predecessor completes.
	StatusLocked: {StatusActive},

	// The active stage either completes or surfaces an upstream error.
	StatusActive: {StatusCompleted, StatusError},

	// An errored stage returns to active via retry; its prior progress is
	// otherwise untouched.
	StatusError: {StatusActive},

	// Completed is terminal under normal operations.
	StatusCompleted: {},
}

// IsValidStatusChange checks a status transition against the table.
func IsValidStatusChange(from, to Status) bool {
	allowed, exists := StatusTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateStage returns an error when a stage name is not part of the
// workflow.
func ValidateStage(stage Stage) error {
	if !IsValidStage(stage) {
		return fmt.Errorf("invalid stage: %s", stage)
	}
	return nil
}
