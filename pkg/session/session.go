package session

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"draftflow/pkg/proto"
)

// Session is the persisted stage-session aggregate for one task instance
// (one source profile applied to one target posting).
type Session struct {
	SessionID string           `json:"session_id"`
	ThreadID  string           `json:"thread_id"`
	Stages    map[Stage]Status `json:"stages"`

	// ViewedStage is the stage the user is currently looking at. Reviewing
	// a completed stage moves ViewedStage without touching the canonical
	// current stage.
	ViewedStage Stage `json:"viewed_stage,omitempty"`

	// LastError and ErrorStage are set together and cleared together.
	LastError  string `json:"last_error,omitempty"`
	ErrorStage Stage  `json:"error_stage,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionKey derives the deterministic session identifier from the two
// inputs that define a unique task. The same pair always yields the same
// key; any other pair yields a different one.
func SessionKey(profileRef, postingRef string) string {
	sum := blake2b.Sum256([]byte(profileRef + "\x00" + postingRef))
	return "session-" + hex.EncodeToString(sum[:8])
}

// newSession creates a fresh session with the first stage active and the
// rest locked.
func newSession(sessionID, threadID string) *Session {
	now := time.Now().UTC()
	stages := make(map[Stage]Status, len(StageOrder))
	for i, stage := range StageOrder {
		if i == 0 {
			stages[stage] = StatusActive
		} else {
			stages[stage] = StatusLocked
		}
	}
	return &Session{
		SessionID:   sessionID,
		ThreadID:    threadID,
		Stages:      stages,
		ViewedStage: StageOrder[0],
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CurrentStage returns the stage holding active or error status. The second
// return is false when the whole session is complete.
func (s *Session) CurrentStage() (Stage, bool) {
	for _, stage := range StageOrder {
		if s.Stages[stage] == StatusActive || s.Stages[stage] == StatusError {
			return stage, true
		}
	}
	return "", false
}

// StageStatus returns the status of one stage.
func (s *Session) StageStatus(stage Stage) Status {
	return s.Stages[stage]
}

// StageComplete reports whether a stage has been completed.
func (s *Session) StageComplete(stage Stage) bool {
	return s.Stages[stage] == StatusCompleted
}

// Complete reports whether every stage has been completed.
func (s *Session) Complete() bool {
	for _, stage := range StageOrder {
		if s.Stages[stage] != StatusCompleted {
			return false
		}
	}
	return true
}

// CompletedCount returns the number of completed stages.
func (s *Session) CompletedCount() int {
	count := 0
	for _, stage := range StageOrder {
		if s.Stages[stage] == StatusCompleted {
			count++
		}
	}
	return count
}

// CompletionFlags mirrors per-stage completion into the wire-convenient
// shape collaborators consume.
func (s *Session) CompletionFlags() proto.WorkflowStatus {
	current, _ := s.CurrentStage()
	return proto.WorkflowStatus{
		CurrentStep:        string(current),
		ResearchComplete:   s.StageComplete(StageResearch),
		DiscoveryConfirmed: s.StageComplete(StageDiscovery),
		DraftApproved:      s.StageComplete(StageDrafting),
		ExportCompleted:    s.StageComplete(StageExport),
	}
}

// clone returns a deep copy of the session.
func (s *Session) clone() *Session {
	copied := *s
	copied.Stages = make(map[Stage]Status, len(s.Stages))
	for k, v := range s.Stages {
		copied.Stages[k] = v
	}
	return &copied
}
