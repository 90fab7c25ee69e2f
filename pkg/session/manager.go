package session

import (
	"errors"
	"sync"
	"time"

	"draftflow/pkg/logx"
	"draftflow/pkg/metrics"
	"draftflow/pkg/persistence"
	"draftflow/pkg/proto"
)

// Manager owns the live stage session and enforces the linear-unlock
// progression. Navigation guards return booleans; denial is routine, not
// exceptional. Durable-store write failures are logged and swallowed: the
// in-memory session stays authoritative for the current page lifetime.
type Manager struct {
	mu       sync.Mutex
	session  *Session
	store    persistence.Store
	logger   *logx.Logger
	recorder *metrics.Recorder
}

// NewManager creates a manager persisting to the given store. The recorder
// may be nil.
func NewManager(store persistence.Store, recorder *metrics.Recorder) *Manager {
	return &Manager{
		store:    store,
		logger:   logx.NewLogger("session"),
		recorder: recorder,
	}
}

// StartSession creates (or replaces) the session for the task defined by
// the profile and posting references. A different identifier pair always
// yields a new session; any previously persisted session is replaced, not
// merged.
func (m *Manager) StartSession(profileRef, postingRef, threadID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := SessionKey(profileRef, postingRef)
	if m.session != nil && m.session.SessionID != key {
		m.logger.Info("Replacing session %s with %s", m.session.SessionID, key)
	}

	// One session per browser context: clear any prior persisted session
	// keyed to different identifiers.
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("Failed to clear prior sessions: %v", err)
		m.recorder.ObservePersistFailure(persistence.NamespaceStageSessions)
	}

	m.session = newSession(key, threadID)
	m.recorder.ObserveStageTransition(string(StageOrder[0]), string(StatusActive))
	m.persistLocked()
	return *m.session.clone()
}

// Resume loads the most-recently-updated persisted session, if any.
// Returns false when there is nothing to resume.
func (m *Manager) Resume() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.store.LatestKey()
	if errors.Is(err, persistence.ErrNotFound) {
		return false
	}
	if err != nil {
		m.logger.Warn("Failed to locate persisted session: %v", err)
		return false
	}

	var restored Session
	if err := m.store.Load(key, &restored); err != nil {
		m.logger.Warn("Failed to load persisted session %s: %v", key, err)
		return false
	}

	m.session = &restored
	m.logger.Info("Resumed session %s", restored.SessionID)
	return true
}

// Snapshot returns a copy of the live session. The second return is false
// when no session has been started.
func (m *Manager) Snapshot() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}
	return *m.session.clone(), true
}

// CurrentStage returns the canonical current stage, or false when the
// session is fully complete or absent.
func (m *Manager) CurrentStage() (Stage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return "", false
	}
	return m.session.CurrentStage()
}

// CompleteStage marks the current stage completed and unlocks the next one.
// Completing any stage other than the current one is refused: stages are
// never silently skipped.
func (m *Manager) CompleteStage(stage Stage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || !IsValidStage(stage) {
		return false
	}

	current, ok := m.session.CurrentStage()
	if !ok || current != stage {
		m.logger.Warn("Refusing to complete non-current stage %s (current: %s)", stage, current)
		return false
	}
	if !IsValidStatusChange(m.session.Stages[stage], StatusCompleted) {
		return false
	}

	m.session.Stages[stage] = StatusCompleted
	m.recorder.ObserveStageTransition(string(stage), string(StatusCompleted))

	if next, ok := NextStage(stage); ok {
		m.session.Stages[next] = StatusActive
		m.session.ViewedStage = next
		m.recorder.ObserveStageTransition(string(next), string(StatusActive))
		m.logger.Info("Stage %s completed, %s unlocked", stage, next)
	} else {
		m.logger.Info("Stage %s completed, session finished", stage)
	}

	m.touchLocked()
	m.persistLocked()
	return true
}

// CanAccessStage reports whether the user may navigate to a stage: it is
// completed, or it is the current active/error stage. Future locked stages
// are never accessible.
func (m *Manager) CanAccessStage(stage Stage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canAccessLocked(stage)
}

func (m *Manager) canAccessLocked(stage Stage) bool {
	if m.session == nil || !IsValidStage(stage) {
		return false
	}
	switch m.session.Stages[stage] {
	case StatusCompleted, StatusActive, StatusError:
		return true
	default:
		return false
	}
}

// SetActiveStage attempts to navigate to a stage. Navigating to a completed
// stage is a read-only review: ViewedStage moves, the canonical current
// stage and all statuses stay as they are.
func (m *Manager) SetActiveStage(stage Stage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canAccessLocked(stage) {
		return false
	}

	m.session.ViewedStage = stage
	m.touchLocked()
	m.persistLocked()
	return true
}

// EarliestIncompleteStage returns the first stage in order that is not yet
// completed. The second return is false when everything is completed.
func (m *Manager) EarliestIncompleteStage() (Stage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return "", false
	}
	for _, stage := range StageOrder {
		if m.session.Stages[stage] != StatusCompleted {
			return stage, true
		}
	}
	return "", false
}

// RecordError surfaces an upstream failure on a stage. The stage flips to
// error but keeps its position; prior progress is not lost. Only the current
// stage can error: locked and completed stages never become accessible
// through a misdirected error report.
func (m *Manager) RecordError(message string, stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || !IsValidStage(stage) {
		return
	}

	current, ok := m.session.CurrentStage()
	if !ok || current != stage {
		m.logger.Warn("Refusing to record error on non-current stage %s (current: %s): %s", stage, current, message)
		return
	}

	// The current stage is active or already errored; a repeat report on an
	// errored stage just refreshes the message.
	if status := m.session.Stages[stage]; status != StatusError && !IsValidStatusChange(status, StatusError) {
		return
	}

	m.session.LastError = message
	m.session.ErrorStage = stage
	m.session.Stages[stage] = StatusError
	m.recorder.ObserveStageTransition(string(stage), string(StatusError))
	m.logger.Warn("Error recorded on stage %s: %s", stage, message)

	m.touchLocked()
	m.persistLocked()
}

// RetryFromError clears the error and returns the errored stage to active.
func (m *Manager) RetryFromError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.ErrorStage == "" {
		return false
	}

	stage := m.session.ErrorStage
	if !IsValidStatusChange(m.session.Stages[stage], StatusActive) {
		return false
	}

	m.session.Stages[stage] = StatusActive
	m.session.LastError = ""
	m.session.ErrorStage = ""
	m.session.ViewedStage = stage
	m.recorder.ObserveStageTransition(string(stage), string(StatusActive))
	m.logger.Info("Retrying from error on stage %s", stage)

	m.touchLocked()
	m.persistLocked()
	return true
}

// StartFreshFromError clears the error, resets the errored stage to active,
// and forces every stage strictly after it back to locked. Stages before it
// stay completed. This is a destructive forward-reset, not a session wipe.
func (m *Manager) StartFreshFromError() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.ErrorStage == "" {
		return false
	}

	stage := m.session.ErrorStage
	idx := StageIndex(stage)

	m.session.Stages[stage] = StatusActive
	for _, later := range StageOrder[idx+1:] {
		m.session.Stages[later] = StatusLocked
	}
	m.session.LastError = ""
	m.session.ErrorStage = ""
	m.session.ViewedStage = stage
	m.recorder.ObserveStageTransition(string(stage), string(StatusActive))
	m.logger.Info("Starting fresh from errored stage %s", stage)

	m.touchLocked()
	m.persistLocked()
	return true
}

// SyncFromBackend reconciles the local session against the server-reported
// workflow status. The server is authoritative for completion booleans; the
// local stage map is rebuilt from them plus current_step. A locally
// recorded error survives reconciliation unless the server reports its
// stage completed.
func (m *Manager) SyncFromBackend(status proto.WorkflowStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}

	completed := map[Stage]bool{
		StageResearch:  status.ResearchComplete,
		StageDiscovery: status.DiscoveryConfirmed,
		StageDrafting:  status.DraftApproved,
		StageExport:    status.ExportCompleted,
	}

	// Rebuild statuses wholesale from the authoritative booleans.
	current := Stage(status.CurrentStep)
	if !IsValidStage(current) || completed[current] {
		current = ""
		for _, stage := range StageOrder {
			if !completed[stage] {
				current = stage
				break
			}
		}
	}

	for _, stage := range StageOrder {
		switch {
		case completed[stage]:
			m.session.Stages[stage] = StatusCompleted
		case stage == current:
			m.session.Stages[stage] = StatusActive
		default:
			m.session.Stages[stage] = StatusLocked
		}
	}

	if m.session.ErrorStage != "" {
		if completed[m.session.ErrorStage] {
			m.session.LastError = ""
			m.session.ErrorStage = ""
		} else {
			m.session.Stages[m.session.ErrorStage] = StatusError
		}
	}

	if current != "" {
		m.session.ViewedStage = current
	}

	m.logger.Debug("Synced session from backend (current: %s)", current)
	m.touchLocked()
	m.persistLocked()
}

// CompletionPercentage returns workflow progress in steps of 100/len.
func (m *Manager) CompletionPercentage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0
	}
	return 100 * float64(m.session.CompletedCount()) / float64(len(StageOrder))
}

// ClearAllSessions erases the persisted state and the in-memory session.
// Used when starting a wholly new application.
func (m *Manager) ClearAllSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("Failed to clear persisted sessions: %v", err)
		m.recorder.ObservePersistFailure(persistence.NamespaceStageSessions)
	}
	m.session = nil
	m.logger.Info("All sessions cleared")
}

func (m *Manager) touchLocked() {
	m.session.UpdatedAt = time.Now().UTC()
}

// persistLocked writes the session to the durable store. Failures are
// logged and swallowed; in-memory state proceeds as the source of truth.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.session.SessionID, m.session); err != nil {
		m.logger.Warn("Failed to persist session %s: %v", m.session.SessionID, err)
		m.recorder.ObservePersistFailure(persistence.NamespaceStageSessions)
	}
}
