package draft

import (
	"strings"
	"sync"
	"time"

	"draftflow/pkg/config"
	"draftflow/pkg/logx"
	"draftflow/pkg/metrics"
	"draftflow/pkg/persistence"
	"draftflow/pkg/proto"
)

// Store owns the live drafting session. All mutations run under one mutex;
// the UI drives them synchronously, the auto-checkpoint timer is the only
// background caller. Invalid operations (resolving a resolved suggestion,
// restoring a missing version) are no-ops, guarding against duplicate UI
// events rather than raising.
type Store struct {
	mu          sync.Mutex
	session     *Session
	store       persistence.Store
	maxVersions int
	logger      *logx.Logger
	recorder    *metrics.Recorder
}

// NewStore creates a document store persisting to the given durable store.
// Retention comes from the active config. The recorder may be nil.
func NewStore(store persistence.Store, recorder *metrics.Recorder) *Store {
	maxVersions := config.Active().MaxVersions
	if maxVersions < 1 {
		maxVersions = MaxVersions
	}
	return &Store{
		store:       store,
		maxVersions: maxVersions,
		logger:      logx.NewLogger("draft"),
		recorder:    recorder,
	}
}

// StartSession begins a fresh drafting session: version "1.0" with trigger
// initial, no change log. Any previously persisted drafting session for a
// different task is replaced.
func (d *Store) StartSession(sessionID, threadID, initialContent string, initialSuggestions []proto.SuggestionPayload) Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil && d.session.SessionID != sessionID {
		d.logger.Info("Replacing drafting session %s with %s", d.session.SessionID, sessionID)
	}
	if err := d.store.Clear(); err != nil {
		d.logger.Warn("Failed to clear prior drafting sessions: %v", err)
		d.recorder.ObservePersistFailure(persistence.NamespaceDraftSessions)
	}

	now := time.Now().UTC()
	d.session = &Session{
		SessionID:      sessionID,
		ThreadID:       threadID,
		CurrentContent: initialContent,
		CurrentVersion: "1.0",
		Versions: []Version{{
			VersionID: GenerateVersionID(),
			Number:    "1.0",
			Content:   initialContent,
			Trigger:   proto.TriggerInitial,
			CreatedAt: now,
		}},
		Suggestions: suggestionsFromPayload(initialSuggestions),
		ChangeLog:   []ChangeEntry{},
		StartedAt:   now,
		UpdatedAt:   now,
	}
	d.recorder.ObserveVersionCreated(proto.TriggerInitial.String())
	d.persistLocked()
	return *d.session.clone()
}

// Snapshot returns a copy of the live session. The second return is false
// when no session has been started.
func (d *Store) Snapshot() (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return Session{}, false
	}
	return *d.session.clone(), true
}

// Resume loads the most-recently-updated persisted drafting session.
func (d *Store) Resume() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key, err := d.store.LatestKey()
	if err != nil {
		return false
	}

	var restored Session
	if err := d.store.Load(key, &restored); err != nil {
		d.logger.Warn("Failed to load drafting session %s: %v", key, err)
		return false
	}

	d.session = &restored
	d.logger.Info("Resumed drafting session %s at version %s", restored.SessionID, restored.CurrentVersion)
	return true
}

// AcceptSuggestion applies a pending suggestion to the document. The
// substitution is a literal first-match substring replace of the original
// text with the proposed text. If the target is no longer present the
// content is untouched, but the suggestion is still marked accepted and
// logged: accept records the user's decision, not the patch outcome.
//
// The mutation runs as two explicit steps. Content, suggestion status, and
// the change-log entry commit first; the version snapshot is created as a
// separate second step so it always reflects the post-mutation document.
func (d *Store) AcceptSuggestion(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sugg := d.pendingSuggestionLocked(id)
	if sugg == nil {
		return
	}

	// Step one: commit the content mutation and decision.
	if strings.Contains(d.session.CurrentContent, sugg.OriginalText) {
		d.session.CurrentContent = strings.Replace(d.session.CurrentContent, sugg.OriginalText, sugg.ProposedText, 1)
	} else {
		d.logger.Info("Suggestion %s target no longer present, recording decision without patch", id)
	}
	entry := d.resolveLocked(sugg, SuggestionAccepted, ChangeAccept)

	// Step two: snapshot the committed state.
	d.createVersionLocked(proto.TriggerAccept, entry.ChangeID)
	d.recorder.ObserveSuggestionResolved(string(SuggestionAccepted))
	d.persistLocked()
}

// DeclineSuggestion marks a pending suggestion declined. Content is
// untouched, but a version is created anyway: the history records decision
// points, not just content changes.
func (d *Store) DeclineSuggestion(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sugg := d.pendingSuggestionLocked(id)
	if sugg == nil {
		return
	}

	entry := d.resolveLocked(sugg, SuggestionDeclined, ChangeDecline)
	d.createVersionLocked(proto.TriggerDecline, entry.ChangeID)
	d.recorder.ObserveSuggestionResolved(string(SuggestionDeclined))
	d.persistLocked()
}

// RecordEdit commits a direct user edit: the content is replaced, a
// change-log entry is appended, and a version is created synchronously.
func (d *Store) RecordEdit(location, before, after string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return
	}

	if strings.Contains(d.session.CurrentContent, before) {
		d.session.CurrentContent = strings.Replace(d.session.CurrentContent, before, after, 1)
	}

	entry := ChangeEntry{
		ChangeID:      GenerateChangeID(),
		ChangeType:    ChangeEdit,
		Location:      location,
		Description:   describeEdit(before, after),
		VersionNumber: d.session.CurrentVersion,
		CreatedAt:     time.Now().UTC(),
	}
	d.session.ChangeLog = append(d.session.ChangeLog, entry)

	d.createVersionLocked(proto.TriggerEdit, entry.ChangeID)
	d.persistLocked()
}

// ManualSave snapshots the current content and returns the new version
// number. Returns "" when no session exists.
func (d *Store) ManualSave() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return ""
	}
	d.createVersionLocked(proto.TriggerManualSave, "")
	d.persistLocked()
	return d.session.CurrentVersion
}

// RestoreVersion sets the current content to a stored snapshot, then
// records the restore as a NEW forward-moving version. Version numbers
// never repeat or decrease; restoring is itself a recorded event. A
// nonexistent version number is a no-op.
func (d *Store) RestoreVersion(number string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return
	}

	target := d.session.version(number)
	if target == nil {
		d.logger.Info("Restore of nonexistent version %s ignored", number)
		return
	}

	d.session.CurrentContent = target.Content
	d.createVersionLocked(proto.TriggerRestore, "")
	d.logger.Info("Restored version %s as %s", number, d.session.CurrentVersion)
	d.persistLocked()
}

// ApproveDraft marks the session approved. The store does not hard-block
// later mutations; callers gate on the flag, and the auto-checkpoint timer
// stops firing.
func (d *Store) ApproveDraft() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return
	}
	d.session.Approved = true
	d.session.UpdatedAt = time.Now().UTC()
	d.logger.Info("Draft approved at version %s", d.session.CurrentVersion)
	d.persistLocked()
}

// Approved reports whether the live session has been approved.
func (d *Store) Approved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil && d.session.Approved
}

// SyncFromBackend reconciles against the server-reported drafting state.
// Server-supplied suggestions, versions, current version, and the approved
// flag override local equivalents wholesale, with one exception: an empty
// server version list preserves the local history instead of wiping it.
func (d *Store) SyncFromBackend(payload proto.DraftingPayload) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return
	}

	if content := payload.DocumentContent(); content != "" {
		d.session.CurrentContent = content
	}
	if len(payload.DraftSuggestions) > 0 {
		d.session.Suggestions = suggestionsFromPayload(payload.DraftSuggestions)
	}
	if len(payload.DraftVersions) > 0 {
		d.session.Versions = versionsFromPayload(payload.DraftVersions)
	}
	if payload.DraftCurrentVersion != "" {
		d.session.CurrentVersion = payload.DraftCurrentVersion
	}
	d.session.Approved = payload.DraftApproved

	d.logger.Debug("Synced drafting session from backend (version %s, %d suggestions)",
		d.session.CurrentVersion, len(d.session.Suggestions))
	d.session.UpdatedAt = time.Now().UTC()
	d.persistLocked()
}

// AllSuggestionsResolved reports whether no suggestion is still pending.
func (d *Store) AllSuggestionsResolved() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return true
	}
	for i := range d.session.Suggestions {
		if !d.session.Suggestions[i].Resolved() {
			return false
		}
	}
	return true
}

// PendingSuggestionsCount returns the number of unresolved suggestions.
func (d *Store) PendingSuggestionsCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return 0
	}
	count := 0
	for i := range d.session.Suggestions {
		if !d.session.Suggestions[i].Resolved() {
			count++
		}
	}
	return count
}

// ClearSession erases persisted drafting state and the in-memory session.
func (d *Store) ClearSession() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.Clear(); err != nil {
		d.logger.Warn("Failed to clear persisted drafting sessions: %v", err)
		d.recorder.ObservePersistFailure(persistence.NamespaceDraftSessions)
	}
	d.session = nil
	d.logger.Info("Drafting session cleared")
}

// autoCheckpoint is called by the Checkpointer when the idle threshold is
// exceeded. It reads live state at fire time and never runs once the draft
// is approved.
func (d *Store) autoCheckpoint(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil || d.session.Approved {
		return
	}

	since := d.session.LastAutoCheckpoint
	if since.IsZero() {
		since = d.session.StartedAt
	}
	if time.Since(since) < threshold {
		return
	}

	d.createVersionLocked(proto.TriggerAutoCheckpoint, "")
	d.session.LastAutoCheckpoint = time.Now().UTC()
	d.logger.Debug("Auto checkpoint created version %s", d.session.CurrentVersion)
	d.persistLocked()
}

// pendingSuggestionLocked returns the suggestion only when it exists and is
// still pending; anything else is the duplicate-event no-op case.
func (d *Store) pendingSuggestionLocked(id string) *Suggestion {
	if d.session == nil {
		return nil
	}
	sugg := d.session.suggestion(id)
	if sugg == nil {
		d.logger.Info("Unknown suggestion %s ignored", id)
		return nil
	}
	if sugg.Resolved() {
		d.logger.Info("Suggestion %s already %s, ignoring", id, sugg.Status)
		return nil
	}
	return sugg
}

// resolveLocked marks the suggestion and appends the change-log entry
// recording the decision at the current version.
func (d *Store) resolveLocked(sugg *Suggestion, status SuggestionStatus, changeType ChangeType) ChangeEntry {
	now := time.Now().UTC()
	sugg.Status = status
	sugg.ResolvedAt = &now
	sugg.ResolvedAtVersion = d.session.CurrentVersion

	entry := ChangeEntry{
		ChangeID:      GenerateChangeID(),
		ChangeType:    changeType,
		SuggestionID:  sugg.SuggestionID,
		Location:      sugg.Location,
		Description:   describeEdit(sugg.OriginalText, sugg.ProposedText),
		VersionNumber: d.session.CurrentVersion,
		CreatedAt:     now,
	}
	d.session.ChangeLog = append(d.session.ChangeLog, entry)
	return entry
}

// createVersionLocked appends a snapshot of the current content, advancing
// the odometer and evicting from the front past MaxVersions. The change log
// is untouched by eviction.
func (d *Store) createVersionLocked(trigger proto.Trigger, changeID string) {
	next, err := IncrementVersion(d.session.CurrentVersion)
	if err != nil {
		// A malformed current version means the aggregate was corrupted
		// externally; restart the odometer rather than halting the session.
		d.logger.Error("Corrupt current version %q, restarting numbering: %v", d.session.CurrentVersion, err)
		next = "1.0"
	}

	version := Version{
		VersionID: GenerateVersionID(),
		Number:    next,
		Content:   d.session.CurrentContent,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}
	if changeID != "" {
		version.ChangeIDs = []string{changeID}
	}

	d.session.Versions = append(d.session.Versions, version)
	for len(d.session.Versions) > d.maxVersions {
		evicted := d.session.Versions[0]
		d.session.Versions = d.session.Versions[1:]
		d.recorder.ObserveVersionEvicted()
		d.logger.Debug("Evicted version %s", evicted.Number)
	}

	d.session.CurrentVersion = next
	d.session.UpdatedAt = version.CreatedAt
	d.recorder.ObserveVersionCreated(trigger.String())
}

func (d *Store) persistLocked() {
	if err := d.store.Save(d.session.SessionID, d.session); err != nil {
		d.logger.Warn("Failed to persist drafting session %s: %v", d.session.SessionID, err)
		d.recorder.ObservePersistFailure(persistence.NamespaceDraftSessions)
	}
}

func suggestionsFromPayload(payloads []proto.SuggestionPayload) []Suggestion {
	suggestions := make([]Suggestion, 0, len(payloads))
	for _, p := range payloads {
		id := p.ID
		if id == "" {
			id = GenerateSuggestionID()
		}
		status := SuggestionStatus(p.Status)
		if status == "" {
			status = SuggestionPending
		}
		suggestions = append(suggestions, Suggestion{
			SuggestionID: id,
			Location:     p.Location,
			OriginalText: p.OriginalText,
			ProposedText: p.ProposedText,
			Rationale:    p.Rationale,
			Status:       status,
		})
	}
	return suggestions
}

func versionsFromPayload(payloads []proto.VersionPayload) []Version {
	versions := make([]Version, 0, len(payloads))
	for _, p := range payloads {
		version := Version{
			VersionID: GenerateVersionID(),
			Number:    p.Version,
			Content:   p.Content,
			Trigger:   proto.Trigger(p.Trigger),
		}
		if ts, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
			version.CreatedAt = ts
		}
		versions = append(versions, version)
	}
	return versions
}

// describeEdit produces a short human-readable change summary.
func describeEdit(before, after string) string {
	const max = 40
	return "\"" + truncate(before, max) + "\" -> \"" + truncate(after, max) + "\""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
