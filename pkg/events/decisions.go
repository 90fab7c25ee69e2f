package events

import (
	"draftflow/pkg/prefs"
	"draftflow/pkg/proto"
)

// The Track* helpers below are the bridge between the pattern extractor and
// the batcher: they build typed event records carrying the extracted signals
// so callers resolve suggestions and report edits without assembling
// event_data maps themselves.

// TrackDecision enqueues the event for an explicit suggestion resolution.
// The signal map follows the decision's direction: accept yields prefers_*,
// reject yields dislikes_*, dismiss yields section only.
func (b *Batcher) TrackDecision(originalText, proposedText, threadID string, decision prefs.Decision) {
	var eventType proto.EventType
	switch decision {
	case prefs.DecisionAccepted:
		eventType = proto.EventTypeAccept
	case prefs.DecisionRejected:
		eventType = proto.EventTypeReject
	case prefs.DecisionDismissed:
		eventType = proto.EventTypeDismiss
	default:
		b.logger.Warn("Unknown decision %q, dropping event", decision)
		return
	}

	data := prefs.DecisionSignals(proposedText, decision)
	data["original_text"] = originalText
	data["proposed_text"] = proposedText
	b.TrackEdit(proto.NewEditEvent(eventType, data, threadID))
}

// TrackImplicitReject enqueues the event for a suggestion the user rewrote
// independently: the document contains neither the original nor the proposed
// text. The signal map compares the proposed text against what the user
// actually wrote.
func (b *Batcher) TrackImplicitReject(originalText, proposedText, userText, threadID string) {
	data := prefs.ImplicitRejectSignals(originalText, proposedText, userText)
	data["original_text"] = originalText
	data["proposed_text"] = proposedText
	data["user_text"] = userText
	b.TrackEdit(proto.NewEditEvent(proto.EventTypeImplicitReject, data, threadID))
}

// TrackContentEdit enqueues a plain edit event carrying the style patterns
// the user's new text exhibits.
func (b *Batcher) TrackContentEdit(beforeText, afterText, threadID string) {
	data := make(map[string]any)
	if section := prefs.DetectSection(afterText); section != "" {
		data["section"] = section
	}

	style := prefs.ExtractStyle(afterText)
	if style.FirstPerson {
		data["personal_tone"] = true
	}
	if style.Quantified {
		data["quantified"] = true
	}
	if style.ActionVerb {
		data["action_verbs"] = true
	}
	if style.Bulleted {
		data["bullets"] = true
	}
	if style.ToneWords {
		data["tone_words"] = true
	}

	data["before_text"] = beforeText
	data["after_text"] = afterText
	b.TrackEdit(proto.NewEditEvent(proto.EventTypeEdit, data, threadID))
}
