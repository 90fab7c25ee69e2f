package prefs

import "strings"

// Decision classifies how the user resolved a suggestion.
type Decision string

const (
	DecisionAccepted  Decision = "accepted"
	DecisionRejected  Decision = "rejected"
	DecisionDismissed Decision = "dismissed"
)

// Length ratio thresholds for the implicit-rejection comparison.
const (
	conciseRatio  = 0.7
	detailedRatio = 1.3
)

// Style holds the categorical patterns detected in a piece of text.
type Style struct {
	FirstPerson bool
	Quantified  bool
	Bulleted    bool
	ActionVerb  bool
	ToneWords   bool
}

// ExtractStyle inspects the proposed/after side of a text pair and reports
// which style patterns it carries.
func ExtractStyle(text string) Style {
	_, hasVerb := LeadingActionVerb(text)
	return Style{
		FirstPerson: HasFirstPerson(text),
		Quantified:  HasQuantification(text),
		Bulleted:    IsBulleted(text),
		ActionVerb:  hasVerb,
		ToneWords:   HasToneWords(text),
	}
}

// DecisionSignals turns an accept/reject/dismiss decision on a suggestion
// into signed preference signals. Accepting a suggestion that carries a
// pattern implies the user prefers that pattern; rejecting implies dislike.
// A dismissal carries no directional signal at all: it only records that the
// suggestion existed and was seen.
func DecisionSignals(proposedText string, decision Decision) map[string]any {
	signals := make(map[string]any)

	if section := DetectSection(proposedText); section != "" {
		signals["section"] = section
	}

	if decision == DecisionDismissed {
		return signals
	}

	style := ExtractStyle(proposedText)
	prefix := "prefers_"
	if decision == DecisionRejected {
		prefix = "dislikes_"
	}

	if style.FirstPerson {
		signals[prefix+"personal_tone"] = true
	}
	if style.Quantified {
		signals[prefix+"quantified"] = true
	}
	if style.ActionVerb {
		signals[prefix+"action_verbs"] = true
	}
	if style.Bulleted {
		signals[prefix+"bullets"] = true
	}
	return signals
}

// ImplicitRejectSignals compares a suggestion's proposed text against the
// text the user actually wrote, after the document stopped containing both
// the original and the proposed text. Three axes are compared: numeric
// quantification, tone-word presence, and relative length. The kept_original
// flag is set when the user's final text exactly equals the pre-suggestion
// original.
func ImplicitRejectSignals(originalText, proposedText, userText string) map[string]any {
	signals := make(map[string]any)

	if section := DetectSection(proposedText); section != "" {
		signals["section"] = section
	}

	proposedQuant := HasQuantification(proposedText)
	userQuant := HasQuantification(userText)
	if proposedQuant && !userQuant {
		signals["dislikes_quantified"] = true
	}
	if !proposedQuant && userQuant {
		signals["prefers_quantified"] = true
	}

	proposedTone := HasToneWords(proposedText)
	userTone := HasToneWords(userText)
	if proposedTone && !userTone {
		signals["dislikes_tone_words"] = true
	}
	if !proposedTone && userTone {
		signals["prefers_tone_words"] = true
	}

	if len(proposedText) > 0 {
		ratio := float64(len(userText)) / float64(len(proposedText))
		if ratio < conciseRatio {
			signals["prefers_concise"] = true
		} else if ratio > detailedRatio {
			signals["prefers_detailed"] = true
		}
	}

	// Exact match only: reverting to the original modulo whitespace is still
	// an edit, not a revert.
	if userText == originalText {
		signals["kept_original"] = true
	}

	return signals
}

// IsImplicitRejection reports whether the current document content implies
// the user independently rewrote a suggestion's target text: the content
// contains neither the original nor the proposed text.
func IsImplicitRejection(content, originalText, proposedText string) bool {
	if originalText == "" || proposedText == "" {
		return false
	}
	return !strings.Contains(content, originalText) && !strings.Contains(content, proposedText)
}
