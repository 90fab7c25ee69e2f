package prefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSection(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Professional Summary: seasoned engineer", "summary"},
		{"My objective is to grow", "summary"},
		{"Work Experience at Acme", "experience"},
		{"Employment history", "experience"},
		{"Education: BSc Computer Science", "education"},
		{"Master's degree in physics", "education"},
		{"Skills: Go, SQL", "skills"},
		{"Technologies used daily", "skills"},
		{"Side projects I maintain", "projects"},
		{"Portfolio highlights", "projects"},
		{"Certifications: AWS SAA", "certifications"},
		{"Nothing relevant here", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectSection(tc.text), "text=%q", tc.text)
	}
}

func TestDetectSectionFirstMatchWins(t *testing.T) {
	// Contains both summary and experience keywords; summary is earlier in
	// the ordered table.
	text := "Summary of my experience"
	assert.Equal(t, "summary", DetectSection(text))
}

func TestHasQuantification(t *testing.T) {
	assert.True(t, HasQuantification("Improved throughput by 35%"))
	assert.True(t, HasQuantification("Managed a $2M budget"))
	assert.True(t, HasQuantification("8 years of experience"))
	assert.True(t, HasQuantification("Led 12 engineers"))
	assert.True(t, HasQuantification("Shipped 40+ projects"))
	assert.False(t, HasQuantification("Responsible for many improvements"))
	assert.False(t, HasQuantification("Worked on room 12b"))
}

func TestHasFirstPerson(t *testing.T) {
	assert.True(t, HasFirstPerson("I led the migration"))
	assert.True(t, HasFirstPerson("Grew our revenue"))
	assert.False(t, HasFirstPerson("Led the migration team"))
	// Substrings of larger words must not match.
	assert.False(t, HasFirstPerson("Mineral processing improvements"))
}

func TestLeadingActionVerb(t *testing.T) {
	verb, ok := LeadingActionVerb("Led a team of nine")
	assert.True(t, ok)
	assert.Equal(t, "led", verb)

	_, ok = LeadingActionVerb("The team was led by me")
	assert.False(t, ok)

	// Bullet markers and tags are stripped before anchoring.
	verb, ok = LeadingActionVerb("- Built the billing pipeline")
	assert.True(t, ok)
	assert.Equal(t, "built", verb)

	verb, ok = LeadingActionVerb("<li>Designed the schema</li>")
	assert.True(t, ok)
	assert.Equal(t, "designed", verb)

	_, ok = LeadingActionVerb("")
	assert.False(t, ok)
}

func TestIsBulleted(t *testing.T) {
	assert.True(t, IsBulleted("- first\n- second"))
	assert.True(t, IsBulleted("intro\n* item"))
	assert.True(t, IsBulleted("<ul><li>item</li></ul>"))
	assert.False(t, IsBulleted("A plain paragraph of text."))
}

func TestExtractStyle(t *testing.T) {
	style := ExtractStyle("- Increased my team's revenue by 25%")
	assert.True(t, style.FirstPerson)
	assert.True(t, style.Quantified)
	assert.True(t, style.Bulleted)
	assert.True(t, style.ActionVerb)
	assert.False(t, style.ToneWords)

	style = ExtractStyle("A passionate professional paragraph.")
	assert.False(t, style.FirstPerson)
	assert.False(t, style.Quantified)
	assert.False(t, style.Bulleted)
	assert.False(t, style.ActionVerb)
	assert.True(t, style.ToneWords)
}

func TestDecisionSignalsAcceptVsReject(t *testing.T) {
	proposed := "Led 10 engineers, cutting costs by 30%"

	accepted := DecisionSignals(proposed, DecisionAccepted)
	assert.Equal(t, true, accepted["prefers_quantified"])
	assert.Equal(t, true, accepted["prefers_action_verbs"])
	assert.NotContains(t, accepted, "dislikes_quantified")

	rejected := DecisionSignals(proposed, DecisionRejected)
	assert.Equal(t, true, rejected["dislikes_quantified"])
	assert.Equal(t, true, rejected["dislikes_action_verbs"])
	assert.NotContains(t, rejected, "prefers_quantified")
}

func TestDecisionSignalsDismissIsNonDirectional(t *testing.T) {
	proposed := "Led 10 engineers in my experience section, cutting costs by 30%"

	dismissed := DecisionSignals(proposed, DecisionDismissed)
	for key := range dismissed {
		assert.False(t, strings.HasPrefix(key, "prefers_"), "unexpected directional key %s", key)
		assert.False(t, strings.HasPrefix(key, "dislikes_"), "unexpected directional key %s", key)
	}
	// The section context is still recorded.
	assert.Equal(t, "experience", dismissed["section"])
}

func TestImplicitRejectSignalsConcise(t *testing.T) {
	proposed := "Spearheaded a comprehensive organizational transformation program across twelve departments"
	user := "Ran a reorg"

	signals := ImplicitRejectSignals("original", proposed, user)
	assert.Equal(t, true, signals["prefers_concise"])
	assert.NotContains(t, signals, "prefers_detailed")
}

func TestImplicitRejectSignalsDetailed(t *testing.T) {
	proposed := "Ran a reorg"
	user := "Spearheaded a comprehensive organizational transformation program across twelve departments"

	signals := ImplicitRejectSignals("original", proposed, user)
	assert.Equal(t, true, signals["prefers_detailed"])
}

func TestImplicitRejectSignalsQuantAndTone(t *testing.T) {
	proposed := "A passionate leader who grew revenue by 40%"
	user := "Grew revenue substantially"

	signals := ImplicitRejectSignals("original", proposed, user)
	assert.Equal(t, true, signals["dislikes_quantified"])
	assert.Equal(t, true, signals["dislikes_tone_words"])
}

func TestImplicitRejectSignalsKeptOriginal(t *testing.T) {
	original := "Managed the on-call rotation"
	proposed := "Orchestrated a 24/7 operational excellence program"

	signals := ImplicitRejectSignals(original, proposed, original)
	assert.Equal(t, true, signals["kept_original"])

	// The match is exact: whitespace variants count as an edit.
	signals = ImplicitRejectSignals(original, proposed, original+" ")
	assert.NotContains(t, signals, "kept_original")
}

func TestIsImplicitRejection(t *testing.T) {
	content := "<p>something user wrote themselves</p>"
	assert.True(t, IsImplicitRejection(content, "old text", "new text"))
	assert.False(t, IsImplicitRejection("<p>old text</p>", "old text", "new text"))
	assert.False(t, IsImplicitRejection("<p>new text</p>", "old text", "new text"))
	assert.False(t, IsImplicitRejection(content, "", "new text"))
}
