// Package prefs extracts categorical style preferences from user
// interactions with AI suggestions. All functions are pure: they inspect
// text pairs and decisions and emit signal maps for the event pipeline.
//
// The keyword and verb tables are data, not code: they live in an embedded
// patterns.yaml and are compiled once at package init.
package prefs

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

// sectionPattern is one ordered entry in the section detection table.
type sectionPattern struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// patternTables is the on-disk shape of patterns.yaml.
type patternTables struct {
	Sections               []sectionPattern `yaml:"sections"`
	FirstPerson            []string         `yaml:"first_person"`
	ActionVerbs            []string         `yaml:"action_verbs"`
	ToneWords              []string         `yaml:"tone_words"`
	QuantificationPatterns []string         `yaml:"quantification_patterns"`
	BulletMarkers          []string         `yaml:"bullet_markers"`
}

//nolint:gochecknoglobals // Compiled pattern tables, read-only after init
var (
	tables       patternTables
	actionVerbs  map[string]bool
	firstPerson  map[string]bool
	quantRegexps []*regexp.Regexp
	wordSplitter = regexp.MustCompile(`[^a-z0-9'-]+`)
)

//nolint:gochecknoinits // Pattern tables must be compiled before first use
func init() {
	if err := yaml.Unmarshal(patternsYAML, &tables); err != nil {
		panic(fmt.Sprintf("prefs: invalid embedded patterns.yaml: %v", err))
	}

	actionVerbs = make(map[string]bool, len(tables.ActionVerbs))
	for _, v := range tables.ActionVerbs {
		actionVerbs[strings.ToLower(v)] = true
	}

	firstPerson = make(map[string]bool, len(tables.FirstPerson))
	for _, p := range tables.FirstPerson {
		firstPerson[strings.ToLower(p)] = true
	}

	quantRegexps = make([]*regexp.Regexp, 0, len(tables.QuantificationPatterns))
	for _, p := range tables.QuantificationPatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			panic(fmt.Sprintf("prefs: invalid quantification pattern %q: %v", p, err))
		}
		quantRegexps = append(quantRegexps, re)
	}
}

// DetectSection scans text against the ordered section keyword table.
// The first matching section wins; an empty string means no match.
func DetectSection(text string) string {
	lowered := strings.ToLower(text)
	for _, section := range tables.Sections {
		for _, keyword := range section.Keywords {
			if strings.Contains(lowered, keyword) {
				return section.Name
			}
		}
	}
	return ""
}

// HasFirstPerson reports whether the text contains a first-person pronoun.
func HasFirstPerson(text string) bool {
	for _, word := range wordSplitter.Split(strings.ToLower(text), -1) {
		if firstPerson[word] {
			return true
		}
	}
	return false
}

// HasQuantification reports whether the text contains numeric
// quantification: percentages, currency, or counts of years, people, or
// projects.
func HasQuantification(text string) bool {
	for _, re := range quantRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// HasToneWords reports whether the text contains promotional tone words.
func HasToneWords(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range tables.ToneWords {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

// IsBulleted reports whether the text carries bullet-list structural
// markers rather than paragraph prose.
func IsBulleted(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range tables.BulletMarkers {
		if strings.HasPrefix(marker, "<") {
			if strings.Contains(lowered, marker) {
				return true
			}
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), marker) {
				return true
			}
		}
	}
	return false
}

// LeadingActionVerb returns the action verb the text opens with, if any.
// The whitelist match is anchored at the start of the string; a verb buried
// mid-sentence does not count.
func LeadingActionVerb(text string) (string, bool) {
	trimmed := strings.TrimSpace(stripLeadingMarkup(text))
	words := wordSplitter.Split(strings.ToLower(trimmed), 2)
	if len(words) == 0 || words[0] == "" {
		return "", false
	}
	if actionVerbs[words[0]] {
		return words[0], true
	}
	return "", false
}

// stripLeadingMarkup removes bullet markers and simple HTML tags from the
// front of the text so verb anchoring sees the first real word.
func stripLeadingMarkup(text string) string {
	s := strings.TrimSpace(text)
	for {
		switch {
		case strings.HasPrefix(s, "- "), strings.HasPrefix(s, "* "):
			s = strings.TrimSpace(s[2:])
		case strings.HasPrefix(s, "• "):
			s = strings.TrimSpace(strings.TrimPrefix(s, "• "))
		case strings.HasPrefix(s, "<"):
			end := strings.Index(s, ">")
			if end < 0 {
				return s
			}
			s = strings.TrimSpace(s[end+1:])
		default:
			return s
		}
	}
}
