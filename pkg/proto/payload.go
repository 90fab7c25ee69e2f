package proto

// WorkflowStatus is the stage completion shape reported by the generation
// service. The server is authoritative for the completion booleans; the local
// stage map is derived from them plus CurrentStep.
type WorkflowStatus struct {
	CurrentStep        string `json:"current_step"`
	ResearchComplete   bool   `json:"research_complete"`
	DiscoveryConfirmed bool   `json:"discovery_confirmed"`
	DraftApproved      bool   `json:"draft_approved"`
	ExportCompleted    bool   `json:"export_completed"`
}

// SuggestionPayload is the wire shape of one AI suggestion.
type SuggestionPayload struct {
	ID           string `json:"id"`
	Location     string `json:"location"`
	OriginalText string `json:"original_text"`
	ProposedText string `json:"proposed_text"`
	Rationale    string `json:"rationale,omitempty"`
	Status       string `json:"status,omitempty"`
}

// VersionPayload is the wire shape of one document version snapshot.
type VersionPayload struct {
	Version   string `json:"version"`
	Content   string `json:"content"`
	Trigger   string `json:"trigger,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DraftingPayload is the drafting-state shape reported by the generation
// service. Server-supplied suggestions, versions, current version, and the
// approved flag override local equivalents wholesale.
type DraftingPayload struct {
	ResumeHTML          string              `json:"resume_html,omitempty"`
	Content             string              `json:"content,omitempty"`
	DraftSuggestions    []SuggestionPayload `json:"draft_suggestions,omitempty"`
	DraftVersions       []VersionPayload    `json:"draft_versions,omitempty"`
	DraftCurrentVersion string              `json:"draft_current_version,omitempty"`
	DraftApproved       bool                `json:"draft_approved"`
}

// DocumentContent returns the document body, preferring the rich HTML field
// when both are present.
func (p *DraftingPayload) DocumentContent() string {
	if p.ResumeHTML != "" {
		return p.ResumeHTML
	}
	return p.Content
}
