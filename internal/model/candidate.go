package model

import "encoding/json"

// CandidateKind tags the identity variant of a discovered candidate.
type CandidateKind string

const (
	KindCompany CandidateKind = "company"
	KindPerson  CandidateKind = "person"
)

// CompanyDetail holds fields that only apply to company candidates.
type CompanyDetail struct {
	Industry      string `json:"industry,omitempty"`
	CompanyType   string `json:"company_type,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	EmployeeRange string `json:"employee_range,omitempty"`
	Founded       string `json:"founded,omitempty"`
	Description   string `json:"description,omitempty"`
}

// PersonDetail holds fields that only apply to person candidates.
type PersonDetail struct {
	Title                string   `json:"title,omitempty"`
	Company              string   `json:"company,omitempty"`
	BioSnippet           string   `json:"bio_snippet,omitempty"`
	ExperienceIndicators []string `json:"experience_indicators,omitempty"`
}

// Candidate is a raw company or person record produced by a source adapter.
// Exactly one of Company or Person is set, matching Kind. A candidate is
// immutable once fetched; detection and scoring read it but never modify it.
type Candidate struct {
	Kind     CandidateKind  `json:"kind"`
	Name     string         `json:"name"`
	Location string         `json:"location,omitempty"`
	Source   string         `json:"source"`
	URL      string         `json:"url"`
	RawText  string         `json:"raw_text"`
	Company  *CompanyDetail `json:"company,omitempty"`
	Person   *PersonDetail  `json:"person,omitempty"`

	// DiscoveryOrder is the global arrival index assigned by the dispatcher,
	// used as the final rank tie-break.
	DiscoveryOrder int `json:"discovery_order"`
}

// ToolMention is textual evidence that a candidate references a target tool.
type ToolMention struct {
	Tool    string `json:"tool"`
	Surface string `json:"surface"`
	Snippet string `json:"snippet,omitempty"`
}

// ScoredCandidate is a candidate with its confidence score and the evidence
// that produced it. Score is a pure function of (criteria, evidence):
// recomputing from the same inputs yields the same value.
type ScoredCandidate struct {
	Candidate

	ConfidenceScore int           `json:"confidence_score"`
	MatchReasons    []string      `json:"match_reasons"`
	Mentions        []ToolMention `json:"tool_mentions,omitempty"`
}

// MarshalJSON adds the derived tools_detected list to the wire form so API
// consumers need not re-derive it from the mention set.
func (s ScoredCandidate) MarshalJSON() ([]byte, error) {
	type alias ScoredCandidate
	return json.Marshal(struct {
		alias
		ToolsDetected []string `json:"tools_detected"`
	}{alias(s), s.ToolsDetected()})
}

// ToolsDetected returns the canonical tool names mentioned, in mention order.
func (s ScoredCandidate) ToolsDetected() []string {
	tools := make([]string, 0, len(s.Mentions))
	seen := make(map[string]bool, len(s.Mentions))
	for _, m := range s.Mentions {
		if seen[m.Tool] {
			continue
		}
		seen[m.Tool] = true
		tools = append(tools, m.Tool)
	}
	return tools
}
