package model

import (
	"strings"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignFailed
}

// CampaignRequest is the persisted search request that a campaign repeats.
type CampaignRequest struct {
	CompanyName string   `json:"company_name"`
	JobTitles   []string `json:"job_titles"`
	TargetTools []string `json:"target_tools"`
	Department  string   `json:"department,omitempty"`
}

// Validate checks the creation invariants for a campaign request.
func (r CampaignRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return &ValidationError{Field: "company_name", Reason: "must not be empty"}
	}
	if len(r.JobTitles) == 0 {
		return &ValidationError{Field: "job_titles", Reason: "at least one job title required"}
	}
	if len(r.TargetTools) == 0 {
		return &ValidationError{Field: "target_tools", Reason: "at least one target tool required"}
	}
	return nil
}

// Criteria converts the campaign request into pipeline search criteria.
// Campaign runs use flexible matching so progress accumulates even for
// partial tool matches.
func (r CampaignRequest) Criteria() SearchCriteria {
	return SearchCriteria{
		RequiredTools:   append([]string(nil), r.TargetTools...),
		JobTitles:       append([]string(nil), r.JobTitles...),
		CompanyExamples: []string{r.CompanyName},
		StrictMatching:  false,
	}
}

// Name derives the display name used when none is provided explicitly.
func (r CampaignRequest) Name() string {
	return r.CompanyName + " - " + strings.Join(r.JobTitles, ", ")
}

// CampaignProgress tracks live counters while a campaign runs.
type CampaignProgress struct {
	ProspectsFound int `json:"prospects_found"`
	TotalSearched  int `json:"total_searched"`
}

// Campaign is a named, persisted, repeatable instantiation of the search
// pipeline. Mutated only by the campaign manager; transitions are serialized
// per id.
type Campaign struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Request   CampaignRequest  `json:"request"`
	Status    CampaignStatus   `json:"status"`
	Progress  CampaignProgress `json:"progress"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ChatMessage is one entry in a campaign's refinement conversation.
type ChatMessage struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Role       string    `json:"role"` // "user" or "assistant"
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
