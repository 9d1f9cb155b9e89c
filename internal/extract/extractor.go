// Package extract turns a free-text prospect query into structured search
// criteria, using the language model with a keyword-parser fallback.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/vocab"
	"github.com/toolscout/prospector/pkg/anthropic"
)

const systemText = `You are a B2B prospect research assistant. You turn natural-language prospect searches into structured criteria. Return only valid JSON matching the requested schema. Use null or [] for fields not present in the query.`

const extractPrompt = `Extract structured search criteria from this prospect search query.

Query: %q

Return a valid JSON object:
{
  "required_tools": ["<software tools the prospect must use>"],
  "job_titles": ["<job titles mentioned>"],
  "industry": "<industry or null>",
  "company_type": "<company type like startup/enterprise or null>",
  "employee_range_min": <integer or null>,
  "employee_range_max": <integer or null>,
  "company_examples": ["<specific companies named as examples>"],
  "location": "<city, region, or null>",
  "strict_matching": <true if ALL tools are required ("both", "all of"), else false>
}`

// wireCriteria is the JSON shape the model returns.
type wireCriteria struct {
	RequiredTools    []string `json:"required_tools"`
	JobTitles        []string `json:"job_titles"`
	Industry         string   `json:"industry"`
	CompanyType      string   `json:"company_type"`
	EmployeeRangeMin int      `json:"employee_range_min"`
	EmployeeRangeMax int      `json:"employee_range_max"`
	CompanyExamples  []string `json:"company_examples"`
	Location         string   `json:"location"`
	StrictMatching   bool     `json:"strict_matching"`
}

// Extractor parses queries into SearchCriteria.
type Extractor struct {
	llm       anthropic.Client
	vocab     *vocab.Vocabulary
	model     string
	maxTokens int64
}

// New creates an extractor using the given model.
func New(llm anthropic.Client, v *vocab.Vocabulary, llmModel string, maxTokens int64) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Extractor{llm: llm, vocab: v, model: llmModel, maxTokens: maxTokens}
}

// Extract parses query into criteria. Emits an analyzing event on entry and
// a success or error event on completion. When the language model is
// unreachable or returns garbage, the keyword fallback parser takes over;
// only an empty query or criteria with no usable field fail with
// ExtractionError.
func (e *Extractor) Extract(ctx context.Context, query string, rec *events.Recorder) (model.SearchCriteria, error) {
	rec.Append(model.EventAnalyzing, "Analyzing your search request...")

	if strings.TrimSpace(query) == "" {
		rec.Append(model.EventError, "Search query is empty")
		return model.SearchCriteria{}, &model.ExtractionError{Reason: "empty query"}
	}

	criteria, err := e.llmExtract(ctx, query)
	if err != nil {
		zap.L().Warn("llm extraction failed, using keyword fallback", zap.Error(err))
		rec.Append(model.EventWarning, "AI extraction unavailable, using keyword matching")
		criteria = Fallback(query, e.vocab)
	}

	e.normalizeTools(&criteria)

	if verr := criteria.Validate(); verr != nil {
		rec.Append(model.EventError, "Could not understand the search request")
		return model.SearchCriteria{}, verr
	}

	rec.Append(model.EventSuccess, "Identified search criteria: "+describe(criteria))
	return criteria, nil
}

func (e *Extractor) llmExtract(ctx context.Context, query string) (model.SearchCriteria, error) {
	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemText),
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(extractPrompt, query)},
		},
	})
	if err != nil {
		return model.SearchCriteria{}, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(e.model, "extract")

	var wire wireCriteria
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &wire); err != nil {
		return model.SearchCriteria{}, eris.Wrap(err, "extract: unmarshal criteria")
	}

	return model.SearchCriteria{
		RequiredTools:    compact(wire.RequiredTools),
		JobTitles:        compact(wire.JobTitles),
		Industry:         strings.TrimSpace(wire.Industry),
		CompanyType:      strings.TrimSpace(wire.CompanyType),
		EmployeeRangeMin: wire.EmployeeRangeMin,
		EmployeeRangeMax: wire.EmployeeRangeMax,
		CompanyExamples:  compact(wire.CompanyExamples),
		Location:         strings.TrimSpace(wire.Location),
		StrictMatching:   wire.StrictMatching,
	}, nil
}

// normalizeTools resolves extracted tool names against the vocabulary, so
// "Intercom.io" and "intercom" both become "Intercom". Unknown tools keep
// their trimmed surface form.
func (e *Extractor) normalizeTools(criteria *model.SearchCriteria) {
	seen := make(map[string]bool, len(criteria.RequiredTools))
	out := criteria.RequiredTools[:0]
	for _, tool := range criteria.RequiredTools {
		name, ok := e.vocab.Normalize(tool)
		if !ok {
			name = strings.TrimSpace(tool)
		}
		if name == "" || seen[vocab.Fold(name)] {
			continue
		}
		seen[vocab.Fold(name)] = true
		out = append(out, name)
	}
	criteria.RequiredTools = out
}

func describe(c model.SearchCriteria) string {
	var parts []string
	if len(c.RequiredTools) > 0 {
		parts = append(parts, "tools "+strings.Join(c.RequiredTools, ", "))
	}
	if len(c.JobTitles) > 0 {
		parts = append(parts, "roles "+strings.Join(c.JobTitles, ", "))
	}
	if c.Industry != "" {
		parts = append(parts, "industry "+c.Industry)
	}
	return strings.Join(parts, "; ")
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
