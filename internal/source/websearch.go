package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/resilience"
	"github.com/toolscout/prospector/pkg/serper"
)

// WebSearchAdapter discovers candidates through organic web search: customer
// showcases, "powered by" pages, and LinkedIn results that surface in plain
// search.
type WebSearchAdapter struct {
	search     serper.Client
	maxQueries int
	maxResults int
}

// NewWebSearchAdapter wraps a serper client. maxQueries caps how many query
// variants are issued per criteria set.
func NewWebSearchAdapter(search serper.Client, maxQueries, maxResults int) *WebSearchAdapter {
	if maxQueries <= 0 {
		maxQueries = 4
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	return &WebSearchAdapter{search: search, maxQueries: maxQueries, maxResults: maxResults}
}

func (a *WebSearchAdapter) Name() string { return "web-search" }

// Fetch issues the query plan for criteria and parses organic results into
// company and person candidates.
func (a *WebSearchAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error) {
	queries := buildQueries(criteria, a.maxQueries)

	var out []model.Candidate
	seen := make(map[string]bool)
	for _, q := range queries {
		resp, err := a.search.Search(ctx, serper.SearchRequest{Query: q, Num: a.maxResults})
		if err != nil {
			return nil, mapSearchError(a.Name(), err)
		}
		for _, r := range resp.Organic {
			if skippable(r.Link, r.Title) || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			out = append(out, resultToCandidate(r))
		}
	}
	return out, nil
}

// buildQueries turns criteria into a small set of search query variants,
// mirroring how a human researcher would phrase them. Ordered from most to
// least specific so query caps drop the weakest variants first.
func buildQueries(criteria model.SearchCriteria, limit int) []string {
	var queries []string
	qualifier := industryQualifier(criteria)

	if len(criteria.RequiredTools) > 1 {
		quoted := make([]string, len(criteria.RequiredTools))
		for i, t := range criteria.RequiredTools {
			quoted[i] = fmt.Sprintf("%q", t)
		}
		queries = append(queries, strings.TrimSpace(
			fmt.Sprintf("%s companies using %s", qualifier, strings.Join(quoted, " and "))))
	}

	for _, tool := range criteria.RequiredTools {
		queries = append(queries,
			strings.TrimSpace(fmt.Sprintf("%q customers case study %s", tool, qualifier)),
			fmt.Sprintf(`"powered by %s" %s`, tool, strings.Join(criteria.CompanyExamples, " ")))
	}

	for _, title := range criteria.JobTitles {
		q := fmt.Sprintf("site:linkedin.com/in %q", title)
		for _, tool := range criteria.RequiredTools {
			q += fmt.Sprintf(" %q", tool)
		}
		if criteria.Location != "" {
			q += " " + criteria.Location
		}
		queries = append(queries, q)
	}

	if len(queries) == 0 && criteria.Industry != "" {
		queries = append(queries, criteria.Industry+" companies "+strings.Join(criteria.CompanyExamples, " "))
	}

	for i := range queries {
		queries[i] = strings.Join(strings.Fields(queries[i]), " ")
	}
	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

func industryQualifier(criteria model.SearchCriteria) string {
	parts := make([]string, 0, 2)
	if criteria.Industry != "" {
		parts = append(parts, criteria.Industry)
	}
	if criteria.CompanyType != "" {
		parts = append(parts, criteria.CompanyType)
	}
	return strings.Join(parts, " ")
}

// resultToCandidate classifies one organic result as a person or company
// candidate and extracts what the snippet gives us for free.
func resultToCandidate(r serper.OrganicResult) model.Candidate {
	raw := r.Title + " " + r.Snippet

	if isProfileURL(r.Link) {
		name, role, company := splitPersonTitle(r.Title)
		if name == "" {
			name = nameFromSlug(r.Link)
		}
		return model.Candidate{
			Kind:    model.KindPerson,
			Name:    name,
			URL:     r.Link,
			RawText: raw,
			Person: &model.PersonDetail{
				Title:      role,
				Company:    company,
				BioSnippet: r.Snippet,
			},
		}
	}

	name := companyFromTitle(r.Title)
	if isCompanyPageURL(r.Link) {
		if slugName := nameFromSlug(r.Link); slugName != "" {
			name = slugName
		}
	}
	count, rangeStr := employeeCount(raw)
	return model.Candidate{
		Kind:    model.KindCompany,
		Name:    name,
		URL:     r.Link,
		RawText: raw,
		Company: &model.CompanyDetail{
			EmployeeCount: count,
			EmployeeRange: rangeStr,
			Founded:       foundedYear(raw),
			Description:   r.Snippet,
		},
	}
}

// mapSearchError translates transport-level failures into the domain error
// taxonomy so the dispatcher can retry or trip breakers appropriately.
func mapSearchError(sourceName string, err error) error {
	var serr *serper.StatusError
	if errors.As(err, &serr) {
		if serr.StatusCode == 429 {
			return &model.RateLimitError{Source: sourceName, RetryAfter: serr.RetryAfter}
		}
		if resilience.IsTransientHTTPStatus(serr.StatusCode) {
			return resilience.NewTransientError(err, serr.StatusCode)
		}
		return err
	}
	return err
}
