package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/pkg/reader"
	"github.com/toolscout/prospector/pkg/serper"
)

// ProfileCrawlAdapter finds individual profiles via search, then fetches the
// page text for each so the detector has full content to work with instead
// of a two-line snippet.
type ProfileCrawlAdapter struct {
	search      serper.Client
	read        reader.Client
	maxProfiles int
}

// NewProfileCrawlAdapter wires a search client for discovery and a reader
// client for content fetch. maxProfiles bounds how many pages are crawled
// per run.
func NewProfileCrawlAdapter(search serper.Client, read reader.Client, maxProfiles int) *ProfileCrawlAdapter {
	if maxProfiles <= 0 {
		maxProfiles = 6
	}
	return &ProfileCrawlAdapter{search: search, read: read, maxProfiles: maxProfiles}
}

func (a *ProfileCrawlAdapter) Name() string { return "profile-crawl" }

// Fetch searches for matching profiles and crawls each one. Only queries
// with a person dimension are issued; pure company criteria return nothing.
func (a *ProfileCrawlAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error) {
	if len(criteria.JobTitles) == 0 && len(criteria.RequiredTools) == 0 {
		return nil, nil
	}

	q := "site:linkedin.com/in/"
	for _, title := range criteria.JobTitles {
		q += fmt.Sprintf(" %q", title)
	}
	for _, tool := range criteria.RequiredTools {
		q += fmt.Sprintf(" %q", tool)
	}
	if criteria.Location != "" {
		q += " " + criteria.Location
	}

	resp, err := a.search.Search(ctx, serper.SearchRequest{Query: q, Num: a.maxProfiles * 2})
	if err != nil {
		return nil, mapSearchError(a.Name(), err)
	}

	var out []model.Candidate
	for _, r := range resp.Organic {
		if len(out) >= a.maxProfiles {
			break
		}
		if !isProfileURL(r.Link) || skippable(r.Link, r.Title) {
			continue
		}
		out = append(out, a.crawlProfile(ctx, r))
	}
	return out, nil
}

// crawlProfile builds a person candidate from one search result, enriched
// with fetched page content. A failed fetch degrades to the snippet; the
// result is still usable, just thinner evidence.
func (a *ProfileCrawlAdapter) crawlProfile(ctx context.Context, r serper.OrganicResult) model.Candidate {
	name, role, company := splitPersonTitle(r.Title)
	if name == "" {
		name = nameFromSlug(r.Link)
	}

	raw := r.Title + " " + r.Snippet
	var indicators []string
	if page, err := a.read.Read(ctx, r.Link); err != nil {
		zap.L().Debug("profile fetch failed, keeping snippet only",
			zap.String("url", r.Link),
			zap.Error(err))
	} else if content := strings.TrimSpace(page.Data.Content); content != "" {
		raw = content
		indicators = experienceIndicators(content)
	}

	return model.Candidate{
		Kind:    model.KindPerson,
		Name:    name,
		URL:     r.Link,
		RawText: raw,
		Person: &model.PersonDetail{
			Title:                role,
			Company:              company,
			BioSnippet:           r.Snippet,
			ExperienceIndicators: indicators,
		},
	}
}

// experienceIndicators pulls short lines that look like role or tenure
// statements out of fetched profile text.
func experienceIndicators(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#*- "))
		if line == "" || len(line) > 120 {
			continue
		}
		lower := strings.ToLower(line)
		for _, marker := range []string{"years of experience", "managing a team", "led a team", "responsible for", "currently at"} {
			if strings.Contains(lower, marker) {
				out = append(out, line)
				break
			}
		}
		if len(out) >= 5 {
			break
		}
	}
	return out
}
