package source

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/resilience"
	"github.com/toolscout/prospector/internal/vocab"
)

// DirectoryAdapter scrapes tech-stack directory listing pages, the "who
// uses X" indexes that enumerate customer companies per tool.
type DirectoryAdapter struct {
	baseURL    string
	httpClient *http.Client
	maxPerTool int
}

// NewDirectoryAdapter points the scraper at a directory site. The directory
// is expected to serve listings at <base>/tools/<tool-slug>.
func NewDirectoryAdapter(baseURL string, maxPerTool int) *DirectoryAdapter {
	if maxPerTool <= 0 {
		maxPerTool = 20
	}
	return &DirectoryAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
		maxPerTool: maxPerTool,
	}
}

func (a *DirectoryAdapter) Name() string { return "directory" }

// Fetch pulls the listing page for each required tool and parses the
// company entries. Criteria without tools have no directory pages to visit.
func (a *DirectoryAdapter) Fetch(ctx context.Context, criteria model.SearchCriteria) ([]model.Candidate, error) {
	if a.baseURL == "" || len(criteria.RequiredTools) == 0 {
		return nil, nil
	}

	var out []model.Candidate
	for _, tool := range criteria.RequiredTools {
		entries, err := a.fetchListing(ctx, tool)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (a *DirectoryAdapter) fetchListing(ctx context.Context, tool string) ([]model.Candidate, error) {
	listingURL := a.baseURL + "/tools/" + url.PathEscape(toolSlug(tool))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "directory: build request")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "directory: fetch listing")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No listing for this tool. Not an error, just no coverage.
		return nil, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &model.RateLimitError{Source: a.Name()}
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("directory: listing %s returned status %d", listingURL, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "directory: parse listing")
	}

	var out []model.Candidate
	doc.Find(".company-entry, li.company, article.company").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if c, ok := a.parseEntry(sel, tool); ok {
			out = append(out, c)
		}
		return len(out) < a.maxPerTool
	})
	return out, nil
}

// parseEntry reads one listing entry. Entries without a name are dropped.
func (a *DirectoryAdapter) parseEntry(sel *goquery.Selection, tool string) (model.Candidate, bool) {
	name := strings.TrimSpace(sel.Find(".name, h3, h2").First().Text())
	if name == "" {
		return model.Candidate{}, false
	}

	link, _ := sel.Find("a").First().Attr("href")
	if strings.HasPrefix(link, "/") {
		link = a.baseURL + link
	}
	blurb := strings.TrimSpace(sel.Find(".description, p").First().Text())
	industry := strings.TrimSpace(sel.Find(".industry").First().Text())

	raw := name + " " + blurb
	if !strings.Contains(vocab.Fold(raw), vocab.Fold(tool)) {
		// Listing pages imply usage even when the blurb never names the
		// tool, so make the evidence explicit for the detector.
		raw += " uses " + tool
	}
	count, rangeStr := employeeCount(blurb)

	return model.Candidate{
		Kind:    model.KindCompany,
		Name:    name,
		URL:     link,
		RawText: raw,
		Company: &model.CompanyDetail{
			Industry:      industry,
			EmployeeCount: count,
			EmployeeRange: rangeStr,
			Founded:       foundedYear(blurb),
			Description:   blurb,
		},
	}, true
}

// toolSlug converts a canonical tool name into a directory URL slug.
func toolSlug(tool string) string {
	return strings.ReplaceAll(vocab.Fold(tool), " ", "-")
}
