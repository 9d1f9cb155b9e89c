// Package score turns criteria-match evidence into a 0-100 confidence score
// with an explanatory reason trail.
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/vocab"
)

// Config holds the band weights. The three bands sum to the maximum score.
type Config struct {
	ToolBand    int
	RoleBand    int
	ContextBand int
}

// DefaultConfig returns the standard 50/25/25 split.
func DefaultConfig() Config {
	return Config{ToolBand: 50, RoleBand: 25, ContextBand: 25}
}

// Scorer computes confidence scores. Stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New creates a scorer. Non-positive weights fall back to the defaults.
func New(cfg Config) *Scorer {
	if cfg.ToolBand <= 0 && cfg.RoleBand <= 0 && cfg.ContextBand <= 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score evaluates one candidate against the criteria and its detected tool
// mentions. Returns a score in [0,100] and reasons in evaluation order
// (tools, then roles, then context). Pure: same inputs, same output.
//
// Band weights for criteria the request never stated are folded into the
// tool band, so a pure "who uses X and Y" query can still reach 100.
func (s *Scorer) Score(c model.Candidate, criteria model.SearchCriteria, mentions []model.ToolMention) (int, []string) {
	toolBand := float64(s.cfg.ToolBand)
	roleBand := float64(s.cfg.RoleBand)
	contextBand := float64(s.cfg.ContextBand)

	if len(criteria.JobTitles) == 0 {
		toolBand += roleBand
		roleBand = 0
	}
	if len(criteria.RequiredTools) == 0 {
		contextBand += toolBand
		toolBand = 0
	}

	var reasons []string
	total := 0.0

	toolScore, toolReasons := s.toolMatch(criteria, mentions)
	total += toolScore * toolBand
	reasons = append(reasons, toolReasons...)

	roleScore, roleReasons := s.roleMatch(c, criteria)
	total += roleScore * roleBand
	reasons = append(reasons, roleReasons...)

	ctxScore, ctxReasons := s.contextMatch(c, criteria)
	total += ctxScore * contextBand
	reasons = append(reasons, ctxReasons...)

	score := int(math.Floor(total + 0.5))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}

// toolMatch returns the matched fraction of required tools. Each required
// tool carries an equal share of the band.
func (s *Scorer) toolMatch(criteria model.SearchCriteria, mentions []model.ToolMention) (float64, []string) {
	if len(criteria.RequiredTools) == 0 {
		return 0, nil
	}

	mentioned := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		mentioned[vocab.Fold(m.Tool)] = true
	}

	var matched []string
	for _, tool := range criteria.RequiredTools {
		if mentioned[vocab.Fold(tool)] {
			matched = append(matched, tool)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}

	var reasons []string
	if len(matched) == len(criteria.RequiredTools) && len(criteria.RequiredTools) > 1 {
		reasons = append(reasons, "Uses all required tools: "+strings.Join(matched, ", "))
	} else {
		for _, tool := range matched {
			reasons = append(reasons, "Uses "+tool)
		}
	}
	return float64(len(matched)) / float64(len(criteria.RequiredTools)), reasons
}

// roleMatch scores job-title overlap for person candidates. A title that
// contains a requested title outright earns the full band; shared keywords
// earn half.
func (s *Scorer) roleMatch(c model.Candidate, criteria model.SearchCriteria) (float64, []string) {
	if len(criteria.JobTitles) == 0 || c.Kind != model.KindPerson || c.Person == nil {
		return 0, nil
	}

	title := vocab.Fold(c.Person.Title)
	if title == "" {
		return 0, nil
	}

	for _, want := range criteria.JobTitles {
		if w := vocab.Fold(want); w != "" && strings.Contains(title, w) {
			return 1.0, []string{fmt.Sprintf("Role matches %q", want)}
		}
	}

	titleWords := keywordSet(title)
	for _, want := range criteria.JobTitles {
		for word := range keywordSet(vocab.Fold(want)) {
			if titleWords[word] {
				return 0.5, []string{fmt.Sprintf("Related role (%s)", c.Person.Title)}
			}
		}
	}
	return 0, nil
}

// contextMatch scores the remaining criteria: industry, company size,
// company examples, company type, and source quality. Each stated criterion
// carries an equal share of the band; source quality is always assessed.
func (s *Scorer) contextMatch(c model.Candidate, criteria model.SearchCriteria) (float64, []string) {
	var parts []component

	haystack := vocab.Fold(c.RawText + " " + c.Name)

	if criteria.Industry != "" {
		score := 0.0
		var reason string
		ind := vocab.Fold(criteria.Industry)
		if c.Company != nil && strings.Contains(vocab.Fold(c.Company.Industry), ind) {
			score, reason = 1.0, "Industry match: "+criteria.Industry
		} else if strings.Contains(haystack, ind) {
			score, reason = 0.5, "Industry mentioned: "+criteria.Industry
		}
		parts = append(parts, component{score, reason})
	}

	if criteria.HasEmployeeRange() {
		parts = append(parts, s.employeeFit(c, criteria))
	}

	if len(criteria.CompanyExamples) > 0 {
		score := 0.0
		var reason string
		for _, example := range criteria.CompanyExamples {
			ex := vocab.Fold(example)
			if ex == "" {
				continue
			}
			company := ""
			if c.Person != nil {
				company = vocab.Fold(c.Person.Company)
			}
			if strings.Contains(haystack, ex) || strings.Contains(company, ex) {
				score, reason = 1.0, "Connected to "+example
				break
			}
		}
		parts = append(parts, component{score, reason})
	}

	if criteria.CompanyType != "" {
		score := 0.0
		var reason string
		ct := vocab.Fold(criteria.CompanyType)
		if c.Company != nil && strings.Contains(vocab.Fold(c.Company.CompanyType), ct) {
			score, reason = 1.0, "Company type: "+criteria.CompanyType
		} else if strings.Contains(haystack, ct) {
			score, reason = 0.5, "Company type mentioned"
		}
		parts = append(parts, component{score, reason})
	}

	parts = append(parts, sourceQuality(c))

	total := 0.0
	var reasons []string
	for _, p := range parts {
		total += p.score
		if p.reason != "" && p.score > 0 {
			reasons = append(reasons, p.reason)
		}
	}
	return total / float64(len(parts)), reasons
}

// component is one weighted context signal.
type component struct {
	score  float64
	reason string
}

// employeeFit checks the candidate's headcount against the requested range.
// Counts within 30% of the bounds earn half credit.
func (s *Scorer) employeeFit(c model.Candidate, criteria model.SearchCriteria) component {
	if c.Company == nil || c.Company.EmployeeCount <= 0 {
		return component{}
	}
	n := c.Company.EmployeeCount

	lo, hi := criteria.EmployeeRangeMin, criteria.EmployeeRangeMax
	if lo > 0 && hi > 0 && n >= lo && n <= hi {
		return component{1.0, fmt.Sprintf("Headcount %d fits %d-%d", n, lo, hi)}
	}
	if lo > 0 && hi == 0 && n >= lo {
		return component{1.0, fmt.Sprintf("Headcount %d above %d", n, lo)}
	}
	if hi > 0 && lo == 0 && n <= hi {
		return component{1.0, fmt.Sprintf("Headcount %d under %d", n, hi)}
	}

	nearLo := lo
	if lo > 0 {
		nearLo = int(float64(lo) * 0.7)
	}
	nearHi := hi
	if hi > 0 {
		nearHi = int(float64(hi) * 1.3)
	}
	if (nearLo == 0 || n >= nearLo) && (nearHi == 0 || n <= nearHi) {
		return component{0.5, fmt.Sprintf("Headcount %d near requested range", n)}
	}
	return component{}
}

// sourceQuality grants context credit for high-signal source URLs.
func sourceQuality(c model.Candidate) component {
	url := strings.ToLower(c.URL)
	switch {
	case strings.Contains(url, "linkedin.com/in/"):
		return component{1.0, "Verified LinkedIn profile"}
	case strings.Contains(url, "linkedin.com/company/"):
		return component{1.0, "Verified LinkedIn company page"}
	case strings.Contains(url, "crunchbase.com"):
		return component{1.0, "Crunchbase listing"}
	case strings.Contains(url, "wellfound.com"), strings.Contains(url, "angel.co"):
		return component{0.5, "Startup platform listing"}
	case url != "":
		return component{0.25, ""}
	default:
		return component{}
	}
}

// MissingTools returns the required tools with no mention, sorted. Used for
// strict-mode exclusion ahead of scoring.
func MissingTools(criteria model.SearchCriteria, mentions []model.ToolMention) []string {
	mentioned := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		mentioned[vocab.Fold(m.Tool)] = true
	}
	var missing []string
	for _, tool := range criteria.RequiredTools {
		if !mentioned[vocab.Fold(tool)] {
			missing = append(missing, tool)
		}
	}
	sort.Strings(missing)
	return missing
}

func keywordSet(folded string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(folded) {
		if len(w) >= 4 {
			out[w] = true
		}
	}
	return out
}
