package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/toolscout/prospector/internal/detect"
	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/internal/vocab"
)

// Title keywords that commonly identify a role in a prospect query. Multi-word
// phrases are checked before single words so "customer success manager" wins
// over "manager".
var titlePhrases = []string{
	"customer success manager",
	"customer support manager",
	"head of support",
	"head of customer success",
	"head of sales",
	"vp of sales",
	"vp of engineering",
	"sales manager",
	"support manager",
	"account executive",
	"product manager",
	"engineering manager",
	"support agent",
	"cto",
	"ceo",
	"coo",
	"founder",
}

var industryKeywords = []string{
	"saas",
	"fintech",
	"ecommerce",
	"e-commerce",
	"healthcare",
	"edtech",
	"insurance",
	"logistics",
	"real estate",
	"cybersecurity",
	"martech",
}

var locationKeywords = []string{
	"san francisco",
	"new york",
	"london",
	"berlin",
	"amsterdam",
	"toronto",
	"austin",
	"boston",
	"seattle",
	"remote",
	"europe",
	"usa",
	"uk",
}

var companyTypeKeywords = []string{
	"startup",
	"scaleup",
	"enterprise",
	"agency",
	"smb",
}

var (
	rangePattern = regexp.MustCompile(`(\d+)\s*(?:-|to)\s*(\d+)\s*(?:employees|people|staff)`)
	underPattern = regexp.MustCompile(`(?:under|less than|fewer than|below)\s*(\d+)\s*(?:employees|people|staff)?`)
	overPattern  = regexp.MustCompile(`(?:over|more than|above|at least)\s*(\d+)\s*(?:employees|people|staff)?`)
	likePattern  = regexp.MustCompile(`(?:like|similar to|such as)\s+([A-Z][A-Za-z0-9.]+)`)
)

// Fallback parses a query with keyword matching alone. It recognizes tool
// names from the vocabulary, common job titles, industries, company types,
// and employee ranges. Used when the language model cannot be reached.
func Fallback(query string, v *vocab.Vocabulary) model.SearchCriteria {
	folded := vocab.Fold(query)
	lower := strings.ToLower(query)

	criteria := model.SearchCriteria{
		RequiredTools: detect.New(v).DetectTools(query),
	}

	remaining := folded
	for _, phrase := range titlePhrases {
		if strings.Contains(remaining, phrase) {
			criteria.JobTitles = append(criteria.JobTitles, phrase)
			remaining = strings.ReplaceAll(remaining, phrase, " ")
		}
	}

	for _, kw := range industryKeywords {
		if strings.Contains(folded, vocab.Fold(kw)) {
			criteria.Industry = kw
			break
		}
	}

	for _, kw := range companyTypeKeywords {
		if strings.Contains(folded, kw) {
			criteria.CompanyType = kw
			break
		}
	}

	for _, kw := range locationKeywords {
		if len(kw) <= 3 {
			if strings.Contains(folded, " "+kw+" ") || strings.HasSuffix(folded, " "+kw) {
				criteria.Location = kw
				break
			}
			continue
		}
		if strings.Contains(folded, kw) {
			criteria.Location = kw
			break
		}
	}

	if m := rangePattern.FindStringSubmatch(lower); m != nil {
		criteria.EmployeeRangeMin, _ = strconv.Atoi(m[1])
		criteria.EmployeeRangeMax, _ = strconv.Atoi(m[2])
	} else if m := underPattern.FindStringSubmatch(lower); m != nil {
		criteria.EmployeeRangeMax, _ = strconv.Atoi(m[1])
	} else if m := overPattern.FindStringSubmatch(lower); m != nil {
		criteria.EmployeeRangeMin, _ = strconv.Atoi(m[1])
	}

	for _, m := range likePattern.FindAllStringSubmatch(query, -1) {
		criteria.CompanyExamples = append(criteria.CompanyExamples, m[1])
	}

	if len(criteria.RequiredTools) > 1 &&
		(strings.Contains(folded, "both") || strings.Contains(folded, "all of") ||
			strings.Contains(folded, " and ")) {
		criteria.StrictMatching = true
	}

	return criteria
}
