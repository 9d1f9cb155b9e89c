package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toolscout/prospector/internal/model"
)

var (
	companyColumns = []string{"Company", "Industry", "Employees", "Tools", "Source", "Confidence", "Website"}
	peopleColumns  = []string{"Name", "Title", "Company", "Tools", "Experience", "Confidence", "LinkedIn"}
)

// buildTable projects ranked results into a flat export table. Mixed result
// sets take the columns of the larger partition; an empty result has no
// table at all.
func buildTable(companies, people []model.ScoredCandidate) *model.TableData {
	if len(companies) == 0 && len(people) == 0 {
		return nil
	}
	if len(companies) >= len(people) {
		return companyTable(companies)
	}
	return peopleTable(people)
}

func companyTable(companies []model.ScoredCandidate) *model.TableData {
	rows := make([]map[string]string, 0, len(companies))
	for _, c := range companies {
		detail := c.Company
		if detail == nil {
			detail = &model.CompanyDetail{}
		}
		rows = append(rows, map[string]string{
			"Company":    c.Name,
			"Industry":   detail.Industry,
			"Employees":  formatEmployees(detail),
			"Tools":      joinOrNA(c.ToolsDetected()),
			"Source":     c.Source,
			"Confidence": fmt.Sprintf("%d%%", c.ConfidenceScore),
			"Website":    c.URL,
		})
	}
	return &model.TableData{
		Columns: companyColumns,
		Rows:    rows,
		Total:   len(companies),
		Summary: fmt.Sprintf("Discovered %d companies", len(companies)),
	}
}

func peopleTable(people []model.ScoredCandidate) *model.TableData {
	rows := make([]map[string]string, 0, len(people))
	for _, p := range people {
		detail := p.Person
		if detail == nil {
			detail = &model.PersonDetail{}
		}
		experience := detail.ExperienceIndicators
		if len(experience) > 2 {
			experience = experience[:2]
		}
		rows = append(rows, map[string]string{
			"Name":       p.Name,
			"Title":      detail.Title,
			"Company":    detail.Company,
			"Tools":      joinOrNA(p.ToolsDetected()),
			"Experience": joinOrNA(experience),
			"Confidence": fmt.Sprintf("%d%%", p.ConfidenceScore),
			"LinkedIn":   p.URL,
		})
	}
	return &model.TableData{
		Columns: peopleColumns,
		Rows:    rows,
		Total:   len(people),
		Summary: fmt.Sprintf("Found %d people using specified tools", len(people)),
	}
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

// formatEmployees prefers an exact headcount with thousands separators,
// falling back to the scraped range string.
func formatEmployees(detail *model.CompanyDetail) string {
	if detail.EmployeeCount > 0 {
		return groupThousands(detail.EmployeeCount)
	}
	return detail.EmployeeRange
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
