// Package model defines the core data types shared across the search pipeline.
package model

// SearchCriteria is the structured form of a free-text prospect query.
type SearchCriteria struct {
	RequiredTools    []string `json:"required_tools"`
	JobTitles        []string `json:"job_titles,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	CompanyType      string   `json:"company_type,omitempty"`
	EmployeeRangeMin int      `json:"employee_range_min,omitempty"`
	EmployeeRangeMax int      `json:"employee_range_max,omitempty"`
	CompanyExamples  []string `json:"company_examples,omitempty"`
	Location         string   `json:"location,omitempty"`
	StrictMatching   bool     `json:"strict_matching"`
}

// Validate checks the criteria invariants: at least one of required_tools,
// job_titles, or industry must be non-empty, and the employee range must be
// ordered when both bounds are set.
func (c SearchCriteria) Validate() error {
	if len(c.RequiredTools) == 0 && len(c.JobTitles) == 0 && c.Industry == "" {
		return &ExtractionError{Reason: "criteria empty: need at least one of required_tools, job_titles, or industry"}
	}
	if c.EmployeeRangeMin > 0 && c.EmployeeRangeMax > 0 && c.EmployeeRangeMin > c.EmployeeRangeMax {
		return &ExtractionError{Reason: "employee range min exceeds max"}
	}
	return nil
}

// HasEmployeeRange reports whether at least one employee range bound is set.
func (c SearchCriteria) HasEmployeeRange() bool {
	return c.EmployeeRangeMin > 0 || c.EmployeeRangeMax > 0
}
