package model

// TableData is the flat projection of ranked results for table rendering and
// export. The column set depends on the result kind (companies vs people).
type TableData struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Total   int                 `json:"total"`
	Summary string              `json:"summary"`
}

// SearchResult is the final, immutable outcome of one pipeline run.
// Candidates are post-dedup, post-rank; Companies and People are the same
// candidates partitioned by kind for the wire contract.
type SearchResult struct {
	Companies []ScoredCandidate `json:"companies"`
	People    []ScoredCandidate `json:"people"`

	Criteria        SearchCriteria `json:"search_criteria"`
	TableData       *TableData     `json:"table_data,omitempty"`
	Summary         string         `json:"search_summary"`
	Reasoning       string         `json:"reasoning"`
	Events          []SearchEvent  `json:"search_events"`
	CriteriaMatched int            `json:"criteria_matched"`
	TotalFound      int            `json:"total_found"`
	ExecutionTime   float64        `json:"execution_time"`
	Success         bool           `json:"success"`
}
