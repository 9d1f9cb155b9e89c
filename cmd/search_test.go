package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolscout/prospector/internal/model"
)

func TestPrintResult_Table(t *testing.T) {
	result := &model.SearchResult{
		Summary: "Discovered 1 companies",
		Events: []model.SearchEvent{
			{Kind: model.EventAnalyzing, Message: "Analyzing your search request..."},
			{Kind: model.EventSuccess, Message: "Found 1 matches (1 high confidence)"},
		},
		TableData: &model.TableData{
			Columns: []string{"Company", "Confidence"},
			Rows: []map[string]string{
				{"Company": "Acme", "Confidence": "85%"},
			},
			Total:   1,
			Summary: "Discovered 1 companies",
		},
	}

	var buf bytes.Buffer
	printResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "[analyzing] Analyzing your search request...")
	assert.Contains(t, out, "Discovered 1 companies")
	assert.Contains(t, out, "COMPANY")
	assert.Contains(t, out, "CONFIDENCE")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "85%")
}

func TestPrintResult_NoTable(t *testing.T) {
	result := &model.SearchResult{Summary: "No results found matching your criteria"}

	var buf bytes.Buffer
	printResult(&buf, result)

	assert.Contains(t, buf.String(), "No results found matching your criteria")
}
