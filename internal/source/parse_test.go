package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmployeeCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		count    int
		rangeStr string
	}{
		{"plain count", "Acme has 250 employees worldwide", 250, ""},
		{"comma count", "over 1,200 employees across 4 offices", 1200, ""},
		{"range", "51-200 employees · SaaS", 125, "51-200"},
		{"range with spaces", "11 - 50 employees", 30, "11-50"},
		{"plus suffix", "500+ employees", 500, ""},
		{"nothing", "a support tooling company", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, rangeStr := employeeCount(tt.text)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.rangeStr, rangeStr)
		})
	}
}

func TestFoundedYear(t *testing.T) {
	assert.Equal(t, "2016", foundedYear("Founded in 2016, Acme builds support tooling"))
	assert.Equal(t, "1999", foundedYear("established 1999"))
	assert.Equal(t, "", foundedYear("serving customers since day one"))
	assert.Equal(t, "", foundedYear("three hundred customers"))
}

func TestNameFromSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://linkedin.com/company/acme-corp", "Acme Corp"},
		{"https://linkedin.com/in/jane-doe-b2a61049", "Jane Doe"},
		{"https://linkedin.com/in/john-smith-123456789", "John Smith"},
		{"bare-slug", "Bare Slug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nameFromSlug(tt.in), tt.in)
	}
}

func TestSplitPersonTitle(t *testing.T) {
	name, role, company := splitPersonTitle("Jane Doe - Head of Support - Acme | LinkedIn")
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "Head of Support", role)
	assert.Equal(t, "Acme", company)

	name, role, company = splitPersonTitle("John Smith - CTO")
	assert.Equal(t, "John Smith", name)
	assert.Equal(t, "CTO", role)
	assert.Empty(t, company)

	name, role, company = splitPersonTitle("Solo Name")
	assert.Equal(t, "Solo Name", name)
	assert.Empty(t, role)
	assert.Empty(t, company)
}

func TestCompanyFromTitle(t *testing.T) {
	assert.Equal(t, "Acme", companyFromTitle("Acme | Customer Support Platform"))
	assert.Equal(t, "Acme", companyFromTitle("Acme - About Us"))
	assert.Equal(t, "Plain Title", companyFromTitle("Plain Title"))
}

func TestSkippable(t *testing.T) {
	assert.True(t, skippable("https://acme.example/careers", "Acme"))
	assert.True(t, skippable("https://youtube.com/watch?v=x", "Demo video"))
	assert.True(t, skippable("https://blog.example/post", "Top 10 Intercom alternatives"))
	assert.True(t, skippable("https://linkedin.com/pulse/article", "Thought piece"))
	assert.False(t, skippable("https://linkedin.com/in/jane-doe", "Jane Doe - Head of Support"))
	assert.False(t, skippable("https://acme.example/about", "Acme"))
}
