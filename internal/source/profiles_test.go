package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/toolscout/prospector/internal/model"
	"github.com/toolscout/prospector/pkg/reader"
	"github.com/toolscout/prospector/pkg/serper"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Read(ctx context.Context, targetURL string) (*reader.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reader.ReadResponse), args.Error(1)
}

func profileResults(n int) *serper.SearchResponse {
	resp := &serper.SearchResponse{}
	links := []string{
		"https://linkedin.com/in/jane-doe",
		"https://linkedin.com/in/john-smith",
		"https://linkedin.com/in/ada-park",
	}
	titles := []string{
		"Jane Doe - Head of Support - Acme | LinkedIn",
		"John Smith - Support Manager - Beta | LinkedIn",
		"Ada Park - CX Lead - Gamma | LinkedIn",
	}
	for i := 0; i < n && i < len(links); i++ {
		resp.Organic = append(resp.Organic, serper.OrganicResult{Title: titles[i], Link: links[i]})
	}
	return resp
}

func TestProfileCrawl_EnrichesWithPageContent(t *testing.T) {
	search := new(mockSearch)
	search.On("Search", mock.Anything, mock.Anything).Return(profileResults(1), nil)

	rd := new(mockReader)
	rd.On("Read", mock.Anything, "https://linkedin.com/in/jane-doe").Return(&reader.ReadResponse{
		Data: reader.ReadData{
			Content: "# Jane Doe\nHead of Support at Acme\n8 years of experience in customer support\nI use Intercom and Klaus daily\n",
		},
	}, nil)

	adapter := NewProfileCrawlAdapter(search, rd, 5)
	candidates, err := adapter.Fetch(context.Background(), model.SearchCriteria{
		JobTitles:     []string{"Head of Support"},
		RequiredTools: []string{"Intercom"},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, model.KindPerson, c.Kind)
	assert.Equal(t, "Jane Doe", c.Name)
	assert.Contains(t, c.RawText, "Intercom and Klaus")
	require.NotNil(t, c.Person)
	assert.Equal(t, "Head of Support", c.Person.Title)
	assert.Contains(t, c.Person.ExperienceIndicators, "8 years of experience in customer support")
}

func TestProfileCrawl_ReadFailureKeepsSnippet(t *testing.T) {
	search := new(mockSearch)
	resp := profileResults(1)
	resp.Organic[0].Snippet = "Head of Support at Acme, Intercom power user"
	search.On("Search", mock.Anything, mock.Anything).Return(resp, nil)

	rd := new(mockReader)
	rd.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("fetch blocked"))

	adapter := NewProfileCrawlAdapter(search, rd, 5)
	candidates, err := adapter.Fetch(context.Background(), model.SearchCriteria{JobTitles: []string{"Head of Support"}})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].RawText, "Intercom power user")
}

func TestProfileCrawl_CapsProfiles(t *testing.T) {
	search := new(mockSearch)
	search.On("Search", mock.Anything, mock.Anything).Return(profileResults(3), nil)

	rd := new(mockReader)
	rd.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("skip content"))

	adapter := NewProfileCrawlAdapter(search, rd, 2)
	candidates, err := adapter.Fetch(context.Background(), model.SearchCriteria{JobTitles: []string{"Support Manager"}})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestProfileCrawl_NoPersonDimension(t *testing.T) {
	search := new(mockSearch)
	adapter := NewProfileCrawlAdapter(search, new(mockReader), 5)

	candidates, err := adapter.Fetch(context.Background(), model.SearchCriteria{Industry: "SaaS"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	search.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}
