package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolscout/prospector/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRequest() model.CampaignRequest {
	return model.CampaignRequest{
		CompanyName: "Acme",
		JobTitles:   []string{"Head of Support"},
		TargetTools: []string{"Intercom", "Klaus"},
		Department:  "CX",
	}
}

func TestSQLite_CampaignRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateCampaign(ctx, "", sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Acme - Head of Support", created.Name)
	assert.Equal(t, model.CampaignDraft, created.Status)

	got, err := s.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, sampleRequest(), got.Request)
	assert.Equal(t, model.CampaignDraft, got.Status)
	assert.Equal(t, model.CampaignProgress{}, got.Progress)
}

func TestSQLite_ExplicitName(t *testing.T) {
	s := newTestSQLite(t)

	created, err := s.CreateCampaign(context.Background(), "Q3 outreach", sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Q3 outreach", created.Name)
}

func TestSQLite_GetCampaign_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetCampaign(context.Background(), "nonexistent")
	var nfe *model.NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "campaign", nfe.Kind)
}

func TestSQLite_ListCampaigns_NewestFirst(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first, err := s.CreateCampaign(ctx, "first", sampleRequest())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := s.CreateCampaign(ctx, "second", sampleRequest())
	require.NoError(t, err)

	campaigns, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, second.ID, campaigns[0].ID)
	assert.Equal(t, first.ID, campaigns[1].ID)
}

func TestSQLite_UpdateStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateCampaign(ctx, "", sampleRequest())
	require.NoError(t, err)

	require.NoError(t, s.UpdateCampaignStatus(ctx, created.ID, model.CampaignRunning))

	got, err := s.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignRunning, got.Status)
}

func TestSQLite_UpdateStatus_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.UpdateCampaignStatus(context.Background(), "nonexistent", model.CampaignRunning)
	var nfe *model.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestSQLite_UpdateProgress(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateCampaign(ctx, "", sampleRequest())
	require.NoError(t, err)

	progress := model.CampaignProgress{ProspectsFound: 7, TotalSearched: 42}
	require.NoError(t, s.UpdateCampaignProgress(ctx, created.ID, progress))

	got, err := s.GetCampaign(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, progress, got.Progress)
}

func TestSQLite_ChatMessages(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateCampaign(ctx, "", sampleRequest())
	require.NoError(t, err)

	first, err := s.AppendChatMessage(ctx, created.ID, "user", "focus on companies under 200 employees")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	time.Sleep(10 * time.Millisecond)
	_, err = s.AppendChatMessage(ctx, created.ID, "assistant", "Narrowing the search to smaller companies.")
	require.NoError(t, err)

	messages, err := s.ListChatMessages(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestSQLite_ChatMessages_Empty(t *testing.T) {
	s := newTestSQLite(t)

	messages, err := s.ListChatMessages(context.Background(), "no-such-campaign")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
