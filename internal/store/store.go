// Package store persists campaigns and their chat history. Two drivers are
// supported: sqlite for single-binary deployments and postgres for shared
// ones.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/toolscout/prospector/internal/model"
)

// Store defines campaign persistence. Get operations return
// model.NotFoundError for missing ids.
type Store interface {
	CreateCampaign(ctx context.Context, name string, req model.CampaignRequest) (*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error
	UpdateCampaignProgress(ctx context.Context, id string, progress model.CampaignProgress) error

	AppendChatMessage(ctx context.Context, campaignID, role, content string) (*model.ChatMessage, error)
	ListChatMessages(ctx context.Context, campaignID string) ([]model.ChatMessage, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a store for the configured driver: "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
