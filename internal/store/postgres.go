package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/toolscout/prospector/internal/db"
	"github.com/toolscout/prospector/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_campaign":          `INSERT INTO campaigns (id, name, request, status, progress, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_campaign":             `SELECT id, name, request, status, progress, created_at, updated_at FROM campaigns WHERE id = $1`,
	"update_campaign_status":   `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_campaign_progress": `UPDATE campaigns SET progress = $1, updated_at = $2 WHERE id = $3`,
	"insert_chat_message":      `INSERT INTO chat_messages (id, campaign_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"list_chat_messages":       `SELECT id, campaign_id, role, content, created_at FROM chat_messages WHERE campaign_id = $1 ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests to run against
// a mock connection.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	request    JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	progress   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_campaigns_created_at ON campaigns(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_messages_campaign_id ON chat_messages(campaign_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, name string, req model.CampaignRequest) (*model.Campaign, error) {
	if name == "" {
		name = req.Name()
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, request, status, progress, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, reqJSON, string(model.CampaignDraft), []byte("{}"), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}

	return &model.Campaign{
		ID:        id,
		Name:      name,
		Request:   req,
		Status:    model.CampaignDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	var reqJSON, progressJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, request, status, progress, created_at, updated_at FROM campaigns WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &reqJSON, &c.Status, &progressJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "campaign", ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}

	if err := json.Unmarshal(reqJSON, &c.Request); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal request")
	}
	if err := json.Unmarshal(progressJSON, &c.Progress); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal progress")
	}
	return &c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, request, status, progress, created_at, updated_at FROM campaigns ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		var reqJSON, progressJSON []byte
		if err := rows.Scan(&c.ID, &c.Name, &reqJSON, &c.Status, &progressJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		if err := json.Unmarshal(reqJSON, &c.Request); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal request")
		}
		if err := json.Unmarshal(progressJSON, &c.Progress); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal progress")
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Kind: "campaign", ID: id}
	}
	return nil
}

func (s *PostgresStore) UpdateCampaignProgress(ctx context.Context, id string, progress model.CampaignProgress) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal progress")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET progress = $1, updated_at = $2 WHERE id = $3`,
		progressJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign progress %s", id)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Kind: "campaign", ID: id}
	}
	return nil
}

// AppendChatMessage inserts the message and touches the campaign's
// updated_at inside one transaction so listing order reflects chat activity.
func (s *PostgresStore) AppendChatMessage(ctx context.Context, campaignID, role, content string) (*model.ChatMessage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (id, campaign_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
			id, campaignID, role, content, now,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert chat message for campaign %s", campaignID)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE campaigns SET updated_at = $1 WHERE id = $2`,
			now, campaignID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: touch campaign %s", campaignID)
		}
		if tag.RowsAffected() == 0 {
			return &model.NotFoundError{Kind: "campaign", ID: campaignID}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.ChatMessage{
		ID:         id,
		CampaignID: campaignID,
		Role:       role,
		Content:    content,
		CreatedAt:  now,
	}, nil
}

func (s *PostgresStore) ListChatMessages(ctx context.Context, campaignID string) ([]model.ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, campaign_id, role, content, created_at FROM chat_messages WHERE campaign_id = $1 ORDER BY created_at ASC`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list chat messages")
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chat message")
		}
		messages = append(messages, m)
	}
	return messages, eris.Wrap(rows.Err(), "postgres: list chat messages iterate")
}
