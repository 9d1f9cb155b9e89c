package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/toolscout/prospector/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	request    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	progress   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_chat_messages_campaign_id ON chat_messages(campaign_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, name string, req model.CampaignRequest) (*model.Campaign, error) {
	if name == "" {
		name = req.Name()
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, name, request, status, progress, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, string(reqJSON), string(model.CampaignDraft), "{}", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
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

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, request, status, progress, created_at, updated_at FROM campaigns WHERE id = ?`,
		id,
	)
	return scanCampaign(row, id)
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, request, status, progress, created_at, updated_at FROM campaigns ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows, "")
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) UpdateCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign status %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpdateCampaignProgress(ctx context.Context, id string, progress model.CampaignProgress) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal progress")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET progress = ?, updated_at = ? WHERE id = ?`,
		string(progressJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign progress %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) AppendChatMessage(ctx context.Context, campaignID, role, content string) (*model.ChatMessage, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, campaign_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, campaignID, role, content, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert chat message for campaign %s", campaignID)
	}

	return &model.ChatMessage{
		ID:         id,
		CampaignID: campaignID,
		Role:       role,
		Content:    content,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) ListChatMessages(ctx context.Context, campaignID string) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign_id, role, content, created_at FROM chat_messages WHERE campaign_id = ? ORDER BY created_at ASC`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list chat messages")
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chat message")
		}
		messages = append(messages, m)
	}
	return messages, eris.Wrap(rows.Err(), "sqlite: list chat messages iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return &model.NotFoundError{Kind: "campaign", ID: id}
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable, id string) (*model.Campaign, error) {
	var c model.Campaign
	var reqJSON, progressJSON string

	err := row.Scan(&c.ID, &c.Name, &reqJSON, &c.Status, &progressJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &model.NotFoundError{Kind: "campaign", ID: id}
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan campaign")
	}

	if err := json.Unmarshal([]byte(reqJSON), &c.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal request")
	}
	if err := json.Unmarshal([]byte(progressJSON), &c.Progress); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal progress")
	}
	return &c, nil
}
