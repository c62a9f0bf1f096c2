package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/whitebot/whitebot/internal/store"
)

// PGRelayIdentityStore implements store.RelayIdentityStore backed by Postgres.
type PGRelayIdentityStore struct {
	db *sql.DB
}

func NewPGRelayIdentityStore(db *sql.DB) *PGRelayIdentityStore {
	return &PGRelayIdentityStore{db: db}
}

func (s *PGRelayIdentityStore) GetRelayIdentity(ctx context.Context, channelID string) (*store.RelayIdentity, error) {
	var id store.RelayIdentity
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id, webhook_url, updated_at FROM wh_wikilink_webhooks WHERE channel_id = $1`,
		channelID).Scan(&id.ChannelID, &id.WebhookURL, &id.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *PGRelayIdentityStore) UpsertRelayIdentity(ctx context.Context, id *store.RelayIdentity) error {
	if id.UpdatedAt.IsZero() {
		id.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wh_wikilink_webhooks (channel_id, webhook_url, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (channel_id) DO UPDATE SET
		   webhook_url = EXCLUDED.webhook_url,
		   updated_at = EXCLUDED.updated_at`,
		id.ChannelID, id.WebhookURL, id.UpdatedAt)
	return err
}
