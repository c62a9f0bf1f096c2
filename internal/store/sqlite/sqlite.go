// Package sqlite is the embedded storage backend, used when no Postgres DSN
// is configured. The schema is created on open.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whitebot/whitebot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS wh_guilds (
    id             TEXT PRIMARY KEY,
    prefix         TEXT NOT NULL DEFAULT 'w!',
    bound_wiki_url TEXT,
    flags          INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS wh_wikilink_webhooks (
    channel_id  TEXT PRIMARY KEY,
    webhook_url TEXT NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);`

// OpenDB opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; in-memory databases are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewSQLiteStores creates all stores backed by SQLite.
func NewSQLiteStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &store.Stores{
		RelayIdentities: NewRelayIdentityStore(db),
		GuildSettings:   NewGuildSettingsStore(db),
		Close:           db.Close,
	}, nil
}

// RelayIdentityStore implements store.RelayIdentityStore.
type RelayIdentityStore struct {
	db *sql.DB
}

func NewRelayIdentityStore(db *sql.DB) *RelayIdentityStore {
	return &RelayIdentityStore{db: db}
}

func (s *RelayIdentityStore) GetRelayIdentity(ctx context.Context, channelID string) (*store.RelayIdentity, error) {
	var id store.RelayIdentity
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id, webhook_url, updated_at FROM wh_wikilink_webhooks WHERE channel_id = ?`,
		channelID).Scan(&id.ChannelID, &id.WebhookURL, &id.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *RelayIdentityStore) UpsertRelayIdentity(ctx context.Context, id *store.RelayIdentity) error {
	if id.UpdatedAt.IsZero() {
		id.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wh_wikilink_webhooks (channel_id, webhook_url, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (channel_id) DO UPDATE SET
		   webhook_url = excluded.webhook_url,
		   updated_at = excluded.updated_at`,
		id.ChannelID, id.WebhookURL, id.UpdatedAt)
	return err
}

// GuildSettingsStore implements store.GuildSettingsStore.
type GuildSettingsStore struct {
	db *sql.DB
}

func NewGuildSettingsStore(db *sql.DB) *GuildSettingsStore {
	return &GuildSettingsStore{db: db}
}

func (s *GuildSettingsStore) EnsureGuild(ctx context.Context, guildID, defaultPrefix string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wh_guilds (id, prefix) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		guildID, defaultPrefix)
	return err
}

func (s *GuildSettingsStore) GetGuildSettings(ctx context.Context, guildID string) (*store.GuildSettings, error) {
	var g store.GuildSettings
	var bound sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, prefix, bound_wiki_url, flags FROM wh_guilds WHERE id = ?`,
		guildID).Scan(&g.GuildID, &g.Prefix, &bound, &g.Flags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.BoundWikiURL = bound.String
	return &g, nil
}

func (s *GuildSettingsStore) SetBoundWiki(ctx context.Context, guildID, wikiURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wh_guilds SET bound_wiki_url = NULLIF(?, '') WHERE id = ?`,
		wikiURL, guildID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
