package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/whitebot/whitebot/internal/store"
)

// PGGuildSettingsStore implements store.GuildSettingsStore backed by Postgres.
type PGGuildSettingsStore struct {
	db *sql.DB
}

func NewPGGuildSettingsStore(db *sql.DB) *PGGuildSettingsStore {
	return &PGGuildSettingsStore{db: db}
}

func (s *PGGuildSettingsStore) EnsureGuild(ctx context.Context, guildID, defaultPrefix string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wh_guilds (id, prefix) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		guildID, defaultPrefix)
	return err
}

func (s *PGGuildSettingsStore) GetGuildSettings(ctx context.Context, guildID string) (*store.GuildSettings, error) {
	var g store.GuildSettings
	var bound sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, prefix, bound_wiki_url, flags FROM wh_guilds WHERE id = $1`,
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

func (s *PGGuildSettingsStore) SetBoundWiki(ctx context.Context, guildID, wikiURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wh_guilds SET bound_wiki_url = NULLIF($1, '') WHERE id = $2`,
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
