package store

import (
	"context"
	"fmt"
)

// GuildFlags is the guild row's flags bitfield. No bit is interpreted by
// the relay; the column is kept so existing rows round-trip unchanged.
type GuildFlags int64

// Has reports whether all bits of f are set.
func (g GuildFlags) Has(f GuildFlags) bool { return g&f == f }

func (g GuildFlags) String() string { return fmt.Sprintf("%#x", int64(g)) }

// GuildSettings is the per-guild configuration row.
type GuildSettings struct {
	GuildID      string     `json:"guild_id"`
	Prefix       string     `json:"prefix"`
	BoundWikiURL string     `json:"bound_wiki_url,omitempty"` // empty: use the default wiki
	Flags        GuildFlags `json:"flags"`
}

// GuildSettingsStore manages guild rows. Guilds are registered when the bot
// joins them and are never removed automatically.
type GuildSettingsStore interface {
	// EnsureGuild creates the guild row if missing. Existing rows are untouched.
	EnsureGuild(ctx context.Context, guildID, defaultPrefix string) error
	// GetGuildSettings returns ErrNotFound for unknown guilds.
	GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error)
	// SetBoundWiki binds the guild to a wiki; an empty URL unbinds it.
	// Returns ErrNotFound for unknown guilds.
	SetBoundWiki(ctx context.Context, guildID, wikiURL string) error
}
