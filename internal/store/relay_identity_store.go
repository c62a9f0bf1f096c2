package store

import (
	"context"
	"time"
)

// RelayIdentity is the webhook the bot posts relayed messages through,
// one per text channel.
type RelayIdentity struct {
	ChannelID  string    `json:"channel_id"`
	WebhookURL string    `json:"webhook_url"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RelayIdentityStore persists relay identities keyed by channel.
type RelayIdentityStore interface {
	// GetRelayIdentity returns ErrNotFound when the channel has none.
	GetRelayIdentity(ctx context.Context, channelID string) (*RelayIdentity, error)
	// UpsertRelayIdentity inserts or replaces the channel's identity.
	UpsertRelayIdentity(ctx context.Context, id *RelayIdentity) error
}
