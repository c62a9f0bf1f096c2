package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/whitebot/whitebot/internal/store"
)

// IdentityCreator creates relay identities on the platform.
type IdentityCreator interface {
	CreateIdentity(ctx context.Context, channelID string) (Identity, error)
}

// IdentityCache is a read-through/write-through cache of relay identities over
// the persistent store. Creation is not serialised per channel: concurrent first
// uses converge on one stored row through the upsert, and a stale in-memory
// entry is healed by Recreate on its next rejected send.
type IdentityCache struct {
	store   store.RelayIdentityStore
	creator IdentityCreator
	known   sync.Map // channelID → Identity
}

// NewIdentityCache creates an IdentityCache.
func NewIdentityCache(s store.RelayIdentityStore, creator IdentityCreator) *IdentityCache {
	return &IdentityCache{store: s, creator: creator}
}

// Get returns the identity for channelID, creating and persisting one on miss.
func (c *IdentityCache) Get(ctx context.Context, channelID string) (Identity, error) {
	if v, ok := c.known.Load(channelID); ok {
		return v.(Identity), nil
	}

	rec, err := c.store.GetRelayIdentity(ctx, channelID)
	switch {
	case err == nil:
		id := Identity{ChannelID: rec.ChannelID, URL: rec.WebhookURL}
		c.known.Store(channelID, id)
		return id, nil
	case errors.Is(err, store.ErrNotFound):
		return c.create(ctx, channelID)
	default:
		return Identity{}, fmt.Errorf("load relay identity: %w", err)
	}
}

// Recreate discards the identity for channelID and creates a fresh one.
// Called only after the platform rejected the current identity.
func (c *IdentityCache) Recreate(ctx context.Context, channelID string) (Identity, error) {
	c.known.Delete(channelID)
	return c.create(ctx, channelID)
}

func (c *IdentityCache) create(ctx context.Context, channelID string) (Identity, error) {
	id, err := c.creator.CreateIdentity(ctx, channelID)
	if err != nil {
		return Identity{}, fmt.Errorf("create relay identity: %w", err)
	}
	id.ChannelID = channelID

	if err := c.store.UpsertRelayIdentity(ctx, &store.RelayIdentity{
		ChannelID:  channelID,
		WebhookURL: id.URL,
	}); err != nil {
		return Identity{}, fmt.Errorf("persist relay identity: %w", err)
	}

	c.known.Store(channelID, id)
	slog.Info("relay identity created", "channel_id", channelID)
	return id, nil
}
