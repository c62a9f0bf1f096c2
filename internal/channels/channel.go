// Package channels provides the chat platform abstraction. A channel owns a
// platform connection, turns incoming events into relay.SourceMessage values
// and hands them to a MessageHandler.
package channels

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/whitebot/whitebot/internal/relay"
)

// MessageHandler processes one incoming message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg relay.SourceMessage) error
}

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g. "discord").
	Name() string

	// Start begins listening for messages. Should be non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// BaseChannel provides shared functionality for all channel implementations.
// Channel implementations should embed this struct.
type BaseChannel struct {
	name        string
	handler     MessageHandler
	running     atomic.Bool
	allowGuilds map[string]bool
}

// NewBaseChannel creates a new BaseChannel. An empty allowGuilds list admits
// every guild.
func NewBaseChannel(name string, handler MessageHandler, allowGuilds []string) *BaseChannel {
	allow := make(map[string]bool, len(allowGuilds))
	for _, id := range allowGuilds {
		allow[id] = true
	}
	return &BaseChannel{
		name:        name,
		handler:     handler,
		allowGuilds: allow,
	}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// SetHandler replaces the message handler. Call before Start.
func (c *BaseChannel) SetHandler(h MessageHandler) { c.handler = h }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running.Store(running) }

// IsAllowed checks a guild against the allowlist.
// Empty allowlist means all guilds are allowed.
func (c *BaseChannel) IsAllowed(guildID string) bool {
	return len(c.allowGuilds) == 0 || c.allowGuilds[guildID]
}

// HandleMessage applies the guild allowlist, then forwards msg to the handler.
// Handler errors are logged; they concern this message only.
func (c *BaseChannel) HandleMessage(ctx context.Context, msg relay.SourceMessage) {
	if !c.IsAllowed(msg.GuildID) {
		slog.Debug("message rejected by guild allowlist", "channel", c.name, "guild_id", msg.GuildID)
		return
	}

	if c.handler == nil {
		return
	}
	if err := c.handler.HandleMessage(ctx, msg); err != nil {
		slog.Error("failed to handle message",
			"channel", c.name,
			"guild_id", msg.GuildID,
			"channel_id", msg.ChannelID,
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
