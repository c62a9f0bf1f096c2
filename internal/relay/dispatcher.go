package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/whitebot/whitebot/internal/store"
	"github.com/whitebot/whitebot/internal/wiki"
	"github.com/whitebot/whitebot/internal/wikilinks"
)

const tracerName = "github.com/whitebot/whitebot/internal/relay"

// GuildSettingsReader reads per-guild settings.
type GuildSettingsReader interface {
	GetGuildSettings(ctx context.Context, guildID string) (*store.GuildSettings, error)
}

// AuthorLimiter throttles relays per author.
type AuthorLimiter interface {
	Allow(authorID string) bool
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Parser      *wikilinks.Parser
	Platform    Platform
	Identities  store.RelayIdentityStore
	Guilds      GuildSettingsReader // may be nil
	DefaultWiki *wiki.Wiki          // used when a guild has no bound wiki
	Limiter     AuthorLimiter       // may be nil
}

// Dispatcher handles incoming message events. Each event is handled once,
// synchronously; there is no retry queue.
type Dispatcher struct {
	parser      *wikilinks.Parser
	platform    Platform
	identities  *IdentityCache
	publisher   *Publisher
	guilds      GuildSettingsReader
	defaultWiki *wiki.Wiki
	limiter     AuthorLimiter
	tracer      trace.Tracer
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	identities := NewIdentityCache(cfg.Identities, cfg.Platform)
	return &Dispatcher{
		parser:      cfg.Parser,
		platform:    cfg.Platform,
		identities:  identities,
		publisher:   NewPublisher(cfg.Platform, identities),
		guilds:      cfg.Guilds,
		defaultWiki: cfg.DefaultWiki,
		limiter:     cfg.Limiter,
		tracer:      otel.Tracer(tracerName),
	}
}

// HandleMessage runs the relay pipeline for one message. Messages without
// link markers return before any I/O and do not count against the author's
// rate limit.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg SourceMessage) error {
	if msg.Author.Bot || msg.WebhookID != "" || msg.GuildID == "" {
		return nil
	}

	matches := d.parser.Scan(msg.Content)
	if len(matches) == 0 {
		return nil
	}
	if d.limiter != nil && !d.limiter.Allow(msg.Author.ID) {
		slog.Debug("relay rejected by rate limit", "guild_id", msg.GuildID, "user_id", msg.Author.ID)
		return nil
	}

	ctx, span := d.tracer.Start(ctx, "relay.dispatch", trace.WithAttributes(
		attribute.String("guild_id", msg.GuildID),
		attribute.String("channel_id", msg.ChannelID),
		attribute.Int("markers", len(matches)),
	))
	defer span.End()

	err := d.dispatch(ctx, msg, matches)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, msg SourceMessage, matches []wikilinks.Match) error {
	links := d.parser.Resolve(ctx, matches, d.guildWiki(ctx, msg.GuildID))

	ch, err := d.platform.Channel(ctx, msg.ChannelID)
	if err != nil {
		return fmt.Errorf("resolve channel %s: %w", msg.ChannelID, err)
	}
	relayChannelID, err := ch.RelayChannelID()
	if err != nil {
		return err
	}

	identity, err := d.identities.Get(ctx, relayChannelID)
	if errors.Is(err, ErrForbidden) {
		slog.Info("cannot manage webhooks, sending plain links",
			"guild_id", msg.GuildID, "channel_id", relayChannelID)
		return d.publisher.SendLinks(ctx, msg.ChannelID, links)
	}
	if err != nil {
		return err
	}

	slog.Debug("relaying wikilinks",
		"guild_id", msg.GuildID, "channel_id", msg.ChannelID, "links", len(links))

	return d.publisher.Publish(ctx, Request{
		Source:   msg,
		Channel:  ch,
		Content:  wikilinks.Rewrite(msg.Content, links),
		Links:    links,
		Identity: identity,
	})
}

// guildWiki returns the guild's bound wiki, or the default one.
func (d *Dispatcher) guildWiki(ctx context.Context, guildID string) *wiki.Wiki {
	if d.guilds == nil {
		return d.defaultWiki
	}
	settings, err := d.guilds.GetGuildSettings(ctx, guildID)
	switch {
	case err == nil && settings.BoundWikiURL != "":
		return wiki.New(settings.BoundWikiURL)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		slog.Warn("failed to load guild settings, using default wiki", "guild_id", guildID, "error", err)
	}
	return d.defaultWiki
}
