package discord

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/whitebot/whitebot/internal/channels"
	"github.com/whitebot/whitebot/internal/config"
	"github.com/whitebot/whitebot/internal/relay"
)

// handlerTimeout bounds the work done for one gateway event.
const handlerTimeout = 2 * time.Minute

// GuildRegistrar records guilds the bot is a member of.
type GuildRegistrar interface {
	EnsureGuild(ctx context.Context, guildID, defaultPrefix string) error
}

// Channel connects to Discord via the Bot API using gateway events.
type Channel struct {
	*channels.BaseChannel
	session       *discordgo.Session
	platform      *Platform
	guilds        GuildRegistrar // may be nil
	defaultPrefix string
	botUserID     atomic.Value // string, set on Ready
}

// New creates a new Discord channel from config. The message handler is set
// later with SetHandler, since it usually needs Platform().
func New(cfg config.DiscordConfig, guilds GuildRegistrar) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	// Request necessary intents
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	base := channels.NewBaseChannel("discord", nil, cfg.AllowGuilds)

	return &Channel{
		BaseChannel: base,
		session:     session,
		platform: NewPlatform(session, PlatformOptions{
			State:              session.State,
			HTTPClient:         &http.Client{Timeout: time.Minute},
			WebhookName:        cfg.WebhookName,
			MaxAttachmentBytes: cfg.MaxAttachmentBytes,
		}),
		guilds:        guilds,
		defaultPrefix: cfg.DefaultPrefix,
	}, nil
}

// Platform returns the relay.Platform backed by this channel's session.
func (c *Channel) Platform() *Platform { return c.platform }

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleReady)
	c.session.AddHandler(c.handleMessage)
	c.session.AddHandler(c.handleGuildCreate)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	// Fetch bot identity
	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID.Store(user.ID)

	c.SetRunning(true)
	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)

	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	c.SetRunning(false)
	return c.session.Close()
}

// handleReady records the bot's own user ID. It can arrive before Open returns.
func (c *Channel) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		c.botUserID.Store(r.User.ID)
	}
}

func (c *Channel) selfID() string {
	id, _ := c.botUserID.Load().(string)
	return id
}

// handleMessage processes incoming Discord messages. discordgo runs each
// handler call on its own goroutine.
func (c *Channel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot's own messages
	if m.Author == nil || m.Author.ID == c.selfID() {
		return
	}

	msg := sourceFromMessage(m.Message)

	slog.Debug("discord message received",
		"sender_id", msg.Author.ID,
		"guild_id", msg.GuildID,
		"channel_id", msg.ChannelID,
		"preview", channels.Truncate(msg.Content, 50),
	)

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	c.HandleMessage(ctx, msg)
}

// handleGuildCreate registers guilds on join and on startup.
func (c *Channel) handleGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if c.guilds == nil || g.Guild == nil || g.Unavailable {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.guilds.EnsureGuild(ctx, g.ID, c.defaultPrefix); err != nil {
		slog.Warn("failed to register guild", "guild_id", g.ID, "error", err)
		return
	}
	slog.Debug("guild registered", "guild_id", g.ID, "name", g.Name)
}

// sourceFromMessage converts a gateway message into the relay's view of it.
func sourceFromMessage(m *discordgo.Message) relay.SourceMessage {
	msg := relay.SourceMessage{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		WebhookID: m.WebhookID,
		Content:   m.Content,
		Author: relay.Author{
			ID:          m.Author.ID,
			Username:    m.Author.Username,
			DisplayName: resolveDisplayName(m),
			AvatarURL:   m.Author.AvatarURL(""),
			Bot:         m.Author.Bot,
		},
	}

	for _, u := range m.Mentions {
		msg.Mentions = append(msg.Mentions, u.ID)
	}

	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, relay.Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Spoiler:     strings.HasPrefix(a.Filename, spoilerPrefix),
		})
	}

	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil {
		channelID := m.ChannelID
		if m.MessageReference != nil && m.MessageReference.ChannelID != "" {
			channelID = m.MessageReference.ChannelID
		}
		msg.Reply = &relay.ReplyRef{
			GuildID:   m.GuildID,
			ChannelID: channelID,
			MessageID: ref.ID,
			Author: relay.Author{
				ID:          ref.Author.ID,
				Username:    ref.Author.Username,
				DisplayName: ref.Author.Username,
				Bot:         ref.Author.Bot,
			},
		}
	}
	return msg
}

// resolveDisplayName returns the best available display name for a Discord message author.
// Priority: server nickname > global display name > username.
func resolveDisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
