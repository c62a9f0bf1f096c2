package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/whitebot/whitebot/internal/relay"
)

const defaultWebhookName = "Wikilink Manager"

var webhookURLPattern = regexp.MustCompile(`^https://(?:(?:canary|ptb)\.)?discord(?:app)?\.com/api(?:/v\d+)?/webhooks/(\d+)/([\w-]+)$`)

// restAPI is the subset of *discordgo.Session the platform uses.
type restAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookThreadExecute(webhookID, token string, wait bool, threadID string, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// PlatformOptions configures a Platform.
type PlatformOptions struct {
	State              *discordgo.State // optional channel cache
	HTTPClient         *http.Client     // attachment downloads
	WebhookName        string
	MaxAttachmentBytes int64 // 0 = unlimited
}

// Platform implements relay.Platform on the Discord REST API.
type Platform struct {
	api         restAPI
	state       *discordgo.State
	http        *http.Client
	webhookName string
	maxFileSize int64
}

var _ relay.Platform = (*Platform)(nil)

// NewPlatform creates a Platform.
func NewPlatform(api restAPI, opts PlatformOptions) *Platform {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	name := opts.WebhookName
	if name == "" {
		name = defaultWebhookName
	}
	return &Platform{
		api:         api,
		state:       opts.State,
		http:        hc,
		webhookName: name,
		maxFileSize: opts.MaxAttachmentBytes,
	}
}

// Channel returns the channel's kind and parent, from the state cache when possible.
func (p *Platform) Channel(ctx context.Context, channelID string) (relay.ChannelInfo, error) {
	var ch *discordgo.Channel
	if p.state != nil {
		ch, _ = p.state.Channel(channelID)
	}
	if ch == nil {
		var err error
		ch, err = p.api.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return relay.ChannelInfo{}, classify(err)
		}
	}
	return relay.ChannelInfo{ID: ch.ID, ParentID: ch.ParentID, Kind: channelKind(ch.Type)}, nil
}

func channelKind(t discordgo.ChannelType) relay.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return relay.ChannelText
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread, discordgo.ChannelTypeGuildNewsThread:
		return relay.ChannelThread
	default:
		return relay.ChannelOther
	}
}

// CreateIdentity creates a webhook in channelID.
func (p *Platform) CreateIdentity(ctx context.Context, channelID string) (relay.Identity, error) {
	wh, err := p.api.WebhookCreate(channelID, p.webhookName, "", discordgo.WithContext(ctx))
	if err != nil {
		return relay.Identity{}, classify(err)
	}
	return relay.Identity{
		ChannelID: channelID,
		URL:       fmt.Sprintf("https://discord.com/api/webhooks/%s/%s", wh.ID, wh.Token),
	}, nil
}

// SendAsIdentity executes the identity's webhook. A rejected or unparseable
// webhook yields relay.ErrIdentityInvalid.
func (p *Platform) SendAsIdentity(ctx context.Context, identity relay.Identity, msg relay.OutgoingMessage) error {
	id, token, ok := parseWebhookURL(identity.URL)
	if !ok {
		return fmt.Errorf("%w: malformed webhook url", relay.ErrIdentityInvalid)
	}

	files, err := p.downloadAttachments(ctx, msg.Attachments)
	if err != nil {
		return fmt.Errorf("download attachments: %w", err)
	}

	params := &discordgo.WebhookParams{
		Content:   msg.Content,
		Username:  msg.Username,
		AvatarURL: msg.AvatarURL,
		Files:     files,
		// Users only: never @everyone, @here or roles.
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}

	if msg.ThreadID != "" {
		_, err = p.api.WebhookThreadExecute(id, token, true, msg.ThreadID, params, discordgo.WithContext(ctx))
	} else {
		_, err = p.api.WebhookExecute(id, token, true, params, discordgo.WithContext(ctx))
	}
	if err == nil {
		return nil
	}

	switch restStatus(err) {
	case http.StatusNotFound, http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", relay.ErrIdentityInvalid, err)
	default:
		return classify(err)
	}
}

// SendPlain posts content as the bot. Only user mentions are honoured.
func (p *Platform) SendPlain(ctx context.Context, channelID, content string) error {
	_, err := p.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err)
	}
	return nil
}

// DeleteMessage deletes a message. A message that is already gone is not an error.
func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := p.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if err == nil || restStatus(err) == http.StatusNotFound {
		return nil
	}
	return classify(err)
}

func parseWebhookURL(u string) (id, token string, ok bool) {
	m := webhookURLPattern.FindStringSubmatch(u)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func restStatus(err error) int {
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}

// classify maps 403 to relay.ErrForbidden and keeps the REST error in the chain.
func classify(err error) error {
	if restStatus(err) == http.StatusForbidden {
		return fmt.Errorf("%w: %w", relay.ErrForbidden, err)
	}
	return err
}
