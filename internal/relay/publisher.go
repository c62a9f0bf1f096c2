package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/whitebot/whitebot/internal/wikilinks"
)

// missingPermissionNotice is posted when the source message cannot be deleted.
const missingPermissionNotice = "Oops! That came out messy because I lack the Manage Messages permission. " +
	"Please grant it so I can remove the original message."

// maxSendAttempts bounds the identity send: the first try plus one retry
// after recreating a rejected identity.
const maxSendAttempts = 2

// Request is one relay job.
type Request struct {
	Source   SourceMessage
	Channel  ChannelInfo // where Source was posted
	Content  string      // rewritten text
	Links    []wikilinks.Link
	Identity Identity
}

// Publisher republishes rewritten messages and cleans up the source.
type Publisher struct {
	platform   Platform
	identities *IdentityCache
}

// NewPublisher creates a Publisher.
func NewPublisher(platform Platform, identities *IdentityCache) *Publisher {
	return &Publisher{platform: platform, identities: identities}
}

// Publish sends req through its relay identity. A rejected identity is
// recreated and the send retried once; any remaining failure degrades to a
// plain message with bare links and leaves the source in place. After a
// successful relay the source message is deleted.
func (p *Publisher) Publish(ctx context.Context, req Request) error {
	msg := OutgoingMessage{
		Content:     replyPreamble(req.Source) + req.Content,
		Username:    req.Source.Author.DisplayName,
		AvatarURL:   req.Source.Author.AvatarURL,
		Attachments: req.Source.Attachments,
	}
	if req.Channel.Kind == ChannelThread {
		msg.ThreadID = req.Channel.ID
	}

	if err := p.send(ctx, req.Identity, msg); err != nil {
		slog.Warn("relay send failed, falling back to plain links",
			"channel_id", req.Source.ChannelID, "message_id", req.Source.ID, "error", err)
		return p.SendLinks(ctx, req.Source.ChannelID, req.Links)
	}

	return p.deleteSource(ctx, req.Source)
}

func (p *Publisher) send(ctx context.Context, identity Identity, msg OutgoingMessage) error {
	var err error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err = p.platform.SendAsIdentity(ctx, identity, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrIdentityInvalid) || attempt == maxSendAttempts {
			return err
		}

		slog.Info("relay identity rejected, recreating", "channel_id", identity.ChannelID)
		identity, err = p.identities.Recreate(ctx, identity.ChannelID)
		if err != nil {
			return err
		}
	}
	return err
}

// SendLinks posts the bare link list as the bot itself.
func (p *Publisher) SendLinks(ctx context.Context, channelID string, links []wikilinks.Link) error {
	if err := p.platform.SendPlain(ctx, channelID, wikilinks.BareList(links)); err != nil {
		return fmt.Errorf("send fallback links: %w", err)
	}
	return nil
}

func (p *Publisher) deleteSource(ctx context.Context, src SourceMessage) error {
	err := p.platform.DeleteMessage(ctx, src.ChannelID, src.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrForbidden):
		if sendErr := p.platform.SendPlain(ctx, src.ChannelID, missingPermissionNotice); sendErr != nil {
			return fmt.Errorf("send missing permission notice: %w", sendErr)
		}
		return nil
	default:
		return fmt.Errorf("delete source message: %w", err)
	}
}
