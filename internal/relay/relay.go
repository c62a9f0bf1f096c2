// Package relay republishes messages containing wiki links through a
// channel webhook so the rewritten text appears under the original author.
//
// The pipeline is platform-neutral: Discord specifics live behind Platform.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIdentityInvalid means the platform rejected a stored relay identity
	// (deleted webhook, revoked token).
	ErrIdentityInvalid = errors.New("relay identity invalid")

	// ErrForbidden means the bot lacks a permission for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnsupportedChannel means relay identities cannot exist in the channel.
	ErrUnsupportedChannel = errors.New("channel does not support relay identities")
)

// Author is who wrote a message.
type Author struct {
	ID          string
	Username    string
	DisplayName string // server nickname > global name > username
	AvatarURL   string
	Bot         bool
}

// Mention renders a user mention.
func (a Author) Mention() string { return "<@" + a.ID + ">" }

// Attachment is a file attached to a message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Spoiler     bool
}

// ReplyRef is the resolved message a source message replies to.
type ReplyRef struct {
	GuildID   string
	ChannelID string
	MessageID string
	Author    Author
}

// JumpURL links to the replied-to message.
func (r ReplyRef) JumpURL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", r.GuildID, r.ChannelID, r.MessageID)
}

// SourceMessage is an incoming message event.
type SourceMessage struct {
	ID          string
	GuildID     string // empty for direct messages
	ChannelID   string
	WebhookID   string // set when the message was posted by a webhook
	Content     string
	Author      Author
	Attachments []Attachment
	Mentions    []string // IDs of mentioned users
	Reply       *ReplyRef
}

func (m SourceMessage) mentions(userID string) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelKind classifies channels for relay purposes.
type ChannelKind int

const (
	ChannelOther ChannelKind = iota
	ChannelText
	ChannelThread
)

// ChannelInfo describes the channel a message was posted in.
type ChannelInfo struct {
	ID       string
	ParentID string // set for threads
	Kind     ChannelKind
}

// RelayChannelID returns the channel that owns the relay identity: the parent
// for threads, the channel itself for text channels.
func (c ChannelInfo) RelayChannelID() (string, error) {
	switch c.Kind {
	case ChannelText:
		return c.ID, nil
	case ChannelThread:
		if c.ParentID == "" {
			return "", fmt.Errorf("%w: thread %s has no parent", ErrUnsupportedChannel, c.ID)
		}
		return c.ParentID, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedChannel, c.ID)
	}
}

// Identity is a channel-scoped send handle (a webhook URL on Discord).
type Identity struct {
	ChannelID string
	URL       string
}

// OutgoingMessage is what gets posted through a relay identity. Platforms must
// not let it trigger @everyone/@here or role mentions.
type OutgoingMessage struct {
	Content     string
	Username    string
	AvatarURL   string
	Attachments []Attachment
	ThreadID    string // post into this thread of the identity's channel
}

// Platform is the chat platform as seen by the relay.
type Platform interface {
	Channel(ctx context.Context, channelID string) (ChannelInfo, error)
	CreateIdentity(ctx context.Context, channelID string) (Identity, error)
	SendAsIdentity(ctx context.Context, identity Identity, msg OutgoingMessage) error
	SendPlain(ctx context.Context, channelID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// replyPreamble quotes the replied-to message. The author is only mentioned
// when the source already mentions them, to avoid an extra ping.
func replyPreamble(src SourceMessage) string {
	if src.Reply == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "> Reply to [message](<%s>) from ", src.Reply.JumpURL())
	if src.mentions(src.Reply.Author.ID) {
		b.WriteString(src.Reply.Author.Mention())
	} else {
		b.WriteString("**" + src.Reply.Author.Username + "**")
	}
	b.WriteString("\n\n")
	return b.String()
}
