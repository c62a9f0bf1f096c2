package discord

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/whitebot/whitebot/internal/channels"
	"github.com/whitebot/whitebot/internal/relay"
)

func TestSourceFromMessage(t *testing.T) {
	m := &discordgo.Message{
		ID:        "500",
		GuildID:   "1",
		ChannelID: "10",
		Content:   "see [[A]] <@43>",
		Author:    &discordgo.User{ID: "42", Username: "alice", GlobalName: "Alice G"},
		Member:    &discordgo.Member{Nick: "Ally"},
		Mentions:  []*discordgo.User{{ID: "43"}},
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn.test/x.png", Filename: "x.png", ContentType: "image/png"},
			{URL: "https://cdn.test/SPOILER_y.png", Filename: "SPOILER_y.png"},
		},
		MessageReference:  &discordgo.MessageReference{MessageID: "400", ChannelID: "10", GuildID: "1"},
		ReferencedMessage: &discordgo.Message{ID: "400", Author: &discordgo.User{ID: "43", Username: "bob"}},
	}

	got := sourceFromMessage(m)
	want := relay.SourceMessage{
		ID:        "500",
		GuildID:   "1",
		ChannelID: "10",
		Content:   "see [[A]] <@43>",
		Author: relay.Author{
			ID:          "42",
			Username:    "alice",
			DisplayName: "Ally",
			AvatarURL:   m.Author.AvatarURL(""),
		},
		Mentions: []string{"43"},
		Attachments: []relay.Attachment{
			{URL: "https://cdn.test/x.png", Filename: "x.png", ContentType: "image/png"},
			{URL: "https://cdn.test/SPOILER_y.png", Filename: "SPOILER_y.png", Spoiler: true},
		},
		Reply: &relay.ReplyRef{
			GuildID:   "1",
			ChannelID: "10",
			MessageID: "400",
			Author:    relay.Author{ID: "43", Username: "bob", DisplayName: "bob"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("source message (-want +got):\n%s", diff)
	}
}

func TestResolveDisplayName(t *testing.T) {
	tests := []struct {
		name string
		msg  *discordgo.Message
		want string
	}{
		{"nick", &discordgo.Message{Author: &discordgo.User{Username: "u", GlobalName: "g"}, Member: &discordgo.Member{Nick: "n"}}, "n"},
		{"global", &discordgo.Message{Author: &discordgo.User{Username: "u", GlobalName: "g"}, Member: &discordgo.Member{}}, "g"},
		{"username", &discordgo.Message{Author: &discordgo.User{Username: "u"}}, "u"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDisplayName(tt.msg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourceFromMessage_DeletedReplyIgnored(t *testing.T) {
	m := &discordgo.Message{
		ID:               "500",
		Author:           &discordgo.User{ID: "42", Username: "alice"},
		MessageReference: &discordgo.MessageReference{MessageID: "400"},
	}
	if got := sourceFromMessage(m); got.Reply != nil {
		t.Errorf("reply = %+v", got.Reply)
	}
}

type recordingHandler struct {
	mu  sync.Mutex
	ids []string
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg relay.SourceMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, msg.Author.ID)
	return nil
}

func (h *recordingHandler) authors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ids...)
}

func createEvent(authorID string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "500",
		GuildID:   "1",
		ChannelID: "10",
		Content:   "[[A]]",
		Author:    &discordgo.User{ID: authorID, Username: "u" + authorID},
	}}
}

func TestHandleMessage_ReadyRacesGatewayEvents(t *testing.T) {
	h := &recordingHandler{}
	c := &Channel{BaseChannel: channels.NewBaseChannel("discord", h, nil)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.handleReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "99"}})
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			c.handleMessage(nil, createEvent("5"))
		}
	}()
	wg.Wait()

	c.handleMessage(nil, createEvent("99"))
	c.handleMessage(nil, createEvent("6"))

	got := h.authors()
	if len(got) != 11 || got[10] != "6" {
		t.Errorf("handled authors %v, want ten from 5 then 6", got)
	}
}
