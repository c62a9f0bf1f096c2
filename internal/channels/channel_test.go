package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whitebot/whitebot/internal/relay"
)

type recordingHandler struct {
	got []relay.SourceMessage
	err error
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg relay.SourceMessage) error {
	h.got = append(h.got, msg)
	return h.err
}

func TestBaseChannel_GuildAllowlist(t *testing.T) {
	h := &recordingHandler{}
	c := NewBaseChannel("test", h, []string{"1"})

	c.HandleMessage(context.Background(), relay.SourceMessage{ID: "a", GuildID: "1"})
	c.HandleMessage(context.Background(), relay.SourceMessage{ID: "b", GuildID: "2"})

	if len(h.got) != 1 || h.got[0].ID != "a" {
		t.Errorf("handled %v", h.got)
	}
}

func TestBaseChannel_EmptyAllowlistAdmitsAll(t *testing.T) {
	c := NewBaseChannel("test", &recordingHandler{}, nil)
	if !c.IsAllowed("anything") {
		t.Error("empty allowlist rejected a guild")
	}
}

func TestBaseChannel_HandlerErrorSwallowed(t *testing.T) {
	h := &recordingHandler{err: errors.New("boom")}
	c := NewBaseChannel("test", h, nil)
	c.HandleMessage(context.Background(), relay.SourceMessage{ID: "a"})
	c.HandleMessage(context.Background(), relay.SourceMessage{ID: "b"})
	if len(h.got) != 2 {
		t.Errorf("later message not handled after error: %v", h.got)
	}
}

func TestUserRateLimiter_NilAllowsAll(t *testing.T) {
	var r *UserRateLimiter
	for i := 0; i < 3; i++ {
		if !r.Allow("42") {
			t.Fatal("nil limiter rejected a call")
		}
	}
}

func TestUserRateLimiter(t *testing.T) {
	if NewUserRateLimiter(0, 5) != nil {
		t.Fatal("zero rate should disable the limiter")
	}

	now := time.Unix(1000, 0)
	r := NewUserRateLimiter(60, 1) // one per second
	r.now = func() time.Time { return now }

	if !r.Allow("a") {
		t.Fatal("first call rejected")
	}
	if r.Allow("a") {
		t.Fatal("second call within the same second allowed")
	}
	if !r.Allow("b") {
		t.Fatal("other author affected")
	}
	now = now.Add(time.Second)
	if !r.Allow("a") {
		t.Fatal("token not refilled")
	}
}

func TestUserRateLimiter_BoundedKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewUserRateLimiter(60, 1)
	r.now = func() time.Time { return now }

	for i := 0; i < maxTrackedKeys+100; i++ {
		r.Allow(string(rune('a'+i%26)) + time.Duration(i).String())
	}
	if len(r.entries) > maxTrackedKeys {
		t.Errorf("tracking %d keys, cap is %d", len(r.entries), maxTrackedKeys)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("Truncate = %q", got)
	}
}
