package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/whitebot/whitebot/internal/store"
)

func newTestStores(t *testing.T) *store.Stores {
	t.Helper()
	s, err := NewSQLiteStores(store.StoreConfig{SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRelayIdentityStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStores(t).RelayIdentities

	if _, err := s.GetRelayIdentity(ctx, "100"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpsertRelayIdentity(ctx, &store.RelayIdentity{ChannelID: "100", WebhookURL: "https://a"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertRelayIdentity(ctx, &store.RelayIdentity{ChannelID: "100", WebhookURL: "https://b"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetRelayIdentity(ctx, "100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WebhookURL != "https://b" {
		t.Errorf("webhook url = %q, want https://b", got.WebhookURL)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestGuildSettingsStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStores(t).GuildSettings

	if err := s.SetBoundWiki(ctx, "1", "https://x.fandom.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("bind unknown guild: got %v", err)
	}

	if err := s.EnsureGuild(ctx, "1", "w!"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.SetBoundWiki(ctx, "1", "https://x.fandom.com"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	// A rejoin must not reset settings.
	if err := s.EnsureGuild(ctx, "1", "other!"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	got, err := s.GetGuildSettings(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := store.GuildSettings{GuildID: "1", Prefix: "w!", BoundWikiURL: "https://x.fandom.com"}
	if *got != want {
		t.Errorf("settings = %+v, want %+v", *got, want)
	}

	if err := s.SetBoundWiki(ctx, "1", ""); err != nil {
		t.Fatalf("unbind: %v", err)
	}
	got, _ = s.GetGuildSettings(ctx, "1")
	if got.BoundWikiURL != "" {
		t.Errorf("bound wiki not cleared: %q", got.BoundWikiURL)
	}
}
