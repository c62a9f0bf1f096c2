package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitebot/whitebot/internal/channels"
	"github.com/whitebot/whitebot/internal/channels/discord"
	"github.com/whitebot/whitebot/internal/config"
	"github.com/whitebot/whitebot/internal/relay"
	"github.com/whitebot/whitebot/internal/store"
	"github.com/whitebot/whitebot/internal/store/pg"
	"github.com/whitebot/whitebot/internal/store/sqlite"
	"github.com/whitebot/whitebot/internal/tracing"
	"github.com/whitebot/whitebot/internal/upgrade"
	"github.com/whitebot/whitebot/internal/wiki"
	"github.com/whitebot/whitebot/internal/wikilinks"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and relay wiki links (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

func runBot() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	wikiClient := wiki.NewClient(wiki.ClientOptions{
		HTTPClient:        &http.Client{Timeout: cfg.Wiki.TimeoutDuration()},
		UserAgent:         cfg.Wiki.UserAgent,
		RequestsPerSecond: cfg.Wiki.RequestsPerSecond,
		Burst:             cfg.Wiki.Burst,
	})
	parser := wikilinks.NewParser(
		wikilinks.NewResolver(cfg.Wikilinks.Prefixes),
		wikilinks.Options{
			TrailingText: cfg.Wikilinks.TrailingText,
			Dedupe:       cfg.Wikilinks.Dedupe,
			Interwiki:    cfg.Wikilinks.Interwiki,
		},
		wikiClient,
	)

	dc, err := discord.New(cfg.Discord, stores.GuildSettings)
	if err != nil {
		return err
	}
	dc.SetHandler(relay.NewDispatcher(relay.DispatcherConfig{
		Parser:      parser,
		Platform:    dc.Platform(),
		Identities:  stores.RelayIdentities,
		Guilds:      stores.GuildSettings,
		DefaultWiki: wiki.New(cfg.Wikilinks.DefaultWiki),
		Limiter:     channels.NewUserRateLimiter(cfg.Discord.UserRatePerMinute, cfg.Discord.UserBurst),
	}))

	mgr := channels.NewManager()
	mgr.RegisterChannel(dc)
	if err := mgr.StartAll(ctx); err != nil {
		return err
	}

	slog.Info("whitebot running", "version", Version, "default_wiki", cfg.Wikilinks.DefaultWiki)
	<-ctx.Done()
	slog.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mgr.StopAll(stopCtx)
	return nil
}

// openStores opens Postgres when a DSN is set, SQLite otherwise. Postgres
// must already be migrated to the version this binary expects.
func openStores(ctx context.Context, cfg *config.Config) (*store.Stores, error) {
	if !cfg.IsManagedMode() {
		path := cfg.Database.SQLitePath
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		slog.Info("using sqlite storage", "path", path)
		return sqlite.NewSQLiteStores(store.StoreConfig{SQLitePath: path})
	}

	db, err := pg.OpenDB(cfg.Database.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := upgrade.CheckSchema(ctx, db)
	db.Close()
	if err != nil {
		return nil, err
	}
	if !s.Compatible {
		return nil, fmt.Errorf("%s", upgrade.FormatError(s))
	}

	slog.Info("using postgres storage", "schema", s.CurrentVersion)
	return pg.NewPGStores(store.StoreConfig{PostgresDSN: cfg.Database.PostgresDSN})
}
