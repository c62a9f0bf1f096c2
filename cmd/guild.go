package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitebot/whitebot/internal/config"
	"github.com/whitebot/whitebot/internal/store"
	"github.com/whitebot/whitebot/internal/wiki"
)

func guildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Inspect and change per-guild settings",
	}
	cmd.AddCommand(guildShowCmd())
	cmd.AddCommand(guildBindCmd())
	return cmd
}

func guildShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id>",
		Short: "Show a guild's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGuildStore(func(ctx context.Context, cfg *config.Config, s store.GuildSettingsStore) error {
				g, err := s.GetGuildSettings(ctx, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("guild %s is not registered (the bot registers guilds when it joins them)", args[0])
				}
				if err != nil {
					return err
				}
				bound := g.BoundWikiURL
				if bound == "" {
					bound = cfg.Wikilinks.DefaultWiki + " (default)"
				}
				fmt.Printf("guild:  %s\nprefix: %s\nwiki:   %s\nflags:  %s\n",
					g.GuildID, g.Prefix, bound, g.Flags)
				return nil
			})
		},
	}
}

func guildBindCmd() *cobra.Command {
	var skipCheck bool
	cmd := &cobra.Command{
		Use:   "bind <guild-id> <wiki>",
		Short: "Bind a guild to a wiki (URL or dot notation like \"ru.starwars\"; \"-\" unbinds)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guildID, target := args[0], args[1]
			return withGuildStore(func(ctx context.Context, cfg *config.Config, s store.GuildSettingsStore) error {
				if target == "-" {
					if err := s.SetBoundWiki(ctx, guildID, ""); err != nil {
						return fmt.Errorf("unbind: %w", err)
					}
					fmt.Printf("guild %s now uses the default wiki\n", guildID)
					return nil
				}

				w, err := parseWikiArg(target)
				if err != nil {
					return err
				}
				if !skipCheck {
					client := wiki.NewClient(wiki.ClientOptions{UserAgent: cfg.Wiki.UserAgent})
					info, err := client.SiteInfo(ctx, w)
					if err != nil {
						return fmt.Errorf("check %s: %w", w.URL, err)
					}
					fmt.Printf("found %s\n", info.SiteName)
				}

				if err := s.SetBoundWiki(ctx, guildID, w.URL); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("guild %s is not registered", guildID)
					}
					return fmt.Errorf("bind: %w", err)
				}
				fmt.Printf("guild %s bound to %s\n", guildID, w.URL)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&skipCheck, "no-check", false, "do not verify the wiki is reachable")
	return cmd
}

// parseWikiArg accepts an absolute URL or Fandom dot notation.
func parseWikiArg(s string) (*wiki.Wiki, error) {
	if u, err := wiki.ParseURL(s); err == nil {
		return u, nil
	}
	return wiki.FromDotNotation(s)
}

func withGuildStore(fn func(ctx context.Context, cfg *config.Config, s store.GuildSettingsStore) error) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	return fn(ctx, cfg, stores.GuildSettings)
}
