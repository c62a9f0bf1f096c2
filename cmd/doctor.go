package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitebot/whitebot/internal/config"
	"github.com/whitebot/whitebot/internal/store/pg"
	"github.com/whitebot/whitebot/internal/store/sqlite"
	"github.com/whitebot/whitebot/internal/upgrade"
	"github.com/whitebot/whitebot/internal/wiki"
	"github.com/whitebot/whitebot/internal/wikilinks"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage and wiki connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("whitebot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("  Config:   %s\n", line)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Discord
	fmt.Println()
	fmt.Println("  Discord:")
	fmt.Printf("    %-12s %s\n", "Token:", maskSecret(cfg.Discord.Token))
	if len(cfg.Discord.AllowGuilds) > 0 {
		fmt.Printf("    %-12s %s\n", "Guilds:", strings.Join(cfg.Discord.AllowGuilds, ", "))
	} else {
		fmt.Printf("    %-12s all\n", "Guilds:")
	}

	// Database
	fmt.Println()
	fmt.Println("  Database:")
	checkDatabase(ctx, cfg)

	// Wiki
	fmt.Println()
	fmt.Println("  Wiki:")
	prefixes := cfg.Wikilinks.Prefixes
	if len(prefixes) == 0 {
		prefixes = wikilinks.DefaultPrefixes
	}
	fmt.Printf("    %-12s %d\n", "Prefixes:", len(prefixes))
	checkWiki(ctx, cfg)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkDatabase(ctx context.Context, cfg *config.Config) {
	if !cfg.IsManagedMode() {
		fmt.Printf("    %-12s sqlite (%s)\n", "Mode:", cfg.Database.SQLitePath)
		if _, err := os.Stat(cfg.Database.SQLitePath); err != nil {
			fmt.Printf("    %-12s not created yet\n", "Status:")
			return
		}
		db, err := sqlite.OpenDB(cfg.Database.SQLitePath)
		if err != nil {
			fmt.Printf("    %-12s OPEN FAILED (%s)\n", "Status:", err)
			return
		}
		db.Close()
		fmt.Printf("    %-12s OK\n", "Status:")
		return
	}

	fmt.Printf("    %-12s postgres\n", "Mode:")
	db, err := pg.OpenDB(cfg.Database.PostgresDSN)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	defer db.Close()

	s, err := upgrade.CheckSchema(ctx, db)
	switch {
	case err != nil:
		fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", err)
	case s.Dirty:
		fmt.Printf("    %-12s v%d (DIRTY, run: whitebot migrate force %d)\n", "Schema:", s.CurrentVersion, s.CurrentVersion-1)
	case s.Compatible:
		fmt.Printf("    %-12s v%d (up to date)\n", "Schema:", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		fmt.Printf("    %-12s v%d (binary too old, requires v%d)\n", "Schema:", s.CurrentVersion, s.RequiredVersion)
	default:
		fmt.Printf("    %-12s v%d (run: whitebot migrate up)\n", "Schema:", s.CurrentVersion)
	}
}

func checkWiki(ctx context.Context, cfg *config.Config) {
	w := wiki.New(cfg.Wikilinks.DefaultWiki)
	client := wiki.NewClient(wiki.ClientOptions{UserAgent: cfg.Wiki.UserAgent})

	info, err := client.SiteInfo(ctx, w)
	if err != nil {
		fmt.Printf("    %-12s %s (UNREACHABLE: %s)\n", "Default:", w.URL, err)
		return
	}
	fmt.Printf("    %-12s %s (%s, %s)\n", "Default:", w.URL, info.SiteName, info.Lang)
}

func maskSecret(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
