package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"

	"github.com/whitebot/whitebot/internal/wikilinks"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			DefaultPrefix:      "w!",
			WebhookName:        "Wikilink Manager",
			MaxAttachmentBytes: 25 << 20,
		},
		Database: DatabaseConfig{
			SQLitePath: "~/.whitebot/whitebot.db",
		},
		Wikilinks: WikilinksConfig{
			DefaultWiki: "https://community.fandom.com",
		},
		Wiki: WikiConfig{
			UserAgent:         "whitebot (+https://github.com/whitebot/whitebot)",
			Timeout:           "10s",
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "whitebot",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.Database.SQLitePath = ExpandHome(cfg.Database.SQLitePath)
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	envStr("WHITEBOT_DISCORD_TOKEN", &c.Discord.Token)
	if v := os.Getenv("WHITEBOT_ALLOW_GUILDS"); v != "" {
		c.Discord.AllowGuilds = strings.Split(v, ",")
	}

	// Database
	envStr("WHITEBOT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("WHITEBOT_SQLITE_PATH", &c.Database.SQLitePath)

	// Wikilinks
	envStr("WHITEBOT_DEFAULT_WIKI", &c.Wikilinks.DefaultWiki)
	envBool("WHITEBOT_TRAILING_TEXT", &c.Wikilinks.TrailingText)
	envBool("WHITEBOT_DEDUPE", &c.Wikilinks.Dedupe)
	envBool("WHITEBOT_INTERWIKI", &c.Wikilinks.Interwiki)

	// Wiki client
	envStr("WHITEBOT_WIKI_USER_AGENT", &c.Wiki.UserAgent)
	if v := os.Getenv("WHITEBOT_WIKI_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps >= 0 {
			c.Wiki.RequestsPerSecond = rps
		}
	}

	// Telemetry
	envStr("WHITEBOT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("WHITEBOT_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("WHITEBOT_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	envBool("WHITEBOT_TELEMETRY_ENABLED", &c.Telemetry.Enabled)
	envBool("WHITEBOT_TELEMETRY_INSECURE", &c.Telemetry.Insecure)
}

// Validate checks the settings needed to run the bot.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("discord token is required (WHITEBOT_DISCORD_TOKEN)"))
	}
	if u, err := url.Parse(c.Wikilinks.DefaultWiki); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("wikilinks.default_wiki %q is not an absolute URL", c.Wikilinks.DefaultWiki))
	}
	for i, p := range c.Wikilinks.Prefixes {
		if err := validatePrefix(p); err != nil {
			errs = append(errs, fmt.Errorf("wikilinks.prefixes[%d]: %w", i, err))
		}
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol %q must be grpc or http", c.Telemetry.Protocol))
	}
	return errors.Join(errs...)
}

func validatePrefix(p wikilinks.Prefix) error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	switch p.Kind {
	case wikilinks.KindInternal:
		return nil
	case "", wikilinks.KindTemplate:
		if !strings.Contains(p.Template, "{page}") {
			return fmt.Errorf("%s: template must contain {page}", p.Name)
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown kind %q", p.Name, p.Kind)
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
