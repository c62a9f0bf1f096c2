package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/whitebot/whitebot/internal/wikilinks"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
// Discord snowflakes are often pasted as bare numbers.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for whitebot.
type Config struct {
	Discord   DiscordConfig   `json:"discord"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Wikilinks WikilinksConfig `json:"wikilinks"`
	Wiki      WikiConfig      `json:"wiki,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is NEVER read from the config file, only from env WHITEBOT_POSTGRES_DSN.
// Without a DSN the embedded SQLite database at SQLitePath is used.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"` // default "~/.whitebot/whitebot.db"
}

// IsManagedMode reports whether Postgres is configured.
func (c *Config) IsManagedMode() bool {
	return c.Database.PostgresDSN != ""
}

// WikilinksConfig configures link parsing and resolution.
type WikilinksConfig struct {
	DefaultWiki  string             `json:"default_wiki,omitempty"`  // used when a guild has no bound wiki
	TrailingText bool               `json:"trailing_text,omitempty"` // "[[cat]]s" → "[cats](...)"
	Dedupe       bool               `json:"dedupe,omitempty"`        // one resolution per unique target
	Interwiki    bool               `json:"interwiki,omitempty"`     // resolve unknown prefixes via the wiki's interwiki table
	Prefixes     []wikilinks.Prefix `json:"prefixes,omitempty"`      // replaces the built-in table when set
}

// WikiConfig configures the outbound MediaWiki API client.
type WikiConfig struct {
	UserAgent         string  `json:"user_agent,omitempty"`
	Timeout           string  `json:"timeout,omitempty"`             // Go duration (default "10s")
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"` // 0 = unlimited
	Burst             int     `json:"burst,omitempty"`
}

// TimeoutDuration parses Timeout, falling back to 10s.
func (w WikiConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(w.Timeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// TelemetryConfig configures OpenTelemetry OTLP export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection (local dev)
	ServiceName string            `json:"service_name,omitempty"` // default "whitebot"
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}
