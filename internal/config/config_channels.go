package config

// DiscordConfig configures the Discord connection and relay behaviour.
type DiscordConfig struct {
	Token         string              `json:"token,omitempty"`          // or env WHITEBOT_DISCORD_TOKEN
	AllowGuilds   FlexibleStringSlice `json:"allow_guilds,omitempty"`   // empty = all guilds
	DefaultPrefix string              `json:"default_prefix,omitempty"` // stored for new guilds (default "w!")
	WebhookName   string              `json:"webhook_name,omitempty"`   // default "Wikilink Manager"

	// Per-author relay limit. 0 disables it.
	UserRatePerMinute float64 `json:"user_rate_per_minute,omitempty"`
	UserBurst         int     `json:"user_burst,omitempty"`

	MaxAttachmentBytes int64 `json:"max_attachment_bytes,omitempty"` // per file (default 25MB)
}
