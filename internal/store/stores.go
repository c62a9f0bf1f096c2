package store

import "errors"

// ErrNotFound is returned by getters when no row exists.
var ErrNotFound = errors.New("not found")

// StoreConfig selects and configures the storage backend.
// PostgresDSN takes precedence over SQLitePath.
type StoreConfig struct {
	PostgresDSN string
	SQLitePath  string
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	RelayIdentities RelayIdentityStore
	GuildSettings   GuildSettingsStore

	// Close releases the underlying database handle.
	Close func() error
}
