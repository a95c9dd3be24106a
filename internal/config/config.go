package config

import "time"

// SyncerConfig is the root configuration for a syncer instance.
type SyncerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Sync     SyncConfig     `yaml:"sync"`
}

// InstanceConfig identifies this syncer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DatabaseConfig holds the master cluster plus the minute-bar shard clusters.
// Shard order is part of the deployment topology: index i here receives the
// rows that the shard router maps to i.
type DatabaseConfig struct {
	Master DBConfig   `yaml:"master"`
	Shards []DBConfig `yaml:"shards"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ProviderConfig holds the out-of-process provider adapter settings.
type ProviderConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	MaxCallsPerMinute int           `yaml:"max_calls_per_minute"`
	PageSize          int           `yaml:"page_size"`
}

// SyncConfig holds the run state-machine settings.
type SyncConfig struct {
	// DefaultEpoch is the first-run start date for tables without a
	// retention window (YYYY-MM-DD).
	DefaultEpoch string `yaml:"default_epoch"`

	// Exchange is the trading calendar used for day iteration and cutoffs.
	Exchange string `yaml:"exchange"`

	// BatchSize bounds rows per write transaction.
	BatchSize int `yaml:"batch_size"`

	// PruneChunkRows bounds rows per retention delete statement.
	PruneChunkRows int `yaml:"prune_chunk_rows"`

	// CloseBuffer is how long after the session close a trading day is
	// considered final (e.g. 15h5m after midnight exchange time).
	CloseBuffer time.Duration `yaml:"close_buffer"`

	// Timezone is the IANA zone the close_buffer clock runs in. The session
	// close is an exchange-local event, not a UTC one.
	Timezone string `yaml:"timezone"`

	// WriteRetries bounds retry attempts per database write batch.
	WriteRetries int `yaml:"write_retries"`

	// CodeChunkSize bounds security codes per minute-bar provider call.
	CodeChunkSize int `yaml:"code_chunk_size"`
}
