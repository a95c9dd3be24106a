package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultProviderTimeout   = 30 * time.Second
	DefaultMaxRetries        = 5
	DefaultRetryBackoff      = 1 * time.Second
	DefaultMaxCallsPerMinute = 300
	DefaultProviderPageSize  = 6000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultConnectTimeout    = 10 * time.Second
	DefaultEpoch             = "2005-01-01"
	DefaultExchange          = "SSE"
	DefaultBatchSize         = 2000
	DefaultPruneChunkRows    = 20000
	DefaultCloseBuffer       = 15*time.Hour + 5*time.Minute
	DefaultTimezone          = "Asia/Shanghai"
	DefaultWriteRetries      = 3
	DefaultCodeChunkSize     = 400
)

func (c *SyncerConfig) applyDefaults() {
	// Provider defaults
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}
	if c.Provider.RetryBackoff == 0 {
		c.Provider.RetryBackoff = DefaultRetryBackoff
	}
	if c.Provider.MaxCallsPerMinute == 0 {
		c.Provider.MaxCallsPerMinute = DefaultMaxCallsPerMinute
	}
	if c.Provider.PageSize == 0 {
		c.Provider.PageSize = DefaultProviderPageSize
	}

	// Database defaults
	applyDBDefaults(&c.Database.Master)
	for i := range c.Database.Shards {
		applyDBDefaults(&c.Database.Shards[i])
	}

	// Sync defaults
	if c.Sync.DefaultEpoch == "" {
		c.Sync.DefaultEpoch = DefaultEpoch
	}
	if c.Sync.Exchange == "" {
		c.Sync.Exchange = DefaultExchange
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = DefaultBatchSize
	}
	if c.Sync.PruneChunkRows == 0 {
		c.Sync.PruneChunkRows = DefaultPruneChunkRows
	}
	if c.Sync.CloseBuffer == 0 {
		c.Sync.CloseBuffer = DefaultCloseBuffer
	}
	if c.Sync.Timezone == "" {
		c.Sync.Timezone = DefaultTimezone
	}
	if c.Sync.WriteRetries == 0 {
		c.Sync.WriteRetries = DefaultWriteRetries
	}
	if c.Sync.CodeChunkSize == 0 {
		c.Sync.CodeChunkSize = DefaultCodeChunkSize
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = DefaultConnectTimeout
	}
}
