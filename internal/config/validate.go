package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *SyncerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Master.validate("database.master"); err != nil {
		return err
	}
	for i := range c.Database.Shards {
		if err := c.Database.Shards[i].validate(fmt.Sprintf("database.shards[%d]", i)); err != nil {
			return err
		}
	}

	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.MaxRetries < 1 {
		return errors.New("provider.max_retries must be >= 1")
	}
	if c.Provider.PageSize < 1 {
		return errors.New("provider.page_size must be >= 1")
	}

	if _, err := time.Parse(time.DateOnly, c.Sync.DefaultEpoch); err != nil {
		return fmt.Errorf("sync.default_epoch must be YYYY-MM-DD, got %q", c.Sync.DefaultEpoch)
	}
	if c.Sync.BatchSize < 1 {
		return errors.New("sync.batch_size must be >= 1")
	}
	if c.Sync.PruneChunkRows < 1 {
		return errors.New("sync.prune_chunk_rows must be >= 1")
	}
	if c.Sync.CodeChunkSize < 1 {
		return errors.New("sync.code_chunk_size must be >= 1")
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("sync.timezone must be an IANA zone, got %q: %w", c.Sync.Timezone, err)
	}
	if c.Sync.WriteRetries < 1 {
		return errors.New("sync.write_retries must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
