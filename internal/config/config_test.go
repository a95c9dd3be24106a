package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-syncer
provider:
  base_url: http://localhost:9380
database:
  master:
    host: localhost
    port: 5432
    name: master_db
    user: testuser
    password: testpass
  shards:
    - host: localhost
      name: minute_p1
      user: testuser
      password: testpass
    - host: localhost
      name: minute_p2
      user: testuser
      password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-syncer" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-syncer")
	}
	if cfg.Provider.BaseURL != "http://localhost:9380" {
		t.Errorf("Provider.BaseURL = %q, want %q", cfg.Provider.BaseURL, "http://localhost:9380")
	}
	if cfg.Database.Master.Name != "master_db" {
		t.Errorf("Database.Master.Name = %q, want %q", cfg.Database.Master.Name, "master_db")
	}
	if len(cfg.Database.Shards) != 2 {
		t.Fatalf("len(Database.Shards) = %d, want 2", len(cfg.Database.Shards))
	}
	if cfg.Database.Shards[1].Name != "minute_p2" {
		t.Errorf("Shards[1].Name = %q, want %q", cfg.Database.Shards[1].Name, "minute_p2")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-syncer
provider:
  base_url: http://localhost:9380
database:
  master:
    host: localhost
    name: master_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Master.Password != "secret123" {
		t.Errorf("Database.Master.Password = %q, want %q", cfg.Database.Master.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-syncer
provider:
  base_url: http://localhost:9380
database:
  master:
    host: localhost
    name: master_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Provider.Timeout != DefaultProviderTimeout {
		t.Errorf("Provider.Timeout = %v, want default %v", cfg.Provider.Timeout, DefaultProviderTimeout)
	}
	if cfg.Provider.MaxCallsPerMinute != DefaultMaxCallsPerMinute {
		t.Errorf("Provider.MaxCallsPerMinute = %d, want default %d", cfg.Provider.MaxCallsPerMinute, DefaultMaxCallsPerMinute)
	}
	if cfg.Database.Master.Port != DefaultDBPort {
		t.Errorf("Database.Master.Port = %d, want default %d", cfg.Database.Master.Port, DefaultDBPort)
	}
	if cfg.Sync.DefaultEpoch != DefaultEpoch {
		t.Errorf("Sync.DefaultEpoch = %q, want default %q", cfg.Sync.DefaultEpoch, DefaultEpoch)
	}
	if cfg.Sync.CloseBuffer != DefaultCloseBuffer {
		t.Errorf("Sync.CloseBuffer = %v, want default %v", cfg.Sync.CloseBuffer, DefaultCloseBuffer)
	}
	if cfg.Sync.Timezone != DefaultTimezone {
		t.Errorf("Sync.Timezone = %q, want default %q", cfg.Sync.Timezone, DefaultTimezone)
	}
	if cfg.Sync.WriteRetries != DefaultWriteRetries {
		t.Errorf("Sync.WriteRetries = %d, want default %d", cfg.Sync.WriteRetries, DefaultWriteRetries)
	}
}

func TestValidate(t *testing.T) {
	valid := func() SyncerConfig {
		return SyncerConfig{
			Instance: InstanceConfig{ID: "test"},
			Database: DatabaseConfig{
				Master: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2},
				Shards: []DBConfig{
					{Host: "localhost", Name: "p1", User: "user", Password: "pass", MaxConns: 10, MinConns: 2},
				},
			},
			Provider: ProviderConfig{BaseURL: "http://localhost:9380", MaxRetries: 5, PageSize: 6000},
			Sync: SyncConfig{
				DefaultEpoch:   "2005-01-01",
				BatchSize:      2000,
				PruneChunkRows: 20000,
				CodeChunkSize:  400,
				CloseBuffer:    15 * time.Hour,
				Timezone:       "Asia/Shanghai",
				WriteRetries:   3,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*SyncerConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *SyncerConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *SyncerConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing master host",
			mutate:  func(c *SyncerConfig) { c.Database.Master.Host = "" },
			wantErr: "database.master.host is required",
		},
		{
			name:    "missing shard password",
			mutate:  func(c *SyncerConfig) { c.Database.Shards[0].Password = "" },
			wantErr: "database.shards[0].password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *SyncerConfig) { c.Database.Master.MinConns = 20 },
			wantErr: "database.master.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:    "missing provider url",
			mutate:  func(c *SyncerConfig) { c.Provider.BaseURL = "" },
			wantErr: "provider.base_url is required",
		},
		{
			name:    "bad epoch",
			mutate:  func(c *SyncerConfig) { c.Sync.DefaultEpoch = "20050101x" },
			wantErr: `sync.default_epoch must be YYYY-MM-DD, got "20050101x"`,
		},
		{
			name:    "bad write retries",
			mutate:  func(c *SyncerConfig) { c.Sync.WriteRetries = -1 },
			wantErr: "sync.write_retries must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
