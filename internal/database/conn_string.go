package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rickgao/marketsync/internal/config"
)

// BuildConnString renders the pgx connection URL for one cluster. role tags
// application_name so the master and each shard are tellable apart in
// pg_stat_activity during a multi-cluster run.
func BuildConnString(cfg config.DBConfig, role string) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	s := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
		url.QueryEscape("marketsync-"+role),
	)
	if cfg.ConnectTimeout > 0 {
		s += fmt.Sprintf("&connect_timeout=%d", int(cfg.ConnectTimeout/time.Second))
	}
	return s
}
