package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/flagx"
)

// Config holds runtime settings for the clipsync client.
type Config struct {
	DatabasePath string
	BackendAddr  string
	AccessToken  string

	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	DrainConcurrency    int

	MaxAttempts       uint32
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	DirectCallTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	policy := models.DefaultRetryPolicy()

	c.DatabasePath = "clipsync.db"
	c.BackendAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.DrainConcurrency = 3
	c.MaxAttempts = policy.MaxAttempts
	c.BackoffBase = policy.BaseDelay
	c.BackoffCap = policy.MaxDelay
	c.DirectCallTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// RetryPolicy returns the queue retry policy described by c.
func (c *Config) RetryPolicy() models.RetryPolicy {
	return models.RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BackoffBase,
		MaxDelay:    c.BackoffCap,
	}
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.DatabasePath == "":
		return fmt.Errorf("database path is required")
	case c.BackendAddr == "":
		return fmt.Errorf("backend address is required")
	case c.DrainConcurrency < 1:
		return fmt.Errorf("drain concurrency must be at least 1, got %d", c.DrainConcurrency)
	case c.MaxAttempts < 1:
		return fmt.Errorf("max attempts must be at least 1")
	case c.BackoffBase <= 0 || c.BackoffCap < c.BackoffBase:
		return fmt.Errorf("invalid backoff %s..%s", c.BackoffBase, c.BackoffCap)
	}
	return nil
}

// Load constructs a Config from defaults, the config file named in args
// (if any) and the environment. Flags are applied later by the command
// parser through BindFlags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := loadEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	return cfg, nil
}
