package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/clipsync/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk form of Config. Zero values leave the current
// setting untouched.
type fileConfig struct {
	DatabasePath        string         `json:"database_path" toml:"database_path"`
	BackendAddr         string         `json:"backend_addr" toml:"backend_addr"`
	AccessToken         string         `json:"access_token" toml:"access_token"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	SyncInterval        timex.Duration `json:"sync_interval" toml:"sync_interval"`
	DrainConcurrency    int            `json:"drain_concurrency" toml:"drain_concurrency"`
	MaxAttempts         uint32         `json:"max_attempts" toml:"max_attempts"`
	BackoffBase         timex.Duration `json:"backoff_base" toml:"backoff_base"`
	BackoffCap          timex.Duration `json:"backoff_cap" toml:"backoff_cap"`
	DirectCallTimeout   timex.Duration `json:"direct_call_timeout" toml:"direct_call_timeout"`
	LogLevel            string         `json:"log_level" toml:"log_level"`
	LogFormat           string         `json:"log_format" toml:"log_format"`
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.BackendAddr, fc.BackendAddr)
	setString(&cfg.AccessToken, fc.AccessToken)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = fc.SyncInterval.Duration
	}
	if fc.BackoffBase.Duration > 0 {
		cfg.BackoffBase = fc.BackoffBase.Duration
	}
	if fc.BackoffCap.Duration > 0 {
		cfg.BackoffCap = fc.BackoffCap.Duration
	}
	if fc.DirectCallTimeout.Duration > 0 {
		cfg.DirectCallTimeout = fc.DirectCallTimeout.Duration
	}
	if fc.DrainConcurrency > 0 {
		cfg.DrainConcurrency = fc.DrainConcurrency
	}
	if fc.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
