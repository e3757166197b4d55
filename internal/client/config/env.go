package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "CLIPSYNC_"

// loadEnv overlays cfg with CLIPSYNC_* variables. Variables from envFile are
// added to the process environment first without overriding existing ones;
// a missing envFile is ignored.
func loadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"DATABASE_PATH": &cfg.DatabasePath,
		"BACKEND_ADDR":  &cfg.BackendAddr,
		"ACCESS_TOKEN":  &cfg.AccessToken,
		"LOG_LEVEL":     &cfg.LogLevel,
		"LOG_FORMAT":    &cfg.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ONLINE_CHECK_INTERVAL": &cfg.OnlineCheckInterval,
		"SYNC_INTERVAL":         &cfg.SyncInterval,
		"BACKOFF_BASE":          &cfg.BackoffBase,
		"BACKOFF_CAP":           &cfg.BackoffCap,
		"DIRECT_CALL_TIMEOUT":   &cfg.DirectCallTimeout,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(EnvPrefix + "DRAIN_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDRAIN_CONCURRENCY: %w", EnvPrefix, err)
		}
		cfg.DrainConcurrency = n
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%sMAX_ATTEMPTS: %w", EnvPrefix, err)
		}
		cfg.MaxAttempts = uint32(n)
	}
	return nil
}
