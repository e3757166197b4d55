package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the client flags on fs. Current values of c become
// the flag defaults, so parsing fs overrides only what was given.
//
//	-c, --config string          config file (JSON or TOML)
//	-d, --db string              path to the local queue database
//	-a, --addr string            address:port of the backend gRPC endpoint
//	-i, --online-check duration  connectivity probe interval
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	// read by Load before parsing; registered so the parser accepts it
	fs.StringP("config", "c", "", "config file (JSON or TOML)")

	fs.StringVarP(&c.DatabasePath, "db", "d", c.DatabasePath, "path to the local queue database")
	fs.StringVarP(&c.BackendAddr, "addr", "a", c.BackendAddr, "address and port of the backend")
	fs.StringVar(&c.AccessToken, "token", c.AccessToken, "access token (overrides the stored session)")
	fs.DurationVarP(&c.OnlineCheckInterval, "online-check", "i", c.OnlineCheckInterval, "online status check interval")
	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "periodic sync interval")
	fs.IntVar(&c.DrainConcurrency, "concurrency", c.DrainConcurrency, "queue entries processed at once")
	fs.Uint32Var(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "attempts before an entry is marked failed")
	fs.DurationVar(&c.BackoffBase, "backoff-base", c.BackoffBase, "first retry delay")
	fs.DurationVar(&c.BackoffCap, "backoff-cap", c.BackoffCap, "maximum retry delay")
	fs.DurationVar(&c.DirectCallTimeout, "direct-timeout", c.DirectCallTimeout, "timeout of a direct remote call before queueing")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}
