// Package config loads runtime configuration for the clipsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or --config. Files ending in
//     .toml are decoded as TOML, anything else as JSON.
//  3. Environment variables prefixed with CLIPSYNC_, optionally read from a
//     .env file in the working directory.
//  4. Command-line flags registered with (*Config).BindFlags.
//
// Intervals use timex.Duration in files, so "3s" and integer nanoseconds
// are both accepted:
//
//	{
//	  "backend_addr": "127.0.0.1:50051",
//	  "database_path": "clipsync.db",
//	  "sync_interval": "30s",
//	  "drain_concurrency": 3
//	}
package config
