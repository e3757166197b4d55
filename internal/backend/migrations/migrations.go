// Package migrations embeds the PostgreSQL schema of the development backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
