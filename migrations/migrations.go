// Package migrations embeds the sandbox PostgreSQL schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
