// Package migrations embeds the PostgreSQL schema so the binary can migrate on startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
