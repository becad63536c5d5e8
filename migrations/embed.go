// Package migrations embeds the SQLite schema so the binary carries it.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
